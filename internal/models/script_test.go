package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateNarrationSeconds(t *testing.T) {
	assert.InDelta(t, 2.0, EstimateNarrationSeconds(""), 0.001)
	assert.InDelta(t, 2.0, EstimateNarrationSeconds("one two three"), 0.001)
	assert.InDelta(t, 2.5, EstimateNarrationSeconds("one two three four five"), 0.001)
	assert.InDelta(t, 5.0, EstimateNarrationSeconds("a b c d e f g h i j"), 0.001)
}

func TestTemplateSupportsRole(t *testing.T) {
	tpl := Template{SupportedRoles: []SceneRole{RoleIntro, RoleMain}}
	assert.True(t, tpl.SupportsRole(RoleIntro))
	assert.True(t, tpl.SupportsRole(RoleMain))
	assert.False(t, tpl.SupportsRole(RoleOutro))
}

func TestSelectedAssetPlaceholder(t *testing.T) {
	assert.True(t, SelectedAsset{}.Placeholder())
	assert.False(t, SelectedAsset{AssetObject: "projects/x/assets/scene-1.jpg"}.Placeholder())
}
