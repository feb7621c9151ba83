package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"scenes": []string{"scene-1", "scene-2"},
		"mood":   "dramatic",
	}

	data, err := j.Value()
	require.NoError(t, err)
	require.NotNil(t, data)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(data.([]byte), &result))
	assert.Equal(t, "dramatic", result["mood"])
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"color": "blue", "size": 10}`)

	var j JSONB
	require.NoError(t, j.Scan(jsonData))
	assert.Equal(t, "blue", j["color"])
	assert.Equal(t, float64(10), j["size"])

	var nilScan JSONB
	require.NoError(t, nilScan.Scan(nil))
	assert.Nil(t, nilScan)
}

func TestProjectStatusTerminal(t *testing.T) {
	assert.True(t, ProjectStatusCompleted.Terminal())
	assert.True(t, ProjectStatusFailed.Terminal())
	assert.False(t, ProjectStatusDraft.Terminal())
	assert.False(t, ProjectStatusProcessing.Terminal())
	// Soft deletion is not a pipeline outcome.
	assert.False(t, ProjectStatusDeleted.Terminal())
}

func TestExportCredits(t *testing.T) {
	assert.Equal(t, 0, QualityPreview.ExportCredits())
	assert.Equal(t, 1, QualityStandard.ExportCredits())
	assert.Equal(t, 2, QualityPremium.ExportCredits())
	assert.Equal(t, 0, QualityTier("unknown").ExportCredits())
}

func TestHasActiveSubscription(t *testing.T) {
	assert.True(t, (&User{SubscriptionStatus: "active"}).HasActiveSubscription())
	assert.False(t, (&User{SubscriptionStatus: "canceled"}).HasActiveSubscription())
	assert.False(t, (&User{}).HasActiveSubscription())
}
