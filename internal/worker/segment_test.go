package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/models"
)

func TestSegmentScript(t *testing.T) {
	scenes := segmentScript("Welcome to the show. This is the middle part! Goodbye everyone?")

	require.Len(t, scenes, 3)
	assert.Equal(t, "scene-1", scenes[0].SceneID)
	assert.Equal(t, "Welcome to the show", scenes[0].Text)
	assert.Equal(t, models.RoleIntro, scenes[0].Role)
	assert.Equal(t, models.RoleMain, scenes[1].Role)
	assert.Equal(t, models.RoleOutro, scenes[2].Role)
}

func TestSegmentScriptDurations(t *testing.T) {
	scenes := segmentScript("One two three four five six. Hi.")

	require.Len(t, scenes, 2)
	assert.InDelta(t, 3.0, scenes[0].Duration, 0.001)
	// Short sentences floor at two seconds.
	assert.InDelta(t, 2.0, scenes[1].Duration, 0.001)
}

func TestSegmentScriptSingleSentence(t *testing.T) {
	scenes := segmentScript("Just one sentence here.")

	require.Len(t, scenes, 1)
	assert.Equal(t, models.RoleIntro, scenes[0].Role)
}

func TestSegmentScriptEmpty(t *testing.T) {
	assert.Empty(t, segmentScript(""))
	assert.Empty(t, segmentScript("...!!!   ??"))
}

func TestValidateTemplate(t *testing.T) {
	scenes := segmentScript("First. Second. Third.")

	tpl := models.Template{
		Name:           "basic",
		MaxScenes:      5,
		SupportedRoles: []models.SceneRole{models.RoleIntro, models.RoleMain, models.RoleOutro},
	}
	assert.NoError(t, validateTemplate(tpl, scenes))

	tooSmall := models.Template{Name: "tiny", MaxScenes: 2, SupportedRoles: tpl.SupportedRoles}
	assert.Error(t, validateTemplate(tooSmall, scenes))

	noOutro := models.Template{
		Name:           "no-outro",
		MaxScenes:      5,
		SupportedRoles: []models.SceneRole{models.RoleIntro, models.RoleMain},
	}
	assert.ErrorContains(t, validateTemplate(noOutro, scenes), "outro")

	// An empty role list accepts everything.
	open := models.Template{Name: "open", MaxScenes: 5}
	assert.NoError(t, validateTemplate(open, scenes))

	noCapacity := models.Template{Name: "empty"}
	assert.Error(t, validateTemplate(noCapacity, scenes))
}

func TestApplyTiming(t *testing.T) {
	scenes := segmentScript("One two three four five six. Seven eight nine ten eleven twelve. Bye.")
	tpl := models.Template{
		Name:      "styled",
		MaxScenes: 10,
		SceneLayers: map[models.SceneRole]string{
			models.RoleIntro: "title-card",
		},
		Transitions: models.TemplateTransitions{
			Intro:    "fade-in",
			Standard: "crossfade",
			Outro:    "fade-out",
		},
	}

	timed := applyTiming(scenes, tpl)
	require.Len(t, timed, 3)

	// Scenes sit end to end with no gaps.
	assert.Equal(t, 0.0, timed[0].StartTime)
	for i := 1; i < len(timed); i++ {
		assert.Equal(t, timed[i-1].EndTime, timed[i].StartTime)
	}
	assert.InDelta(t, 3.0+3.0+2.0, timed[2].EndTime, 0.001)

	assert.Equal(t, "title-card", timed[0].TemplateLayer)
	assert.Equal(t, "default", timed[1].TemplateLayer)

	assert.Equal(t, "fade-in", timed[0].Transitions.In)
	assert.Equal(t, "crossfade", timed[0].Transitions.Out)
	assert.Equal(t, "crossfade", timed[1].Transitions.In)
	assert.Equal(t, "fade-out", timed[2].Transitions.Out)
}
