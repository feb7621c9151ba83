package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/models"
)

// A later stage's payload must decode as any earlier stage's payload; the
// failure policy relies on pulling the project id out of whatever stage the
// job died in.
func TestPayloadsAreAdditive(t *testing.T) {
	export := ExportPayload{
		ComposePayload: ComposePayload{
			AssetPayload: AssetPayload{
				SpeechPayload: SpeechPayload{
					SegmentPayload: SegmentPayload{
						ProjectID:  uuid.New(),
						UserID:     uuid.New(),
						ScriptText: "Hello world.",
						Quality:    models.QualityStandard,
						Watermark:  true,
					},
					Scenes: []models.Scene{{SceneID: "scene-1", Text: "Hello world"}},
				},
				AudioSegments: []models.AudioSegment{{SceneID: "scene-1", AudioObject: "a"}},
			},
			SelectedAssets: []models.SelectedAsset{{SceneID: "scene-1"}},
		},
		Composition: models.CompositionResult{DraftObject: "draft.mp4"},
	}

	data, err := json.Marshal(export)
	require.NoError(t, err)

	var root SegmentPayload
	require.NoError(t, json.Unmarshal(data, &root))
	assert.Equal(t, export.ProjectID, root.ProjectID)
	assert.Equal(t, export.ScriptText, root.ScriptText)

	var mid AssetPayload
	require.NoError(t, json.Unmarshal(data, &mid))
	assert.Len(t, mid.Scenes, 1)
	assert.Len(t, mid.AudioSegments, 1)
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "script-segmentation", StageName(QueueSegment))
	assert.Equal(t, "speech-synthesis", StageName(QueueSpeech))
	assert.Equal(t, "asset-selection", StageName(QueueAssets))
	assert.Equal(t, "composition", StageName(QueueCompose))
	assert.Equal(t, "export", StageName(QueueExport))
	// Unknown queues pass through.
	assert.Equal(t, "other", StageName("other"))
}

func TestAllQueuesOrder(t *testing.T) {
	assert.Equal(t,
		[]string{QueueSegment, QueueSpeech, QueueAssets, QueueCompose, QueueExport},
		AllQueues())
}
