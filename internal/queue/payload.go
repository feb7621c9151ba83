package queue

import (
	"github.com/clipforge/pipeline/internal/models"
	"github.com/google/uuid"
)

// Stage payloads are strictly additive: each stage's payload embeds its
// predecessor's, so any job carries everything needed to re-run it from
// scratch without re-reading the project record mid-retry. This embedding
// chain is the integration contract between the five workers; nothing else
// couples them.

// SegmentPayload starts the pipeline. It is the render request in full.
type SegmentPayload struct {
	ProjectID  uuid.UUID            `json:"project_id"`
	UserID     uuid.UUID            `json:"user_id"`
	ScriptText string               `json:"script_text"`
	Template   models.Template      `json:"template"`
	Voice      models.VoiceSettings `json:"voice"`
	Quality    models.QualityTier   `json:"quality"`
	Watermark  bool                 `json:"watermark"`
	Format     models.ExportFormat  `json:"format"`
}

// SpeechPayload adds the scene list produced by segmentation.
type SpeechPayload struct {
	SegmentPayload
	Scenes []models.Scene `json:"scenes"`
}

// AssetPayload adds the audio track and its timing map.
type AssetPayload struct {
	SpeechPayload
	AudioSegments []models.AudioSegment `json:"audio_segments"`
	Timing        models.TimingMap      `json:"timing_map"`
}

// ComposePayload adds one selected visual per scene.
type ComposePayload struct {
	AssetPayload
	SelectedAssets []models.SelectedAsset `json:"selected_assets"`
}

// ExportPayload adds the draft composition export re-encodes.
type ExportPayload struct {
	ComposePayload
	Composition models.CompositionResult `json:"composition"`
}
