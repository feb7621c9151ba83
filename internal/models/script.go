package models

// Types that make up the script accumulator: the JSON blob each stage reads,
// extends, and writes back to the project record. Every stage also embeds the
// same structures into the next stage's payload, so a job can be re-run from
// its payload without touching the record mid-retry.

import "strings"

// Narration duration heuristic. Segmentation uses it to time scenes and the
// offline speech provider uses it to size silent audio, so the two always
// agree.
const (
	secondsPerWord  = 0.5
	minSceneSeconds = 2.0
)

// EstimateNarrationSeconds returns the heuristic spoken duration of text:
// half a second per word, floored at two seconds.
func EstimateNarrationSeconds(text string) float64 {
	words := len(strings.Fields(text))
	d := float64(words) * secondsPerWord
	if d < minSceneSeconds {
		return minSceneSeconds
	}
	return d
}

// SceneRole is assigned by position within the script.
type SceneRole string

const (
	RoleIntro SceneRole = "intro"
	RoleMain  SceneRole = "main"
	RoleOutro SceneRole = "outro"
)

// Scene is one timed unit of script content. Duration is computed once by
// segmentation and is a timing input to every later stage; nothing
// downstream recomputes it.
type Scene struct {
	SceneID       string          `json:"scene_id"`
	Text          string          `json:"text"`
	Duration      float64         `json:"duration"` // seconds
	Role          SceneRole       `json:"role"`
	StartTime     float64         `json:"start_time"`
	EndTime       float64         `json:"end_time"`
	TemplateLayer string          `json:"template_layer"`
	Transitions   SceneTransition `json:"transitions"`
}

type SceneTransition struct {
	In  string `json:"in,omitempty"`
	Out string `json:"out,omitempty"`
}

// Template is the caller-supplied descriptor segmentation validates against
// and later stages take hints from.
type Template struct {
	Name           string               `json:"name"`
	MaxScenes      int                  `json:"max_scenes"`
	SupportedRoles []SceneRole          `json:"supported_roles"`
	SceneLayers    map[SceneRole]string `json:"scene_layers,omitempty"`
	Transitions    TemplateTransitions  `json:"transitions,omitempty"`
	AssetTypes     map[SceneRole]string `json:"asset_types,omitempty"` // "image" or "video"
}

type TemplateTransitions struct {
	Intro    string `json:"intro,omitempty"`
	Standard string `json:"standard,omitempty"`
	Outro    string `json:"outro,omitempty"`
}

// SupportsRole reports whether the template accepts scenes of the given role.
func (t Template) SupportsRole(role SceneRole) bool {
	for _, r := range t.SupportedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// VoiceSettings selects and tunes the speech provider.
type VoiceSettings struct {
	Provider string  `json:"provider,omitempty"` // "elevenlabs", "azure", "silent"
	VoiceID  string  `json:"voice_id,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`
}

// AudioSegment is the speech-synthesis output for one scene. AudioObject is
// the storage key of the uploaded audio; stages never exchange local paths.
type AudioSegment struct {
	SceneID     string    `json:"scene_id"`
	AudioObject string    `json:"audio_object"`
	Duration    float64   `json:"duration"`
	StartTime   float64   `json:"start_time"`
	EndTime     float64   `json:"end_time"`
	Phonemes    []Phoneme `json:"phonemes,omitempty"`
}

type Phoneme struct {
	Symbol string  `json:"symbol"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// TimingMap summarizes the full audio track.
type TimingMap struct {
	TotalDuration float64         `json:"total_duration"`
	Segments      []TimingSegment `json:"segments"`
}

type TimingSegment struct {
	SceneID     string  `json:"scene_id"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Duration    float64 `json:"duration"`
	AudioObject string  `json:"audio_object"`
}

// AssetType distinguishes still images from video footage.
type AssetType string

const (
	AssetImage AssetType = "image"
	AssetVideo AssetType = "video"
)

// AssetDescriptor is what a stock-media provider returns for one search hit.
type AssetDescriptor struct {
	ID          string    `json:"id"`
	Type        AssetType `json:"type"`
	Provider    string    `json:"provider"`
	Title       string    `json:"title,omitempty"`
	PageURL     string    `json:"page_url,omitempty"`
	DownloadURL string    `json:"download_url"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Duration    float64   `json:"duration,omitempty"` // video assets only
	Tags        []string  `json:"tags,omitempty"`
	License     string    `json:"license,omitempty"`
}

// SelectedAsset pairs a scene with its chosen visual. AssetObject is empty
// when the download failed and the entry is a placeholder. Composition must
// tolerate that, the pipeline does not abort over a missing visual.
type SelectedAsset struct {
	SceneID     string          `json:"scene_id"`
	AssetType   AssetType       `json:"asset_type"`
	Descriptor  AssetDescriptor `json:"descriptor"`
	AssetObject string          `json:"asset_object,omitempty"`
	StartTime   float64         `json:"start_time"`
	EndTime     float64         `json:"end_time"`
	Duration    float64         `json:"duration"`
}

// Placeholder reports whether the entry degraded to a synthetic visual.
func (a SelectedAsset) Placeholder() bool {
	return a.AssetObject == ""
}

// CompositionResult is what the composition stage hands to export.
type CompositionResult struct {
	DraftObject string      `json:"draft_object"`
	Duration    float64     `json:"duration"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Quality     QualityTier `json:"quality"`
	Watermark   bool        `json:"watermark"`
}
