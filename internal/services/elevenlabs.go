package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech provider
// Uses the ElevenLabs REST API to convert narration text into speech audio.
// Model: eleven_flash_v2_5 (Flash v2.5, fast, 32 languages)
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsModel        = "eleven_flash_v2_5"
	elevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB"
	elevenLabsOutputFormat = "mp3_44100_128"
)

// ElevenLabsProvider handles text-to-speech via the ElevenLabs API.
type ElevenLabsProvider struct {
	apiKey string
	client *http.Client
}

var _ SpeechProvider = (*ElevenLabsProvider)(nil)

// NewElevenLabsProvider creates an ElevenLabs provider. The API key is
// required; registration is skipped at startup when it is empty.
func NewElevenLabsProvider(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	Speed         *float64                 `json:"speed,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to speech using ElevenLabs.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice models.VoiceSettings) (*SpeechResult, error) {
	voiceID := voice.VoiceID
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.60,
			SimilarityBoost: 0.80,
		},
	}
	if voice.Speed > 0 {
		speed := voice.Speed
		reqBody.Speed = &speed
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		elevenLabsBaseURL, voiceID, elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	log.Debug().
		Str("provider", p.Name()).
		Str("voice_id", voiceID).
		Int("text_len", len(text)).
		Msg("generating speech")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, string(body))
	}

	// The response body is the audio file itself.
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ElevenLabs audio response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	// The endpoint does not report duration, so estimate it the same way
	// segmentation does and let composition trim against the real file.
	duration := models.EstimateNarrationSeconds(text)
	if voice.Speed > 0 {
		duration /= voice.Speed
	}

	return &SpeechResult{
		AudioData: audioData,
		Duration:  duration,
		Format:    "mp3",
	}, nil
}
