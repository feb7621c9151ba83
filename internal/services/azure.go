package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// Azure Cognitive Services Text-to-Speech provider
// Speaks narration through the Azure Speech REST endpoint using SSML, which
// is the only way Azure exposes rate and pitch control.
// ---------------------------------------------------------------------------

const (
	azureDefaultVoice = "en-US-JennyNeural"
	azureAudioFormat  = "audio-24khz-96kbitrate-mono-mp3"
)

// AzureSpeechProvider handles text-to-speech via Azure Cognitive Services.
type AzureSpeechProvider struct {
	apiKey string
	region string
	client *http.Client
}

var _ SpeechProvider = (*AzureSpeechProvider)(nil)

// NewAzureSpeechProvider creates an Azure speech provider for the given
// region. Both key and region are required; registration is skipped at
// startup when either is empty.
func NewAzureSpeechProvider(apiKey, region string) *AzureSpeechProvider {
	return &AzureSpeechProvider{
		apiKey: apiKey,
		region: region,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *AzureSpeechProvider) Name() string { return "azure" }

// Synthesize converts text to speech using Azure Cognitive Services.
func (p *AzureSpeechProvider) Synthesize(ctx context.Context, text string, voice models.VoiceSettings) (*SpeechResult, error) {
	voiceName := voice.VoiceID
	if voiceName == "" {
		voiceName = azureDefaultVoice
	}

	ssml := buildSSML(text, voiceName, voice.Speed, voice.Pitch)

	url := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", p.region)
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", azureAudioFormat)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)

	log.Debug().
		Str("provider", p.Name()).
		Str("voice", voiceName).
		Int("text_len", len(text)).
		Msg("generating speech")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Azure speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Azure speech returned status %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Azure audio response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("Azure speech returned empty audio")
	}

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

// buildSSML wraps text in the SSML envelope Azure requires. Speed maps to a
// prosody rate percentage relative to 1.0 and pitch to a signed semitone
// offset. XML-significant characters in the text are escaped.
func buildSSML(text, voiceName string, speed, pitch float64) string {
	rate := "+0%"
	if speed > 0 && speed != 1.0 {
		rate = fmt.Sprintf("%+.0f%%", (speed-1.0)*100)
	}
	pitchAttr := "+0st"
	if pitch != 0 {
		pitchAttr = fmt.Sprintf("%+.1fst", pitch)
	}

	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(text)

	return fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">`+
		`<voice name="%s"><prosody rate="%s" pitch="%s">%s</prosody></voice></speak>`,
		voiceName, rate, pitchAttr, escaped)
}
