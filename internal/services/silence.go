package services

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// Silence provider: the offline speech fallback
// Produces a valid silent WAV sized by the same duration heuristic that
// segmentation uses. Renders stay fully functional (and deterministic) when
// no speech API is configured, which is also what the tests run against.
// ---------------------------------------------------------------------------

const (
	silenceSampleRate = 16000
	silenceBitDepth   = 16
)

// SilenceProvider synthesizes silent audio of the estimated narration length.
type SilenceProvider struct{}

var _ SpeechProvider = (*SilenceProvider)(nil)

func NewSilenceProvider() *SilenceProvider { return &SilenceProvider{} }

func (p *SilenceProvider) Name() string { return "silent" }

// Synthesize returns a silent mono WAV lasting the heuristic duration of
// text, adjusted for the configured speed.
func (p *SilenceProvider) Synthesize(_ context.Context, text string, voice models.VoiceSettings) (*SpeechResult, error) {
	duration := models.EstimateNarrationSeconds(text)
	if voice.Speed > 0 {
		duration /= voice.Speed
	}

	log.Debug().
		Str("provider", p.Name()).
		Float64("duration", duration).
		Msg("generating silent audio")

	return &SpeechResult{
		AudioData: silentWAV(duration),
		Duration:  duration,
		Format:    "wav",
	}, nil
}

// silentWAV builds a RIFF/WAVE file of zeroed 16-bit mono PCM samples.
func silentWAV(seconds float64) []byte {
	samples := int(seconds * silenceSampleRate)
	dataSize := samples * (silenceBitDepth / 8)

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk: PCM, mono
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate*silenceBitDepth/8))
	binary.Write(&buf, binary.LittleEndian, uint16(silenceBitDepth/8))
	binary.Write(&buf, binary.LittleEndian, uint16(silenceBitDepth))

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}
