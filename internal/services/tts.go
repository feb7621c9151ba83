package services

import (
	"context"

	"github.com/clipforge/pipeline/internal/models"
)

// ---------------------------------------------------------------------------
// SpeechProvider: common interface for text-to-speech providers
// ElevenLabs, Azure and the offline silence generator all implement this so
// the speech stage can use whichever the project's voice config names
// without knowing the underlying provider.
// ---------------------------------------------------------------------------

// SpeechResult is the common response type from any speech provider.
type SpeechResult struct {
	AudioData []byte
	Duration  float64 // seconds
	Format    string  // "mp3", "wav", etc.
	Phonemes  []models.Phoneme
}

// SpeechProvider is the interface that any text-to-speech provider must implement.
type SpeechProvider interface {
	// Synthesize converts text to audio using the given voice settings. The
	// provider may ignore settings it does not support, but must honor speed
	// when it can since scene timing depends on it.
	Synthesize(ctx context.Context, text string, voice models.VoiceSettings) (*SpeechResult, error)

	// Name returns the provider identifier used in voice configs.
	Name() string
}

// SpeechRegistry holds the providers constructed at startup. Jobs resolve a
// provider by the name in their voice config; unknown or unconfigured names
// fall back to the offline generator so a render never stalls on a missing
// API key.
type SpeechRegistry struct {
	providers map[string]SpeechProvider
	fallback  SpeechProvider
}

// NewSpeechRegistry builds a registry over the given providers with fallback
// as the default for unknown names.
func NewSpeechRegistry(fallback SpeechProvider, providers ...SpeechProvider) *SpeechRegistry {
	r := &SpeechRegistry{
		providers: make(map[string]SpeechProvider, len(providers)+1),
		fallback:  fallback,
	}
	r.providers[fallback.Name()] = fallback
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Resolve returns the provider registered under name, or the fallback.
func (r *SpeechRegistry) Resolve(name string) SpeechProvider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.fallback
}
