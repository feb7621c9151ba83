package services

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/pipeline/internal/models"
)

func TestSilenceProviderDuration(t *testing.T) {
	p := NewSilenceProvider()

	// Ten words at half a second each.
	res, err := p.Synthesize(context.Background(),
		"one two three four five six seven eight nine ten", models.VoiceSettings{})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, res.Duration, 0.001)
	assert.Equal(t, "wav", res.Format)
}

func TestSilenceProviderMinimumDuration(t *testing.T) {
	p := NewSilenceProvider()

	res, err := p.Synthesize(context.Background(), "hi", models.VoiceSettings{})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Duration, 0.001)
}

func TestSilenceProviderSpeed(t *testing.T) {
	p := NewSilenceProvider()

	res, err := p.Synthesize(context.Background(),
		"one two three four five six seven eight nine ten",
		models.VoiceSettings{Speed: 2.0})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, res.Duration, 0.001)
}

func TestSilentWAVStructure(t *testing.T) {
	data := silentWAV(2.0)

	require.GreaterOrEqual(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, "data", string(data[36:40]))

	// Two seconds of 16kHz 16-bit mono samples.
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	assert.Equal(t, uint32(2*silenceSampleRate*2), dataSize)
	assert.Len(t, data, 44+int(dataSize))

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	assert.Equal(t, uint32(silenceSampleRate), sampleRate)
}
