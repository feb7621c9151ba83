package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBandsCoverTheBar(t *testing.T) {
	bands := []progressBand{segmentBand, speechBand, assetBand, composeBand, exportBand}

	assert.Equal(t, 0, bands[0].lo)
	assert.Equal(t, 100, bands[len(bands)-1].hi)
	for i := 1; i < len(bands); i++ {
		// Each band starts where its predecessor ends.
		assert.Equal(t, bands[i-1].hi, bands[i].lo)
	}
}

func TestProgressBandAt(t *testing.T) {
	assert.Equal(t, 25, speechBand.at(0))
	assert.Equal(t, 37, speechBand.at(0.5))
	assert.Equal(t, 50, speechBand.at(1))
	assert.Equal(t, 50, speechBand.done())

	// Out-of-range fractions clamp.
	assert.Equal(t, 25, speechBand.at(-1))
	assert.Equal(t, 50, speechBand.at(2))
}

func TestProgressBandNeverLeavesItsRange(t *testing.T) {
	for f := -0.5; f <= 1.5; f += 0.1 {
		v := composeBand.at(f)
		assert.GreaterOrEqual(t, v, composeBand.lo)
		assert.LessOrEqual(t, v, composeBand.hi)
	}
}
