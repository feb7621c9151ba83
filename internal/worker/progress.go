package worker

// Each stage owns a fixed slice of the 0-100 progress bar. A stage only ever
// reports inside its own band, and the database clamps updates with GREATEST,
// so progress is monotone even across retries.
type progressBand struct {
	lo, hi int
}

var (
	segmentBand = progressBand{0, 25}
	speechBand  = progressBand{25, 50}
	assetBand   = progressBand{50, 75}
	composeBand = progressBand{75, 95}
	exportBand  = progressBand{95, 100}
)

// at maps a completion fraction into the band. Fractions outside [0,1] clamp
// to the band edges.
func (b progressBand) at(fraction float64) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return b.lo + int(fraction*float64(b.hi-b.lo))
}

// done is the band's upper edge, reported after the stage's output is
// persisted and the successor is enqueued.
func (b progressBand) done() int { return b.hi }
