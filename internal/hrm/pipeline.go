// Package hrm turns raw heart-rate samples into the three published
// metrics: an offset-adjusted BPM, an exponentially smoothed BPM, and a
// wet/dry ratio bounded to [0, 100].
package hrm

import "sync"

// RatioSource selects which series drives the wet/dry difference.
type RatioSource string

const (
	// SourceAdjusted derives the ratio from adjusted minus smoothed.
	SourceAdjusted RatioSource = "adjusted"
	// SourceSmoothed derives the ratio from smoothed minus adjusted.
	SourceSmoothed RatioSource = "smoothed"
)

// Ratio display constants. The 50-point base and x2 gain come straight from
// the desktop app's wet/dry meter; they are heuristic display scaling, not a
// physiological model.
const (
	ratioBase = 50.0
	ratioGain = 2.0

	ratioMin = 0.0
	ratioMax = 100.0
)

// Config are the user-tunable pipeline parameters.
type Config struct {
	// Offset is a user bias added to every raw sample, in BPM. Typical
	// range -100..+100.
	Offset float64
	// Alpha is the EMA smoothing factor in (0, 1]. Values outside the range
	// are clamped.
	Alpha float64
	// RatioSource picks the direction of the wet/dry difference.
	RatioSource RatioSource
	// RatioOffset shifts the wet/dry output before clamping, -100..+100.
	RatioOffset float64
}

// Metrics is one pipeline output, republished on every sample.
type Metrics struct {
	Raw      float64 `json:"raw"`
	Adjusted float64 `json:"adjusted"`
	Smoothed float64 `json:"smoothed"`
	Ratio    float64 `json:"ratio"`
}

// Pipeline is the retained smoothing state plus its configuration. Safe for
// concurrent use: samples arrive on the network goroutine while parameters
// may change from the consumer's thread.
type Pipeline struct {
	mu     sync.Mutex
	cfg    Config
	prev   float64
	seeded bool
	last   Metrics
}

// NewPipeline returns a pipeline with no retained state.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.RatioSource == "" {
		cfg.RatioSource = SourceSmoothed
	}
	return &Pipeline{cfg: cfg}
}

// Process consumes one raw BPM sample and recomputes all outputs. The first
// sample seeds the smoothing state.
func (p *Pipeline) Process(rawBPM float64) Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	adjusted := rawBPM + p.cfg.Offset

	alpha := p.cfg.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}

	var smoothed float64
	if !p.seeded {
		smoothed = adjusted
		p.seeded = true
	} else {
		smoothed = p.prev + alpha*(adjusted-p.prev)
	}
	p.prev = smoothed

	diff := adjusted - smoothed
	if p.cfg.RatioSource == SourceSmoothed {
		diff = -diff
	}
	ratio := clamp(ratioBase+diff*ratioGain+p.cfg.RatioOffset, ratioMin, ratioMax)

	p.last = Metrics{Raw: rawBPM, Adjusted: adjusted, Smoothed: smoothed, Ratio: ratio}
	return p.last
}

// Last returns the most recently published metrics.
func (p *Pipeline) Last() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Reset discards the retained smoothing state; the next sample seeds anew.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeded = false
	p.prev = 0
	p.last = Metrics{}
}

// SetOffset updates the BPM bias without disturbing the smoothing state.
func (p *Pipeline) SetOffset(offset float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Offset = offset
}

// SetAlpha updates the smoothing factor.
func (p *Pipeline) SetAlpha(alpha float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.Alpha = alpha
}

// SetRatioSource switches the series driving the wet/dry difference.
func (p *Pipeline) SetRatioSource(src RatioSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.RatioSource = src
}

// SetRatioOffset updates the wet/dry display shift.
func (p *Pipeline) SetRatioOffset(offset float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.RatioOffset = offset
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
