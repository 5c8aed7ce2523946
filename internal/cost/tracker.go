package cost

import (
	"fmt"
	"sync"

	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/util"
)

// WordsPerToken is the assumed ratio of English words to backend tokens.
// Token counts derived from it are estimates, never billing-grade numbers.
const WordsPerToken = 0.75

// Tracker accumulates estimated usage and cost across concurrent callers
type Tracker struct {
	mu      sync.Mutex
	pricing config.PricingConfig

	calls        int
	inputTokens  int
	outputTokens int
	perSection   map[string]float64
}

// Summary is a point-in-time view of a Tracker
type Summary struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	TotalCost    float64
	PerSection   map[string]float64
}

// NewTracker creates a tracker using the given prices
func NewTracker(pricing config.PricingConfig) *Tracker {
	return &Tracker{
		pricing:    pricing,
		perSection: make(map[string]float64),
	}
}

// EstimateTokens converts an approximate word count into an approximate token count
func EstimateTokens(words int) int {
	return int(float64(words) / WordsPerToken)
}

// Record adds one backend call. sectionID may be empty for calls outside a section.
func (t *Tracker) Record(sectionID, prompt, output string) float64 {
	in := EstimateTokens(util.CountWords(prompt))
	out := EstimateTokens(util.CountWords(output))
	c := t.price(in, out)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.inputTokens += in
	t.outputTokens += out
	if sectionID != "" {
		t.perSection[sectionID] += c
	}
	return c
}

func (t *Tracker) price(in, out int) float64 {
	return float64(in)/1e6*t.pricing.InputPerMillion + float64(out)/1e6*t.pricing.OutputPerMillion
}

// Summary returns a copy of the accumulated totals
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		Calls:        t.calls,
		InputTokens:  t.inputTokens,
		OutputTokens: t.outputTokens,
		TotalCost:    t.price(t.inputTokens, t.outputTokens),
		PerSection:   make(map[string]float64, len(t.perSection)),
	}
	for k, v := range t.perSection {
		s.PerSection[k] = v
	}
	return s
}

// String renders the summary for terminal output
func (s Summary) String() string {
	return fmt.Sprintf("calls=%d input_tokens~%d output_tokens~%d estimated_cost=$%.4f",
		s.Calls, s.InputTokens, s.OutputTokens, s.TotalCost)
}
