package cost

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/lamim/folioforge/internal/config"
)

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(750); got != 1000 {
		t.Errorf("Expected 1000 tokens for 750 words, got %d", got)
	}
	if got := EstimateTokens(0); got != 0 {
		t.Errorf("Expected 0 tokens, got %d", got)
	}
}

func TestTracker_Record(t *testing.T) {
	tr := NewTracker(config.PricingConfig{InputPerMillion: 1, OutputPerMillion: 2})

	prompt := strings.Repeat("word ", 75)  // 100 tokens
	output := strings.Repeat("word ", 150) // 200 tokens
	c := tr.Record("3", prompt, output)

	want := 100/1e6*1 + 200/1e6*2
	if math.Abs(c-want) > 1e-12 {
		t.Errorf("Expected cost %v, got %v", want, c)
	}

	s := tr.Summary()
	if s.Calls != 1 || s.InputTokens != 100 || s.OutputTokens != 200 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if math.Abs(s.PerSection["3"]-want) > 1e-12 {
		t.Errorf("Expected per-section cost %v, got %v", want, s.PerSection["3"])
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(config.PricingConfig{InputPerMillion: 0.14, OutputPerMillion: 0.28})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record("1", "a b c", "d e f")
		}()
	}
	wg.Wait()

	if s := tr.Summary(); s.Calls != 50 {
		t.Errorf("Expected 50 calls, got %d", s.Calls)
	}
}

func TestTracker_SummaryIsCopy(t *testing.T) {
	tr := NewTracker(config.PricingConfig{InputPerMillion: 1})
	tr.Record("1", "a", "b")
	s := tr.Summary()
	s.PerSection["1"] = 99
	if tr.Summary().PerSection["1"] == 99 {
		t.Error("Summary must not expose internal state")
	}
}
