package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/lamim/folioforge/internal/cost"
	"github.com/lamim/folioforge/internal/metrics"
)

type sectionKey struct{}

// WithSection tags ctx with the section a backend call belongs to
func WithSection(ctx context.Context, sectionID string) context.Context {
	return context.WithValue(ctx, sectionKey{}, sectionID)
}

// SectionFrom returns the section tag of ctx, or ""
func SectionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sectionKey{}).(string)
	return id
}

// Instrumented decorates a Generator with cost estimation, metrics and
// debug logging of every call.
type Instrumented struct {
	next    Generator
	model   string
	tracker *cost.Tracker
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewInstrumented wraps next. tracker and m may be nil.
func NewInstrumented(next Generator, model string, tracker *cost.Tracker, m *metrics.Collector, logger *slog.Logger) *Instrumented {
	return &Instrumented{
		next:    next,
		model:   model,
		tracker: tracker,
		metrics: m,
		logger:  logger.With("component", "backend"),
	}
}

// Generate implements Generator
func (g *Instrumented) Generate(ctx context.Context, prompt string, maxOutputUnits int) (string, error) {
	start := time.Now()
	text, err := g.next.Generate(ctx, prompt, maxOutputUnits)
	elapsed := time.Since(start)

	g.metrics.RecordAPIRequest(g.model, elapsed, err == nil)

	section := SectionFrom(ctx)
	if err != nil {
		g.logger.Debug("Backend call failed",
			"section", section,
			"duration", elapsed,
			"transient", IsTransient(err),
			"error", err)
		return "", err
	}

	if g.tracker != nil {
		g.tracker.Record(section, prompt, text)
	}
	g.logger.Debug("Backend call complete",
		"section", section,
		"duration", elapsed,
		"max_output_units", maxOutputUnits,
		"output_chars", len(text))
	return text, nil
}
