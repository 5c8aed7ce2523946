package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/lamim/folioforge/pkg/models"
)

// ErrCancelledBeforeStart is reported for sections the batch never started
var ErrCancelledBeforeStart = errors.New("cancelled before start")

// Coordinator runs many sections with bounded cross-section concurrency
type Coordinator struct {
	engine *Engine
	logger *slog.Logger
	bar    io.Writer
}

// NewCoordinator creates a coordinator over engine
func NewCoordinator(engine *Engine, logger *slog.Logger) *Coordinator {
	return &Coordinator{engine: engine, logger: logger.With("component", "coordinator")}
}

// WithProgressBar renders a per-section progress bar to w
func (c *Coordinator) WithProgressBar(w io.Writer) *Coordinator {
	c.bar = w
	return c
}

// RunBatch generates sections with at most crossSection sections in flight
// and perSection subsection workers each. Every section's outcome is
// recorded independently; one failure never stops the others.
func (c *Coordinator) RunBatch(ctx context.Context, sections []models.Section, perSection, crossSection int) models.BatchSummary {
	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	start := time.Now()

	crossSection = max(crossSection, 1)
	logger.Info("Starting batch",
		"sections", len(sections),
		"section_workers", crossSection,
		"subsection_workers", perSection)

	var bar *progressbar.ProgressBar
	if c.bar != nil {
		bar = progressbar.NewOptions(len(sections),
			progressbar.OptionSetWriter(c.bar),
			progressbar.OptionSetDescription("Sections"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
	}

	results := make([]models.SectionResult, len(sections))

	var g errgroup.Group
	g.SetLimit(crossSection)
	for i, s := range sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = models.SectionResult{
					Section: s,
					Status:  models.ResultFailed,
					Error:   ErrCancelledBeforeStart,
				}
			} else {
				results[i] = c.engine.run(ctx, s, perSection)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	summary := Summarize(results)
	summary.RunID = runID
	summary.Elapsed = time.Since(start)

	logger.Info("Batch complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"words", summary.TotalWords,
		"elapsed", summary.Elapsed.Round(time.Second))
	for _, r := range results {
		if r.Status == models.ResultFailed {
			logger.Warn("Section failed", "section", r.Section.Number, "error", r.Error)
		}
	}
	return summary
}

// Summarize aggregates section results in order
func Summarize(results []models.SectionResult) models.BatchSummary {
	summary := models.BatchSummary{
		Total:   len(results),
		Results: results,
		Errors:  make(map[string]string),
	}
	for _, r := range results {
		switch r.Status {
		case models.ResultSuccess:
			summary.Succeeded++
			summary.TotalWords += r.Words
		case models.ResultSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			msg := "unknown error"
			if r.Error != nil {
				msg = r.Error.Error()
			}
			summary.Errors[r.Section.Number] = msg
		}
	}
	return summary
}
