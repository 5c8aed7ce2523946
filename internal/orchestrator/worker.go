package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lamim/folioforge/internal/llm"
	"github.com/lamim/folioforge/internal/quality"
	"github.com/lamim/folioforge/internal/util"
	"github.com/lamim/folioforge/internal/writer"
	"github.com/lamim/folioforge/pkg/models"
)

// unitResult is the outcome of one subsection, stored by index so results
// can be written in plan order whatever order the workers finish in
type unitResult struct {
	done      bool
	cancelled bool
	text      string
	err       error
}

// writeTopic generates the pending subsections of one topic on a pool of at
// most r.workers goroutines. Successful units are journaled and checkpointed
// in ascending order once the whole topic has settled. Any failed unit fails
// the topic, after the successful ones have been persisted.
func (e *Engine) writeTopic(ctx context.Context, r *sectionRun, topic models.Topic) error {
	results := make([]unitResult, len(topic.Subsections))

	var g errgroup.Group
	g.SetLimit(r.workers)

	var cancelled error
	for i, title := range topic.Subsections {
		subIdx := i + 1
		key := models.SubsectionKey(topic.Index, subIdx)

		if e.store.IsSubsectionCompleted(r.id, topic.Index, subIdx) {
			b, ok := r.blocks[key]
			if !ok {
				r.logger.Warn("Completed unit has no journal block", "unit", key)
			}
			e.reuseUnit(r, key, b)
			continue
		}

		if err := ctx.Err(); err != nil {
			cancelled = fmt.Errorf("cancelled before unit %s: %w", key, err)
			break
		}

		g.Go(func() error {
			// The slot may only free up after cancellation
			if ctx.Err() != nil {
				results[i] = unitResult{cancelled: true}
				return nil
			}

			e.metrics.WorkerBusy(1)
			defer e.metrics.WorkerBusy(-1)
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("Unit panicked", "unit", key, "panic", p, "stack", string(debug.Stack()))
					results[i] = unitResult{done: true, err: fmt.Errorf("panic: %v", p)}
				}
			}()

			e.monitor.UpdateCurrentUnit(r.id, key)
			text, err := e.generate(ctx, r, key, e.templates.Subsection, e.limits.Subsection, e.unitData(r, &topic, subIdx, title))
			results[i] = unitResult{done: true, text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, res := range results {
		if res.cancelled && cancelled == nil {
			cancelled = fmt.Errorf("cancelled before unit %s: %w", models.SubsectionKey(topic.Index, i+1), ctx.Err())
		}
		if !res.done {
			continue
		}
		subIdx := i + 1
		key := models.SubsectionKey(topic.Index, subIdx)

		if res.err != nil {
			e.metrics.RecordUnit("subsection", "error", 0)
			errs = append(errs, fmt.Errorf("unit %s: %w", key, res.err))
			continue
		}

		heading := writer.SubsectionHeading(r.section.Number, topic.Index, subIdx, topic.Subsections[i])
		if err := r.journal.Append(key, heading, res.text); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.store.CompleteSubsection(r.id, topic.Index, subIdx); err != nil {
			errs = append(errs, fmt.Errorf("failed to checkpoint unit %s: %w", key, err))
			continue
		}

		words := util.CountWords(res.text)
		e.monitor.CompleteUnit(r.id, words)
		e.metrics.RecordUnit("subsection", "written", words)
	}

	if cancelled != nil {
		errs = append(errs, cancelled)
	}
	if len(errs) > 0 {
		r.logger.Warn("Topic incomplete", "topic", topic.Index, "failed", len(errs))
		return fmt.Errorf("topic %d incomplete: %w", topic.Index, errors.Join(errs...))
	}
	return nil
}

// generate renders a prompt and calls the backend. The call runs detached
// from ctx cancellation so an in-flight unit always completes and can be
// persisted.
func (e *Engine) generate(ctx context.Context, r *sectionRun, key, tmpl string, limit int, data map[string]any) (string, error) {
	prompt, err := util.RenderTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	callCtx := llm.WithSection(context.WithoutCancel(ctx), r.id)
	text, err := e.gen.Generate(callCtx, prompt, limit)
	if err != nil {
		return "", err
	}

	text = util.CleanResponse(text)
	if strings.TrimSpace(text) == "" {
		r.logger.Warn("Backend returned empty output", "unit", key)
		return "", nil
	}

	if e.qualityChecks && unitKind(key) == "subsection" {
		e.lint(r, key, text)
	}
	return text, nil
}

func (e *Engine) lint(r *sectionRun, key, text string) {
	report := quality.Check(text, e.targetWords)
	for _, f := range report.Findings {
		r.logger.Debug("Quality finding", "unit", key, "severity", string(f.Severity), "message", f.Message)
	}
	if !report.Passed() {
		r.logger.Warn("Unit failed quality checks",
			"unit", key,
			"words", report.Stats.Words,
			"bullets", report.Stats.Bullets,
			"findings", len(report.Findings))
	}
}

// unitData builds the template data of a unit. topic is nil for the
// introduction and the summary.
func (e *Engine) unitData(r *sectionRun, topic *models.Topic, subIdx int, title string) map[string]any {
	data := map[string]any{
		"Chapter":       r.section.Chapter,
		"SectionNumber": r.section.Number,
		"SectionTitle":  r.section.Title,
		"TargetWords":   e.targetWords,
	}
	if topic == nil {
		data["TopicList"] = topicList(r.plan.Topics)
		return data
	}
	data["TopicIndex"] = topic.Index
	data["TopicTitle"] = topic.Title
	data["SubsectionIndex"] = subIdx
	data["SubsectionTitle"] = title
	return data
}

func topicList(topics []models.Topic) string {
	lines := make([]string, len(topics))
	for i, t := range topics {
		lines[i] = fmt.Sprintf("%d. %s", t.Index, t.Title)
	}
	return strings.Join(lines, "\n")
}
