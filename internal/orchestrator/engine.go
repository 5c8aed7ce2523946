package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lamim/folioforge/internal/checkpoint"
	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/llm"
	"github.com/lamim/folioforge/internal/metrics"
	"github.com/lamim/folioforge/internal/planner"
	"github.com/lamim/folioforge/internal/progress"
	"github.com/lamim/folioforge/internal/util"
	"github.com/lamim/folioforge/internal/writer"
	"github.com/lamim/folioforge/pkg/models"
)

// Checkpointer is the durable per-unit progress store the engine writes
// through. *checkpoint.Store implements it.
type Checkpointer interface {
	StartSection(id, title string, topicCount int) error
	Record(id string) (models.CheckpointRecord, bool)
	ResumePoint(id string) (models.ResumePoint, bool)
	IsSubsectionCompleted(id string, topicIdx, subIdx int) bool
	CompleteSubsection(id string, topicIdx, subIdx int) error
	CompleteTopic(id string, topicIdx int) error
	CompleteSection(id string) error
	ClearSection(id string) error
}

var _ Checkpointer = (*checkpoint.Store)(nil)

// Engine generates one section end to end: planning, writing every unit
// through a bounded worker pool, and assembling the final artifact. Progress
// is checkpointed per unit so an interrupted section resumes where it
// stopped.
type Engine struct {
	gen      llm.Generator
	planner  *planner.Planner
	store    Checkpointer
	monitor  *progress.Monitor
	layout   *writer.Layout
	resolver Resolver
	metrics  *metrics.Collector
	observer Observer
	logger   *slog.Logger

	templates     config.PromptTemplates
	limits        config.LimitsConfig
	topics        int
	subsections   int
	workers       int
	targetWords   int
	qualityChecks bool

	now func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithResolver overrides the partial-checkpoint policy from config
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithMetrics records unit and section metrics
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver registers a state transition callback
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates a section engine from config
func NewEngine(
	cfg *config.Config,
	gen llm.Generator,
	store Checkpointer,
	monitor *progress.Monitor,
	layout *writer.Layout,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		gen:           gen,
		planner:       planner.New(gen, cfg.PromptTemplates, cfg.Limits, logger),
		store:         store,
		monitor:       monitor,
		layout:        layout,
		logger:        logger.With("component", "engine"),
		templates:     cfg.PromptTemplates,
		limits:        cfg.Limits,
		topics:        cfg.Generation.TopicsPerSection,
		subsections:   cfg.Generation.SubsectionsPerTopic,
		workers:       cfg.Generation.SubsectionWorkers,
		targetWords:   cfg.Generation.TargetWords,
		qualityChecks: cfg.Generation.QualityChecks,
		now:           time.Now,
	}
	if e.workers < 1 {
		e.workers = 1
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.resolver == nil {
		policy, err := ParsePolicy(cfg.Generation.OnPartial)
		if err != nil {
			e.logger.Warn("Unknown partial policy, resuming", "policy", cfg.Generation.OnPartial)
		}
		e.resolver = NewPolicyResolver(policy)
	}
	return e
}

// sectionRun carries the state of one Run call
type sectionRun struct {
	section models.Section
	id      string
	logger  *slog.Logger
	state   State
	workers int

	artifactPath string
	journalPath  string

	resume  bool
	plan    models.Plan
	journal *writer.Journal
	blocks  map[string]writer.Block // journal content from earlier runs
}

// Run generates one section with the configured worker pool size. It never
// returns an error: every failure, panics included, is reported in the
// result.
func (e *Engine) Run(ctx context.Context, section models.Section) models.SectionResult {
	return e.run(ctx, section, e.workers)
}

func (e *Engine) run(ctx context.Context, section models.Section, workers int) (res models.SectionResult) {
	start := e.now()
	r := &sectionRun{
		section: section,
		id:      section.ID(),
		logger:  e.logger.With("section", section.Number),
		state:   StateNotStarted,
		workers: max(workers, 1),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Section panicked", "panic", p, "stack", string(debug.Stack()))
			res = e.fail(r, fmt.Errorf("panic: %v", p))
		}
		res.Duration = e.now().Sub(start)
		e.metrics.SectionFinished(string(res.Status), res.Duration)
	}()

	e.metrics.SectionStarted()
	res, err := e.execute(ctx, r)
	if err != nil {
		return e.fail(r, err)
	}
	return res
}

func (e *Engine) execute(ctx context.Context, r *sectionRun) (models.SectionResult, error) {
	var err error
	if r.artifactPath, err = e.layout.SectionPath(r.section); err != nil {
		return models.SectionResult{}, err
	}
	if r.journalPath, err = e.layout.JournalPath(r.section); err != nil {
		return models.SectionResult{}, err
	}

	if skipped, reason, err := e.resolveExisting(r); err != nil {
		return models.SectionResult{}, err
	} else if skipped {
		r.logger.Info("Skipping section", "reason", reason)
		e.transition(r, StateDone)
		return models.SectionResult{
			Section:    r.section,
			Status:     models.ResultSkipped,
			OutputPath: r.artifactPath,
			Reason:     reason,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return models.SectionResult{}, fmt.Errorf("cancelled before planning: %w", err)
	}

	e.transition(r, StatePlanning)
	r.logger.Info("Planning section", "title", r.section.Title, "resume", r.resume)
	r.plan, err = e.planner.Plan(llm.WithSection(ctx, r.id), r.section, e.topics, e.subsections)
	if err != nil {
		return models.SectionResult{}, fmt.Errorf("planning failed: %w", err)
	}

	if !r.resume {
		if err := e.store.StartSection(r.id, r.section.Title, len(r.plan.Topics)); err != nil {
			return models.SectionResult{}, fmt.Errorf("failed to start checkpoint: %w", err)
		}
	}
	rec, ok := e.store.Record(r.id)
	if !ok {
		return models.SectionResult{}, fmt.Errorf("checkpoint record missing for section %s", r.id)
	}
	e.monitor.StartSection(r.id, r.section.Title, r.plan.TotalUnits())

	e.transition(r, StateWriting)
	if err := e.write(ctx, r); err != nil {
		return models.SectionResult{}, err
	}

	e.transition(r, StateAssembling)
	words, err := e.assemble(r, rec.StartedAt)
	if err != nil {
		return models.SectionResult{}, err
	}

	if err := e.store.CompleteSection(r.id); err != nil {
		return models.SectionResult{}, fmt.Errorf("failed to complete checkpoint: %w", err)
	}
	// the journal must outlive every state where the record is still in progress
	if err := os.Remove(r.journalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("Failed to remove journal", "path", r.journalPath, "error", err)
	}
	e.monitor.CompleteSection(r.id, words)
	e.transition(r, StateDone)

	r.logger.Info("Section complete", "words", words, "path", r.artifactPath)
	return models.SectionResult{
		Section:    r.section,
		Status:     models.ResultSuccess,
		Words:      words,
		OutputPath: r.artifactPath,
	}, nil
}

// resolveExisting inspects the checkpoint and the artifact on disk and decides
// whether the section is skipped, resumed or started fresh
func (e *Engine) resolveExisting(r *sectionRun) (bool, string, error) {
	exists := e.layout.ArtifactExists(r.section)
	rec, hasRecord := e.store.Record(r.id)

	switch {
	case hasRecord && rec.Status == models.StatusCompleted:
		if exists {
			return true, "already completed", nil
		}
		r.logger.Warn("Section marked complete but artifact is missing, regenerating", "path", r.artifactPath)
		if err := e.store.ClearSection(r.id); err != nil {
			return false, "", fmt.Errorf("failed to clear checkpoint: %w", err)
		}
		return false, "", e.discardJournal(r)

	case hasRecord:
		rp, _ := e.store.ResumePoint(r.id)
		switch d := e.resolver.OnPartial(r.section, rp); d {
		case Resume:
			r.resume = true
			r.logger.Info("Resuming section", "completed_units", len(rp.CompletedSubsections), "current_topic", rp.CurrentTopic)
			return false, "", nil
		case Restart:
			r.logger.Info("Restarting section from scratch")
			if err := e.store.ClearSection(r.id); err != nil {
				return false, "", fmt.Errorf("failed to clear checkpoint: %w", err)
			}
			return false, "", e.discardJournal(r)
		default:
			return true, "aborted", nil
		}

	case exists:
		if e.resolver.OnExisting(r.section, r.artifactPath) != Restart {
			return true, "artifact exists", nil
		}
		r.logger.Info("Overwriting existing artifact", "path", r.artifactPath)
		return false, "", e.discardJournal(r)

	default:
		return false, "", e.discardJournal(r)
	}
}

func (e *Engine) discardJournal(r *sectionRun) error {
	if err := os.Remove(r.journalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale journal: %w", err)
	}
	return nil
}

// write produces every unit in plan order: the introduction, each topic's
// subsections, then the summary
func (e *Engine) write(ctx context.Context, r *sectionRun) error {
	r.blocks = map[string]writer.Block{}
	if r.resume {
		blocks, err := writer.ReadJournal(r.journalPath)
		if err != nil {
			r.logger.Warn("Failed to read journal, earlier units will be regenerated or noted as missing", "error", err)
		} else {
			r.blocks = blocks
		}
	}

	journal, err := writer.OpenJournal(r.journalPath)
	if err != nil {
		return err
	}
	r.journal = journal
	defer func() {
		if err := journal.Close(); err != nil {
			r.logger.Warn("Failed to close journal", "error", err)
		}
	}()

	if err := e.writeSectionUnit(ctx, r, writer.IntroKey); err != nil {
		return err
	}

	for _, topic := range r.plan.Topics {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled before topic %d: %w", topic.Index, err)
		}
		if err := e.writeTopic(ctx, r, topic); err != nil {
			return err
		}
		if err := e.store.CompleteTopic(r.id, topic.Index); err != nil {
			return fmt.Errorf("failed to checkpoint topic %d: %w", topic.Index, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before summary: %w", err)
	}
	return e.writeSectionUnit(ctx, r, writer.SummaryKey)
}

// writeSectionUnit writes the introduction or the summary. On resume a block
// already in the journal is reused.
func (e *Engine) writeSectionUnit(ctx context.Context, r *sectionRun, key string) error {
	if b, ok := r.blocks[key]; ok {
		e.reuseUnit(r, key, b)
		return nil
	}

	tmpl, limit, heading := e.templates.Introduction, e.limits.Introduction, ""
	if key == writer.SummaryKey {
		tmpl, limit, heading = e.templates.Summary, e.limits.Summary, writer.SummaryHeading
	}

	e.monitor.UpdateCurrentUnit(r.id, key)
	text, err := e.generate(ctx, r, key, tmpl, limit, e.unitData(r, nil, 0, ""))
	if err != nil {
		e.metrics.RecordUnit(key, "error", 0)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := r.journal.Append(key, heading, text); err != nil {
		return err
	}

	words := util.CountWords(text)
	e.monitor.CompleteUnit(r.id, words)
	e.metrics.RecordUnit(key, "written", words)
	return nil
}

func (e *Engine) reuseUnit(r *sectionRun, key string, b writer.Block) {
	words := util.CountWords(b.Body)
	r.logger.Debug("Reusing unit from journal", "unit", key, "words", words)
	e.monitor.CompleteUnit(r.id, words)
	e.metrics.RecordUnit(unitKind(key), "reused", words)
}

// assemble builds the final artifact from the journal
func (e *Engine) assemble(r *sectionRun, startedAt time.Time) (int, error) {
	blocks, err := writer.ReadJournal(r.journalPath)
	if err != nil {
		return 0, err
	}

	res, err := writer.Assemble(r.artifactPath, writer.Artifact{
		Plan:        r.plan,
		Blocks:      blocks,
		StartedAt:   startedAt,
		CompletedAt: e.now(),
	})
	if err != nil {
		return 0, err
	}
	if len(res.Missing) > 0 {
		r.logger.Warn("Units missing from journal were noted in the artifact", "units", strings.Join(res.Missing, ","))
	}
	return res.Words, nil
}

func (e *Engine) fail(r *sectionRun, err error) models.SectionResult {
	e.transition(r, StateFailed)
	e.monitor.FailSection(r.id, err)
	r.logger.Error("Section failed", "error", err)
	return models.SectionResult{
		Section: r.section,
		Status:  models.ResultFailed,
		Error:   err,
	}
}

func (e *Engine) transition(r *sectionRun, to State) {
	from := r.state
	if from == to {
		return
	}
	r.state = to
	r.logger.Debug("Section state changed", "from", from.String(), "to", to.String())
	if e.observer != nil {
		e.observer(r.id, from, to)
	}
}

func unitKind(key string) string {
	if key == writer.IntroKey || key == writer.SummaryKey {
		return key
	}
	return "subsection"
}
