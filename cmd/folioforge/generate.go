package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamim/folioforge/internal/api"
	"github.com/lamim/folioforge/internal/checkpoint"
	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/cost"
	"github.com/lamim/folioforge/internal/llm"
	"github.com/lamim/folioforge/internal/metrics"
	"github.com/lamim/folioforge/internal/orchestrator"
	"github.com/lamim/folioforge/internal/outline"
	"github.com/lamim/folioforge/internal/progress"
	"github.com/lamim/folioforge/internal/writer"
	"github.com/lamim/folioforge/pkg/models"
)

type generateOptions struct {
	all         bool
	parallel    int
	workers     int
	onPartial   string
	dryRun      bool
	watch       bool
	combine     bool
	metricsAddr string
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [section numbers...]",
		Short: "Generate sections from the outline",
		Long: `Generate one or more sections from the outline:
1. Expand each section into topics and subsections
2. Write the introduction, every subsection and the summary
3. Assemble the section document

Completed sections are skipped. Partially generated sections are resumed,
restarted or left alone according to --on-partial.`,
		Example: `  folioforge generate 4.2 4.3
  folioforge generate --all --parallel 3 --workers 5
  folioforge generate --all --dry-run --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Generate every section in the outline")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "Sections generated concurrently (overrides generation.section_workers)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Subsection workers per section (overrides generation.subsection_workers)")
	cmd.Flags().StringVar(&opts.onPartial, "on-partial", "", "Partial checkpoint policy: ask, resume, restart or abort")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Use the offline mock backend")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Show a live progress board instead of a progress bar")
	cmd.Flags().BoolVar(&opts.combine, "combine", false, "Write the combined document after the batch")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func (o *generateOptions) apply(cfg *config.Config) error {
	g := &cfg.Generation
	if o.parallel > 0 {
		g.SectionWorkers = o.parallel
	}
	if o.workers > 0 {
		g.SubsectionWorkers = o.workers
	}
	if o.onPartial != "" {
		g.OnPartial = o.onPartial
	}
	if o.dryRun {
		cfg.Backend.Provider = "mock"
	}
	return cfg.Validate()
}

func runGenerate(parent context.Context, opts *generateOptions, args []string) error {
	if !opts.all && len(args) == 0 {
		return fmt.Errorf("specify section numbers or --all")
	}

	cfg, secrets, err := loadConfig(opts.dryRun)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	layout, err := writer.NewLayout(cfg.Generation.OutputDir)
	if err != nil {
		return err
	}
	logger, logFile, err := writer.SetupLogger(layout, os.Stderr, logLevel())
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		_ = logFile.Sync()
		_ = logFile.Close()
	}()

	allSections, err := loadOutline(cfg)
	if err != nil {
		return err
	}
	sections := allSections
	if !opts.all {
		if sections, err = outline.Select(allSections, args); err != nil {
			return err
		}
	}

	logger.Info("FolioForge starting",
		"version", Version,
		"config", configPath,
		"outline", cfg.Generation.OutlineFile,
		"provider", config.GetProviderName(cfg.Backend),
		"model", cfg.Backend.ModelName,
		"sections", len(sections),
		"output_dir", layout.Dir())
	if cfg.IsMock() {
		logger.Info("Dry run: using the offline mock backend")
	}

	store, err := checkpoint.Open(cfg.Generation.CheckpointFile, logger)
	if err != nil {
		return err
	}
	if store.Recovered() {
		fmt.Fprintf(os.Stderr, "Warning: checkpoint %s was unreadable and has been set aside; all sections start fresh\n", store.Path())
	}

	collector := metrics.NewCollector(logger)
	if opts.metricsAddr != "" {
		srv := collector.Serve(opts.metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tracker := cost.NewTracker(cfg.Pricing)
	gen, err := newGenerator(cfg, secrets, collector, tracker, logger)
	if err != nil {
		return err
	}

	monitor := progress.NewMonitor()
	engine := orchestrator.NewEngine(cfg, gen, store, monitor, layout, logger,
		orchestrator.WithResolver(newResolver(cfg.Generation.OnPartial, logger)),
		orchestrator.WithMetrics(collector))
	coordinator := orchestrator.NewCoordinator(engine, logger)

	if opts.watch {
		display := progress.NewDisplay(monitor, os.Stderr, 3*time.Second)
		display.Start()
		defer func() { <-display.Stop() }()
	} else {
		coordinator.WithProgressBar(os.Stderr)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := coordinator.RunBatch(ctx, sections, cfg.Generation.SubsectionWorkers, cfg.Generation.SectionWorkers)
	printSummary(os.Stdout, summary, tracker.Summary())

	if opts.combine && summary.Succeeded+summary.Skipped > 0 {
		res, err := writer.Combine(layout, allSections, "Complete Textbook", time.Now())
		if err != nil {
			logger.Error("Failed to combine sections", "error", err)
		} else {
			logger.Info("Combined document written", "path", res.Path, "sections", res.Included, "words", res.Words)
		}
	}

	if ctx.Err() != nil {
		return errors.New("generation interrupted; run the same command again to resume")
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d sections failed", summary.Failed, summary.Total)
	}
	return nil
}

func loadOutline(cfg *config.Config) ([]models.Section, error) {
	sections, err := outline.ParseFile(cfg.Generation.OutlineFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if found, ferr := outline.FindOutlines("."); ferr == nil && len(found) > 0 {
				return nil, fmt.Errorf("%w (candidates here: %s; use --outline)", err, strings.Join(found, ", "))
			}
		}
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no sections found in %s", cfg.Generation.OutlineFile)
	}
	if err := outline.Validate(sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func newGenerator(cfg *config.Config, secrets *config.Secrets, m *metrics.Collector, tracker *cost.Tracker, logger *slog.Logger) (llm.Generator, error) {
	var client *api.Client
	if cfg.Backend.Provider == "openai" {
		client = api.NewClient(cfg.Backend, logger).WithMetrics(m)
	}
	gen, err := llm.New(cfg, secrets, client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	return llm.NewInstrumented(gen, cfg.Backend.ModelName, tracker, m, logger), nil
}

func newResolver(policy string, logger *slog.Logger) orchestrator.Resolver {
	if policy == config.OnPartialAsk {
		return orchestrator.NewPromptResolver(os.Stdin, os.Stderr, orchestrator.Resume)
	}
	d, err := orchestrator.ParsePolicy(policy)
	if err != nil {
		logger.Warn("Unknown partial policy, resuming", "policy", policy)
	}
	return orchestrator.NewPolicyResolver(d)
}

func printSummary(w io.Writer, s models.BatchSummary, c cost.Summary) {
	fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Batch summary"))
	fmt.Fprintf(w, "  Run:        %s\n", s.RunID)
	fmt.Fprintf(w, "  Sections:   %d (%s, %s, %s)\n", s.Total,
		doneStyle.Render(fmt.Sprintf("%d succeeded", s.Succeeded)),
		pendingStyle.Render(fmt.Sprintf("%d skipped", s.Skipped)),
		failedStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	fmt.Fprintf(w, "  Words:      ~%d\n", s.TotalWords)
	fmt.Fprintf(w, "  Elapsed:    %s\n", s.Elapsed.Round(time.Second))
	fmt.Fprintf(w, "  Cost:       %s\n", c)

	for _, r := range s.Results {
		switch r.Status {
		case models.ResultSuccess:
			fmt.Fprintf(w, "  %s %-6s %6d words  %s\n", doneStyle.Render("✓"), r.Section.Number, r.Words, r.OutputPath)
		case models.ResultSkipped:
			fmt.Fprintf(w, "  %s %-6s skipped (%s)\n", pendingStyle.Render("-"), r.Section.Number, r.Reason)
		default:
			fmt.Fprintf(w, "  %s %-6s %s\n", failedStyle.Render("✗"), r.Section.Number, s.Errors[r.Section.Number])
		}
	}
}
