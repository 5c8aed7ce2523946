package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lamim/folioforge/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath  string
	envFile     string
	outlinePath string
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "folioforge",
		Short: "FolioForge - resumable long-form document generator",
		Long: `FolioForge turns a section outline into long-form Markdown documents.
Each section is planned into topics and subsections, written unit by unit
through an LLM backend, checkpointed after every unit and assembled into one
file per section. Interrupted runs resume where they stopped.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&outlinePath, "outline", "", "Outline file (overrides generation.outline_file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newSectionsCmd())
	rootCmd.AddCommand(newCheckpointCmd())
	rootCmd.AddCommand(newCombineCmd())
	rootCmd.AddCommand(newExportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the env file and the configuration. A missing config
// file falls back to defaults when allowDefault is set.
func loadConfig(allowDefault bool) (*config.Config, *config.Secrets, error) {
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load env file: %v\n", err)
		}
	}

	cfg, secrets, err := config.Load(configPath)
	if err != nil {
		if !allowDefault || !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		fmt.Fprintf(os.Stderr, "No config file at %s, using defaults\n", configPath)
		cfg = config.Default()
		if secrets, err = config.LoadSecrets(); err != nil {
			return nil, nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if outlinePath != "" {
		cfg.Generation.OutlineFile = outlinePath
	}
	return cfg, secrets, nil
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// consoleLogger is used by commands that don't write a run log
func consoleLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
