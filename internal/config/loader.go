package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file and environment variables
func Load(configPath string) (*Config, *Secrets, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	secrets, err := LoadSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	return cfg, secrets, nil
}

// Parse decodes TOML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.ValidateInputs(); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration using the mock backend
func Default() *Config {
	cfg := &Config{Backend: BackendConfig{Provider: "mock"}}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	g := &cfg.Generation
	if g.OutlineFile == "" {
		g.OutlineFile = "syllabus.md"
	}
	if g.OutputDir == "" {
		g.OutputDir = "output"
	}
	if g.CheckpointFile == "" {
		g.CheckpointFile = filepath.Join(g.OutputDir, ".generation_state.json")
	}
	if g.TopicsPerSection == 0 {
		g.TopicsPerSection = 15
	}
	if g.SubsectionsPerTopic == 0 {
		g.SubsectionsPerTopic = 4
	}
	if g.SubsectionWorkers == 0 {
		g.SubsectionWorkers = 3
		if cfg.Backend.HighThroughput {
			g.SubsectionWorkers = 10
		}
	}
	if g.SectionWorkers == 0 {
		g.SectionWorkers = 2
	}
	if g.TargetWords == 0 {
		g.TargetWords = 1000
	}
	if g.OnPartial == "" {
		g.OnPartial = OnPartialResume
	}

	b := &cfg.Backend
	if b.Provider == "" {
		b.Provider = "openai"
	}
	if b.Temperature == 0 {
		b.Temperature = 0.7
	}
	if b.TopP == 0 {
		b.TopP = 1.0
	}
	if b.RateLimitPerMinute == 0 {
		b.RateLimitPerMinute = 60
	}
	// TOML cannot distinguish 0 from unset: 0 means default, -1 disables retries
	if b.MaxRetries == 0 {
		b.MaxRetries = 3
	}
	if b.HTTPTimeoutSeconds == 0 {
		b.HTTPTimeoutSeconds = 120
	}

	l := &cfg.Limits
	if l.TopicExpansion == 0 {
		l.TopicExpansion = 2000
	}
	if l.SubsectionExpansion == 0 {
		l.SubsectionExpansion = 1500
	}
	if l.Introduction == 0 {
		l.Introduction = 2000
	}
	if l.Subsection == 0 {
		l.Subsection = 4000
	}
	if l.Summary == 0 {
		l.Summary = 2500
	}

	if cfg.Pricing.InputPerMillion == 0 && cfg.Pricing.OutputPerMillion == 0 {
		cfg.Pricing.InputPerMillion = 0.14
		cfg.Pricing.OutputPerMillion = 0.28
	}

	t := &cfg.PromptTemplates
	if t.SystemPrompt == "" {
		t.SystemPrompt = GetDefaultSystemPrompt()
	}
	if t.TopicExpansion == "" {
		t.TopicExpansion = GetDefaultTopicExpansionTemplate()
	}
	if t.SubsectionExpansion == "" {
		t.SubsectionExpansion = GetDefaultSubsectionExpansionTemplate()
	}
	if t.Introduction == "" {
		t.Introduction = GetDefaultIntroductionTemplate()
	}
	if t.Subsection == "" {
		t.Subsection = GetDefaultSubsectionTemplate()
	}
	if t.Summary == "" {
		t.Summary = GetDefaultSummaryTemplate()
	}
}
