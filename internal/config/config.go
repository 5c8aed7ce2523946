package config

import (
	"fmt"
	"os"
	"strings"
)

// Config represents the complete application configuration
type Config struct {
	Generation      GenerationConfig `toml:"generation"`
	Backend         BackendConfig    `toml:"backend"`
	Limits          LimitsConfig     `toml:"limits"`
	PromptTemplates PromptTemplates  `toml:"prompt_templates"`
	Pricing         PricingConfig    `toml:"pricing"`
}

// GenerationConfig holds pipeline settings
type GenerationConfig struct {
	OutlineFile         string `toml:"outline_file"`
	OutputDir           string `toml:"output_dir"`
	CheckpointFile      string `toml:"checkpoint_file"`       // Defaults to <output_dir>/.generation_state.json
	TopicsPerSection    int    `toml:"topics_per_section"`    // Default 15
	SubsectionsPerTopic int    `toml:"subsections_per_topic"` // Default 4
	SubsectionWorkers   int    `toml:"subsection_workers"`    // Per-section pool size (default 3, 10 when high_throughput)
	SectionWorkers      int    `toml:"section_workers"`       // Sections generated concurrently (default 2)
	TargetWords         int    `toml:"target_words"`          // Target length of one subsection (default 1000)
	OnPartial           string `toml:"on_partial"`            // ask, resume, restart or abort (default resume)
	QualityChecks       bool   `toml:"quality_checks"`        // Log advisory quality findings per unit
}

// BackendConfig selects and configures the text-generation backend
type BackendConfig struct {
	Provider           string  `toml:"provider"` // openai, ollama, anthropic, langchain-openai, mock
	BaseURL            string  `toml:"base_url"`
	ModelName          string  `toml:"model_name"`
	Temperature        float64 `toml:"temperature"`
	TopP               float64 `toml:"top_p"`
	RateLimitPerMinute int     `toml:"rate_limit_per_minute"`
	MaxRetries         int     `toml:"max_retries"`          // Default 3, -1 disables retries
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds"` // Default 120
	HighThroughput     bool    `toml:"high_throughput"`      // Backend tolerates wide fan-out
}

// LimitsConfig holds the maximum output units requested per call kind
type LimitsConfig struct {
	TopicExpansion      int `toml:"topic_expansion"`
	SubsectionExpansion int `toml:"subsection_expansion"`
	Introduction        int `toml:"introduction"`
	Subsection          int `toml:"subsection"`
	Summary             int `toml:"summary"`
}

// PromptTemplates holds all customizable prompt templates
type PromptTemplates struct {
	SystemPrompt        string `toml:"system_prompt"`
	TopicExpansion      string `toml:"topic_expansion"`
	SubsectionExpansion string `toml:"subsection_expansion"`
	Introduction        string `toml:"introduction"`
	Subsection          string `toml:"subsection"`
	Summary             string `toml:"summary"`
}

// PricingConfig holds backend prices in USD per million tokens
type PricingConfig struct {
	InputPerMillion  float64 `toml:"input_per_million"`
	OutputPerMillion float64 `toml:"output_per_million"`
}

// Secrets holds sensitive credentials loaded from environment variables
type Secrets struct {
	APIKeys map[string]string
}

const (
	// MaxWorkers is the maximum allowed size of either worker pool
	MaxWorkers = 64
	// MaxTopicsPerSection is the maximum allowed topics per section
	MaxTopicsPerSection = 100
	// MaxSubsectionsPerTopic is the maximum allowed subsections per topic
	MaxSubsectionsPerTopic = 50
	// MaxOutputUnits caps any single backend call
	MaxOutputUnits = 65536
)

// Providers lists the supported backend providers
var Providers = []string{"openai", "ollama", "anthropic", "langchain-openai", "mock"}

// Partial-checkpoint policies
const (
	OnPartialAsk     = "ask"
	OnPartialResume  = "resume"
	OnPartialRestart = "restart"
	OnPartialAbort   = "abort"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	g := c.Generation
	if g.OutputDir == "" {
		return fmt.Errorf("generation.output_dir is required")
	}
	if g.TopicsPerSection < 1 || g.TopicsPerSection > MaxTopicsPerSection {
		return fmt.Errorf("generation.topics_per_section must be between 1 and %d (got %d)", MaxTopicsPerSection, g.TopicsPerSection)
	}
	if g.SubsectionsPerTopic < 1 || g.SubsectionsPerTopic > MaxSubsectionsPerTopic {
		return fmt.Errorf("generation.subsections_per_topic must be between 1 and %d (got %d)", MaxSubsectionsPerTopic, g.SubsectionsPerTopic)
	}
	if g.SubsectionWorkers < 1 || g.SubsectionWorkers > MaxWorkers {
		return fmt.Errorf("generation.subsection_workers must be between 1 and %d (got %d)", MaxWorkers, g.SubsectionWorkers)
	}
	if g.SectionWorkers < 1 || g.SectionWorkers > MaxWorkers {
		return fmt.Errorf("generation.section_workers must be between 1 and %d (got %d)", MaxWorkers, g.SectionWorkers)
	}
	if g.TargetWords < 1 {
		return fmt.Errorf("generation.target_words must be at least 1")
	}
	switch g.OnPartial {
	case OnPartialAsk, OnPartialResume, OnPartialRestart, OnPartialAbort:
	default:
		return fmt.Errorf("generation.on_partial must be one of: ask, resume, restart, abort (got %s)", g.OnPartial)
	}

	if err := validateBackendConfig(c.Backend); err != nil {
		return err
	}

	limits := []struct {
		name  string
		value int
	}{
		{"topic_expansion", c.Limits.TopicExpansion},
		{"subsection_expansion", c.Limits.SubsectionExpansion},
		{"introduction", c.Limits.Introduction},
		{"subsection", c.Limits.Subsection},
		{"summary", c.Limits.Summary},
	}
	for _, l := range limits {
		if l.value < 1 || l.value > MaxOutputUnits {
			return fmt.Errorf("limits.%s must be between 1 and %d (got %d)", l.name, MaxOutputUnits, l.value)
		}
	}

	if c.Pricing.InputPerMillion < 0 || c.Pricing.OutputPerMillion < 0 {
		return fmt.Errorf("pricing values must not be negative")
	}

	templates := []struct {
		name  string
		value string
	}{
		{"topic_expansion", c.PromptTemplates.TopicExpansion},
		{"subsection_expansion", c.PromptTemplates.SubsectionExpansion},
		{"introduction", c.PromptTemplates.Introduction},
		{"subsection", c.PromptTemplates.Subsection},
		{"summary", c.PromptTemplates.Summary},
	}
	for _, tmpl := range templates {
		if tmpl.value == "" {
			return fmt.Errorf("prompt_templates.%s is required", tmpl.name)
		}
	}

	return nil
}

func validateBackendConfig(b BackendConfig) error {
	known := false
	for _, p := range Providers {
		if b.Provider == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("backend.provider must be one of: %s (got %s)", strings.Join(Providers, ", "), b.Provider)
	}
	if b.Provider == "mock" {
		return nil
	}
	if b.ModelName == "" {
		return fmt.Errorf("backend.model_name is required")
	}
	if b.Provider == "openai" && b.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required for provider openai")
	}
	if b.Temperature < 0 || b.Temperature > 2 {
		return fmt.Errorf("backend.temperature must be between 0 and 2")
	}
	if b.TopP < 0 || b.TopP > 1 {
		return fmt.Errorf("backend.top_p must be between 0 and 1")
	}
	if b.RateLimitPerMinute < 1 {
		return fmt.Errorf("backend.rate_limit_per_minute must be at least 1")
	}
	return nil
}

// LoadSecrets loads sensitive credentials from environment variables
func LoadSecrets() (*Secrets, error) {
	secrets := &Secrets{
		APIKeys: make(map[string]string),
	}

	// Provider-agnostic key
	if key := os.Getenv("API_KEY"); key != "" {
		secrets.APIKeys["generic"] = key
	}

	envKeys := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"deepseek":  "DEEPSEEK_API_KEY",
		"gemini":    "GEMINI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
	}
	for provider, env := range envKeys {
		if key := os.Getenv(env); key != "" {
			secrets.APIKeys[provider] = key
		}
	}

	return secrets, nil
}

// GetAPIKey returns the API key for a backend, preferring a provider-specific
// key matched from the base URL or provider name over the generic one.
func (s *Secrets) GetAPIKey(b BackendConfig) string {
	if key := s.APIKeys[GetProviderName(b)]; key != "" {
		return key
	}
	return s.APIKeys["generic"]
}

// GetProviderName derives the credential provider name of a backend
func GetProviderName(b BackendConfig) string {
	switch {
	case strings.Contains(b.BaseURL, "deepseek.com"):
		return "deepseek"
	case strings.Contains(b.BaseURL, "openai.com"), b.Provider == "langchain-openai":
		return "openai"
	case strings.Contains(b.BaseURL, "googleapis.com"):
		return "gemini"
	case strings.Contains(b.BaseURL, "anthropic.com"), b.Provider == "anthropic":
		return "anthropic"
	}
	return b.Provider
}

// IsMock reports whether the configured backend is the offline mock
func (c *Config) IsMock() bool {
	return c.Backend.Provider == "mock"
}
