package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Backend: BackendConfig{
			Provider:  "openai",
			BaseURL:   "https://api.deepseek.com/v1",
			ModelName: "deepseek-chat",
		},
	}
	applyDefaults(&cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero topics",
			mutate:  func(c *Config) { c.Generation.TopicsPerSection = -1 },
			wantErr: "topics_per_section",
		},
		{
			name:    "too many subsection workers",
			mutate:  func(c *Config) { c.Generation.SubsectionWorkers = MaxWorkers + 1 },
			wantErr: "subsection_workers",
		},
		{
			name:    "unknown on_partial",
			mutate:  func(c *Config) { c.Generation.OnPartial = "ignore" },
			wantErr: "on_partial",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Backend.Provider = "carrier-pigeon" },
			wantErr: "backend.provider",
		},
		{
			name:    "openai without base url",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: "base_url",
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.Backend.ModelName = "" },
			wantErr: "model_name",
		},
		{
			name: "mock needs no model",
			mutate: func(c *Config) {
				c.Backend.Provider = "mock"
				c.Backend.ModelName = ""
				c.Backend.BaseURL = ""
			},
		},
		{
			name:    "bad temperature",
			mutate:  func(c *Config) { c.Backend.Temperature = 3 },
			wantErr: "temperature",
		},
		{
			name:    "zero limit",
			mutate:  func(c *Config) { c.Limits.Summary = -5 },
			wantErr: "limits.summary",
		},
		{
			name:    "empty template",
			mutate:  func(c *Config) { c.PromptTemplates.Subsection = "" },
			wantErr: "prompt_templates.subsection",
		},
		{
			name:    "negative pricing",
			mutate:  func(c *Config) { c.Pricing.InputPerMillion = -1 },
			wantErr: "pricing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)

	if cfg.Generation.TopicsPerSection != 15 {
		t.Errorf("Expected 15 topics, got %d", cfg.Generation.TopicsPerSection)
	}
	if cfg.Generation.SubsectionsPerTopic != 4 {
		t.Errorf("Expected 4 subsections, got %d", cfg.Generation.SubsectionsPerTopic)
	}
	if cfg.Generation.SubsectionWorkers != 3 {
		t.Errorf("Expected 3 subsection workers, got %d", cfg.Generation.SubsectionWorkers)
	}
	if cfg.Generation.SectionWorkers != 2 {
		t.Errorf("Expected 2 section workers, got %d", cfg.Generation.SectionWorkers)
	}
	if cfg.Generation.CheckpointFile != filepath.Join("output", ".generation_state.json") {
		t.Errorf("Unexpected checkpoint file %s", cfg.Generation.CheckpointFile)
	}
	if cfg.Limits.Subsection != 4000 {
		t.Errorf("Expected subsection limit 4000, got %d", cfg.Limits.Subsection)
	}
	if cfg.PromptTemplates.Subsection == "" {
		t.Error("Expected default subsection template")
	}
}

func TestApplyDefaults_HighThroughput(t *testing.T) {
	cfg := Config{Backend: BackendConfig{HighThroughput: true}}
	applyDefaults(&cfg)

	if cfg.Generation.SubsectionWorkers != 10 {
		t.Errorf("Expected 10 subsection workers for high throughput backend, got %d", cfg.Generation.SubsectionWorkers)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
[generation]
outline_file = "thesis.md"
output_dir = "out"
topics_per_section = 3
subsections_per_topic = 2
on_partial = "ask"

[backend]
provider = "ollama"
model_name = "llama3"
base_url = "http://localhost:11434"

[limits]
subsection = 1200

[prompt_templates]
summary = "Summarise {{.SectionTitle}}"
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.Generation.OutlineFile != "thesis.md" {
		t.Errorf("Expected outline thesis.md, got %s", cfg.Generation.OutlineFile)
	}
	if cfg.Generation.CheckpointFile != filepath.Join("out", ".generation_state.json") {
		t.Errorf("Checkpoint file should default under output dir, got %s", cfg.Generation.CheckpointFile)
	}
	if cfg.Generation.TopicsPerSection != 3 || cfg.Generation.SubsectionsPerTopic != 2 {
		t.Errorf("Unexpected plan sizes %d/%d", cfg.Generation.TopicsPerSection, cfg.Generation.SubsectionsPerTopic)
	}
	if cfg.Limits.Subsection != 1200 || cfg.Limits.Summary != 2500 {
		t.Errorf("Unexpected limits %+v", cfg.Limits)
	}
	if cfg.PromptTemplates.Summary != "Summarise {{.SectionTitle}}" {
		t.Errorf("Custom template not kept: %q", cfg.PromptTemplates.Summary)
	}
	if cfg.PromptTemplates.Introduction == "" {
		t.Error("Expected default introduction template")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("[generation\n")); err == nil {
		t.Error("Expected TOML syntax error")
	}
	if _, err := Parse([]byte("[backend]\nprovider = \"telepathy\"\n")); err == nil {
		t.Error("Expected validation error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[backend]\nprovider = \"mock\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DEEPSEEK_API_KEY", "ds-key")

	cfg, secrets, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsMock() {
		t.Error("Expected mock backend")
	}
	if secrets.APIKeys["deepseek"] != "ds-key" {
		t.Errorf("Expected deepseek key, got %q", secrets.APIKeys["deepseek"])
	}

	if _, _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestGetAPIKey(t *testing.T) {
	secrets := &Secrets{APIKeys: map[string]string{
		"generic":   "generic-key",
		"deepseek":  "ds-key",
		"anthropic": "ant-key",
	}}

	tests := []struct {
		name    string
		backend BackendConfig
		want    string
	}{
		{"deepseek url", BackendConfig{Provider: "openai", BaseURL: "https://api.deepseek.com/v1"}, "ds-key"},
		{"anthropic provider", BackendConfig{Provider: "anthropic"}, "ant-key"},
		{"openai falls back to generic", BackendConfig{Provider: "openai", BaseURL: "https://api.openai.com/v1"}, "generic-key"},
		{"local server", BackendConfig{Provider: "openai", BaseURL: "http://localhost:8080/v1"}, "generic-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := secrets.GetAPIKey(tt.backend); got != tt.want {
				t.Errorf("GetAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
