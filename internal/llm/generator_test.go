package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/lamim/folioforge/internal/api"
	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/cost"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		fatal     bool
	}{
		{"retryable api error", &api.APIError{StatusCode: 503, Retryable: true}, true, false},
		{"auth api error", &api.APIError{StatusCode: 401}, false, true},
		{"wrapped api error", fmt.Errorf("max retries exceeded: %w", &api.APIError{StatusCode: 429, Retryable: true}), true, false},
		{"deadline", context.DeadlineExceeded, true, false},
		{"unknown", errors.New("boom"), true, false},
		{"already fatal", Fatal(errors.New("bad model")), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			if IsTransient(err) != tt.transient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.transient)
			}
			if IsFatal(err) != tt.fatal {
				t.Errorf("IsFatal = %v, want %v", IsFatal(err), tt.fatal)
			}
			if !errors.Is(err, tt.err) && !errors.Is(tt.err, ErrFatal) {
				t.Error("Classified error must wrap the original")
			}
		})
	}

	if classify(nil) != nil {
		t.Error("classify(nil) must be nil")
	}
}

func TestChat_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "Entropy never decreases."}}]}`))
	}))
	defer server.Close()

	backend := config.BackendConfig{Provider: "openai", BaseURL: server.URL, ModelName: "m", RateLimitPerMinute: 6000}
	gen := NewChat(api.NewClient(backend, testLogger()), backend, "", "You are a lecturer.")

	text, err := gen.Generate(context.Background(), "Explain entropy", 100)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if text != "Entropy never decreases." {
		t.Errorf("Unexpected text %q", text)
	}
}

func TestChat_GenerateFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"message": "model not found"}}`))
	}))
	defer server.Close()

	backend := config.BackendConfig{Provider: "openai", BaseURL: server.URL, ModelName: "m", RateLimitPerMinute: 6000}
	gen := NewChat(api.NewClient(backend, testLogger()), backend, "", "")

	_, err := gen.Generate(context.Background(), "x", 10)
	if !IsFatal(err) {
		t.Errorf("Expected fatal error, got %v", err)
	}
}

func TestMock_Deterministic(t *testing.T) {
	m := NewMock()
	a, err := m.Generate(context.Background(), "prompt", 4000)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Generate(context.Background(), "prompt", 4000)
	if a != b {
		t.Error("Mock output should be deterministic for the same prompt")
	}
	if m.Calls() != 2 {
		t.Errorf("Expected 2 calls, got %d", m.Calls())
	}
	if strings.TrimSpace(a) == "" {
		t.Error("Mock output should not be empty")
	}
}

func TestMock_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMock().Generate(ctx, "p", 10); !IsTransient(err) {
		t.Errorf("Expected transient error on cancelled context, got %v", err)
	}
}

func TestNew_Providers(t *testing.T) {
	cfg := config.Default()
	secrets := &config.Secrets{APIKeys: map[string]string{}}

	gen, err := New(cfg, secrets, nil, testLogger())
	if err != nil {
		t.Fatalf("New(mock) error: %v", err)
	}
	if _, ok := gen.(*Mock); !ok {
		t.Errorf("Expected *Mock, got %T", gen)
	}

	cfg.Backend = config.BackendConfig{Provider: "openai", BaseURL: "http://localhost:1", ModelName: "m"}
	gen, err = New(cfg, secrets, nil, testLogger())
	if err != nil {
		t.Fatalf("New(openai) error: %v", err)
	}
	if _, ok := gen.(*Chat); !ok {
		t.Errorf("Expected *Chat, got %T", gen)
	}

	cfg.Backend = config.BackendConfig{Provider: "anthropic", ModelName: "claude"}
	if _, err := New(cfg, secrets, nil, testLogger()); err == nil {
		t.Error("Expected error for anthropic without key")
	}

	cfg.Backend = config.BackendConfig{Provider: "smoke-signals"}
	if _, err := New(cfg, secrets, nil, testLogger()); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, string, int) (string, error) {
	return "", f.err
}

func TestInstrumented(t *testing.T) {
	tracker := cost.NewTracker(config.PricingConfig{InputPerMillion: 1, OutputPerMillion: 1})
	gen := NewInstrumented(NewMock(), "mock", tracker, nil, testLogger())

	ctx := WithSection(context.Background(), "4.2")
	if SectionFrom(ctx) != "4.2" {
		t.Fatalf("Expected section tag 4.2, got %q", SectionFrom(ctx))
	}
	if _, err := gen.Generate(ctx, "write something", 400); err != nil {
		t.Fatal(err)
	}

	s := tracker.Summary()
	if s.Calls != 1 {
		t.Errorf("Expected 1 tracked call, got %d", s.Calls)
	}
	if _, ok := s.PerSection["4.2"]; !ok {
		t.Error("Expected cost attributed to section 4.2")
	}

	failing := NewInstrumented(failingGenerator{Transient(errors.New("503"))}, "x", tracker, nil, testLogger())
	if _, err := failing.Generate(ctx, "p", 1); !IsTransient(err) {
		t.Errorf("Expected transient error passthrough, got %v", err)
	}
	if tracker.Summary().Calls != 1 {
		t.Error("Failed calls must not be billed")
	}
}
