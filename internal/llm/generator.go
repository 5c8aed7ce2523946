package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lamim/folioforge/internal/api"
	"github.com/lamim/folioforge/internal/config"
)

// Generator is the text-generation capability the pipeline depends on.
// Failures wrap ErrTransient or ErrFatal. Empty text with a nil error is a
// degraded response, not a failure.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputUnits int) (string, error)
}

var (
	// ErrTransient marks failures that may succeed on a later run
	// (network, rate limit, server errors, timeouts).
	ErrTransient = errors.New("transient backend error")
	// ErrFatal marks failures that will not go away by retrying
	// (bad credentials, unknown model, rejected request).
	ErrFatal = errors.New("fatal backend error")
)

// Transient wraps err as a transient backend failure
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Fatal wraps err as a fatal backend failure
func Fatal(err error) error {
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// IsTransient reports whether err is worth retrying on a later run
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsFatal reports whether err is a non-retryable backend failure
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// classify maps an arbitrary backend error onto the two failure kinds.
// Only API errors the provider marked non-retryable are fatal; anything
// unrecognised stays transient so the unit is retried on the next run.
func classify(err error) error {
	if err == nil || IsTransient(err) || IsFatal(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(err)
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Retryable {
			return Transient(err)
		}
		return Fatal(err)
	}
	return Transient(err)
}

// New builds the generator selected by backend.provider
func New(cfg *config.Config, secrets *config.Secrets, client *api.Client, logger *slog.Logger) (Generator, error) {
	b := cfg.Backend
	system := cfg.PromptTemplates.SystemPrompt

	switch b.Provider {
	case "mock":
		return NewMock(), nil
	case "openai":
		if client == nil {
			client = api.NewClient(b, logger)
		}
		return NewChat(client, b, secrets.GetAPIKey(b), system), nil
	case "ollama", "anthropic", "langchain-openai":
		return NewLangChain(b, secrets.GetAPIKey(b), system)
	default:
		return nil, fmt.Errorf("unsupported backend provider: %s", b.Provider)
	}
}
