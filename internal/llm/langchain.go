package llm

import (
	"context"
	"fmt"

	"github.com/lamim/folioforge/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChain generates text through a langchaingo model
type LangChain struct {
	model        llms.Model
	temperature  float64
	topP         float64
	systemPrompt string
}

// NewLangChain creates a langchaingo-backed generator for ollama, anthropic
// or openai (langchain-openai) providers
func NewLangChain(b config.BackendConfig, apiKey, systemPrompt string) (*LangChain, error) {
	var model llms.Model
	var err error

	switch b.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(b.ModelName)}
		if b.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(b.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key required (ANTHROPIC_API_KEY)")
		}
		opts := []anthropic.Option{anthropic.WithToken(apiKey), anthropic.WithModel(b.ModelName)}
		if b.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(b.BaseURL))
		}
		model, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case "langchain-openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key required (OPENAI_API_KEY)")
		}
		opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(b.ModelName)}
		if b.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(b.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported langchain provider: %s", b.Provider)
	}

	return newLangChainFromModel(model, b, systemPrompt), nil
}

func newLangChainFromModel(model llms.Model, b config.BackendConfig, systemPrompt string) *LangChain {
	return &LangChain{
		model:        model,
		temperature:  b.Temperature,
		topP:         b.TopP,
		systemPrompt: systemPrompt,
	}
}

// Generate implements Generator
func (l *LangChain) Generate(ctx context.Context, prompt string, maxOutputUnits int) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if l.systemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, l.systemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := l.model.GenerateContent(ctx, messages,
		llms.WithMaxTokens(maxOutputUnits),
		llms.WithTemperature(l.temperature),
		llms.WithTopP(l.topP),
	)
	if err != nil {
		return "", classify(fmt.Errorf("generate: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
