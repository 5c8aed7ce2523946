package llm

import (
	"context"

	"github.com/lamim/folioforge/internal/api"
	"github.com/lamim/folioforge/internal/config"
)

// Chat generates text through an OpenAI-compatible chat completion endpoint
// (DeepSeek, OpenAI, Gemini's OpenAI endpoint, local servers).
type Chat struct {
	client       *api.Client
	backend      config.BackendConfig
	apiKey       string
	systemPrompt string
}

// NewChat creates a chat completion generator
func NewChat(client *api.Client, backend config.BackendConfig, apiKey, systemPrompt string) *Chat {
	return &Chat{
		client:       client,
		backend:      backend,
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
	}
}

// Generate implements Generator
func (c *Chat) Generate(ctx context.Context, prompt string, maxOutputUnits int) (string, error) {
	messages := make([]api.Message, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, api.Message{Role: "user", Content: prompt})

	resp, err := c.client.ChatCompletion(ctx, c.backend, c.apiKey, messages, maxOutputUnits)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}
