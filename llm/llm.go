// Package llm talks to the language model providers. Two capabilities are
// used: streaming a chat answer and generating JSON that follows a schema.
package llm

import (
	"context"
	"fmt"

	"bitwise74/labyrinth-api/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type ChatModel interface {
	// StreamChat calls onDelta for every chunk of the answer and returns
	// the full answer once the stream ends
	StreamChat(ctx context.Context, system string, msgs []Message, onDelta func(string)) (string, error)
}

type JSONRequest struct {
	System      string
	Prompt      string
	SchemaName  string
	Schema      map[string]any
	Temperature float32
}

type JSONModel interface {
	// GenerateJSON returns the raw model output, which should but isn't
	// guaranteed to match the schema
	GenerateJSON(ctx context.Context, req JSONRequest) (string, error)
}

type Model interface {
	ChatModel
	JSONModel
}

// New creates a client for the configured provider using the given model name
func New(ctx context.Context, cfg config.LLM, model string) (Model, error) {
	switch cfg.Provider {
	case "google", "":
		return NewGemini(ctx, cfg.APIKey, cfg.BaseURL, model)
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, model), nil
	}

	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}

// StrictSchema reports whether every object in schema lists all of its
// properties as required and sets additionalProperties to false, which is
// what OpenAI structured outputs demand in strict mode
func StrictSchema(schema map[string]any) bool {
	if schema == nil {
		return false
	}

	if items, ok := schema["items"].(map[string]any); ok && !StrictSchema(items) {
		return false
	}

	if schema["type"] != "object" {
		return true
	}

	if ap, ok := schema["additionalProperties"].(bool); !ok || ap {
		return false
	}

	props, _ := schema["properties"].(map[string]any)

	required := make(map[string]bool)
	for _, r := range toStrings(schema["required"]) {
		required[r] = true
	}

	for name, p := range props {
		if !required[name] {
			return false
		}

		if pm, ok := p.(map[string]any); ok && !StrictSchema(pm) {
			return false
		}
	}

	return true
}

type unavailable struct{ err error }

// Unavailable returns a Model that fails every call with err. It stands in
// when the provider can't be set up so the rest of the server still runs.
func Unavailable(err error) Model {
	return unavailable{err: err}
}

func (u unavailable) StreamChat(context.Context, string, []Message, func(string)) (string, error) {
	return "", u.err
}

func (u unavailable) GenerateJSON(context.Context, JSONRequest) (string, error) {
	return "", u.err
}
