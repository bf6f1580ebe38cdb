package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, baseURL, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client, %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func toContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}

		out = append(out, genai.NewContentFromText(m.Content, role))
	}

	return out
}

func (g *Gemini) StreamChat(ctx context.Context, system string, msgs []Message, onDelta func(string)) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var full strings.Builder

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, toContents(msgs), cfg) {
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream failed, %w", err)
		}

		if d := resp.Text(); d != "" {
			full.WriteString(d)
			onDelta(d)
		}
	}

	return full.String(), nil
}

func (g *Gemini) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(req.Schema),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed, %w", err)
	}

	return resp.Text(), nil
}

// toSchema converts the JSON schema subset used here into a genai schema
func toSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}

	if d, ok := m["description"].(string); ok {
		s.Description = d
	}

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}

	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}

	s.Required = toStrings(m["required"])
	s.Enum = toStrings(m["enum"])
	s.MinItems = toInt64(m["minItems"])
	s.MaxItems = toInt64(m["maxItems"])

	return s
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	return nil
}

func toInt64(v any) *int64 {
	switch t := v.(type) {
	case int:
		return genai.Ptr(int64(t))
	case int64:
		return genai.Ptr(t)
	case float64:
		return genai.Ptr(int64(t))
	}

	return nil
}
