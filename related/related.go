// Package related generates the follow up questions shown under an answer
package related

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bitwise74/labyrinth-api/llm"
	"bitwise74/labyrinth-api/model"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	Count       = 3
	maxAttempts = 3
)

var (
	ErrMalformed    = errors.New("could not parse response into valid format")
	ErrRequirements = errors.New("generated questions did not meet requirements")

	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	codeFence     = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")
)

const systemPrompt = `You are an AI assistant tasked with generating exactly 3 follow-up questions based on the given content. Your response must strictly follow this format, with NO trailing commas:

{
  "items": [
    { "query": "First question here?" },
    { "query": "Second question here?" },
    { "query": "Third question here?" }
  ]
}

Requirements:
1. Generate EXACTLY 3 questions
2. Each question must end with a question mark
3. Questions must be complete sentences
4. No trailing commas in the JSON
5. Questions should be relevant to the content
6. Each question should explore a different aspect
7. Keep questions clear and concise

Important: Ensure the JSON is properly formatted with no trailing commas.`

var schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"items": map[string]any{
			"type":     "array",
			"minItems": Count,
			"maxItems": Count,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
				},
				"required":             []string{"query"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"items"},
	"additionalProperties": false,
}

type Generator struct {
	model    llm.JSONModel
	interval time.Duration
}

func New(m llm.JSONModel) *Generator {
	return &Generator{model: m, interval: 100 * time.Millisecond}
}

// Generate asks the model for exactly three questions about content. Bad
// output is retried with exponential backoff, the last error is returned
// once every attempt failed.
func (g *Generator) Generate(ctx context.Context, content string) ([]model.RelatedQuestion, error) {
	b := &backoff.ExponentialBackOff{
		InitialInterval: g.interval,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
	}

	attempt := 0

	items, err := backoff.Retry(ctx, func() ([]model.RelatedQuestion, error) {
		attempt++

		raw, err := g.model.GenerateJSON(ctx, llm.JSONRequest{
			System:      systemPrompt,
			Prompt:      "Generate exactly 3 follow-up questions about: " + content,
			SchemaName:  "related_questions",
			Schema:      schema,
			Temperature: 0.5,
		})
		if err == nil {
			var items []model.RelatedQuestion
			if items, err = Parse(raw); err == nil {
				return items, nil
			}
		}

		zap.L().Debug("Related questions attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Parse decodes and validates model output. Output that doesn't decode as
// is gets its code fences and trailing commas stripped first.
func Parse(raw string) ([]model.RelatedQuestion, error) {
	var out model.RelatedQuestions

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		if err := json.Unmarshal([]byte(repair(raw)), &out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	if out.Items == nil {
		return nil, ErrMalformed
	}

	if len(out.Items) != Count {
		return nil, ErrRequirements
	}

	for i, it := range out.Items {
		q := strings.TrimSpace(it.Query)
		if !strings.HasSuffix(q, "?") {
			return nil, ErrRequirements
		}

		out.Items[i].Query = q
	}

	return out.Items, nil
}

func repair(raw string) string {
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	return trailingComma.ReplaceAllString(raw, "$1")
}
