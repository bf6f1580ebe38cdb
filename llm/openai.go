package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	streamTimeout   = 5 * time.Minute
	maxRateLimitTry = 3
)

// OpenAI speaks the chat completions API, which most hosted and local
// model servers implement
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client

	retryInterval time.Duration
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		model:         model,
		client:        &http.Client{Timeout: streamTimeout},
		retryInterval: 500 * time.Millisecond,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Stream         bool           `json:"stream,omitempty"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
}

type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func toChatMessages(system string, msgs []Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, chatMessage{Role: "system", Content: system})
	}

	for _, m := range msgs {
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}

	return out
}

// post sends the request, retrying only on 429. The caller closes the body.
func (o *OpenAI) post(ctx context.Context, body chatRequest) (io.ReadCloser, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request, %w", err)
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval: o.retryInterval,
		Multiplier:      2,
		MaxInterval:     30 * time.Second,
	}

	rc, err := backoff.Retry(ctx, func() (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(raw))
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		req.Header.Set("Content-Type", "application/json")
		if o.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+o.apiKey)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("chat completion request failed, %w", err))
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, &rateLimitError{status: resp.StatusCode}
		}

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return nil, backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
		}

		return resp.Body, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxRateLimitTry))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}

		return nil, err
	}

	return rc, nil
}

func (o *OpenAI) StreamChat(ctx context.Context, system string, msgs []Message, onDelta func(string)) (string, error) {
	body, err := o.post(ctx, chatRequest{
		Model:    o.model,
		Messages: toChatMessages(system, msgs),
		Stream:   true,
	})
	if err != nil {
		return "", err
	}
	defer body.Close()

	var full strings.Builder

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		d := chunk.Choices[0].Delta.Content
		full.WriteString(d)
		onDelta(d)
	}

	if err := sc.Err(); err != nil {
		return full.String(), fmt.Errorf("failed to read chat stream, %w", err)
	}

	return full.String(), nil
}

func (o *OpenAI) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	name := req.SchemaName
	if name == "" {
		name = "response"
	}

	body, err := o.post(ctx, chatRequest{
		Model: o.model,
		Messages: toChatMessages(req.System, []Message{
			{Role: RoleUser, Content: req.Prompt},
		}),
		Temperature: &req.Temperature,
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": req.Schema,
				"strict": StrictSchema(req.Schema),
			},
		},
	})
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp chatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode chat completion, %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
