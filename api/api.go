package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aicommit/model"
)

// DefaultBaseURL is used when OPENAI_BASE_URL is not set.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when OPENAI_MODEL is not set.
const DefaultModel = "gpt-4.1-mini"

const systemPrompt = `You are a git commit message generator.
Analyze changes and output JSON with:
- type: feat|fix|docs|style|refactor|test|chore
- scope: affected component (optional)
- message: clear description (50 chars max)
Return ONLY valid JSON, no other text.`

var (
	// ErrMissingKey indicates no API key was configured. Checked before any
	// network I/O happens.
	ErrMissingKey = errors.New("OPENAI_API_KEY is not set")

	// ErrEmptyResponse indicates the endpoint returned no choices.
	ErrEmptyResponse = errors.New("no choices returned")
)

// UpstreamError reports a non-2xx reply from the completion endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion request failed with status %d: %s", e.Status, e.Body)
}

// Config carries everything the client needs; it is resolved once by the
// caller (flags, config file, environment) so the client never reads globals.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client performs completion requests. One POST per call, no retries.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a completion client from explicit configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// BuildRequest assembles the chat-completions payload for a staged diff: the
// fixed system instruction, the diff as the user message, temperature 0 for
// determinism, and a strict JSON schema constraining the reply shape.
func BuildRequest(modelName, diff string) *model.ChatRequest {
	schema := fmt.Sprintf(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["type", "message"],
		"properties": {
			"type":    {"type": "string", "enum": ["%s"]},
			"scope":   {"type": "string"},
			"message": {"type": "string", "maxLength": %d}
		}
	}`, strings.Join(model.Kinds, `","`), model.MaxMessageChars)

	return &model.ChatRequest{
		Model: modelName,
		Messages: []model.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Changes:\n" + diff},
		},
		Temperature: 0.0,
		ResponseFormat: &model.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &model.JSONSchema{
				Name:   "commit_message",
				Schema: json.RawMessage(schema),
				Strict: true,
			},
		},
	}
}

// GenerateCommit builds the request for the diff, performs the completion
// call, and returns the raw content of the first choice.
func (c *Client) GenerateCommit(ctx context.Context, diff string) (string, error) {
	return c.Complete(ctx, BuildRequest(c.cfg.Model, diff))
}

// Complete sends one chat-completions request and returns the content of the
// first returned choice.
func (c *Client) Complete(ctx context.Context, req *model.ChatRequest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrMissingKey
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed model.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}
