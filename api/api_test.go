package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicommit/model"
)

func TestBuildRequest(t *testing.T) {
	req := BuildRequest("gpt-4.1-mini", "diff --git a/x b/x\n+hello\n")

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "feat|fix|docs|style|refactor|test|chore")
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.True(t, strings.HasPrefix(req.Messages[1].Content, "Changes:\n"))
	assert.Zero(t, req.Temperature)

	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
	require.NotNil(t, req.ResponseFormat.JSONSchema)
	assert.True(t, req.ResponseFormat.JSONSchema.Strict)

	var schema struct {
		Type                 string   `json:"type"`
		AdditionalProperties bool     `json:"additionalProperties"`
		Required             []string `json:"required"`
		Properties           map[string]struct {
			Type      string   `json:"type"`
			Enum      []string `json:"enum"`
			MaxLength int      `json:"maxLength"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(req.ResponseFormat.JSONSchema.Schema, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.False(t, schema.AdditionalProperties)
	assert.Equal(t, []string{"type", "message"}, schema.Required)
	assert.Equal(t, model.Kinds, schema.Properties["type"].Enum)
	assert.Equal(t, model.MaxMessageChars, schema.Properties["message"].MaxLength)
}

func TestComplete_MissingKeyBeforeNetwork(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.GenerateCommit(context.Background(), "some diff")

	require.ErrorIs(t, err, ErrMissingKey)
	assert.Zero(t, hits, "no request should be sent without a key")
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req model.ChatRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, "gpt-4.1-mini", req.Model)
		}

		json.NewEncoder(w).Encode(model.ChatResponse{
			Choices: []model.Choice{{Message: model.ChoiceMessage{
				Content: `{"type":"feat","scope":"auth","message":"add token refresh"}`,
			}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-4.1-mini"})
	content, err := client.GenerateCommit(context.Background(), "diff --git ...")

	require.NoError(t, err)
	commit, err := model.ParseCommit(content)
	require.NoError(t, err)
	assert.Equal(t, "feat(auth): add token refresh", commit.Line())
}

func TestComplete_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL})
	_, err := client.GenerateCommit(context.Background(), "diff")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.Status)
	assert.Contains(t, upstream.Body, "model overloaded")
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.ChatResponse{})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL})
	_, err := client.GenerateCommit(context.Background(), "diff")

	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestComplete_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL})
	_, err := client.GenerateCommit(context.Background(), "diff")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion request failed")
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test"})
	assert.Equal(t, DefaultBaseURL, client.cfg.BaseURL)
	assert.Equal(t, DefaultModel, client.cfg.Model)
}
