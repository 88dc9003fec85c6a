package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageChars is the character budget for the commit description,
// enforced both in the request schema and when parsing the reply.
const MaxMessageChars = 50

// Kinds lists the conventional-commit types the model may choose from.
var Kinds = []string{"feat", "fix", "docs", "style", "refactor", "test", "chore"}

var kindSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Kinds))
	for _, k := range Kinds {
		set[k] = struct{}{}
	}
	return set
}()

// Commit is the structured commit description returned by the model.
// Scope may be empty, which means no scope annotation.
type Commit struct {
	Kind    string `json:"type"`
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// MalformedError reports model output that could not be parsed as a valid
// commit. Raw carries the offending content for diagnostics.
type MalformedError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed commit reply: %s (raw: %q)", e.Reason, e.Raw)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// ParseCommit parses the raw model reply into a Commit. The endpoint is asked
// for schema-constrained output, but the content is still treated as
// untrusted: anything that is not a conforming JSON object is rejected rather
// than coerced. A missing scope defaults to the empty string.
func ParseCommit(raw string) (Commit, error) {
	var c Commit
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Commit{}, &MalformedError{Raw: raw, Reason: "not a commit JSON object", Err: err}
	}
	if dec.More() {
		return Commit{}, &MalformedError{Raw: raw, Reason: "trailing data after JSON object"}
	}

	if _, ok := kindSet[strings.TrimSpace(c.Kind)]; !ok {
		return Commit{}, &MalformedError{Raw: raw, Reason: fmt.Sprintf("unknown commit type %q", c.Kind)}
	}
	if strings.TrimSpace(c.Message) == "" {
		return Commit{}, &MalformedError{Raw: raw, Reason: "missing message"}
	}
	if utf8.RuneCountInString(c.Message) > MaxMessageChars {
		return Commit{}, &MalformedError{Raw: raw, Reason: fmt.Sprintf("message exceeds %d characters", MaxMessageChars)}
	}

	return c, nil
}

// Line renders the conventional-commit headline: kind[(scope)]: message.
func (c Commit) Line() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Kind))
	if scope := strings.TrimSpace(c.Scope); scope != "" {
		b.WriteString("(")
		b.WriteString(scope)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(c.Message))
	return b.String()
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the endpoint for structured output. Type is
// "json_schema" when the schema is attached; accounts without structured
// outputs can fall back to "json_object" with Schema left nil.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

// ChatResponse is the slice of the 2xx response body we consume.
type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message ChoiceMessage `json:"message"`
}

type ChoiceMessage struct {
	Content string `json:"content"`
}
