package llm

import (
	"context"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage returns a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request configures one completion.
type Request struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`

	// Model, MaxTokens and Temperature override the client defaults when set.
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Schema requests JSON output matching this JSON Schema. SchemaName labels
	// it for backends that need one.
	Schema     map[string]any `json:"schema,omitempty"`
	SchemaName string         `json:"schema_name,omitempty"`
}

// Response is the output of a completion.
type Response struct {
	Content  string        `json:"content"`
	Usage    TokenUsage    `json:"usage"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Client generates text.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Generation defaults shared by the backends.
type defaults struct {
	model       string
	maxTokens   int
	temperature float64
}

func (d defaults) resolve(req Request) (model string, maxTokens int, temperature float64) {
	model, maxTokens, temperature = d.model, d.maxTokens, d.temperature
	if req.Model != "" {
		model = req.Model
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	return model, maxTokens, temperature
}

// Option configures a backend.
type Option func(*defaults)

// WithModel overrides the backend's default model. An empty name is ignored.
func WithModel(model string) Option {
	return func(d *defaults) {
		if model != "" {
			d.model = model
		}
	}
}

// WithMaxTokens sets the default output token limit.
func WithMaxTokens(n int) Option {
	return func(d *defaults) { d.maxTokens = n }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(d *defaults) { d.temperature = t }
}
