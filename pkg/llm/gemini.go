package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/randalmurphal/bookgraph/pkg/fault"
)

// Gemini generates text through the Gemini API.
type Gemini struct {
	client   *genai.Client
	defaults defaults
}

// NewGemini creates a client. baseURL overrides the API endpoint when non-empty.
func NewGemini(ctx context.Context, apiKey, baseURL string, opts ...Option) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	d := defaults{model: "gemini-2.0-flash", maxTokens: 1024, temperature: 0.7}
	for _, opt := range opts {
		opt(&d)
	}

	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, defaults: d}, nil
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, req Request) (*Response, error) {
	model, maxTokens, temperature := g.defaults.resolve(req)

	contents := make([]*genai.Content, 0, len(req.Messages))
	system := req.System
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case RoleSystem:
			system += "\n\n" + m.Content
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	temp := float32(temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens),
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.Schema
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, geminiError(err)
	}

	out := &Response{
		Content:  resp.Text(),
		Model:    model,
		Duration: time.Since(start),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = TokenUsage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: %w", &fault.HTTPError{
			StatusCode: apiErr.Code,
			Endpoint:   "generateContent",
			Message:    apiErr.Message,
		})
	}
	return fmt.Errorf("gemini: %w", err)
}
