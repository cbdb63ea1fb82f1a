package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/randalmurphal/bookgraph/pkg/fault"
)

// OpenAI generates text through the Responses API.
type OpenAI struct {
	client   *openai.Client
	defaults defaults
}

// NewOpenAI creates a client. Extra request options (base URL, HTTP client)
// go through reqOpts; the SDK's own retries are disabled in favour of WithRetry.
func NewOpenAI(apiKey string, opts []Option, reqOpts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	d := defaults{model: "gpt-4o-mini", maxTokens: 1024, temperature: 0.7}
	for _, opt := range opts {
		opt(&d)
	}

	all := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, reqOpts...)
	client := openai.NewClient(all...)
	return &OpenAI{client: &client, defaults: d}, nil
}

// Complete implements Client.
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	model, maxTokens, temperature := o.defaults.resolve(req)

	items := make([]responses.ResponseInputItemUnionParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, openAIRole(m.Role)))
	}

	params := responses.ResponseNewParams{
		Model:           model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Temperature:     openai.Float(temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	start := time.Now()
	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return nil, openAIError(err)
	}

	return &Response{
		Content: resp.OutputText(),
		Model:   string(resp.Model),
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
		Duration: time.Since(start),
	}, nil
}

func openAIRole(r Role) responses.EasyInputMessageRole {
	switch r {
	case RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	case RoleSystem:
		return responses.EasyInputMessageRoleSystem
	default:
		return responses.EasyInputMessageRoleUser
	}
}

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai: %w", &fault.HTTPError{
			StatusCode: apiErr.StatusCode,
			Endpoint:   "/responses",
			Message:    apiErr.Message,
		})
	}
	return fmt.Errorf("openai: %w", err)
}
