package services

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const reflectionMaxOutputTokens = 1200

// OpenAIProvider implements NarrativeProvider with the Responses API
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a client for model. baseURL may be empty.
// Retries are left to callers so the generation budget is a hard bound.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

// Generate returns the output text of a strict json_schema response
func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, schema ResponseSchema) (string, error) {
	if p.client == nil {
		return "", errors.New("openai provider: client is nil")
	}
	if p.model == "" {
		return "", errors.New("openai provider: model is empty")
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        schema.Name,
			Schema:      schema.Schema,
			Strict:      openai.Bool(true),
			Description: openai.String(schema.Description),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           p.model,
		MaxOutputTokens: openai.Int(reflectionMaxOutputTokens),
		Instructions:    openai.String(systemPrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(userPrompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}
