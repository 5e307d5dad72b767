package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIClient generates text with OpenAI chat completions
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model), nil
}

// NewOpenAIClientWithConfig allows pointing the client at a compatible endpoint
func NewOpenAIClientWithConfig(config openai.ClientConfig, model string) *OpenAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(config), model: model}
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) Result {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		N:     1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Failure(ErrProvider{Provider: "OpenAI", Err: err})
	}
	if len(resp.Choices) == 0 {
		return Failure(ErrEmptyResponse)
	}
	return clean(resp.Choices[0].Message.Content)
}
