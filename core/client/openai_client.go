package client

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/sashabaranov/go-openai"

	"github.com/edugo/edugen/core/errors"
)

// OpenAIClient chat completion client for OpenAI-compatible endpoints
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a chat client against an OpenAI-compatible endpoint
func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrConfiguration, "chat apiKey is not configured")
	}
	if model == "" {
		return nil, errors.New(errors.ErrConfiguration, "chat model is not configured")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New(errors.ErrInvalidParameter, "completion request has no messages")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxTokens,
	}
	if req.JSONMode {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	g.Log().Infof(ctx, "[Chat Client] Sending request - Model: %s, Messages: %d, Temp: %.2f, MaxTokens: %d",
		c.model, len(messages), req.Temperature, req.MaxTokens)

	resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		g.Log().Errorf(ctx, "[Chat Client] API call failed - Model: %s, Error: %v", c.model, err)
		return nil, errors.Newf(errors.ErrCompletionFailed, "failed to create chat completion: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrCompletionFailed, "chat completion returned no choices")
	}

	g.Log().Infof(ctx, "[Chat Client] Received response - ID: %s, Model: %s, Usage: %+v",
		resp.ID, resp.Model, resp.Usage)

	return &Completion{Content: resp.Choices[0].Message.Content}, nil
}
