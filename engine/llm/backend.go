// Package llm proposes moves by asking a language model to continue the game's
// movetext.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model answered without any content.
var ErrEmptyResponse = errors.New("llm: no choice found")

// Sampling parameters sent with every request.
const (
	Temperature = 1
	TopP        = 1
	MaxTokens   = 10
)

// Backend performs one language-model request.
type Backend interface {
	// Chat sends a system and a user message and returns the reply content.
	Chat(ctx context.Context, model, system, user string) (string, error)
	// Complete sends a raw prompt and returns the completion text.
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// OpenAI is a Backend for the OpenAI API or any server compatible with it.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates a backend. An empty baseURL keeps the library default.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Chat calls the chat completions endpoint.
func (o *OpenAI) Chat(ctx context.Context, model, system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:      Temperature,
		TopP:             TopP,
		MaxTokens:        MaxTokens,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete calls the legacy completions endpoint.
func (o *OpenAI) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := o.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:            model,
		Prompt:           prompt,
		Temperature:      Temperature,
		TopP:             TopP,
		MaxTokens:        MaxTokens,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Text == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Text, nil
}
