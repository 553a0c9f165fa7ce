package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ragcloud/internal/domain"
)

// OpenAIGenerator answers through any OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	client       *openai.Client
	model        string
	instructions string
	timeout      time.Duration
}

func NewOpenAIGenerator(apiKeyEnv, model, baseURL, instructions string, timeout time.Duration) (*OpenAIGenerator, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s environment variable not set", apiKeyEnv)
	}
	return NewOpenAIGeneratorWithKey(key, model, baseURL, instructions, timeout), nil
}

func NewOpenAIGeneratorWithKey(apiKey, model, baseURL, instructions string, timeout time.Duration) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIGenerator{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		instructions: instructions,
		timeout:      timeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if g.instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.instructions,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: BuildPrompt("", query, contextChunks),
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		remote := &domain.RemoteServiceError{Service: serviceName, Err: err}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			remote.StatusCode = apiErr.HTTPStatusCode
		}
		return "", remote
	}
	if len(resp.Choices) == 0 {
		return "", &domain.RemoteServiceError{Service: serviceName, Err: errors.New("no choices in response")}
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}
