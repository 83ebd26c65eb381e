// Package agents holds the model-backed collaborators of the revision
// loop: the writer that drafts sections and the two reviewers that judge
// them.
package agents

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/courseforge/courseforge/internal/config"
)

// Prompt is one chat exchange: a system framing plus the user payload.
type Prompt struct {
	System string
	User   string
}

// LLMClient abstracts the model call so agents can be tested without a
// network.
type LLMClient interface {
	Complete(ctx context.Context, model string, prompt Prompt) (string, error)
}

// OpenAIClient implements LLMClient with the official openai-go SDK.
type OpenAIClient struct {
	opts []option.RequestOption
}

// NewOpenAIClient validates the settings and prepares request options.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agents: openai api key missing; provide llm.api_key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{opts: opts}, nil
}

// Complete sends one chat completion and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	client := openai.NewClient(c.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("agents: empty choices in completion")
	}
	return resp.Choices[0].Message.Content, nil
}
