// Package llm answers free-form queries through a langchaingo model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultModel = "llama3.2:latest"
)

type Options struct {
	Provider  string
	Model     string
	ServerURL string
	APIKey    string
}

type Client struct {
	model   llms.Model
	options []llms.CallOption
}

func New(opts Options) (*Client, error) {
	model, err := newModel(opts)
	if err != nil {
		return nil, err
	}
	return NewWithModel(model), nil
}

func NewWithModel(model llms.Model, options ...llms.CallOption) *Client {
	return &Client{model: model, options: options}
}

func newModel(opts Options) (llms.Model, error) {
	name := strings.TrimSpace(opts.Model)
	if name == "" {
		name = DefaultModel
	}

	switch provider := strings.ToLower(strings.TrimSpace(opts.Provider)); provider {
	case "", ProviderOllama:
		ollamaOpts := []ollama.Option{ollama.WithModel(name)}
		if opts.ServerURL != "" {
			ollamaOpts = append(ollamaOpts, ollama.WithServerURL(opts.ServerURL))
		}
		model, err := ollama.New(ollamaOpts...)
		if err != nil {
			return nil, fmt.Errorf("initialize ollama model %q: %w", name, err)
		}
		return model, nil
	case ProviderOpenAI:
		openaiOpts := []openai.Option{openai.WithModel(name)}
		if opts.ServerURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(opts.ServerURL))
		}
		if opts.APIKey != "" {
			openaiOpts = append(openaiOpts, openai.WithToken(opts.APIKey))
		}
		model, err := openai.New(openaiOpts...)
		if err != nil {
			return nil, fmt.Errorf("initialize openai model %q: %w", name, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported language model provider: %s (expected %s or %s)", opts.Provider, ProviderOllama, ProviderOpenAI)
	}
}

func (c *Client) Query(ctx context.Context, text string) (string, error) {
	if c == nil || c.model == nil {
		return "", errors.New("language model is not initialized")
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, c.model, text, c.options...)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return strings.TrimSpace(completion), nil
}
