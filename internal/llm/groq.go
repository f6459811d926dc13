package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/lakestreetlabs/finquill/internal/config"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

const systemPrompt = "You are a helpful financial and web search assistant. " +
	"Always provide specific numerical values, dates, and percentages from the data provided. " +
	"Never use placeholders like '$.' or incomplete dates."

// GroqClient talks to the Groq API through its OpenAI-compatible chat
// completions endpoint. Any OpenAI-compatible backend works by pointing
// baseUrl at it.
type GroqClient struct {
	svc       openai.ChatCompletionService
	model     string
	maxTokens int64
}

func NewGroqClient(cfg *config.Config) (*GroqClient, error) {
	if cfg.Provider.APIKey == "" {
		return nil, errors.New("provider API key not set. Run 'finquill onboard' or set FINQUILL_API_KEY / GROQ_API_KEY")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.Provider.APIKey)}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Provider.BaseURL))
	}

	return &GroqClient{
		svc:       openai.NewChatCompletionService(opts...),
		model:     cfg.Provider.Model,
		maxTokens: int64(cfg.Agent.MaxTokens),
	}, nil
}

func (c *GroqClient) params(prompt string, temperature float64) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature:         param.NewOpt(temperature),
		TopP:                param.NewOpt(1.0),
		MaxCompletionTokens: param.NewOpt(c.maxTokens),
	}
}

func (c *GroqClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.svc.New(ctx, c.params(prompt, temperature))
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq completion: response has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *GroqClient) Stream(ctx context.Context, prompt string, temperature float64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		st := c.svc.NewStreaming(ctx, c.params(prompt, temperature))
		defer st.Close()

		for st.Next() {
			chunk := st.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := st.Err(); err != nil {
			yield("", fmt.Errorf("groq stream: %w", err))
		}
	}
}
