package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/llm"
)

// Completion sends the rendered prompt straight to a chat-completion provider.
type Completion struct {
	provider    llm.Provider
	credential  bool
	maxTokens   int
	temperature float64
}

// NewCompletion wraps provider. hasCredential reflects whether the provider's
// API credential is configured; provider may be nil.
func NewCompletion(provider llm.Provider, hasCredential bool, maxTokens int, temperature float64) *Completion {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Completion{
		provider:    provider,
		credential:  hasCredential,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *Completion) Name() string {
	if c != nil && c.provider != nil {
		return "completion:" + c.provider.Name()
	}
	return "completion"
}

func (c *Completion) Available() bool {
	return c != nil && c.provider != nil && c.credential
}

func (c *Completion) Attempt(ctx context.Context, req Request) (string, error) {
	if !c.Available() {
		return "", core.ErrLLMUnavailable
	}

	prompt, err := RenderPrompt(req.Ticker, FormatSummary(req.Snapshot))
	if err != nil {
		return "", err
	}

	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: SystemPrompt,
		Messages:     []llm.Message{llm.UserMessage(prompt)},
		MaxTokens:    c.maxTokens,
		Temperature:  c.temperature,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", core.WrapError(core.ErrLLMMalformed, fmt.Errorf("empty completion"))
	}
	return text, nil
}
