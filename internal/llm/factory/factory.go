// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/newthinker/finsight/internal/config"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/llm"
	"github.com/newthinker/finsight/internal/llm/claude"
	"github.com/newthinker/finsight/internal/llm/ollama"
	"github.com/newthinker/finsight/internal/llm/openai"
)

// New creates the completion provider selected by configuration.
// An empty provider name selects OpenAI.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown LLM provider: %s", cfg.Provider))
	}
}
