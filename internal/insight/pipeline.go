package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/newthinker/finsight/internal/core"
)

const pipelineInstructions = SystemPrompt +
	` Answer with a single JSON object of the form {"analysis": "<text>"} and nothing else.`

// Pipeline is the typed structured-prediction strategy: a compiled chain of
// chat template, chat model and output parser.
type Pipeline struct {
	runnable compose.Runnable[map[string]any, string]
}

// PipelineModelConfig configures the OpenAI-compatible model behind the pipeline.
type PipelineModelConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// NewOpenAIChatModel builds the chat model used by the pipeline.
func NewOpenAIChatModel(ctx context.Context, cfg PipelineModelConfig) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, core.ErrLLMUnavailable
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}

	temperature := float32(cfg.Temperature)
	modelConfig := &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: &temperature,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return chatModel, nil
}

// NewPipeline compiles the chain around chatModel.
func NewPipeline(ctx context.Context, chatModel model.BaseChatModel) (*Pipeline, error) {
	if chatModel == nil {
		return nil, core.ErrLLMUnavailable
	}

	template := prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(pipelineInstructions),
		schema.UserMessage(promptTemplate),
	)

	chain := compose.NewChain[map[string]any, string]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)
	chain.AppendLambda(compose.InvokableLambda(parseAnalysis))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile insight pipeline: %w", err)
	}

	return &Pipeline{runnable: runnable}, nil
}

func (p *Pipeline) Name() string {
	return "pipeline"
}

// Available reports whether the chain was compiled.
func (p *Pipeline) Available() bool {
	return p != nil && p.runnable != nil
}

func (p *Pipeline) Attempt(ctx context.Context, req Request) (string, error) {
	if !p.Available() {
		return "", core.ErrLLMUnavailable
	}
	out, err := p.runnable.Invoke(ctx, promptVariables(req.Ticker, FormatSummary(req.Snapshot)))
	if err != nil {
		return "", core.WrapError(core.ErrLLMFailed, err)
	}
	return out, nil
}

// parseAnalysis extracts the analysis field from the model's JSON answer.
func parseAnalysis(_ context.Context, msg *schema.Message) (string, error) {
	if msg == nil {
		return "", core.WrapError(core.ErrLLMMalformed, fmt.Errorf("empty model response"))
	}

	body := stripCodeFence(strings.TrimSpace(msg.Content))

	var out struct {
		Analysis string `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return "", core.WrapError(core.ErrLLMMalformed, fmt.Errorf("decoding analysis: %w", err))
	}

	analysis := strings.TrimSpace(out.Analysis)
	if analysis == "" {
		return "", core.WrapError(core.ErrLLMMalformed, fmt.Errorf("analysis field missing or empty"))
	}
	return analysis, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
