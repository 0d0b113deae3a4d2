// Package insight turns a market snapshot into a written investment analysis.
//
// Generation walks a fixed chain of strategies (structured pipeline, raw
// completion, heuristic) and returns the first one that succeeds. Generate
// itself never fails.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/logger"
	"go.uber.org/zap"
)

// Attempt outcomes reported to the Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeUnavailable = "unavailable"
)

// DefaultTimeout bounds a single strategy attempt.
const DefaultTimeout = 30 * time.Second

// Recorder receives one event per strategy considered; metrics.Registry implements it.
type Recorder interface {
	RecordInsightAttempt(strategy, outcome string)
}

// Generator runs strategies in order until one produces text.
type Generator struct {
	strategies []Strategy
	timeout    time.Duration
	logger     *zap.Logger
	recorder   Recorder
}

// NewGenerator creates a generator trying strategies in the given order.
// The heuristic is always the implicit last resort.
func NewGenerator(logger *zap.Logger, recorder Recorder, timeout time.Duration, strategies ...Strategy) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	kept := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Generator{
		strategies: kept,
		timeout:    timeout,
		logger:     logger,
		recorder:   recorder,
	}
}

// Generate returns the first successful strategy's text.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	for _, s := range g.strategies {
		name := s.Name()

		if !s.Available() {
			g.logger.Debug("insight strategy unavailable", zap.String("strategy", name), zap.String("ticker", req.Ticker))
			g.record(name, OutcomeUnavailable)
			continue
		}

		start := time.Now()
		text, err := g.attempt(ctx, s, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = core.WrapError(core.ErrLLMMalformed, fmt.Errorf("empty output"))
		}
		if err != nil {
			g.logger.Warn("insight strategy failed",
				zap.String("strategy", name),
				zap.String("ticker", req.Ticker),
				zap.Duration("elapsed", time.Since(start)),
				logger.ErrorDetail(err),
			)
			g.record(name, OutcomeFailure)
			continue
		}

		g.logger.Info("insight generated",
			zap.String("strategy", name),
			zap.String("ticker", req.Ticker),
			zap.Duration("elapsed", time.Since(start)),
		)
		g.record(name, OutcomeSuccess)
		return Result{Text: text, Strategy: name}
	}

	g.record(Heuristic{}.Name(), OutcomeSuccess)
	return Result{Text: HeuristicText(req), Strategy: Heuristic{}.Name()}
}

func (g *Generator) attempt(ctx context.Context, s Strategy, req Request) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	return s.Attempt(ctx, req)
}

func (g *Generator) record(strategy, outcome string) {
	if g.recorder != nil {
		g.recorder.RecordInsightAttempt(strategy, outcome)
	}
}
