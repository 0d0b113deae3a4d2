package insight

import (
	"context"

	"github.com/newthinker/finsight/internal/core"
)

// Request is the input to a generation attempt.
type Request struct {
	Ticker   string
	Snapshot core.Snapshot
}

// Result is the generated text together with the strategy that produced it.
// Strategy is for logging and metrics only.
type Result struct {
	Text     string
	Strategy string
}

// Strategy is one tier of the fallback chain.
type Strategy interface {
	Name() string
	// Available reports whether the strategy can be attempted at all.
	Available() bool
	Attempt(ctx context.Context, req Request) (string, error)
}
