package insight

import (
	"context"
	"fmt"
)

// Heuristic is the last tier: a fixed-format notice built from the snapshot.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Available() bool { return true }

func (Heuristic) Attempt(_ context.Context, req Request) (string, error) {
	return HeuristicText(req), nil
}

// HeuristicText never fails and never needs the network.
func HeuristicText(req Request) string {
	s := req.Snapshot
	return fmt.Sprintf(
		"Unable to generate AI analysis for %s. Latest data: price $%.2f, P/E %s, beta %s. "+
			"AI generation is currently unavailable; please check the API configuration.",
		req.Ticker, s.Price, formatOptional(s.PERatio), formatOptional(s.Beta),
	)
}
