// Package market fetches point-in-time snapshots from a market data provider.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/logger"
	"go.uber.org/zap"
)

// Source defines a market data provider
type Source interface {
	Name() string
	FetchSnapshot(ctx context.Context, ticker string) (*core.Snapshot, error)
}

// Recorder receives fetch outcomes; metrics.Registry implements it.
type Recorder interface {
	RecordSnapshotFetch(source, status string, duration float64)
}

// Fetcher wraps a Source so that callers never see an error: any failure
// yields core.ErrorSnapshot.
type Fetcher struct {
	source   Source
	logger   *zap.Logger
	recorder Recorder
}

// NewFetcher creates a Fetcher. recorder may be nil.
func NewFetcher(source Source, logger *zap.Logger, recorder Recorder) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, logger: logger, recorder: recorder}
}

// Snapshot returns the snapshot for ticker or the error sentinel.
func (f *Fetcher) Snapshot(ctx context.Context, ticker string) (snap core.Snapshot) {
	start := time.Now()
	status := "ok"

	defer func() {
		if r := recover(); r != nil {
			status = "error"
			f.logger.Error("market data source panicked",
				zap.String("ticker", ticker),
				zap.String("panic", fmt.Sprint(r)),
			)
			snap = core.ErrorSnapshot(ticker)
		}
		if f.recorder != nil {
			f.recorder.RecordSnapshotFetch(f.source.Name(), status, time.Since(start).Seconds())
		}
	}()

	s, err := f.source.FetchSnapshot(ctx, ticker)
	if err != nil || s == nil {
		status = "error"
		f.logger.Warn("fetching snapshot failed",
			zap.String("ticker", ticker),
			zap.String("source", f.source.Name()),
			logger.ErrorDetail(err),
		)
		return core.ErrorSnapshot(ticker)
	}

	if s.History == nil {
		s.History = []core.Bar{}
	}
	return *s
}

// Price returns the latest price for ticker, or 0 when unavailable.
func (f *Fetcher) Price(ctx context.Context, ticker string) float64 {
	s := f.Snapshot(ctx, ticker)
	if s.IsError() {
		return 0
	}
	return s.Price
}
