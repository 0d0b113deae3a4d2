// Package portfolio validates holding changes and values the portfolio.
package portfolio

import (
	"context"
	"math"

	"github.com/newthinker/finsight/internal/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store persists holdings.
type Store interface {
	Upsert(ctx context.Context, ticker string, quantity float64) (core.Holding, error)
	Delete(ctx context.Context, ticker string) error
	Get(ctx context.Context, ticker string) (core.Holding, error)
	List(ctx context.Context) ([]core.Holding, error)
}

// PriceLookup returns the latest price for ticker, or a non-positive value
// when none is available.
type PriceLookup func(ctx context.Context, ticker string) float64

// Recorder receives holding mutations; metrics.Registry implements it.
type Recorder interface {
	RecordHoldingChange(action string)
}

// Service is the validated entry point to the holdings store.
type Service struct {
	store    Store
	logger   *zap.Logger
	recorder Recorder
}

// NewService creates a portfolio service. recorder may be nil.
func NewService(store Store, logger *zap.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, recorder: recorder}
}

// Add increases the holding for ticker by quantity. Input is validated
// before the store is touched.
func (s *Service) Add(ctx context.Context, ticker string, quantity float64) (core.Holding, error) {
	ticker = core.NormalizeTicker(ticker)
	if ticker == "" {
		return core.Holding{}, core.ErrTickerRequired
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return core.Holding{}, core.ErrInvalidQuantity
	}

	h, err := s.store.Upsert(ctx, ticker, quantity)
	if err != nil {
		return core.Holding{}, err
	}

	s.logger.Info("holding updated",
		zap.String("ticker", h.Ticker),
		zap.Float64("added", quantity),
		zap.Float64("quantity", h.Quantity),
	)
	s.record("upsert")
	return h, nil
}

// Remove deletes the holding for ticker.
func (s *Service) Remove(ctx context.Context, ticker string) error {
	ticker = core.NormalizeTicker(ticker)
	if ticker == "" {
		return core.ErrTickerRequired
	}

	if err := s.store.Delete(ctx, ticker); err != nil {
		return err
	}

	s.logger.Info("holding removed", zap.String("ticker", ticker))
	s.record("delete")
	return nil
}

// Get returns a single holding.
func (s *Service) Get(ctx context.Context, ticker string) (core.Holding, error) {
	ticker = core.NormalizeTicker(ticker)
	if ticker == "" {
		return core.Holding{}, core.ErrTickerRequired
	}
	return s.store.Get(ctx, ticker)
}

// List returns all holdings ordered by ticker.
func (s *Service) List(ctx context.Context) ([]core.Holding, error) {
	return s.store.List(ctx)
}

// Line is one valued holding. Priced is false when no usable price exists,
// in which case Price and Value are zero and excluded from the total.
type Line struct {
	Ticker   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Value    decimal.Decimal
	Priced   bool
}

// Valuation is the priced portfolio.
type Valuation struct {
	Lines []Line
	Total decimal.Decimal
}

// maxPriceLookups bounds concurrent price requests while valuing.
const maxPriceLookups = 4

// Value prices each holding with lookup. Lines keep the order of holdings.
func Value(ctx context.Context, holdings []core.Holding, lookup PriceLookup) Valuation {
	prices := make([]float64, len(holdings))
	if lookup != nil {
		var g errgroup.Group
		g.SetLimit(maxPriceLookups)
		for i, h := range holdings {
			g.Go(func() error {
				prices[i] = lookup(ctx, h.Ticker)
				return nil
			})
		}
		g.Wait() //nolint:errcheck
	}

	v := Valuation{Lines: make([]Line, 0, len(holdings)), Total: decimal.Zero}
	for i, h := range holdings {
		line := Line{
			Ticker:   h.Ticker,
			Quantity: decimal.NewFromFloat(h.Quantity),
		}
		price := prices[i]
		if price > 0 && !math.IsInf(price, 0) {
			line.Priced = true
			line.Price = decimal.NewFromFloat(price)
			line.Value = line.Quantity.Mul(line.Price)
			v.Total = v.Total.Add(line.Value)
		}
		v.Lines = append(v.Lines, line)
	}
	return v
}

// Valuate lists the holdings and prices them.
func (s *Service) Valuate(ctx context.Context, lookup PriceLookup) (Valuation, error) {
	holdings, err := s.store.List(ctx)
	if err != nil {
		return Valuation{}, err
	}
	return Value(ctx, holdings, lookup), nil
}

func (s *Service) record(action string) {
	if s.recorder != nil {
		s.recorder.RecordHoldingChange(action)
	}
}
