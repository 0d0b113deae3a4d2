package portfolio

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/newthinker/finsight/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that counts calls.
type memStore struct {
	holdings map[string]float64
	calls    int
}

func newMemStore() *memStore {
	return &memStore{holdings: map[string]float64{}}
}

func (m *memStore) Upsert(_ context.Context, ticker string, quantity float64) (core.Holding, error) {
	m.calls++
	m.holdings[ticker] += quantity
	return core.Holding{Ticker: ticker, Quantity: m.holdings[ticker]}, nil
}

func (m *memStore) Delete(_ context.Context, ticker string) error {
	m.calls++
	if _, ok := m.holdings[ticker]; !ok {
		return core.ErrHoldingNotFound
	}
	delete(m.holdings, ticker)
	return nil
}

func (m *memStore) Get(_ context.Context, ticker string) (core.Holding, error) {
	m.calls++
	q, ok := m.holdings[ticker]
	if !ok {
		return core.Holding{}, core.ErrHoldingNotFound
	}
	return core.Holding{Ticker: ticker, Quantity: q}, nil
}

func (m *memStore) List(_ context.Context) ([]core.Holding, error) {
	m.calls++
	out := make([]core.Holding, 0, len(m.holdings))
	for t, q := range m.holdings {
		out = append(out, core.Holding{Ticker: t, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

type countingRecorder struct{ actions []string }

func (r *countingRecorder) RecordHoldingChange(action string) { r.actions = append(r.actions, action) }

func TestService_AddAccumulates(t *testing.T) {
	store := newMemStore()
	rec := &countingRecorder{}
	svc := NewService(store, nil, rec)
	ctx := context.Background()

	_, err := svc.Add(ctx, "AAPL", 50)
	require.NoError(t, err)
	h, err := svc.Add(ctx, " aapl ", 25)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", h.Ticker)
	assert.Equal(t, 75.0, h.Quantity)
	assert.Equal(t, []string{"upsert", "upsert"}, rec.actions)
}

func TestService_AddRejectsBeforeStore(t *testing.T) {
	tests := []struct {
		name     string
		ticker   string
		quantity float64
		want     error
	}{
		{"negative quantity", "AAPL", -5, core.ErrInvalidQuantity},
		{"zero quantity", "AAPL", 0, core.ErrInvalidQuantity},
		{"NaN quantity", "AAPL", math.NaN(), core.ErrInvalidQuantity},
		{"infinite quantity", "AAPL", math.Inf(1), core.ErrInvalidQuantity},
		{"empty ticker", "", 10, core.ErrTickerRequired},
		{"blank ticker", "   ", 10, core.ErrTickerRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewService(store, nil, nil)

			_, err := svc.Add(context.Background(), tt.ticker, tt.quantity)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.Equal(t, 0, store.calls)
		})
	}
}

func TestService_Remove(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	err := svc.Remove(ctx, "NOPE")
	assert.True(t, errors.Is(err, core.ErrHoldingNotFound))

	_, err = svc.Add(ctx, "TSLA", 2)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "tsla"))

	_, err = svc.Get(ctx, "TSLA")
	assert.True(t, errors.Is(err, core.ErrHoldingNotFound))

	store.calls = 0
	assert.True(t, errors.Is(svc.Remove(ctx, ""), core.ErrTickerRequired))
	assert.Equal(t, 0, store.calls)
}

func TestValue_ExcludesUnpriced(t *testing.T) {
	holdings := []core.Holding{
		{Ticker: "AAPL", Quantity: 10},
		{Ticker: "DEAD", Quantity: 5},
	}
	prices := map[string]float64{"AAPL": 150.25, "DEAD": 0}
	lookup := func(_ context.Context, ticker string) float64 { return prices[ticker] }

	v := Value(context.Background(), holdings, lookup)

	require.Len(t, v.Lines, 2)
	assert.True(t, v.Lines[0].Priced)
	assert.Equal(t, "1502.5", v.Lines[0].Value.String())
	assert.False(t, v.Lines[1].Priced)
	assert.True(t, v.Lines[1].Value.IsZero())
	assert.Equal(t, "1502.5", v.Total.String())
}

func TestService_Valuate(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	_, _ = svc.Add(ctx, "MSFT", 2)
	_, _ = svc.Add(ctx, "AAPL", 1)

	v, err := svc.Valuate(ctx, func(context.Context, string) float64 { return 100 })
	require.NoError(t, err)
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "AAPL", v.Lines[0].Ticker)
	assert.Equal(t, "300", v.Total.String())
}
