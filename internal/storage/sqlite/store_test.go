package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/newthinker/finsight/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "finance.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPathFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"sqlite:///finance.db", "finance.db"},
		{"sqlite:////var/lib/finsight/finance.db", "/var/lib/finsight/finance.db"},
		{"sqlite://", ":memory:"},
		{"/tmp/plain.db", "/tmp/plain.db"},
		{":memory:", ":memory:"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, PathFromURL(tt.url))
		})
	}
}

func TestStore_UpsertAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Upsert(ctx, "AAPL", 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, h.Quantity)

	h, err = s.Upsert(ctx, "AAPL", 25)
	require.NoError(t, err)
	assert.Equal(t, 75.0, h.Quantity)

	got, err := s.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Quantity)
}

func TestStore_UpsertConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Upsert(ctx, "MSFT", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Quantity)
}

func TestStore_UpsertRejectsOverflow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "AAPL", 1e308)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, "AAPL", 1e308)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidQuantity))

	got, err := s.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1e308, got.Quantity)
}

func TestStore_RejectsNonPositiveQuantity(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert(context.Background(), "AAPL", -5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStoreFailed))
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Delete(ctx, "NOPE")
	assert.True(t, errors.Is(err, core.ErrHoldingNotFound))

	_, err = s.Upsert(ctx, "TSLA", 3)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "TSLA"))

	_, err = s.Get(ctx, "TSLA")
	assert.True(t, errors.Is(err, core.ErrHoldingNotFound))
}

func TestStore_ListOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	for _, tk := range []string{"MSFT", "AAPL", "GOOGL"} {
		_, err := s.Upsert(ctx, tk, 1)
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "AAPL", list[0].Ticker)
	assert.Equal(t, "GOOGL", list[1].Ticker)
	assert.Equal(t, "MSFT", list[2].Ticker)
}

func TestStore_History(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, "AAPL", "first"))
	require.NoError(t, s.AppendHistory(ctx, "MSFT", "second"))
	require.NoError(t, s.AppendHistory(ctx, "AAPL", "third"))

	records, err := s.RecentHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].Analysis)
	assert.Equal(t, "first", records[2].Analysis)
	assert.False(t, records[0].CreatedAt.IsZero())

	limited, err := s.RecentHistory(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Upsert(context.Background(), "AAPL", 1)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
}
