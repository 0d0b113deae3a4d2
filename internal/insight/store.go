package insight

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/finsight/internal/core"
)

// Stored is a generated analysis kept for the summary view.
type Stored struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Company   string    `json:"company"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	PERatio   *float64  `json:"pe_ratio"`
	Beta      *float64  `json:"beta"`
	Insight   string    `json:"insight"`
	Strategy  string    `json:"strategy"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStored builds a record for req and its generated result.
func NewStored(req Request, res Result) Stored {
	s := req.Snapshot
	return Stored{
		Ticker:    req.Ticker,
		Company:   s.CompanyName,
		Price:     s.Price,
		ChangePct: s.PercentChange,
		PERatio:   s.PERatio,
		Beta:      s.Beta,
		Insight:   res.Text,
		Strategy:  res.Strategy,
	}
}

// Store keeps recent insights in memory, bounded by size and age.
type Store struct {
	items   map[string]*Stored
	order   []string // insertion order for eviction
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewStore creates an insight store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 500
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		items:   make(map[string]*Stored),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores item under a fresh ID and returns the ID.
func (s *Store) Put(item Stored) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uuid.NewString()
	item.CreatedAt = s.now()

	s.sweepLocked()
	// Evict oldest if at capacity
	for len(s.items) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.items, oldest)
		s.order = s.order[1:]
	}

	s.items[item.ID] = &item
	s.order = append(s.order, item.ID)

	return item.ID
}

// Get returns a copy of the insight with id. Expired entries are not found.
func (s *Store) Get(id string) (*Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok || s.expired(item) {
		return nil, core.ErrInsightNotFound
	}

	out := *item
	return &out, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if item, ok := s.items[id]; ok && s.expired(item) {
			delete(s.items, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) expired(item *Stored) bool {
	return s.now().Sub(item.CreatedAt) > s.ttl
}
