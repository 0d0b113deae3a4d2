package core

import (
	"strings"
	"time"
)

// ErrorCompanyName marks a snapshot that carries no market data.
const ErrorCompanyName = "Error"

// NotAvailable is rendered in place of any missing field.
const NotAvailable = "N/A"

// Bar represents one daily candlestick
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Snapshot is a point-in-time read of market fields for one ticker.
// A zero Price means the price is unavailable; nil PERatio or Beta means
// the metric is unavailable.
type Snapshot struct {
	Ticker        string   `json:"ticker"`
	CompanyName   string   `json:"name"`
	Sector        string   `json:"sector"`
	Price         float64  `json:"price"`
	PercentChange float64  `json:"pct_change"`
	PERatio       *float64 `json:"pe_ratio"`
	Beta          *float64 `json:"beta"`
	History       []Bar    `json:"history"`
}

// ErrorSnapshot returns the sentinel snapshot used when no data could be fetched.
func ErrorSnapshot(ticker string) Snapshot {
	return Snapshot{
		Ticker:      ticker,
		CompanyName: ErrorCompanyName,
		Sector:      NotAvailable,
		History:     []Bar{},
	}
}

// IsError reports whether s is the no-data sentinel.
func (s Snapshot) IsError() bool {
	return s.CompanyName == ErrorCompanyName
}

// HasPrice reports whether the snapshot carries a usable price.
func (s Snapshot) HasPrice() bool {
	return s.Price > 0
}

// Holding is a portfolio line item
type Holding struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
}

// HistoryRecord is an append-only log entry of a generated analysis
type HistoryRecord struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Analysis  string    `json:"analysis"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeTicker trims and upper-cases a user supplied ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Float returns a pointer to v, for optional snapshot metrics.
func Float(v float64) *float64 {
	return &v
}
