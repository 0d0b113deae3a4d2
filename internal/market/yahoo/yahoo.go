package yahoo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/finsight/internal/core"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// validSymbol matches stock symbols like AAPL, BRK.B, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,10}([.\-][A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.ErrTickerRequired
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrInvalidTicker, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

// Options configures the Yahoo client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	HistoryRange string // e.g. "1mo"
}

// Yahoo implements market.Source against the public Yahoo Finance API
type Yahoo struct {
	client       *resty.Client
	historyRange string
	logger       *zap.Logger
}

// New creates a new Yahoo source
func New(opts Options, logger *zap.Logger) *Yahoo {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.HistoryRange == "" {
		opts.HistoryRange = "1mo"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &Yahoo{
		client:       client,
		historyRange: opts.HistoryRange,
		logger:       logger,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchSnapshot combines the chart endpoint (price, change, name, history)
// with quoteSummary (sector, P/E, beta). Fundamentals are optional: if that
// call fails the snapshot is still returned with those fields absent.
func (y *Yahoo) FetchSnapshot(ctx context.Context, ticker string) (*core.Snapshot, error) {
	if err := validateSymbol(ticker); err != nil {
		return nil, err
	}

	chart, err := y.fetchChart(ctx, ticker)
	if err != nil {
		return nil, err
	}

	meta := chart.Meta
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = core.NotAvailable
	}

	snap := &core.Snapshot{
		Ticker:        ticker,
		CompanyName:   name,
		Sector:        core.NotAvailable,
		Price:         meta.RegularMarketPrice,
		PercentChange: percentChange(meta.RegularMarketPrice, meta.previousClose()),
		History:       chart.bars(),
	}

	summary, err := y.fetchSummary(ctx, ticker)
	if err != nil {
		y.logger.Debug("fundamentals unavailable",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
		return snap, nil
	}

	if summary.AssetProfile.Sector != "" {
		snap.Sector = summary.AssetProfile.Sector
	}
	snap.PERatio = summary.SummaryDetail.TrailingPE.value()
	snap.Beta = summary.SummaryDetail.Beta.value()
	if snap.Beta == nil {
		snap.Beta = summary.DefaultKeyStatistics.Beta.value()
	}

	return snap, nil
}

func (y *Yahoo) fetchChart(ctx context.Context, ticker string) (*chartResult, error) {
	var result chartResponse
	resp, err := y.client.R().
		SetContext(ctx).
		SetPathParam("symbol", ticker).
		SetQueryParams(map[string]string{
			"range":    y.historyRange,
			"interval": "1d",
		}).
		SetResult(&result).
		SetError(&result).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, core.WrapError(core.ErrMarketDataFailed, fmt.Errorf("fetching chart: %w", err))
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrMarketDataFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode()))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", ticker))
	}

	return &result.Chart.Result[0], nil
}

func (y *Yahoo) fetchSummary(ctx context.Context, ticker string) (*summaryResult, error) {
	var result summaryResponse
	resp, err := y.client.R().
		SetContext(ctx).
		SetPathParam("symbol", ticker).
		SetQueryParam("modules", "assetProfile,summaryDetail,defaultKeyStatistics").
		SetResult(&result).
		Get("/v10/finance/quoteSummary/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("fetching quote summary: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quote summary for symbol: %s", ticker)
	}
	return &result.QuoteSummary.Result[0], nil
}

func percentChange(price, previous float64) float64 {
	if previous <= 0 || price <= 0 {
		return 0
	}
	return (price - previous) / previous * 100
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	LongName           string  `json:"longName"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	PreviousClose      float64 `json:"previousClose"`
}

func (m chartMeta) previousClose() float64 {
	if m.PreviousClose > 0 {
		return m.PreviousClose
	}
	return m.ChartPreviousClose
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// bars converts the columnar chart payload into ordered bars, skipping
// sessions Yahoo reports with null prices.
func (r chartResult) bars() []core.Bar {
	out := make([]core.Bar, 0, len(r.Timestamp))
	if len(r.Indicators.Quote) == 0 {
		return out
	}
	q := r.Indicators.Quote[0]

	for i, ts := range r.Timestamp {
		open, high, low, closePrice := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue
		}
		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}
		out = append(out, core.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePrice,
			Volume: volume,
		})
	}
	return out
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	AssetProfile struct {
		Sector string `json:"sector"`
	} `json:"assetProfile"`
	SummaryDetail struct {
		TrailingPE rawValue `json:"trailingPE"`
		Beta       rawValue `json:"beta"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		Beta rawValue `json:"beta"`
	} `json:"defaultKeyStatistics"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v rawValue) value() *float64 {
	return v.Raw
}
