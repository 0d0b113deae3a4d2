package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/insight"
	"github.com/newthinker/finsight/internal/logger"
	"github.com/newthinker/finsight/internal/portfolio"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHistoryLimit = 50
	maxIndexFetches     = 5
)

// IndexData holds data for the landing page
type IndexData struct {
	Title  string
	Stocks []core.Snapshot
}

// PortfolioData holds data for the portfolio page
type PortfolioData struct {
	Title    string
	Holdings []portfolio.Line
	Total    decimal.Decimal
	Error    string
}

// HistoryData holds data for the analysis history page
type HistoryData struct {
	Title string
	Items []core.HistoryRecord
	Error string
}

// InsightData holds data for the insight summary page
type InsightData struct {
	Title   string
	Insight *insight.Stored
	Body    template.HTML
}

// ErrorData holds data for the error page
type ErrorData struct {
	Title   string
	Message string
}

// Index renders the default tickers overview.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := IndexData{Title: "Market Overview"}

	if h.deps.Snapshots != nil && len(h.deps.DefaultTickers) > 0 {
		snaps := make([]core.Snapshot, len(h.deps.DefaultTickers))
		var g errgroup.Group
		g.SetLimit(maxIndexFetches)
		for i, ticker := range h.deps.DefaultTickers {
			g.Go(func() error {
				snaps[i] = h.deps.Snapshots.Snapshot(r.Context(), ticker)
				return nil
			})
		}
		g.Wait() //nolint:errcheck

		for _, s := range snaps {
			if s.IsError() {
				continue
			}
			data.Stocks = append(data.Stocks, s)
		}
	}

	h.render(w, http.StatusOK, "index.html", data)
}

// Portfolio renders the valued holdings.
func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request) {
	data := PortfolioData{Title: "Portfolio", Total: decimal.Zero}

	if h.deps.Portfolio != nil {
		v, err := h.deps.Portfolio.Valuate(r.Context(), h.deps.Prices)
		if err != nil {
			h.logger.Error("loading portfolio failed", logger.ErrorDetail(err))
			data.Error = "Portfolio is temporarily unavailable."
		} else {
			data.Holdings = v.Lines
			data.Total = v.Total
		}
	}

	h.render(w, http.StatusOK, "portfolio.html", data)
}

// History renders the most recent analyses.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	data := HistoryData{Title: "Analysis History"}

	if h.deps.History != nil {
		limit := h.deps.HistoryLimit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		items, err := h.deps.History.RecentHistory(r.Context(), limit)
		if err != nil {
			h.logger.Error("loading history failed", logger.ErrorDetail(err))
			data.Error = "History is temporarily unavailable."
		} else {
			data.Items = items
		}
	}

	h.render(w, http.StatusOK, "history.html", data)
}

// InsightSummary renders the insight named by ?id= or the insight cookie.
func (h *Handler) InsightSummary(w http.ResponseWriter, r *http.Request) {
	stored := h.lookupInsight(r)
	if stored == nil {
		h.render(w, http.StatusNotFound, "error.html", ErrorData{
			Title:   "Insight Not Available",
			Message: "No insight is available. Analyze a ticker first.",
		})
		return
	}

	body, err := renderMarkdown(stored.Insight)
	if err != nil {
		h.logger.Warn("rendering insight markdown failed",
			zap.String("ticker", stored.Ticker),
			logger.ErrorDetail(err),
		)
		body = template.HTML("<p>" + template.HTMLEscapeString(stored.Insight) + "</p>")
	}

	h.render(w, http.StatusOK, "insight_summary.html", InsightData{
		Title:   stored.Ticker + " Insight",
		Insight: stored,
		Body:    body,
	})
}

func (h *Handler) lookupInsight(r *http.Request) *insight.Stored {
	if h.deps.Insights == nil {
		return nil
	}

	id := r.URL.Query().Get("id")
	if id == "" && h.deps.Cookie != nil {
		id, _ = h.deps.Cookie.Insight(r)
	}
	if id == "" {
		return nil
	}

	stored, err := h.deps.Insights.Get(id)
	if err != nil {
		return nil
	}
	return stored
}

// NotFound renders the error page for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "error.html", ErrorData{
		Title:   "Not Found",
		Message: "The page you requested does not exist.",
	})
}

// renderMarkdown converts model output to HTML. Raw HTML in the source is
// dropped, so the result is safe to embed.
func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec
}
