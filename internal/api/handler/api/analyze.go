package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/newthinker/finsight/internal/api/response"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/insight"
	"github.com/newthinker/finsight/internal/logger"
	"go.uber.org/zap"
)

// SnapshotFetcher returns market data or the error sentinel; it never fails.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, ticker string) core.Snapshot
}

// InsightGenerator produces analysis text; it never fails.
type InsightGenerator interface {
	Generate(ctx context.Context, req insight.Request) insight.Result
}

// HistoryWriter appends generated analyses to the history log.
type HistoryWriter interface {
	AppendHistory(ctx context.Context, ticker, analysis string) error
}

// InsightStore keeps the latest insights for the summary page.
type InsightStore interface {
	Put(item insight.Stored) string
}

// InsightCookie remembers an insight ID on the client.
type InsightCookie interface {
	SetInsight(w http.ResponseWriter, id string)
}

// AnalyzeResponse is the body of a successful analysis.
type AnalyzeResponse struct {
	Status    string        `json:"status"`
	Stock     core.Snapshot `json:"stock"`
	Insight   string        `json:"insight"`
	InsightID string        `json:"insight_id"`
}

type analyzeRequest struct {
	Ticker string `json:"ticker"`
}

// AnalyzeHandler serves POST /api/analyze.
type AnalyzeHandler struct {
	snapshots SnapshotFetcher
	generator InsightGenerator
	history   HistoryWriter
	insights  InsightStore
	cookie    InsightCookie
	logger    *zap.Logger
}

// NewAnalyzeHandler creates an analyze handler. history and cookie may be nil.
func NewAnalyzeHandler(snapshots SnapshotFetcher, generator InsightGenerator, history HistoryWriter,
	insights InsightStore, cookie InsightCookie, logger *zap.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzeHandler{
		snapshots: snapshots,
		generator: generator,
		history:   history,
		insights:  insights,
		cookie:    cookie,
		logger:    logger,
	}
}

// Analyze fetches a snapshot for the ticker and generates an insight.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.ErrTickerRequired)
		return
	}

	ticker := core.NormalizeTicker(req.Ticker)
	if ticker == "" {
		response.Error(w, http.StatusBadRequest, core.ErrTickerRequired)
		return
	}

	ctx := r.Context()
	snap := h.snapshots.Snapshot(ctx, ticker)
	if snap.IsError() {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrNoData, fmt.Errorf("no data found for ticker: %s", ticker)))
		return
	}
	snap.Ticker = ticker

	ireq := insight.Request{Ticker: ticker, Snapshot: snap}
	result := h.generator.Generate(ctx, ireq)

	id := h.insights.Put(insight.NewStored(ireq, result))
	if h.cookie != nil {
		h.cookie.SetInsight(w, id)
	}

	if h.history != nil {
		if err := h.history.AppendHistory(ctx, ticker, result.Text); err != nil {
			h.logger.Warn("recording analysis history failed",
				zap.String("ticker", ticker),
				logger.ErrorDetail(err),
			)
		}
	}

	response.JSON(w, http.StatusOK, AnalyzeResponse{
		Status:    "ok",
		Stock:     snap,
		Insight:   result.Text,
		InsightID: id,
	})
}
