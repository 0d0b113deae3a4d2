package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/finsight/internal/api/response"
	"github.com/newthinker/finsight/internal/core"
)

// PortfolioService validates and applies holding changes.
type PortfolioService interface {
	Add(ctx context.Context, ticker string, quantity float64) (core.Holding, error)
	Remove(ctx context.Context, ticker string) error
	List(ctx context.Context) ([]core.Holding, error)
}

// HoldingResponse is returned after a holding is added.
type HoldingResponse struct {
	OK       bool    `json:"ok"`
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
}

// OKResponse is the bare acknowledgement.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HoldingsResponse lists the portfolio.
type HoldingsResponse struct {
	OK       bool           `json:"ok"`
	Holdings []core.Holding `json:"holdings"`
}

var errQuantityNotNumeric = errors.New("quantity must be a number")

// quantity accepts a JSON number or a numeric string.
type quantity struct {
	value float64
	set   bool
}

func (q *quantity) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		q.value, q.set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errQuantityNotNumeric
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errQuantityNotNumeric
	}
	q.value, q.set = n, true
	return nil
}

type addHoldingRequest struct {
	Ticker   string   `json:"ticker"`
	Quantity quantity `json:"quantity"`
}

type deleteHoldingRequest struct {
	Ticker string `json:"ticker"`
}

// PortfolioHandler serves /api/portfolio.
type PortfolioHandler struct {
	svc PortfolioService
}

// NewPortfolioHandler creates a portfolio handler.
func NewPortfolioHandler(svc PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{svc: svc}
}

// Add increments a holding.
func (h *PortfolioHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, errQuantityNotNumeric) {
			response.Error(w, http.StatusBadRequest, core.ErrInvalidQuantity)
			return
		}
		response.Error(w, http.StatusBadRequest, core.ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		response.Error(w, http.StatusBadRequest, core.ErrTickerRequired)
		return
	}
	if !req.Quantity.set {
		response.Error(w, http.StatusBadRequest, core.ErrInvalidQuantity)
		return
	}

	holding, err := h.svc.Add(r.Context(), req.Ticker, req.Quantity.value)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, HoldingResponse{
		OK:       true,
		Ticker:   holding.Ticker,
		Quantity: holding.Quantity,
	})
}

// Delete removes a holding.
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.ErrInvalidRequest)
		return
	}

	if err := h.svc.Remove(r.Context(), req.Ticker); err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, OKResponse{OK: true})
}

// List returns all holdings.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.svc.List(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, HoldingsResponse{OK: true, Holdings: holdings})
}
