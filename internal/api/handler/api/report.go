package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/newthinker/finsight/internal/api/response"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/logger"
	"github.com/newthinker/finsight/internal/portfolio"
	"go.uber.org/zap"
)

// HoldingLister lists the portfolio.
type HoldingLister interface {
	List(ctx context.Context) ([]core.Holding, error)
}

// ReportRenderer turns holdings into a PDF.
type ReportRenderer interface {
	Render(ctx context.Context, holdings []core.Holding, lookup portfolio.PriceLookup) ([]byte, error)
}

// ReportArchiver keeps a copy of generated reports.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, data []byte) string
}

// ReportRecorder counts generated reports.
type ReportRecorder interface {
	RecordReport(status string)
}

// ReportHandler serves GET /report/portfolio.pdf.
type ReportHandler struct {
	holdings HoldingLister
	prices   portfolio.PriceLookup
	renderer ReportRenderer
	archiver ReportArchiver
	recorder ReportRecorder
	filename string
	logger   *zap.Logger
}

// NewReportHandler creates a report handler. archiver and recorder may be nil.
func NewReportHandler(holdings HoldingLister, prices portfolio.PriceLookup, renderer ReportRenderer,
	archiver ReportArchiver, recorder ReportRecorder, filename string, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		holdings: holdings,
		prices:   prices,
		renderer: renderer,
		archiver: archiver,
		recorder: recorder,
		filename: filename,
		logger:   logger,
	}
}

// Portfolio streams the PDF report as an attachment.
func (h *ReportHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holdings, err := h.holdings.List(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}

	pdf, err := h.renderer.Render(ctx, holdings, h.prices)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.record("ok")

	if h.archiver != nil {
		h.archiver.ArchiveReport(ctx, pdf)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf) //nolint:errcheck
}

func (h *ReportHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("generating report failed", logger.ErrorDetail(err))
	h.record("error")
	response.Error(w, http.StatusInternalServerError, core.WrapError(core.ErrReportFailed, err))
}

func (h *ReportHandler) record(status string) {
	if h.recorder != nil {
		h.recorder.RecordReport(status)
	}
}
