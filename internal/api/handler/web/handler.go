// internal/api/handler/web/handler.go
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/insight"
	"github.com/newthinker/finsight/internal/portfolio"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// pages lists every page template; each is parsed together with layout.html.
var pages = []string{"index.html", "portfolio.html", "history.html", "insight_summary.html", "error.html"}

// SnapshotFetcher returns market data or the error sentinel.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, ticker string) core.Snapshot
}

// PortfolioValuator prices the stored holdings.
type PortfolioValuator interface {
	Valuate(ctx context.Context, lookup portfolio.PriceLookup) (portfolio.Valuation, error)
}

// HistoryReader reads the analysis log, newest first.
type HistoryReader interface {
	RecentHistory(ctx context.Context, limit int) ([]core.HistoryRecord, error)
}

// InsightLookup finds a stored insight by ID.
type InsightLookup interface {
	Get(id string) (*insight.Stored, error)
}

// InsightCookie reads the insight ID remembered on the client.
type InsightCookie interface {
	Insight(r *http.Request) (string, bool)
}

// Dependencies are the data sources behind the pages. Any may be nil; the
// affected page then renders empty.
type Dependencies struct {
	Snapshots      SnapshotFetcher
	DefaultTickers []string
	Portfolio      PortfolioValuator
	Prices         portfolio.PriceLookup
	History        HistoryReader
	HistoryLimit   int
	Insights       InsightLookup
	Cookie         InsightCookie
	Logger         *zap.Logger
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds one instance per page: layout.html plus the page
	pageTemplates map[string]*template.Template
	deps          Dependencies
	logger        *zap.Logger
}

// NewHandler creates a web handler with templates loaded from templatesDir.
// If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, deps Dependencies) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(templatesDir)
	} else {
		fsys = TemplateFS()
	}
	return NewHandlerWithFS(fsys, deps)
}

// NewHandlerWithFS creates a web handler using a custom filesystem.
func NewHandlerWithFS(fsys fs.FS, deps Dependencies) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{pageTemplates: pageTemplates, deps: deps, logger: deps.Logger}, nil
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering template failed", zap.String("page", page), zap.Error(err))
	}
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return templateFS
	}
	return subFS
}

var funcs = template.FuncMap{
	"price":    formatPrice,
	"optional": formatOptional,
	"signed":   formatSigned,
	"money":    formatMoney,
	"qty":      formatQuantity,
}

func formatPrice(v float64) string {
	if v <= 0 {
		return core.NotAvailable
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func formatOptional(v *float64) string {
	if v == nil {
		return core.NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatSigned(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func formatMoney(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func formatQuantity(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}
