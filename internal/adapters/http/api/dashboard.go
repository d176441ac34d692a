package api

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/okian/covidmap/internal/adapters/source"
	"github.com/okian/covidmap/internal/domain/dataset"
	"github.com/okian/covidmap/pkg/logger"
)

var indexTemplate = template.Must(template.ParseFS(apiStaticFS, "static/index.html"))

// DashboardHandler renders the single dashboard page.
type DashboardHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps Dependencies, l logger.Logger) *DashboardHandler {
	return &DashboardHandler{deps: deps, logger: l}
}

// HandleDashboard handles GET / requests. Every request fetches the report
// again; failures answer 500 with a plain body and are logged.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	view, err := h.deps.Dashboard(ctx)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", ErrDashboard, err))
		return
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", ErrRender, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "dashboard request failed",
		logger.String("cause", classify(err)),
		logger.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// classify names the failure for logs.
func classify(err error) string {
	switch {
	case errors.Is(err, source.ErrExhausted):
		return "exhausted"
	case errors.Is(err, dataset.ErrMissingColumn):
		return "schema"
	case errors.Is(err, source.ErrUpstreamStatus):
		return "upstream"
	case errors.Is(err, ErrRender):
		return "render"
	default:
		return "internal"
	}
}
