package dashboardhttp

import (
	"errors"
	"net/http"

	"github.com/fomet/fomet/internal/auth"
	"github.com/fomet/fomet/internal/dashboard/ui"
	"github.com/fomet/fomet/internal/platform/httpx"
	"github.com/fomet/fomet/internal/po"
)

func (h *Handler) handleRecordsAPI(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromRequest(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	records, err := h.records.FetchRecords(r.Context(), p.RoleContext())
	if err != nil {
		h.logError("api records", err)
		httpx.RespondError(w, err)
		return
	}
	filters := ui.FiltersFromQuery(r.URL.Query())
	role := p.RoleContext()
	filtered := po.FilteredView(records, filters.Criteria(), role)
	httpx.JSON(w, http.StatusOK, ui.ToRecordsPayload(filtered, po.StatusSummary(filtered), po.ChartSeries(records, role, filters.ChartUnit)))
}

func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	if h.proxy == nil {
		httpx.RespondError(w, errors.New("proxy not configured"))
		return
	}
	h.proxy.ServeHTTP(w, r)
}

// HandleRecordsAPIForTest exposes the records API for tests.
func (h *Handler) HandleRecordsAPIForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRecordsAPI(w, r)
}
