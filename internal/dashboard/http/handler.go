package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fomet/fomet/internal/auth"
	"github.com/fomet/fomet/internal/dashboard/svg"
	"github.com/fomet/fomet/internal/dashboard/ui"
	"github.com/fomet/fomet/internal/entry"
	"github.com/fomet/fomet/internal/po"
	"github.com/fomet/fomet/internal/po/export"
	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
	"github.com/fomet/fomet/internal/view"
)

const (
	dashboardPath     = "/dashboard"
	dashboardTemplate = "pages/dashboard.html"
	submitModule      = "records"
)

// RecordSource loads the canonical record table.
type RecordSource interface {
	FetchRecords(ctx context.Context, role po.RoleContext) ([]po.Record, error)
}

// ReferenceSource loads the lookup tables behind the form selectors.
type ReferenceSource interface {
	TariffOptions(ctx context.Context) (po.TariffOptions, error)
	TariffRows(ctx context.Context) ([]po.TariffRow, error)
	MeterModels(ctx context.Context) ([]po.MeterModel, error)
}

// EntryService performs record mutations.
type EntryService interface {
	Submit(ctx context.Context, p shared.Principal, rows []entry.FormRow) ([]po.Record, error)
	Delete(ctx context.Context, p shared.Principal, row int) ([]po.Record, error)
	MarkDone(ctx context.Context, p shared.Principal, row int) ([]po.Record, error)
}

// Handler serves the PO dashboard.
type Handler struct {
	logger      *slog.Logger
	records     RecordSource
	reference   ReferenceSource
	entries     EntryService
	templates   *view.Engine
	csrf        *shared.CSRFManager
	idempotency *shared.IdempotencyStore
	charts      ui.ChartRenderer
	proxy       http.Handler
	csvPool     sync.Pool
	now         func() time.Time
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, records RecordSource, reference ReferenceSource, entries EntryService, templates *view.Engine, csrf *shared.CSRFManager, idempotency *shared.IdempotencyStore, charts ui.ChartRenderer, proxy http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if charts == nil {
		charts = svg.Renderer{}
	}
	h := &Handler{
		logger:      logger,
		records:     records,
		reference:   reference,
		entries:     entries,
		templates:   templates,
		csrf:        csrf,
		idempotency: idempotency,
		charts:      charts,
		proxy:       proxy,
		now:         time.Now,
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type dashboardData struct {
	records []po.Record
	options po.TariffOptions
	tariffs []po.TariffRow
	models  []po.MeterModel
}

// loadDashboardData issues the four page-load fetches concurrently.
func (h *Handler) loadDashboardData(ctx context.Context, p shared.Principal) (dashboardData, error) {
	var data dashboardData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := h.records.FetchRecords(ctx, p.RoleContext())
		data.records = records
		return err
	})
	g.Go(func() error {
		options, err := h.reference.TariffOptions(ctx)
		data.options = options
		return err
	})
	g.Go(func() error {
		tariffs, err := h.reference.TariffRows(ctx)
		data.tariffs = tariffs
		return err
	})
	g.Go(func() error {
		models, err := h.reference.MeterModels(ctx)
		data.models = models
		return err
	})
	if err := g.Wait(); err != nil {
		return dashboardData{}, err
	}
	return data, nil
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data, err := h.loadDashboardData(r.Context(), p)
	if err != nil {
		h.handleBackendError(w, "load dashboard", err)
		return
	}
	form := ui.FormView{Rows: []entry.FormRow{entry.NewRow(p, data.options, h.now())}}
	h.render(w, r, http.StatusOK, p, data, form)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, p shared.Principal, data dashboardData, form ui.FormView) {
	filters := ui.FiltersFromQuery(r.URL.Query())
	vm, err := h.buildViewModel(p, filters, data, form)
	if err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Dashboard PO",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		User:        &p,
		Data:        vm,
	}
	if err := h.templates.RenderStatus(w, status, dashboardTemplate, viewData); err != nil {
		h.logError("render template", err)
	}
}

func (h *Handler) buildViewModel(p shared.Principal, filters ui.Filters, data dashboardData, form ui.FormView) (ui.DashboardViewModel, error) {
	role := p.RoleContext()
	filtered := po.FilteredView(data.records, filters.Criteria(), role)
	chart := po.ChartSeries(data.records, role, filters.ChartUnit)

	if form.SubmissionID == "" {
		form.SubmissionID = uuid.NewString()
	}
	vm := ui.DashboardViewModel{
		IsAdmin:   role.IsAdmin(),
		Unit:      role.Unit,
		Filters:   filters,
		Summary:   po.StatusSummary(filtered),
		Chart:     chart,
		Rows:      ui.ToTableRows(filtered),
		Form:      form,
		Options:   data.options,
		Units:     ui.UnitChoices(data.options, data.tariffs),
		Brands:    po.Brands(data.models),
		Models:    data.models,
		TypeLists: ui.TypeLists(data.models),
		Purposes:  []po.Purpose{po.PurposePBPD, po.PurposeHAR},
		Statuses:  []po.Status{po.StatusBelum, po.StatusSudah},
		ExportURL: exportURL(filters),
	}

	var err error
	if len(chart.UnitList) == 0 {
		vm.BarSVG = svg.Empty(svg.DefaultWidth, svg.DefaultHeight, "Belum ada data")
	} else {
		vm.BarSVG, err = h.charts.StackedBars(svg.DefaultWidth, svg.DefaultHeight, chart.UnitList, []svg.Series{
			{Label: string(po.PurposePBPD), Color: "#2563eb", Values: chart.PBPD},
			{Label: string(po.PurposeHAR), Color: "#f59e0b", Values: chart.HAR},
		}, svg.BarOpts{Title: "Peruntukan per Unit", Description: "Jumlah PBPD dan HAR per unit"})
		if err != nil {
			return ui.DashboardViewModel{}, err
		}
	}
	if len(chart.MonthLabels) == 0 {
		vm.LineSVG = svg.Empty(svg.DefaultWidth, svg.DefaultHeight, "Belum ada data")
	} else {
		vm.LineSVG, err = h.charts.Line(svg.DefaultWidth, svg.DefaultHeight, chart.MonthValues, chart.MonthLabels, svg.LineOpts{
			Title:       "Tren Bulanan",
			Description: "Jumlah PO per bulan",
			ShowDots:    true,
		})
		if err != nil {
			return ui.DashboardViewModel{}, err
		}
	}
	return vm, nil
}

func exportURL(filters ui.Filters) string {
	if q := filters.Query().Encode(); q != "" {
		return "/dashboard/export.csv?" + q
	}
	return "/dashboard/export.csv"
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	row, err := rowParam(r)
	if err != nil {
		http.Error(w, "Nomor baris tidak valid", http.StatusBadRequest)
		return
	}
	data, err := h.loadDashboardData(r.Context(), p)
	if err != nil {
		h.handleBackendError(w, "load dashboard", err)
		return
	}
	rec, found := entry.FindByRow(data.records, row)
	if !found {
		h.flashRedirect(w, r, "warning", "Data tidak ditemukan.", dashboardPath)
		return
	}
	h.render(w, r, http.StatusOK, p, data, ui.FormView{Rows: []entry.FormRow{entry.FromRecord(rec)}, Editing: true})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	rows, submissionID, err := parseEntryForm(r)
	if err != nil {
		h.logError("parse entry form", err)
		h.flashRedirect(w, r, "danger", "Form tidak dapat dibaca", dashboardPath)
		return
	}

	if submissionID != "" {
		if err := h.idempotency.CheckAndInsert(r.Context(), submissionID, submitModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.flashRedirect(w, r, "info", "Data ini sudah dikirim", dashboardPath)
				return
			}
			h.logError("idempotency check", err)
		}
	}

	_, err = h.entries.Submit(r.Context(), p, rows)
	if err == nil {
		h.flashRedirect(w, r, "success", "Data berhasil disimpan", dashboardPath)
		return
	}
	if submissionID != "" {
		if relErr := h.idempotency.Release(r.Context(), submissionID, submitModule); relErr != nil {
			h.logError("idempotency release", relErr)
		}
	}

	var vErr *entry.ValidationError
	switch {
	case errors.As(err, &vErr):
		data, loadErr := h.loadDashboardData(r.Context(), p)
		if loadErr != nil {
			h.handleBackendError(w, "load dashboard", loadErr)
			return
		}
		kept := make([]entry.FormRow, 0, len(rows))
		for _, row := range rows {
			if !row.IsBlank() {
				row.File = nil
				kept = append(kept, row)
			}
		}
		form := ui.FormView{Rows: kept, Errors: vErr.Rows, Editing: len(kept) == 1 && kept[0].RowNumber > 0}
		h.render(w, r, http.StatusUnprocessableEntity, p, data, form)
	case errors.Is(err, entry.ErrNothingToSubmit):
		h.flashRedirect(w, r, "warning", "Isi minimal IDPEL atau nama pada satu baris", dashboardPath)
	default:
		h.logError("submit records", err)
		h.flashRedirect(w, r, "danger", "Gagal menyimpan data: "+recordstore.UserMessage(err, "terjadi kesalahan"), dashboardPath)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.mutateRow(w, r, "hapus", "Data berhasil dihapus", h.entries.Delete)
}

func (h *Handler) handleDone(w http.ResponseWriter, r *http.Request) {
	h.mutateRow(w, r, "ubah status", "Status diubah menjadi Sudah", h.entries.MarkDone)
}

func (h *Handler) mutateRow(w http.ResponseWriter, r *http.Request, action, success string, fn func(context.Context, shared.Principal, int) ([]po.Record, error)) {
	p, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	row, err := rowParam(r)
	if err != nil {
		http.Error(w, "Nomor baris tidak valid", http.StatusBadRequest)
		return
	}
	if _, err := fn(r.Context(), p, row); err != nil {
		h.logError(action, err)
		h.flashRedirect(w, r, "danger", "Gagal "+action+": "+recordstore.UserMessage(err, "terjadi kesalahan"), dashboardPath)
		return
	}
	h.flashRedirect(w, r, "success", success, dashboardPath)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	records, err := h.records.FetchRecords(r.Context(), p.RoleContext())
	if err != nil {
		h.handleBackendError(w, "load records", err)
		return
	}
	filters := ui.FiltersFromQuery(r.URL.Query())
	filtered := po.FilteredView(records, filters.Criteria(), p.RoleContext())

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteCSV(buf, filtered); err != nil {
		if errors.Is(err, export.ErrEmpty) {
			target := dashboardPath
			if q := filters.Query().Encode(); q != "" {
				target += "?" + q
			}
			h.flashRedirect(w, r, "warning", "Tidak ada data hasil filter.", target)
			return
		}
		h.handleServerError(w, "write csv", err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	p, ok := auth.PrincipalFromRequest(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return shared.Principal{}, false
	}
	if !p.IsAdmin() {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return shared.Principal{}, false
	}
	return p, true
}

func (h *Handler) flashRedirect(w http.ResponseWriter, r *http.Request, kind, message, target string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleBackendError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	http.Error(w, recordstore.UserMessage(err, "Gagal memuat data"), http.StatusBadGateway)
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

// HandleDashboardForTest exposes the dashboard handler for tests.
func (h *Handler) HandleDashboardForTest(w http.ResponseWriter, r *http.Request) {
	h.handleDashboard(w, r)
}

// HandleExportForTest exposes the CSV handler for tests.
func (h *Handler) HandleExportForTest(w http.ResponseWriter, r *http.Request) { h.handleExport(w, r) }

// HandleSubmitForTest exposes the submit handler for tests.
func (h *Handler) HandleSubmitForTest(w http.ResponseWriter, r *http.Request) { h.handleSubmit(w, r) }
