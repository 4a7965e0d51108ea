package dashboardhttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardhttp "github.com/fomet/fomet/internal/dashboard/http"
	"github.com/fomet/fomet/internal/entry"
	"github.com/fomet/fomet/internal/po"
	"github.com/fomet/fomet/internal/po/export"
	"github.com/fomet/fomet/internal/shared"
	"github.com/fomet/fomet/internal/view"
	_ "github.com/fomet/fomet/testing"
)

type stubRecords struct {
	records []po.Record
	roles   []po.RoleContext
}

func (s *stubRecords) FetchRecords(_ context.Context, role po.RoleContext) ([]po.Record, error) {
	s.roles = append(s.roles, role)
	return s.records, nil
}

type stubReference struct{}

func (stubReference) TariffOptions(context.Context) (po.TariffOptions, error) {
	return po.TariffOptions{Units: []string{"ULP A", "ULP B"}, Tariffs: []string{"R1"}, Powers: []string{"900"}}, nil
}

func (stubReference) TariffRows(context.Context) ([]po.TariffRow, error) {
	return []po.TariffRow{{Unit: "ULP A", Tariff: "R1", Power: "900"}}, nil
}

func (stubReference) MeterModels(context.Context) ([]po.MeterModel, error) {
	return []po.MeterModel{{Brand: "Itron", Type: "X1"}, {Brand: "Hexing", Type: "H2"}, {Brand: "Itron", Type: "X2"}}, nil
}

type stubEntries struct {
	submitted [][]entry.FormRow
	deleted   []int
	err       error
}

func (s *stubEntries) Submit(_ context.Context, _ shared.Principal, rows []entry.FormRow) ([]po.Record, error) {
	s.submitted = append(s.submitted, rows)
	return nil, s.err
}

func (s *stubEntries) Delete(_ context.Context, _ shared.Principal, row int) ([]po.Record, error) {
	s.deleted = append(s.deleted, row)
	return nil, nil
}

func (s *stubEntries) MarkDone(context.Context, shared.Principal, int) ([]po.Record, error) {
	return nil, nil
}

type fixture struct {
	handler  *dashboardhttp.Handler
	router   chi.Router
	sessions *shared.SessionManager
	records  *stubRecords
	entries  *stubEntries
}

func sampleRecords() []po.Record {
	return po.ParseRows([][]any{
		{"2024-01-05", "ULP A", "Ani", "5100ABC", "Alice", "R1", "900", "", "", "", "", "PBPD", "Belum", "", 2},
		{"2024-02-10", "ULP B", "Budi", "5200XYZ", "Bayu", "R1", "1300", "", "", "", "", "HAR", "Sudah", "", 3},
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "fomet_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	records := &stubRecords{records: sampleRecords()}
	entries := &stubEntries{}
	h := dashboardhttp.NewHandler(nil, records, stubReference{}, entries, templates,
		shared.NewCSRFManager("csrf"), shared.NewIdempotencyStore(client, time.Minute), nil, nil)
	h.WithNow(func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) })

	r := chi.NewRouter()
	h.MountRoutes(r)
	return &fixture{handler: h, router: r, sessions: sessions, records: records, entries: entries}
}

// do runs req through the router with a session holding p.
func (f *fixture) do(t *testing.T, req *http.Request, p *shared.Principal) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if p != nil {
		sess.SetPrincipal(p)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec, sess
}

var (
	admin = &shared.Principal{Username: "pusat", Role: "ADMINISTRATOR", Unit: "PUSAT"}
	user  = &shared.Principal{Username: "ulpa", Role: "USER", Unit: "ULP A"}
)

func TestDashboardRequiresLogin(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestDashboardRendersScopedView(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard?unit=ULP+B", nil), user)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alice")
	assert.NotContains(t, body, "Bayu", "non-admin sees only own unit")
	assert.Contains(t, body, "<svg")
	assert.NotContains(t, body, "/delete", "non-admin gets no row actions")
	require.NotEmpty(t, f.records.roles)
	assert.Equal(t, "ULP A", f.records.roles[0].Unit)
}

func TestDashboardAdminActions(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard?status=sudah", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bayu")
	assert.NotContains(t, body, "Alice")
	assert.Contains(t, body, "/dashboard/records/3/delete")
	assert.Contains(t, body, `name="merk"`)
	assert.Contains(t, body, `<datalist id="meter-types-1" data-brand="Itron"><option value="X1"></option><option value="X2"></option></datalist>`)
	assert.Contains(t, body, `<datalist id="meter-types-2" data-brand="Hexing"><option value="H2"></option></datalist>`)
	assert.Contains(t, body, `list="meter-types" data-type-input`)
	assert.Contains(t, body, "data-remove-row")
	assert.Contains(t, body, `href="/dashboard">Reset</a>`)
}

func TestDashboardHidesResetWithoutFilters(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `href="/dashboard">Reset</a>`)
}

func TestEditPrefillsRow(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/records/2/edit", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="5100ABC"`)
	assert.Contains(t, rec.Body.String(), "Ubah Data")

	rec, sess := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/records/99/edit", nil), admin)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Data tidak ditemukan.", flash.Message)

	rec, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/records/2/edit", nil), user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Data_Filter_KWH.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "No;Tanggal;Unit"))
}

func TestExportEmptyFlashes(t *testing.T) {
	f := newFixture(t)
	rec, sess := f.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv?idpel=zzz", nil), admin)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?idpel=zzz", rec.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Tidak ada data hasil filter.", flash.Message)
}

func TestSubmitMultipartRows(t *testing.T) {
	f := newFixture(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, row := range [][2]string{{"5100A", "Satu"}, {"5100B", "Dua"}} {
		_ = mw.WriteField("tanggal", "2024-06-01")
		_ = mw.WriteField("unit", "ULP A")
		_ = mw.WriteField("idpel", row[0])
		_ = mw.WriteField("nama", row[1])
		_ = mw.WriteField("peruntukan", "PBPD")
		_ = mw.WriteField("rowNumber", "")
	}
	_ = mw.WriteField("submission_id", "sub-1")
	fw, err := mw.CreateFormFile("file_1", "foto.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("jpeg"))
	require.NoError(t, mw.Close())

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/dashboard/records", bytes.NewReader(body.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	rec, sess := f.do(t, newReq(), user)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, f.entries.submitted, 1)
	rows := f.entries.submitted[0]
	require.Len(t, rows, 2)
	assert.Equal(t, "Dua", rows[1].Name)
	assert.Nil(t, rows[0].File)
	require.NotNil(t, rows[1].File)
	assert.Equal(t, "foto.jpg", rows[1].File.Filename)
	assert.Equal(t, "Data berhasil disimpan", sess.PopFlash().Message)

	// The same submission ID is not sent twice.
	rec, sess = f.do(t, newReq(), user)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, f.entries.submitted, 1)
	assert.Equal(t, "Data ini sudah dikirim", sess.PopFlash().Message)
}

func TestSubmitValidationRerenders(t *testing.T) {
	f := newFixture(t)
	f.entries.err = &entry.ValidationError{Rows: map[int]map[string]string{1: {"Date": "format tanggal harus yyyy-MM-dd"}}}
	form := url.Values{"tanggal": {"kemarin"}, "idpel": {"1"}, "nama": {"N"}, "peruntukan": {"PBPD"}}
	req := httptest.NewRequest(http.MethodPost, "/dashboard/records", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, _ := f.do(t, req, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "format tanggal harus yyyy-MM-dd")
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodPost, "/dashboard/records/3/delete", nil), user)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.entries.deleted)

	rec, _ = f.do(t, httptest.NewRequest(http.MethodPost, "/dashboard/records/3/delete", nil), admin)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []int{3}, f.entries.deleted)
}

func TestRecordsAPI(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/records?purpose=har", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Rows    [][]any        `json:"rows"`
		Summary map[string]int `json:"summary"`
		Chart   struct {
			UnitList []string `json:"unitList"`
		} `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, "Bayu", payload.Rows[0][4])
	assert.Equal(t, 1, payload.Summary["sudah"])
	assert.Equal(t, []string{"ULP A", "ULP B"}, payload.Chart.UnitList)
}
