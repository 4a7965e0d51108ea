package ui

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/fomet/fomet/internal/dashboard/svg"
	"github.com/fomet/fomet/internal/entry"
	"github.com/fomet/fomet/internal/po"
)

// Filters are the sanitised dashboard query parameters.
type Filters struct {
	From       string
	To         string
	CustomerID string
	Unit       string
	Purpose    string
	Status     string
	ChartUnit  string
}

// FiltersFromQuery reads the filter parameters from q.
func FiltersFromQuery(q url.Values) Filters {
	get := func(key string) string { return strings.TrimSpace(q.Get(key)) }
	return Filters{
		From:       get("from"),
		To:         get("to"),
		CustomerID: get("idpel"),
		Unit:       get("unit"),
		Purpose:    get("purpose"),
		Status:     get("status"),
		ChartUnit:  get("chart_unit"),
	}
}

// Criteria converts the table filters for the view engine.
func (f Filters) Criteria() po.FilterCriteria {
	return po.FilterCriteria{
		DateFrom:   f.From,
		DateTo:     f.To,
		Unit:       f.Unit,
		CustomerID: f.CustomerID,
		Purpose:    f.Purpose,
		Status:     f.Status,
	}
}

// Active reports whether any table or chart filter is set.
func (f Filters) Active() bool {
	return !f.Criteria().IsZero() || f.ChartUnit != ""
}

// Query encodes the non-empty filters back into URL parameters.
func (f Filters) Query() url.Values {
	q := url.Values{}
	for key, value := range map[string]string{
		"from": f.From, "to": f.To, "idpel": f.CustomerID, "unit": f.Unit,
		"purpose": f.Purpose, "status": f.Status, "chart_unit": f.ChartUnit,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q
}

// TableRow is one rendered record of the filtered table.
type TableRow struct {
	No     int
	Record po.Record
	RowID  int
	HasRow bool
	Done   bool
}

// FormView carries the multi-row entry form.
type FormView struct {
	Rows         []entry.FormRow
	Editing      bool
	Errors       map[int]map[string]string
	SubmissionID string
}

// ErrorFor returns the message for field of the 1-based row i.
func (f FormView) ErrorFor(i int, field string) string {
	if f.Errors == nil {
		return ""
	}
	return f.Errors[i][field]
}

// DashboardViewModel combines all dashboard data for rendering.
type DashboardViewModel struct {
	IsAdmin   bool
	Unit      string
	Filters   Filters
	Summary   po.Summary
	Chart     po.Chart
	BarSVG    template.HTML
	LineSVG   template.HTML
	Rows      []TableRow
	Form      FormView
	Options   po.TariffOptions
	Units     []string
	Brands    []string
	Models    []po.MeterModel
	TypeLists []BrandTypes
	Purposes  []po.Purpose
	Statuses  []po.Status
	ExportURL string
}

// AllTypesListID names the datalist holding every meter type.
const AllTypesListID = "meter-types"

// BrandTypes is the datalist of meter types offered for one brand.
type BrandTypes struct {
	Brand  string
	ListID string
	Types  []string
}

// TypeLists groups the meter catalogue per brand in first-seen brand order.
func TypeLists(models []po.MeterModel) []BrandTypes {
	brands := po.Brands(models)
	out := make([]BrandTypes, 0, len(brands))
	for i, brand := range brands {
		out = append(out, BrandTypes{
			Brand:  brand,
			ListID: AllTypesListID + "-" + strconv.Itoa(i+1),
			Types:  po.ModelsOf(models, brand),
		})
	}
	return out
}

// TypeListFor returns the datalist id for brand, falling back to the full list.
func (vm DashboardViewModel) TypeListFor(brand string) string {
	for _, list := range vm.TypeLists {
		if list.Brand == brand {
			return list.ListID
		}
	}
	return AllTypesListID
}

// ChartRenderer abstracts SVG rendering for the dashboard.
type ChartRenderer interface {
	StackedBars(width, height int, labels []string, series []svg.Series, opts svg.BarOpts) (template.HTML, error)
	Line(width, height int, values []int, labels []string, opts svg.LineOpts) (template.HTML, error)
}

// ToTableRows numbers the filtered records from 1.
func ToTableRows(records []po.Record) []TableRow {
	rows := make([]TableRow, 0, len(records))
	for i, rec := range records {
		id, ok := rec.RowID()
		rows = append(rows, TableRow{No: i + 1, Record: rec, RowID: id, HasRow: ok, Done: rec.IsDone()})
	}
	return rows
}

// UnitChoices lists the units offered in the unit selectors.
func UnitChoices(options po.TariffOptions, tariffs []po.TariffRow) []string {
	if len(options.Units) > 0 {
		return options.Units
	}
	return po.UnitOptions(tariffs)
}

// RecordsPayload is the JSON body of the records API.
type RecordsPayload struct {
	Rows    [][]any    `json:"rows"`
	Summary po.Summary `json:"summary"`
	Chart   po.Chart   `json:"chart"`
}

// ToRecordsPayload builds the API body from the derived views.
func ToRecordsPayload(filtered []po.Record, summary po.Summary, chart po.Chart) RecordsPayload {
	rows := make([][]any, 0, len(filtered))
	for _, rec := range filtered {
		rows = append(rows, rec.Row())
	}
	return RecordsPayload{Rows: rows, Summary: summary, Chart: chart}
}
