// Package po models meter-setting ("PO") records and the derived dashboard views
// computed from them: the filtered table, the sudah/belum summary and chart series.
package po

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MinFields is the number of positional cells a row needs to be well-formed.
const MinFields = 13

// Positional indexes of the backend row tuple.
const (
	ColDate = iota
	ColUnit
	ColRequester
	ColCustomerID
	ColName
	ColTariff
	ColPower
	ColBrand
	ColModel
	ColSerial
	ColFileURL
	ColPurpose
	ColStatus
	ColErrorOrRow
	ColRowNumber
)

// Purpose classifies why a meter was set.
type Purpose string

// Status tracks whether a meter setting has been completed.
type Status string

// Known purposes and statuses.
const (
	PurposePBPD Purpose = "PBPD"
	PurposeHAR  Purpose = "HAR"

	StatusBelum Status = "Belum"
	StatusSudah Status = "Sudah"
)

// Record is one meter-setting entry decoded from the backend tuple.
type Record struct {
	Date       string
	Unit       string
	Requester  string
	CustomerID string
	Name       string
	Tariff     string
	Power      string
	Brand      string
	Model      string
	Serial     string
	FileURL    string
	Purpose    Purpose
	Status     Status
	// Col13 is read as the error percentage on the dashboard and as the row
	// identifier on the edit page. RowID resolves the ambiguity.
	Col13     string
	RowNumber *int
}

// ParseRow decodes a positional row. Rows shorter than MinFields are rejected.
func ParseRow(row []any) (Record, bool) {
	if len(row) < MinFields {
		return Record{}, false
	}
	rec := Record{
		Date:       cell(row, ColDate),
		Unit:       cell(row, ColUnit),
		Requester:  cell(row, ColRequester),
		CustomerID: cell(row, ColCustomerID),
		Name:       cell(row, ColName),
		Tariff:     cell(row, ColTariff),
		Power:      cell(row, ColPower),
		Brand:      cell(row, ColBrand),
		Model:      cell(row, ColModel),
		Serial:     cell(row, ColSerial),
		FileURL:    cell(row, ColFileURL),
		Purpose:    Purpose(cell(row, ColPurpose)),
		Status:     Status(cell(row, ColStatus)),
		Col13:      cell(row, ColErrorOrRow),
	}
	if n, ok := intCell(row, ColRowNumber); ok {
		rec.RowNumber = &n
	}
	return rec, true
}

// ParseRows decodes every well-formed row and silently drops the rest.
func ParseRows(rows [][]any) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if rec, ok := ParseRow(row); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Row re-encodes the record into the backend positional layout.
func (r Record) Row() []any {
	row := []any{
		r.Date, r.Unit, r.Requester, r.CustomerID, r.Name, r.Tariff, r.Power,
		r.Brand, r.Model, r.Serial, r.FileURL, string(r.Purpose), string(r.Status),
		r.Col13,
	}
	if r.RowNumber != nil {
		row = append(row, *r.RowNumber)
	} else {
		row = append(row, nil)
	}
	return row
}

// ErrorPercent returns the meter error measurement shown in the table.
func (r Record) ErrorPercent() string {
	return r.Col13
}

// RowID returns the backend row identifier. The explicit index 14 wins; index 13
// is only used when it holds a positive integer and index 14 is absent.
func (r Record) RowID() (int, bool) {
	if r.RowNumber != nil && *r.RowNumber > 0 {
		return *r.RowNumber, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.Col13))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsDone reports whether the record status is exactly Sudah.
func (r Record) IsDone() bool {
	return r.Status == StatusSudah
}

// StatusOrDefault returns the status, defaulting blank values to Belum.
func (r Record) StatusOrDefault() Status {
	if r.Status == "" {
		return StatusBelum
	}
	return r.Status
}

func cell(row []any, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return CellString(row[idx])
}

func intCell(row []any, idx int) (int, bool) {
	if idx >= len(row) {
		return 0, false
	}
	switch v := row[idx].(type) {
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			n = int(f)
		}
		return n, true
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// CellString renders a decoded JSON cell as trimmed text. Null and false become
// empty; numbers keep their textual form.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "true"
		}
		return ""
	default:
		return ""
	}
}
