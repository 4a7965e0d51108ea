// Package entry turns the multi-row PO form into backend mutations.
package entry

import (
	"strings"
	"time"

	"github.com/fomet/fomet/internal/po"
	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
)

// Attachment is a file picked for one form row.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// FormRow is one row of the multi-row entry form.
type FormRow struct {
	Date       string `validate:"required,datetime=2006-01-02"`
	Unit       string `validate:"required,max=100"`
	Requester  string `validate:"max=200"`
	CustomerID string `validate:"required,max=64"`
	Name       string `validate:"required,max=200"`
	Tariff     string `validate:"max=32"`
	Power      string `validate:"max=32"`
	Brand      string `validate:"max=100"`
	Type       string `validate:"max=100"`
	Serial     string `validate:"max=100"`
	Purpose    string `validate:"required,oneof=PBPD HAR"`
	Status     string `validate:"required,oneof=Belum Sudah"`
	ErrorMeter string `validate:"max=32"`
	FileURL    string `validate:"omitempty,url"`
	RowNumber  int    `validate:"gte=0"`

	File *Attachment `validate:"-"`
}

// IsBlank reports whether the row carries neither a customer ID nor a name.
func (r FormRow) IsBlank() bool {
	return strings.TrimSpace(r.CustomerID) == "" && strings.TrimSpace(r.Name) == ""
}

// NewRow returns an empty row with the defaults the form opens with.
func NewRow(p shared.Principal, options po.TariffOptions, today time.Time) FormRow {
	row := FormRow{
		Date:    today.Format(po.DateLayout),
		Purpose: string(po.PurposePBPD),
		Status:  string(po.StatusBelum),
	}
	if !p.IsAdmin() {
		row.Unit = p.Unit
	}
	if len(options.Tariffs) > 0 {
		row.Tariff = options.Tariffs[0]
	}
	if len(options.Powers) > 0 {
		row.Power = options.Powers[0]
	}
	return row
}

// FromRecord prefills a form row for editing rec.
func FromRecord(rec po.Record) FormRow {
	row := FormRow{
		Date:       dateOnly(rec.Date),
		Unit:       rec.Unit,
		Requester:  rec.Requester,
		CustomerID: rec.CustomerID,
		Name:       rec.Name,
		Tariff:     rec.Tariff,
		Power:      rec.Power,
		Brand:      rec.Brand,
		Type:       rec.Model,
		Serial:     rec.Serial,
		Purpose:    string(rec.Purpose),
		Status:     string(rec.StatusOrDefault()),
		ErrorMeter: rec.ErrorPercent(),
		FileURL:    rec.FileURL,
	}
	if id, ok := rec.RowID(); ok {
		row.RowNumber = id
	}
	return row
}

// FindByRow returns the record stored at the given sheet row.
func FindByRow(records []po.Record, row int) (po.Record, bool) {
	for _, rec := range records {
		if id, ok := rec.RowID(); ok && id == row {
			return rec, true
		}
	}
	return po.Record{}, false
}

func (r FormRow) payload() recordstore.RecordPayload {
	out := recordstore.RecordPayload{
		Date:       r.Date,
		Unit:       r.Unit,
		Requester:  r.Requester,
		CustomerID: r.CustomerID,
		Name:       r.Name,
		Tariff:     r.Tariff,
		Power:      r.Power,
		Brand:      r.Brand,
		Type:       r.Type,
		Serial:     r.Serial,
		FileURL:    r.FileURL,
		Purpose:    r.Purpose,
		Status:     r.Status,
		ErrorMeter: r.ErrorMeter,
	}
	if r.RowNumber > 0 {
		n := r.RowNumber
		out.RowNumber = &n
	}
	return out
}

// normalise trims every field, applies the status default and confines
// non-administrators to their own unit and the non-admin fields.
func (r FormRow) normalise(p shared.Principal) FormRow {
	r.Date = dateOnly(r.Date)
	for _, f := range []*string{&r.Unit, &r.Requester, &r.CustomerID, &r.Name, &r.Tariff, &r.Power,
		&r.Brand, &r.Type, &r.Serial, &r.Purpose, &r.Status, &r.ErrorMeter, &r.FileURL} {
		*f = strings.TrimSpace(*f)
	}
	if r.Status == "" {
		r.Status = string(po.StatusBelum)
	}
	if !p.IsAdmin() {
		r.Unit = p.Unit
		r.Brand, r.Type, r.Serial, r.ErrorMeter = "", "", "", ""
	}
	return r
}

func dateOnly(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, ok := po.ParseRecordDate(raw); ok {
		return t.Format(po.DateLayout)
	}
	return raw
}
