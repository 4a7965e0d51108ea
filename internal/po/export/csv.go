// Package export renders the filtered record table as a downloadable CSV.
package export

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/fomet/fomet/internal/po"
)

// Filename is the name offered to the browser for the filtered export.
const Filename = "Data_Filter_KWH.csv"

// ContentType is the MIME type of the export.
const ContentType = "text/csv; charset=utf-8"

const (
	delimiter     = ';'
	csvBufferSize = 32 * 1024
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("export: tidak ada data hasil filter")

// Header lists the fixed export columns.
var Header = []string{
	"No", "Tanggal", "Unit", "Pemohon", "IDPEL", "Nama", "Tarif", "Daya",
	"Merk", "Type", "SN", "Error (%)", "Peruntukan", "Status",
}

// Columns maps a record to its export cells, numbered from 1 by position.
func Columns(no int, r po.Record) []string {
	return []string{
		strconv.Itoa(no),
		r.Date,
		r.Unit,
		r.Requester,
		r.CustomerID,
		r.Name,
		r.Tariff,
		r.Power,
		r.Brand,
		r.Model,
		r.Serial,
		r.ErrorPercent(),
		string(r.Purpose),
		string(r.Status),
	}
}

// WriteCSV writes the header and one quoted row per record, in the given order.
// encoding/csv only quotes when needed, the export quotes every field.
func WriteCSV(w io.Writer, records []po.Record) error {
	if len(records) == 0 {
		return ErrEmpty
	}
	buf := bufio.NewWriterSize(w, csvBufferSize)
	if err := writeRow(buf, Header, false); err != nil {
		return err
	}
	for i, rec := range records {
		if err := writeRow(buf, Columns(i+1, rec), true); err != nil {
			return err
		}
	}
	return buf.Flush()
}

func writeRow(w *bufio.Writer, fields []string, quote bool) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(delimiter); err != nil {
				return err
			}
		}
		if !quote {
			if _, err := w.WriteString(field); err != nil {
				return err
			}
			continue
		}
		if _, err := w.WriteString(quoteField(field)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quoteField(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
