package dashboardhttp

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fomet/fomet/internal/entry"
)

// Form fields repeat once per row in document order; files are named file_<i>.
const (
	fieldDate         = "tanggal"
	fieldUnit         = "unit"
	fieldRequester    = "pemohon"
	fieldCustomerID   = "idpel"
	fieldName         = "nama"
	fieldTariff       = "tarif"
	fieldPower        = "daya"
	fieldBrand        = "merk"
	fieldType         = "type"
	fieldSerial       = "sn"
	fieldPurpose      = "peruntukan"
	fieldStatus       = "status"
	fieldErrorMeter   = "errorMeter"
	fieldFileURL      = "fileUrl"
	fieldRowNumber    = "rowNumber"
	fieldSubmissionID = "submission_id"
	filePrefix        = "file_"
	maxMemory         = 8 << 20
)

func parseEntryForm(r *http.Request) ([]entry.FormRow, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, "", err
	}
	values := r.PostForm
	count := len(values[fieldDate])
	for _, key := range []string{fieldCustomerID, fieldName} {
		if n := len(values[key]); n > count {
			count = n
		}
	}

	at := func(key string, i int) string {
		list := values[key]
		if i < len(list) {
			return strings.TrimSpace(list[i])
		}
		return ""
	}

	rows := make([]entry.FormRow, 0, count)
	for i := 0; i < count; i++ {
		row := entry.FormRow{
			Date:       at(fieldDate, i),
			Unit:       at(fieldUnit, i),
			Requester:  at(fieldRequester, i),
			CustomerID: at(fieldCustomerID, i),
			Name:       at(fieldName, i),
			Tariff:     at(fieldTariff, i),
			Power:      at(fieldPower, i),
			Brand:      at(fieldBrand, i),
			Type:       at(fieldType, i),
			Serial:     at(fieldSerial, i),
			Purpose:    at(fieldPurpose, i),
			Status:     at(fieldStatus, i),
			ErrorMeter: at(fieldErrorMeter, i),
			FileURL:    at(fieldFileURL, i),
		}
		if raw := at(fieldRowNumber, i); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, "", fmt.Errorf("row %d: invalid row number %q", i+1, raw)
			}
			row.RowNumber = n
		}
		if r.MultipartForm != nil {
			if headers := r.MultipartForm.File[filePrefix+strconv.Itoa(i)]; len(headers) > 0 {
				att, err := readAttachment(headers[0])
				if err != nil {
					return nil, "", fmt.Errorf("row %d: %w", i+1, err)
				}
				row.File = att
			}
		}
		rows = append(rows, row)
	}
	return rows, strings.TrimSpace(values.Get(fieldSubmissionID)), nil
}

func readAttachment(header *multipart.FileHeader) (*entry.Attachment, error) {
	if header.Size == 0 {
		return nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &entry.Attachment{Filename: header.Filename, MimeType: mimeType, Data: data}, nil
}

func rowParam(r *http.Request) (int, error) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || row <= 0 {
		return 0, fmt.Errorf("invalid row %q", chi.URLParam(r, "row"))
	}
	return row, nil
}
