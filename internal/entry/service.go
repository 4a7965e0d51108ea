package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fomet/fomet/internal/po"
	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
)

// ErrNothingToSubmit is returned when every row is blank.
var ErrNothingToSubmit = errors.New("entry: tidak ada data untuk disimpan")

// ErrInvalidRow is returned for a non-positive sheet row.
var ErrInvalidRow = errors.New("entry: nomor baris tidak valid")

// Store is the subset of the record store the service mutates through.
type Store interface {
	FetchRecords(ctx context.Context, role po.RoleContext) ([]po.Record, error)
	SaveRecords(ctx context.Context, records []recordstore.RecordPayload) error
	DeleteRecord(ctx context.Context, row int, role string) error
	MarkDone(ctx context.Context, row int) error
	UploadFile(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

// ValidationError lists field problems per submitted row (1-based).
type ValidationError struct {
	Rows map[int]map[string]string
}

func (e *ValidationError) Error() string {
	rows := make([]int, 0, len(e.Rows))
	for row := range e.Rows {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		fields := make([]string, 0, len(e.Rows[row]))
		for field := range e.Rows[row] {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		parts = append(parts, fmt.Sprintf("baris %d: %s", row, strings.Join(fields, ", ")))
	}
	return "entry: data tidak valid (" + strings.Join(parts, "; ") + ")"
}

// Service performs record mutations and returns the reloaded table.
type Service struct {
	store     Store
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService constructs the entry service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validator: validator.New(), logger: logger}
}

// Submit saves every non-blank row in one backend call. Files are uploaded
// one at a time first; the first failed upload aborts the submission and rows
// already uploaded are not rolled back.
func (s *Service) Submit(ctx context.Context, p shared.Principal, rows []FormRow) ([]po.Record, error) {
	pending := make([]FormRow, 0, len(rows))
	for _, row := range rows {
		if row.IsBlank() {
			continue
		}
		pending = append(pending, row.normalise(p))
	}
	if len(pending) == 0 {
		return nil, ErrNothingToSubmit
	}
	if err := s.validate(pending); err != nil {
		return nil, err
	}

	payload := make([]recordstore.RecordPayload, 0, len(pending))
	for i, row := range pending {
		if row.File != nil && len(row.File.Data) > 0 {
			url, err := s.store.UploadFile(ctx, row.File.Filename, row.File.MimeType, row.File.Data)
			if err != nil {
				return nil, fmt.Errorf("entry: upload baris %d: %w", i+1, err)
			}
			row.FileURL = url
		}
		payload = append(payload, row.payload())
	}

	if err := s.store.SaveRecords(ctx, payload); err != nil {
		return nil, fmt.Errorf("entry: simpan: %w", err)
	}
	s.logger.Info("records submitted", slog.Int("rows", len(payload)), slog.String("unit", p.Unit))
	return s.reload(ctx, p)
}

// Delete removes the record at row. Administrators only.
func (s *Service) Delete(ctx context.Context, p shared.Principal, row int) ([]po.Record, error) {
	if !p.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	if row <= 0 {
		return nil, ErrInvalidRow
	}
	if err := s.store.DeleteRecord(ctx, row, p.RoleContext().Role); err != nil {
		return nil, fmt.Errorf("entry: hapus: %w", err)
	}
	s.logger.Info("record deleted", slog.Int("row", row))
	return s.reload(ctx, p)
}

// MarkDone sets the record at row to Sudah. Administrators only.
func (s *Service) MarkDone(ctx context.Context, p shared.Principal, row int) ([]po.Record, error) {
	if !p.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	if row <= 0 {
		return nil, ErrInvalidRow
	}
	if err := s.store.MarkDone(ctx, row); err != nil {
		return nil, fmt.Errorf("entry: ubah status: %w", err)
	}
	s.logger.Info("record marked done", slog.Int("row", row))
	return s.reload(ctx, p)
}

func (s *Service) reload(ctx context.Context, p shared.Principal) ([]po.Record, error) {
	records, err := s.store.FetchRecords(ctx, p.RoleContext())
	if err != nil {
		return nil, fmt.Errorf("entry: muat ulang: %w", err)
	}
	return records, nil
}

func (s *Service) validate(rows []FormRow) error {
	problems := make(map[int]map[string]string)
	for i, row := range rows {
		err := s.validator.Struct(row)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		problems[i+1] = fields
	}
	if len(problems) > 0 {
		return &ValidationError{Rows: problems}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "wajib diisi"
	case "datetime":
		return "format tanggal harus yyyy-MM-dd"
	case "oneof":
		return "harus salah satu dari " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return "maksimal " + fe.Param() + " karakter"
	case "url":
		return "URL tidak valid"
	default:
		return "tidak valid"
	}
}
