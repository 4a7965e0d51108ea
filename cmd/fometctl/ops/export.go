package ops

import (
	"context"
	"io"

	"github.com/fomet/fomet/internal/po"
	"github.com/fomet/fomet/internal/po/export"
)

// RecordSource fetches the full record set.
type RecordSource interface {
	FetchRecords(ctx context.Context, role po.RoleContext) ([]po.Record, error)
}

// ExportOptions selects the records written by Export. An empty Unit exports every unit.
type ExportOptions struct {
	Filters po.FilterCriteria
	Out     io.Writer
}

// Export writes the filtered records as the dashboard CSV and returns the row count.
// It reads with administrator scope so the unit filter applies.
func Export(ctx context.Context, source RecordSource, opts ExportOptions) (int, error) {
	role := po.NewRoleContext(po.RoleAdministrator, "")
	records, err := source.FetchRecords(ctx, role)
	if err != nil {
		return 0, err
	}
	filtered := po.FilteredView(records, opts.Filters, role)
	if err := export.WriteCSV(opts.Out, filtered); err != nil {
		return 0, err
	}
	return len(filtered), nil
}
