package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
)

// DefaultExportName is the file name offered for a downloaded view
const DefaultExportName = "filtered_stocks.csv"

// ErrNothingToExport is returned for an empty view
var ErrNothingToExport = errors.New("no data to download")

// ExportHeaders returns the exported columns: the resolved display headers
// followed by Label. Falls back to all headers when no display role resolved.
func ExportHeaders(roles headers.Roles, all []string) []string {
	cols := roles.DisplayHeaders()
	if len(cols) == 0 {
		cols = append(cols, all...)
	}
	for _, c := range cols {
		if headers.Normalize(c) == "label" {
			return cols
		}
	}
	return append(cols, contracts.LabelHeader)
}

// Write writes cols of every row, Label included, as CSV
func Write(w io.Writer, cols []string, rows []contracts.LabeledRow) error {
	if len(rows) == 0 {
		return ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	rec := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			if c == contracts.LabelHeader {
				rec[i] = string(r.Label)
				continue
			}
			rec[i] = r.Get(c)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Index, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
