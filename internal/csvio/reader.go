// Package csvio reads uploads into datasets and writes screened views back
// out as CSV.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/pkg/logger"
)

// ErrNoHeader is returned for an upload without a header row
var ErrNoHeader = errors.New("csv has no header row")

// Reader implements P0: CSV upload → Dataset
// ⭐ SSOT: upload parsing lives here only
type Reader struct {
	logger *logger.Logger
}

// NewReader creates a new CSV reader
func NewReader(logger *logger.Logger) *Reader {
	return &Reader{logger: logger}
}

// Load reads r as a header-first CSV and logs the result
func (rd *Reader) Load(ctx context.Context, r io.Reader, name string) (*contracts.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := Read(r, name)
	if err != nil {
		return nil, err
	}

	rd.logger.WithStage(contracts.StageLoad.String()).WithFields(map[string]interface{}{
		"dataset_id": ds.ID,
		"name":       ds.Name,
		"headers":    len(ds.Headers),
		"rows":       ds.Len(),
	}).Info("Dataset loaded")

	return ds, nil
}

// Read parses a CSV whose first record is the header row.
// UTF-8 and UTF-16 byte order marks are honoured; blank lines are skipped,
// short records are padded with "" and surplus cells are dropped.
func Read(r io.Reader, name string) (*contracts.Dataset, error) {
	// BOMOverride switches to UTF-16 when a UTF-16 BOM is present and
	// strips a UTF-8 BOM otherwise
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	hdrs := dedupeHeaders(header)

	rows := make([]contracts.Row, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", len(rows)+1, err)
		}

		fields := make(map[string]string, len(hdrs))
		for i, h := range hdrs {
			if i < len(rec) {
				fields[h] = rec[i]
			} else {
				fields[h] = ""
			}
		}
		rows = append(rows, contracts.Row{Index: len(rows), Fields: fields})
	}

	return &contracts.Dataset{
		ID:       uuid.NewString(),
		Name:     name,
		Headers:  hdrs,
		Rows:     rows,
		LoadedAt: time.Now(),
	}, nil
}

// dedupeHeaders renames repeated header names to name_1, name_2, ...
// so every column stays addressable by name
func dedupeHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := h
		for n := 1; seen[name]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
