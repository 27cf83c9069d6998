package warehouse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
)

// Columns written by CopyInto, in order.
var loadColumns = []string{"raw_text", "source_file", "row_number"}

// maxRecordedRejects caps LoadResult.Rejects.
const maxRecordedRejects = 20

// RowReject describes a CSV record skipped during a load.
type RowReject struct {
	Line   int
	Reason string
}

// LoadResult summarises one CopyInto call.
type LoadResult struct {
	Table        string
	File         string
	RowsParsed   int
	RowsLoaded   int64
	RowsRejected int
	Rejects      []RowReject
}

// CopyInto bulk-loads a single-column CSV into table. The first record is a
// header and is skipped; fields may be quoted. Malformed records are counted
// and skipped rather than failing the load.
func (db *DB) CopyInto(ctx context.Context, table string, src io.Reader, file string) (*LoadResult, error) {
	ident, err := ParseIdentifier(table)
	if err != nil {
		return nil, &LoadError{Table: table, File: file, Message: "bad target table", Cause: err}
	}

	rows, result, err := readRows(src, file)
	if err != nil {
		return nil, &LoadError{Table: table, File: file, Message: "failed to read staged file", Cause: err}
	}
	result.Table = table

	if len(rows) > 0 {
		n, err := db.pool.CopyFrom(ctx, ident, loadColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return nil, &LoadError{Table: table, File: file, Message: "COPY failed", Cause: err}
		}
		result.RowsLoaded = n
	}

	db.logger.Info("table refreshed",
		"table", table,
		"file", file,
		"loaded", result.RowsLoaded,
		"rejected", result.RowsRejected)
	return result, nil
}

func readRows(src io.Reader, file string) ([][]any, *LoadResult, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	result := &LoadResult{File: file}
	var rows [][]any
	header := true

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if header {
				header = false
				continue
			}
			result.reject(parseErr.Line, parseErr.Err.Error())
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := r.FieldPos(0)

		if header {
			header = false
			continue
		}
		if len(record) != 1 {
			result.reject(line, fmt.Sprintf("expected 1 field, got %d", len(record)))
			continue
		}

		result.RowsParsed++
		rows = append(rows, []any{record[0], file, result.RowsParsed})
	}
	return rows, result, nil
}

func (r *LoadResult) reject(line int, reason string) {
	r.RowsRejected++
	if len(r.Rejects) < maxRecordedRejects {
		r.Rejects = append(r.Rejects, RowReject{Line: line, Reason: reason})
	}
}
