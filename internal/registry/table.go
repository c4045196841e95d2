// Package registry loads the reference tables that extraction depends on:
// the country name table and the people-per-household ratios.
package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sitrep-cli/internal/fetcher"
)

// record is one table row keyed by lower-cased header name.
type record map[string]string

// readTable reads a CSV or XLSX file with a header row into records.
func readTable(ctx context.Context, path string) ([]record, error) {
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		r, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "registry: read %s", path)
		}
		rows = r
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: open %s", path)
		}
		defer f.Close() //nolint:errcheck

		rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true})
		for row := range rowCh {
			rows = append(rows, row)
		}
		if err := <-errCh; err != nil {
			return nil, eris.Wrapf(err, "registry: read %s", path)
		}
	}

	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	out := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
