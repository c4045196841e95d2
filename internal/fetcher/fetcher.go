// Package fetcher downloads documents over HTTP and FTP, keeps them in an
// on-disk cache, and reads the CSV and XLSX reference tables.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
