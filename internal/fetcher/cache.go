package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// cacheKeyLength is the number of hex digest characters in a cache file name.
const cacheKeyLength = 32

// DocumentCache is a read-through on-disk cache of remote documents keyed by
// URL. Each document is fetched at most once per cache directory.
type DocumentCache struct {
	dir      string
	fetchers map[string]Fetcher
}

// NewDocumentCache creates a cache under dir. httpF serves http and https
// URLs, ftpF serves ftp URLs; either may be nil.
func NewDocumentCache(dir string, httpF, ftpF Fetcher) *DocumentCache {
	fetchers := make(map[string]Fetcher)
	if httpF != nil {
		fetchers["http"] = httpF
		fetchers["https"] = httpF
	}
	if ftpF != nil {
		fetchers["ftp"] = ftpF
	}
	return &DocumentCache{dir: dir, fetchers: fetchers}
}

// Path returns the cache file for rawURL.
func (c *DocumentCache) Path(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])[:cacheKeyLength]+".pdf")
}

// Get returns the document bytes for rawURL, downloading and storing them on
// a cache miss.
func (c *DocumentCache) Get(ctx context.Context, rawURL string) ([]byte, error) {
	path := c.Path(rawURL)
	log := zap.L().With(zap.String("url", rawURL), zap.String("path", path))

	data, err := os.ReadFile(path)
	if err == nil {
		log.Debug("fetcher: cache hit", zap.Int("bytes", len(data)))
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(err, "fetcher: read cache %s", path)
	}

	f, err := c.fetcherFor(rawURL)
	if err != nil {
		return nil, err
	}

	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err = io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
	}

	if err := c.store(path, data); err != nil {
		return nil, err
	}
	log.Info("fetcher: cached document", zap.Int("bytes", len(data)))
	return data, nil
}

func (c *DocumentCache) fetcherFor(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	f, ok := c.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	return f, nil
}

// store writes data through a temp file and renames it into place.
func (c *DocumentCache) store(path string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return eris.Wrap(err, "fetcher: create cache dir")
	}
	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return eris.Wrap(err, "fetcher: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "fetcher: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "fetcher: close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "fetcher: move into cache")
}
