// Package levels persists the last observed level per lineage and turns
// cumulative levels into period deltas.
package levels

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sitrep-cli/internal/config"
)

// DefaultSourceTag is the lineage source for PDF-derived series.
const DefaultSourceTag = "reliefweb_pdf"

// Level is one persisted observation.
type Level struct {
	AsOf  string `json:"as_of"`
	Value int64  `json:"value"`
}

// Delta is the result of comparing a new level against persisted state.
type Delta struct {
	Value    int64
	Previous *int64
	First    bool
}

// Store tracks levels per lineage. Delta always records the new level, so
// call it once per lineage per document.
type Store interface {
	Delta(ctx context.Context, lineage string, level int64, asOf string) (Delta, error)
	Get(ctx context.Context, lineage string) (Level, bool, error)
	All(ctx context.Context) (map[string]Level, error)
	Reset(ctx context.Context) error
	Close() error
}

// Lineage builds the series key "iso3|hazard|metric|source". An empty
// source uses DefaultSourceTag.
func Lineage(iso3, hazardCode, metric, source string) string {
	if source == "" {
		source = DefaultSourceTag
	}
	return strings.Join([]string{iso3, hazardCode, metric, source}, "|")
}

// compute derives the delta of level against prev, clamped at zero.
func compute(prev *Level, level int64) Delta {
	if prev == nil {
		return Delta{Value: level, First: true}
	}
	p := prev.Value
	return Delta{Value: max(level-p, 0), Previous: &p}
}

// Open returns the store named by cfg.Driver. A SQLite file that is not a
// database is moved aside and replaced by an empty one, matching the file
// store's handling of corrupt state.
func Open(ctx context.Context, cfg config.LevelsConfig) (Store, error) {
	switch cfg.Driver {
	case "file", "":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		if err := quarantine(cfg.Path); err != nil {
			return nil, err
		}
		s, err := NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("levels: unknown driver %q", cfg.Driver)
	}
}
