// Package sink writes output rows to the staging CSV or a Postgres table.
package sink

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sitrep-cli/internal/config"
	"github.com/sells-group/sitrep-cli/internal/model"
)

// Sink persists one run's rows.
type Sink interface {
	Write(ctx context.Context, rows []model.OutputRow) error
	Close() error
}

// Open returns the sink named by cfg.Driver.
func Open(ctx context.Context, cfg config.OutputConfig) (Sink, error) {
	switch cfg.Driver {
	case "csv", "":
		return NewCSV(cfg.Path, cfg.SourceID), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "sink: connect postgres")
		}
		s := NewPostgres(pool, cfg.Table)
		s.closer = pool.Close
		if err := s.EnsureTable(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("sink: unknown driver %q", cfg.Driver)
	}
}
