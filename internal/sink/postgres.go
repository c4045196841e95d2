package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/db"
	"github.com/sells-group/sitrep-cli/internal/model"
)

// integerColumns are stored as BIGINT; every other column is TEXT.
var integerColumns = map[string]bool{
	"value":       true,
	"value_level": true,
	"revision":    true,
}

// Postgres upserts rows into a table keyed by event_id.
type Postgres struct {
	pool   db.Pool
	table  string
	closer func()
}

// NewPostgres creates a sink writing to table through pool.
func NewPostgres(pool db.Pool, table string) *Postgres {
	return &Postgres{pool: pool, table: table}
}

// EnsureTable creates the schema and table when missing.
func (s *Postgres) EnsureTable(ctx context.Context) error {
	if schema, _, ok := strings.Cut(s.table, "."); ok {
		if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+db.SanitizeTable(schema)); err != nil {
			return eris.Wrapf(err, "sink: create schema %s", schema)
		}
	}
	if _, err := s.pool.Exec(ctx, createTableSQL(s.table)); err != nil {
		return eris.Wrapf(err, "sink: create table %s", s.table)
	}
	return nil
}

func createTableSQL(table string) string {
	defs := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		typ := "TEXT"
		if integerColumns[c] {
			typ = "BIGINT"
		}
		if c == "event_id" {
			typ += " PRIMARY KEY"
		}
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", db.SanitizeTable(table), strings.Join(defs, ", "))
}

// Write upserts rows on event_id. Later rows with a repeated event_id
// replace earlier ones.
func (s *Postgres) Write(ctx context.Context, rows []model.OutputRow) error {
	values := make([][]any, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		v := r.Values()
		if i, ok := index[r.EventID]; ok {
			values[i] = v
			continue
		}
		index[r.EventID] = len(values)
		values = append(values, v)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        s.table,
		Columns:      model.Columns,
		ConflictKeys: []string{"event_id"},
	}, values)
	if err != nil {
		return eris.Wrap(err, "sink: upsert rows")
	}
	zap.L().Info("sink: upserted rows", zap.String("table", s.table), zap.Int64("rows", n))
	return nil
}

// Close releases the connection pool when the sink owns it.
func (s *Postgres) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
