package levels

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// sqliteHeader starts every SQLite 3 database file.
var sqliteHeader = []byte("SQLite format 3\x00")

// CorruptSuffix is appended to a level database that is not readable as
// SQLite when it is moved aside.
const CorruptSuffix = ".corrupt"

// quarantine moves path aside when it exists, is non-empty and does not
// carry the SQLite header, so the store starts from an empty database.
func quarantine(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "levels: open %s", path)
	}
	head := make([]byte, len(sqliteHeader))
	n, err := io.ReadFull(f, head)
	f.Close() //nolint:errcheck
	if n == 0 && (err == io.EOF || err == nil) {
		return nil
	}
	if n == len(head) && bytes.Equal(head, sqliteHeader) {
		return nil
	}

	zap.L().Warn("levels: state database unreadable, starting empty",
		zap.String("path", path),
		zap.String("moved_to", path+CorruptSuffix),
	)
	if err := os.Rename(path, path+CorruptSuffix); err != nil {
		return eris.Wrapf(err, "levels: move aside %s", path)
	}
	for _, side := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + side); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "levels: remove %s", path+side)
		}
	}
	return nil
}

// SQLiteStore keeps level state in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "levels: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "levels: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS level_state (
	lineage    TEXT PRIMARY KEY,
	as_of      TEXT NOT NULL,
	value      INTEGER NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the level_state table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "levels: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored level for lineage.
func (s *SQLiteStore) Get(ctx context.Context, lineage string) (Level, bool, error) {
	var l Level
	err := s.db.QueryRowContext(ctx,
		`SELECT as_of, value FROM level_state WHERE lineage = ?`, lineage,
	).Scan(&l.AsOf, &l.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return Level{}, false, nil
	}
	if err != nil {
		return Level{}, false, eris.Wrapf(err, "levels: get %s", lineage)
	}
	return l, true, nil
}

// Delta compares level with the stored value for lineage, then stores it.
// An unreadable row is treated as a first observation.
func (s *SQLiteStore) Delta(ctx context.Context, lineage string, level int64, asOf string) (Delta, error) {
	var prev *Level
	l, ok, err := s.Get(ctx, lineage)
	switch {
	case err != nil:
		zap.L().Warn("levels: previous level unreadable, treating as first observation",
			zap.String("lineage", lineage), zap.Error(err))
	case ok:
		prev = &l
	}
	d := compute(prev, level)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO level_state (lineage, as_of, value, updated_at) VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(lineage) DO UPDATE SET as_of = excluded.as_of, value = excluded.value, updated_at = excluded.updated_at`,
		lineage, asOf, level,
	)
	if err != nil {
		return d, eris.Wrapf(err, "levels: upsert %s", lineage)
	}
	return d, nil
}

// All returns every stored level.
func (s *SQLiteStore) All(ctx context.Context) (map[string]Level, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT lineage, as_of, value FROM level_state ORDER BY lineage`)
	if err != nil {
		return nil, eris.Wrap(err, "levels: list")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]Level)
	for rows.Next() {
		var lineage string
		var l Level
		if err := rows.Scan(&lineage, &l.AsOf, &l.Value); err != nil {
			return nil, eris.Wrap(err, "levels: scan")
		}
		out[lineage] = l
	}
	return out, eris.Wrap(rows.Err(), "levels: iterate")
}

// Reset deletes all stored levels.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM level_state`)
	return eris.Wrap(err, "levels: reset")
}
