package levels

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "levels", "levels.json")
	return NewFileStore(path), path
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "levels.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// stores runs fn against each Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		s, _ := newTestFileStore(t)
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestSQLiteStore(t))
	})
}

func TestLineage(t *testing.T) {
	assert.Equal(t, "SOM|FL|affected|reliefweb_pdf", Lineage("SOM", "FL", "affected", ""))
	assert.Equal(t, "KEN|DR|in_need|custom", Lineage("KEN", "DR", "in_need", "custom"))
}

func TestDelta_FirstThenIncrease(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		lineage := Lineage("SOM", "FL", "affected", "")

		d, err := s.Delta(ctx, lineage, 1000, "2025-08-31")
		require.NoError(t, err)
		assert.True(t, d.First)
		assert.Nil(t, d.Previous)
		assert.Equal(t, int64(1000), d.Value)

		d, err = s.Delta(ctx, lineage, 1500, "2025-09-30")
		require.NoError(t, err)
		assert.False(t, d.First)
		require.NotNil(t, d.Previous)
		assert.Equal(t, int64(1000), *d.Previous)
		assert.Equal(t, int64(500), d.Value)

		l, ok, err := s.Get(ctx, lineage)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, Level{AsOf: "2025-09-30", Value: 1500}, l)
	})
}

func TestDelta_DecreaseClampsToZero(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Delta(ctx, "a", 2000, "2025-08-31")
		require.NoError(t, err)

		d, err := s.Delta(ctx, "a", 1200, "2025-09-30")
		require.NoError(t, err)
		assert.Equal(t, int64(0), d.Value)
		require.NotNil(t, d.Previous)
		assert.Equal(t, int64(2000), *d.Previous)

		// The lower level is still recorded.
		l, _, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(1200), l.Value)
	})
}

func TestDelta_IndependentLineages(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Delta(ctx, "SOM|FL|affected|reliefweb_pdf", 100, "2025-08-31")
		require.NoError(t, err)

		d, err := s.Delta(ctx, "KEN|FL|affected|reliefweb_pdf", 40, "2025-08-31")
		require.NoError(t, err)
		assert.True(t, d.First)
		assert.Equal(t, int64(40), d.Value)

		all, err := s.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestReset(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Delta(ctx, "a", 10, "2025-01-31")
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx))

		all, err := s.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		d, err := s.Delta(ctx, "a", 10, "2025-01-31")
		require.NoError(t, err)
		assert.True(t, d.First)
	})
}

func TestGet_Missing(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_, ok, err := s.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileStore_PersistsSortedJSON(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()

	_, err := s.Delta(ctx, "b", 2, "2025-02-28")
	require.NoError(t, err)
	_, err = s.Delta(ctx, "a", 1, "2025-01-31")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		`{"a":{"as_of":"2025-01-31","value":1},"b":{"as_of":"2025-02-28","value":2}}`,
		string(data))

	// A fresh instance sees the persisted state.
	fresh := NewFileStore(path)
	d, err := fresh.Delta(ctx, "a", 5, "2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Value)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	s, path := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	d, err := s.Delta(context.Background(), "a", 1000, "2025-08-31")
	require.NoError(t, err)
	assert.True(t, d.First)
	assert.Equal(t, int64(1000), d.Value)

	// The corrupt file is replaced by valid state.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"as_of":"2025-08-31","value":1000}}`, string(data))
}

func TestFileStore_CachesUntilInvalidate(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()

	s.Load(ctx)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"a":{"as_of":"2025-01-31","value":7}}`), 0o644))

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "loaded state is cached")

	s.Invalidate()
	l, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), l.Value)
}

func TestFileStore_ResetRemovesFile(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()
	_, err := s.Delta(ctx, "a", 1, "2025-01-31")
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Resetting twice is fine.
	assert.NoError(t, s.Reset(ctx))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.LevelsConfig{Driver: "file", Path: filepath.Join(dir, "l.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, config.LevelsConfig{Driver: "sqlite", Path: filepath.Join(dir, "l.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.LevelsConfig{Driver: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLiteCorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "levels.db")
	garbage := []byte("this is not a sqlite database at all")
	require.NoError(t, os.WriteFile(path, garbage, 0o644))

	s, err := Open(ctx, config.LevelsConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d, err := s.Delta(ctx, "SOM|FL|in_need|reliefweb_pdf", 1000, "2025-08-31")
	require.NoError(t, err)
	assert.True(t, d.First)
	assert.Equal(t, int64(1000), d.Value)

	moved, err := os.ReadFile(path + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, garbage, moved)
}

func TestOpen_SQLiteKeepsValidDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := config.LevelsConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "levels.db")}

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, err = s.Delta(ctx, "a", 1000, "2025-08-31")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	d, err := s.Delta(ctx, "a", 1500, "2025-09-30")
	require.NoError(t, err)
	assert.False(t, d.First)
	assert.Equal(t, int64(500), d.Value)

	_, err = os.Stat(cfg.Path + CorruptSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestSQLiteStore_UnreadableRowIsFirstObservation(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO level_state (lineage, as_of, value) VALUES ('a', '2025-07-31', 'not a number')`)
	require.NoError(t, err)

	_, _, err = s.Get(ctx, "a")
	require.Error(t, err)

	d, err := s.Delta(ctx, "a", 1000, "2025-08-31")
	require.NoError(t, err)
	assert.True(t, d.First)
	assert.Equal(t, int64(1000), d.Value)

	l, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Level{AsOf: "2025-08-31", Value: 1000}, l)
}
