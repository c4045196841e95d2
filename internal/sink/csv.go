package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/model"
)

// Manifest describes a staging CSV. It is written next to the CSV as
// <file>.meta.json.
type Manifest struct {
	SourceID    string   `json:"source_id"`
	RowCount    int      `json:"row_count"`
	Columns     []string `json:"columns"`
	RunID       string   `json:"run_id"`
	GeneratedAt string   `json:"generated_at"`
}

// CSV writes rows to a staging CSV file, replacing any previous content.
// The header is written even when there are no rows.
type CSV struct {
	path     string
	sourceID string
	now      func() time.Time
}

// NewCSV creates a CSV sink for path.
func NewCSV(path, sourceID string) *CSV {
	return &CSV{path: path, sourceID: sourceID, now: time.Now}
}

// ManifestPath returns the manifest location for a CSV path.
func ManifestPath(csvPath string) string {
	return csvPath + ".meta.json"
}

// Write writes the header and rows, then the manifest.
func (s *CSV) Write(_ context.Context, rows []model.OutputRow) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "sink: create output dir")
	}

	f, err := os.Create(s.path)
	if err != nil {
		return eris.Wrapf(err, "sink: create %s", s.path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(model.Columns); err != nil {
		return eris.Wrap(err, "sink: write header")
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			return eris.Wrapf(err, "sink: write row %s", r.EventID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "sink: flush csv")
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "sink: close %s", s.path)
	}

	m := Manifest{
		SourceID:    s.sourceID,
		RowCount:    len(rows),
		Columns:     model.Columns,
		RunID:       uuid.New().String(),
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "sink: marshal manifest")
	}
	if err := os.WriteFile(ManifestPath(s.path), data, 0o644); err != nil {
		return eris.Wrap(err, "sink: write manifest")
	}

	zap.L().Info("sink: wrote staging csv",
		zap.String("path", s.path),
		zap.Int("rows", len(rows)),
		zap.String("run_id", m.RunID),
	)
	return nil
}

// Close is a no-op.
func (s *CSV) Close() error {
	return nil
}
