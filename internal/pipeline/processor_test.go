package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/config"
	"github.com/sells-group/sitrep-cli/internal/levels"
	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/ocr"
	"github.com/sells-group/sitrep-cli/internal/registry"
	"github.com/sells-group/sitrep-cli/internal/resolve"
	"github.com/sells-group/sitrep-cli/internal/rows"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testCountries = registry.Countries{
	{Name: "Somalia", ISO3: "SOM"},
	{Name: "Kenya", ISO3: "KEN"},
	{Name: "Ethiopia", ISO3: "ETH"},
}

type stubDocs struct {
	calls int
	err   error
}

func (s *stubDocs) Get(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("stub"), nil
}

type stubText struct {
	text     string
	method   model.TextMethod
	minChars int
}

func (s *stubText) Recover(_ context.Context, content []byte, minChars int) (string, model.ExtractionResult) {
	s.minChars = minChars
	return s.text, model.ExtractionResult{Method: s.method, Chars: len(s.text), OCRPages: []int{}, Digest: ocr.Digest(content)}
}

type stubInfo struct {
	info ocr.DocumentInfo
	err  error
}

func (s stubInfo) Info(_ []byte) (ocr.DocumentInfo, error) {
	return s.info, s.err
}

type harness struct {
	proc  *Processor
	docs  *stubDocs
	text  *stubText
	store levels.Store
}

func newHarness(t *testing.T, store levels.Store) *harness {
	t.Helper()
	dir := t.TempDir()
	if store == nil {
		store = levels.NewFileStore(filepath.Join(dir, "levels", "levels.json"))
	}
	ratioPath := filepath.Join(dir, "avg_household_size.csv")
	require.NoError(t, os.WriteFile(ratioPath, []byte("iso3,people_per_household,source,year\nSOM,5.2,Survey,2024\n"), 0o644))
	ratios := registry.NewHouseholdRatios(ratioPath, "", registry.DefaultPeoplePerHousehold)

	h := &harness{docs: &stubDocs{}, text: &stubText{method: model.TextMethodNative}, store: store}
	h.proc = NewProcessor(
		config.PipelineConfig{
			EnablePDFs:         true,
			PreferredPDFTitles: []string{"situation report", "flash update", "key figures"},
		},
		config.OCRConfig{MinChars: 1500},
		Deps{
			Documents: h.docs,
			Text:      h.text,
			Resolver:  resolve.New(ratios),
			Builder:   rows.New(store, rows.WithClock(func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) })),
			Countries: testCountries,
		},
	)
	return h
}

func baseReport(pdfURL string, countries ...string) Report {
	rep := Report{
		Title:      "Somalia SitRep",
		URL:        "https://reliefweb.int/report/123",
		Source:     "OCHA",
		SourceType: "sitrep",
		Hazard:     Hazard{Code: "FL", Label: "Flood", Class: "natural"},
		Date:       ReportDate{Created: "2025-08-01T00:00:00Z", Changed: "2025-08-02T00:00:00Z"},
		Files: []Resource{{
			MimeType:  "application/pdf",
			URL:       pdfURL,
			Name:      "Situation Report",
			Date:      ReportDate{Created: "2025-08-01T00:00:00Z"},
			PageCount: 4,
		}},
	}
	if len(countries) == 0 {
		countries = []string{"Somalia"}
	}
	for _, c := range countries {
		rep.Countries = append(rep.Countries, ReportCountry{Name: c})
	}
	return rep
}

func (h *harness) run(t *testing.T, rep Report, text string, method model.TextMethod) []model.OutputRow {
	t.Helper()
	h.text.text = text
	h.text.method = method
	res, err := h.proc.Process(context.Background(), rep)
	require.NoError(t, err)
	return res.Rows
}

func TestProcess_TablePrecedenceOverNarrative(t *testing.T) {
	h := newHarness(t, nil)
	text := `
Country | People in Need | People Affected
Somalia | 120,000 | 90,000

The report notes that 50,000 people in need remain in hard-to-reach areas.
`
	out := h.run(t, baseReport("https://example.org/table.pdf"), text, model.TextMethodNative)
	require.Len(t, out, 2)
	assert.Equal(t, "in_need", out[0].Metric)
	assert.Equal(t, int64(120000), out[0].ValueLevel)
	assert.Equal(t, int64(120000), out[0].Value)
	assert.Equal(t, model.LayerTable, out[0].ExtractionLayer)
	assert.Equal(t, model.MethodReported, out[0].MethodValue)
	assert.Equal(t, "affected", out[1].Metric)
	assert.Equal(t, int64(90000), out[1].ValueLevel)
}

func TestProcess_InfographicPrecedenceOverNarrative(t *testing.T) {
	h := newHarness(t, nil)
	text := `
KEY FIGURES
People Affected: 45k individuals

Narrative states 10,000 people affected in rural zones.
`
	out := h.run(t, baseReport("https://example.org/infographic.pdf"), text, model.TextMethodHybrid)
	require.Len(t, out, 1)
	assert.Equal(t, int64(45000), out[0].ValueLevel)
	assert.Equal(t, model.LayerInfographic, out[0].ExtractionLayer)
	assert.Contains(t, out[0].MethodDetails, "text_extraction=hybrid")
}

func TestProcess_HouseholdConversion(t *testing.T) {
	h := newHarness(t, nil)
	text := `
Country | Households Affected
Somalia | 1,000
`
	out := h.run(t, baseReport("https://example.org/hh.pdf"), text, model.TextMethodNative)
	require.Len(t, out, 1)
	assert.Equal(t, "affected", out[0].Metric)
	assert.Equal(t, int64(5200), out[0].ValueLevel)
	assert.Equal(t, model.MethodDerivedFromHouseholds, out[0].MethodValue)
	assert.Contains(t, out[0].MethodDetails, "PPH=5.20")
}

func TestProcess_CoveragePeriodDate(t *testing.T) {
	h := newHarness(t, nil)
	text := `
Reporting period: 01–31 Aug 2025
Country | People in Need
Somalia | 1,234
`
	out := h.run(t, baseReport("https://example.org/date.pdf"), text, model.TextMethodNative)
	require.Len(t, out, 1)
	assert.Equal(t, "2025-08-31", out[0].AsOfDate)
	assert.Equal(t, "2025-08-01", out[0].MonthStart)
}

func TestProcess_ReportDatesFallback(t *testing.T) {
	h := newHarness(t, nil)
	out := h.run(t, baseReport("https://example.org/f.pdf"), "Country | People in Need\nSomalia | 10\n", model.TextMethodNative)
	require.Len(t, out, 1)
	assert.Equal(t, "2025-08-01", out[0].AsOfDate)
	assert.Equal(t, "2025-08-02", out[0].PublicationDate)
}

func TestProcess_PDFInfoDates(t *testing.T) {
	h := newHarness(t, nil)
	h.proc.deps.Info = stubInfo{info: ocr.DocumentInfo{
		Created:  time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC),
		Modified: time.Date(2025, 7, 12, 9, 0, 0, 0, time.UTC),
	}}
	rep := baseReport("https://example.org/info.pdf")
	rep.Date = ReportDate{}

	out := h.run(t, rep, "Country | People in Need\nSomalia | 10\n", model.TextMethodNative)
	require.Len(t, out, 1)
	assert.Equal(t, "2025-07-10", out[0].AsOfDate)
	assert.Equal(t, "2025-07-12", out[0].PublicationDate)

	// Unreadable info falls back to today.
	h2 := newHarness(t, nil)
	h2.proc.deps.Info = stubInfo{err: errors.New("no info")}
	out = h2.run(t, rep, "Country | People in Need\nSomalia | 10\n", model.TextMethodNative)
	require.Len(t, out, 1)
	assert.Equal(t, "2025-09-01", out[0].AsOfDate)
}

func TestProcess_MultiCountrySplit(t *testing.T) {
	h := newHarness(t, nil)
	rep := baseReport("https://example.org/multi.pdf", "Somalia", "Kenya")
	text := `
Country | People in Need
Somalia | 1,000
Kenya | 2,000

Combined statement: 3,000 people in need across Somalia and Kenya.
`
	out := h.run(t, rep, text, model.TextMethodNative)
	got := map[string]int64{}
	for _, r := range out {
		got[r.ISO3] = r.ValueLevel
	}
	assert.Equal(t, map[string]int64{"SOM": 1000, "KEN": 2000}, got)

	out = h.run(t, rep, "Overall, 5,000 people in need across Somalia and Kenya.", model.TextMethodNative)
	assert.Empty(t, out)
}

func TestProcess_EventIDDeterministic(t *testing.T) {
	text := "\nCountry | People in Need\nSomalia | 2,222\n"
	rep := baseReport("https://example.org/event.pdf")

	first := newHarness(t, nil).run(t, rep, text, model.TextMethodNative)
	second := newHarness(t, nil).run(t, rep, text, model.TextMethodNative)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].EventID, second[0].EventID)
	assert.Len(t, first[0].EventID, 16)
}

func TestProcess_IdempotentAfterReset(t *testing.T) {
	ctx := context.Background()
	store := levels.NewFileStore(filepath.Join(t.TempDir(), "levels.json"))
	h := newHarness(t, store)
	text := "\nReporting period: 01–31 Aug 2025\nCountry | People in Need | People Affected\nSomalia | 2,222 | 1,500\n"
	rep := baseReport("https://example.org/idem.pdf")

	first := h.run(t, rep, text, model.TextMethodNative)
	require.Len(t, first, 2)

	require.NoError(t, store.Reset(ctx))
	store.Invalidate()

	second := h.run(t, rep, text, model.TextMethodNative)
	assert.Equal(t, first, second)
}

func TestProcess_DeltaComputation(t *testing.T) {
	h := newHarness(t, nil)
	july := "\nReporting period: 01–31 Jul 2025\nCountry | People in Need\nSomalia | 1,000\n"
	aug := "\nReporting period: 01–31 Aug 2025\nCountry | People in Need\nSomalia | 1,500\n"

	julyRows := h.run(t, baseReport("https://example.org/delta.pdf"), july, model.TextMethodNative)
	augRows := h.run(t, baseReport("https://example.org/delta.pdf"), aug, model.TextMethodNative)
	require.Len(t, julyRows, 1)
	require.Len(t, augRows, 1)
	assert.Equal(t, int64(1000), julyRows[0].Value)
	assert.Contains(t, julyRows[0].MethodDetails, "first_observation")
	assert.Equal(t, int64(500), augRows[0].Value)
	assert.NotContains(t, augRows[0].MethodDetails, "first_observation")
}

func TestProcess_SQLiteLevels(t *testing.T) {
	store, err := levels.NewSQLite(filepath.Join(t.TempDir(), "levels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	h := newHarness(t, store)
	h.run(t, baseReport("https://example.org/a.pdf"), "Country | Internally Displaced\nSomalia | 300\n", model.TextMethodNative)
	out := h.run(t, baseReport("https://example.org/b.pdf"), "Country | Internally Displaced\nSomalia | 250\n", model.TextMethodNative)
	require.Len(t, out, 1)
	assert.Equal(t, "displaced", out[0].Metric)
	assert.Equal(t, int64(0), out[0].Value)
}

func TestProcess_PassesMinChars(t *testing.T) {
	h := newHarness(t, nil)
	out := h.run(t, baseReport("https://example.org/ocr.pdf"), "\nKEY FIGURES\nPeople in Need: 10k\n", model.TextMethodHybrid)
	assert.Equal(t, 1500, h.text.minChars)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].MethodDetails, "text_extraction=hybrid")
}

func TestProcess_Skips(t *testing.T) {
	t.Run("pdfs disabled", func(t *testing.T) {
		h := newHarness(t, nil)
		h.proc.cfg.EnablePDFs = false
		res, err := h.proc.Process(context.Background(), baseReport("https://example.org/a.pdf"))
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Zero(t, h.docs.calls)
		require.Len(t, res.Phases, 1)
		assert.Equal(t, PhaseSkipped, res.Phases[0].Status)
	})

	t.Run("no pdf resources", func(t *testing.T) {
		h := newHarness(t, nil)
		rep := baseReport("https://example.org/a.pdf")
		rep.Files[0].MimeType = "image/png"
		res, err := h.proc.Process(context.Background(), rep)
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Zero(t, h.docs.calls)
	})

	t.Run("resource without url", func(t *testing.T) {
		h := newHarness(t, nil)
		res, err := h.proc.Process(context.Background(), baseReport(""))
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Zero(t, h.docs.calls)
	})

	t.Run("blank text", func(t *testing.T) {
		h := newHarness(t, nil)
		res, err := h.proc.Process(context.Background(), baseReport("https://example.org/a.pdf"))
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Equal(t, 1, h.docs.calls)
	})
}

func TestProcess_FetchErrorIsReturned(t *testing.T) {
	h := newHarness(t, nil)
	h.docs.err = errors.New("connection refused")

	res, err := h.proc.Process(context.Background(), baseReport("https://example.org/a.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: fetch")
	require.NotEmpty(t, res.Phases)
	assert.Equal(t, PhaseFailed, res.Phases[len(res.Phases)-1].Status)
}
