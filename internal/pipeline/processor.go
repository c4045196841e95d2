package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/config"
	"github.com/sells-group/sitrep-cli/internal/extract"
	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/ocr"
	"github.com/sells-group/sitrep-cli/internal/registry"
	"github.com/sells-group/sitrep-cli/internal/resolve"
	"github.com/sells-group/sitrep-cli/internal/rows"
)

// DocumentSource returns document bytes for a URL.
type DocumentSource interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// TextRecoverer recovers plain text from document bytes.
type TextRecoverer interface {
	Recover(ctx context.Context, content []byte, minChars int) (string, model.ExtractionResult)
}

// InfoReader reads embedded document timestamps.
type InfoReader interface {
	Info(content []byte) (ocr.DocumentInfo, error)
}

// Phase status values.
const (
	PhaseComplete = "complete"
	PhaseSkipped  = "skipped"
	PhaseFailed   = "failed"
)

// PhaseResult records one processing step.
type PhaseResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Duration int64  `json:"duration_ms"`
	Detail   string `json:"detail,omitempty"`
}

// Result is the outcome of processing one report.
type Result struct {
	Report      string                 `json:"report"`
	ResourceURL string                 `json:"resource_url,omitempty"`
	Extraction  model.ExtractionResult `json:"extraction"`
	Candidates  int                    `json:"candidates"`
	Rows        []model.OutputRow      `json:"rows"`
	Phases      []PhaseResult          `json:"phases"`
}

// Deps are the collaborators a Processor needs.
type Deps struct {
	Documents DocumentSource
	Text      TextRecoverer
	Info      InfoReader // optional
	Extractor *extract.Extractor
	Resolver  *resolve.Resolver
	Builder   *rows.Builder
	Countries registry.Countries
}

// Processor runs the document-to-rows flow for one report at a time.
// Reports sharing level state must be processed sequentially.
type Processor struct {
	cfg      config.PipelineConfig
	minChars int
	deps     Deps
}

// NewProcessor creates a Processor.
func NewProcessor(cfg config.PipelineConfig, ocrCfg config.OCRConfig, deps Deps) *Processor {
	if deps.Extractor == nil {
		deps.Extractor = extract.New()
	}
	return &Processor{cfg: cfg, minChars: ocrCfg.MinChars, deps: deps}
}

// Process builds rows for rep. A report with PDFs disabled, no PDF
// attachment, or no recoverable text yields an empty result. Only a failed
// download or level-state write is returned as an error.
func (p *Processor) Process(ctx context.Context, rep Report) (*Result, error) {
	log := zap.L().With(zap.String("report", rep.Title), zap.String("url", rep.URL))
	result := &Result{Report: rep.Title, Extraction: model.ExtractionResult{OCRPages: []int{}}}

	track := func(name string, fn func() (string, error)) error {
		start := time.Now()
		detail, err := fn()
		ph := PhaseResult{Name: name, Status: PhaseComplete, Duration: time.Since(start).Milliseconds(), Detail: detail}
		if err != nil {
			ph.Status = PhaseFailed
			ph.Detail = err.Error()
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Error(err))
		} else {
			log.Debug("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", ph.Duration))
		}
		result.Phases = append(result.Phases, ph)
		return err
	}
	skip := func(name, why string) (*Result, error) {
		result.Phases = append(result.Phases, PhaseResult{Name: name, Status: PhaseSkipped, Detail: why})
		log.Info("pipeline: skipping report", zap.String("phase", name), zap.String("reason", why))
		return result, nil
	}

	if !p.cfg.EnablePDFs {
		return skip("select", "pdf extraction disabled")
	}
	best, ok := SelectBestPDF(rep.PDFResources(), p.cfg.PreferredPDFTitles)
	if !ok {
		return skip("select", "no pdf resources")
	}
	result.ResourceURL = best.Location()
	if result.ResourceURL == "" {
		return skip("select", "pdf resource has no url")
	}

	var content []byte
	if err := track("fetch", func() (string, error) {
		var err error
		content, err = p.deps.Documents.Get(ctx, result.ResourceURL)
		return "", err
	}); err != nil {
		return result, eris.Wrapf(err, "pipeline: fetch %s", result.ResourceURL)
	}

	var text string
	_ = track("text", func() (string, error) {
		text, result.Extraction = p.deps.Text.Recover(ctx, content, p.minChars)
		return string(result.Extraction.Method), nil
	})
	if strings.TrimSpace(text) == "" {
		return skip("extract", "no recoverable text")
	}

	inScope := p.deps.Countries.Resolve(rep.CountryNames())
	var set *resolve.Set
	_ = track("extract", func() (string, error) {
		cands := p.deps.Extractor.Extract(text, inScope)
		result.Candidates = len(cands)
		set = p.deps.Resolver.Resolve(ctx, cands, inScope.ISO3s())
		return "", nil
	})
	if set.Len() == 0 {
		return skip("rows", "no candidates")
	}

	doc := p.document(rep, best, content, inScope)
	if err := track("rows", func() (string, error) {
		var err error
		result.Rows, err = p.deps.Builder.Build(ctx, doc, text, result.Extraction, set)
		return "", err
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: build rows")
	}

	log.Info("pipeline: report processed",
		zap.String("resource", result.ResourceURL),
		zap.String("text_method", string(result.Extraction.Method)),
		zap.Int("candidates", result.Candidates),
		zap.Int("rows", len(result.Rows)),
	)
	return result, nil
}

// document assembles the row context. When the report carries no dates the
// PDF Info dictionary supplies them.
func (p *Processor) document(rep Report, res Resource, content []byte, inScope registry.Countries) rows.Document {
	doc := rows.Document{
		Title:       rep.Title,
		Publisher:   rep.Source,
		SourceType:  rep.SourceType,
		SourceURL:   rep.URL,
		ResourceURL: res.Location(),
		HazardCode:  rep.Hazard.Code,
		HazardLabel: rep.Hazard.Label,
		HazardClass: rep.Hazard.Class,
		Created:     rep.Date.Created,
		Changed:     rep.Date.Changed,
		Countries:   inScope,
	}
	if doc.Created != "" || doc.Changed != "" || p.deps.Info == nil {
		return doc
	}
	info, err := p.deps.Info.Info(content)
	if err != nil {
		zap.L().Debug("pipeline: no pdf info dates", zap.Error(err))
		return doc
	}
	if !info.Created.IsZero() {
		doc.Created = info.Created.UTC().Format(time.RFC3339)
	}
	if !info.Modified.IsZero() {
		doc.Changed = info.Modified.UTC().Format(time.RFC3339)
	}
	return doc
}
