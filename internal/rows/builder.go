// Package rows turns resolved candidates into output rows carrying a level,
// a period delta and a deterministic event ID.
package rows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/levels"
	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/registry"
	"github.com/sells-group/sitrep-cli/internal/resolve"
)

// Fixed row attributes for PDF-derived observations.
const (
	SeriesNew  = "new"
	MethodPDF  = "pdf"
	Tier       = "2"
	Confidence = "med"
	Revision   = 1

	eventIDLength = 16
	ingestedAtFmt = "2006-01-02T15:04:05Z"
)

// Document is the report context a set of rows is built for.
type Document struct {
	Title       string
	Publisher   string
	SourceType  string
	SourceURL   string
	ResourceURL string
	HazardCode  string
	HazardLabel string
	HazardClass string
	Created     string
	Changed     string
	Countries   registry.Countries
}

// Builder assembles output rows and advances level state.
type Builder struct {
	store     levels.Store
	sourceTag string
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used for ingested_at and the today fallback.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithSourceTag overrides the lineage source tag.
func WithSourceTag(tag string) Option {
	return func(b *Builder) {
		if tag != "" {
			b.sourceTag = tag
		}
	}
}

// New creates a Builder backed by store.
func New(store levels.Store, opts ...Option) *Builder {
	b := &Builder{
		store:     store,
		sourceTag: levels.DefaultSourceTag,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build emits one row per resolved candidate with an accepted canonical
// metric and an attributable country. Each emitted row records its level in
// the store, so Build must run once per document.
func (b *Builder) Build(ctx context.Context, doc Document, text string, res model.ExtractionResult, set *resolve.Set) ([]model.OutputRow, error) {
	now := b.now()
	dates := PickDates(text, doc.Created, doc.Changed, now)
	month := MonthStart(dates.AsOf)
	ingestedAt := now.UTC().Format(ingestedAtFmt)

	textMethod := res.Method
	if textMethod == "" {
		textMethod = model.TextMethodNative
	}

	var out []model.OutputRow
	for _, c := range set.Candidates() {
		iso3 := c.ISO3
		if iso3 == "" {
			if len(doc.Countries) != 1 {
				zap.L().Debug("rows: dropping unattributed candidate",
					zap.String("metric", string(c.Metric)),
					zap.Int("countries", len(doc.Countries)))
				continue
			}
			iso3 = doc.Countries[0].ISO3
		}

		metric := c.Metric.Canonical()
		if !model.IsAcceptedCanonical(metric) {
			continue
		}

		lineage := levels.Lineage(iso3, doc.HazardCode, metric, b.sourceTag)
		delta, err := b.store.Delta(ctx, lineage, c.Value, dates.AsOf)
		if err != nil {
			return nil, eris.Wrapf(err, "rows: delta for %s", lineage)
		}

		out = append(out, model.OutputRow{
			EventID: StableDigest([]string{
				iso3, doc.HazardCode, metric, dates.AsOf,
				strconv.FormatInt(c.Value, 10), doc.ResourceURL,
			}, eventIDLength),
			CountryName:     doc.Countries.Name(iso3),
			ISO3:            iso3,
			HazardCode:      doc.HazardCode,
			HazardLabel:     doc.HazardLabel,
			HazardClass:     doc.HazardClass,
			Metric:          metric,
			SeriesSemantics: SeriesNew,
			Value:           delta.Value,
			Unit:            model.UnitPersons,
			ValueLevel:      c.Value,
			AsOfDate:        dates.AsOf,
			MonthStart:      month,
			PublicationDate: dates.Publication,
			Publisher:       doc.Publisher,
			SourceType:      doc.SourceType,
			SourceURL:       doc.SourceURL,
			ResourceURL:     doc.ResourceURL,
			DocTitle:        doc.Title,
			DefinitionText:  fmt.Sprintf("ReliefWeb PDF extraction (%s) for %s", c.Layer, metric),
			Method:          MethodPDF,
			MethodValue:     c.MethodValue,
			MethodDetails:   methodDetails(c, textMethod, delta.First),
			ExtractionLayer: c.Layer,
			MatchedPhrase:   c.MatchedPhrase,
			Tier:            Tier,
			Confidence:      Confidence,
			Revision:        Revision,
			IngestedAt:      ingestedAt,
		})
	}
	return out, nil
}

func methodDetails(c model.Candidate, textMethod model.TextMethod, first bool) string {
	var sb strings.Builder
	if c.MethodDetails != "" {
		sb.WriteString(c.MethodDetails)
	} else {
		sb.WriteString("extracted_from_" + string(c.Layer))
	}
	sb.WriteString("; text_extraction=" + string(textMethod))
	if first {
		sb.WriteString("; delta_from_level(first_observation)")
	}
	return sb.String()
}
