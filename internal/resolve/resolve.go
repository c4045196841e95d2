package resolve

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/registry"
)

// RatioLookup returns the people-per-household ratio for a country.
type RatioLookup interface {
	Lookup(ctx context.Context, iso3 string) registry.HouseholdRatio
}

// Attribute assigns candidates without a country to the report's only
// in-scope country. With zero or several countries in scope they are left
// unassigned.
func Attribute(cands []model.Candidate, inScope []string) []model.Candidate {
	out := make([]model.Candidate, len(cands))
	copy(out, cands)
	if len(inScope) != 1 {
		return out
	}
	for i := range out {
		if out[i].ISO3 == "" {
			out[i].ISO3 = inScope[0]
		}
	}
	return out
}

// Choose keeps, per (ISO3, metric), the candidate from the highest
// priority layer. Equal priority keeps the first seen.
func Choose(cands []model.Candidate) *Set {
	set := NewSet()
	for _, c := range cands {
		cur, ok := set.Get(c.Key())
		if !ok || c.Layer.Priority() < cur.Layer.Priority() {
			set.Put(c)
		}
	}
	return set
}

// ApplyHouseholdConversions adds a people candidate for every household
// candidate whose country has no people figure for the matching metric.
// A household candidate with no country converts only when exactly one
// country is in scope.
func ApplyHouseholdConversions(ctx context.Context, set *Set, inScope []string, ratios RatioLookup) {
	for _, k := range set.Keys() {
		hh, _ := set.Get(k)
		target, ok := hh.Metric.PeopleEquivalent()
		if !ok {
			continue
		}

		iso3 := hh.ISO3
		if iso3 == "" {
			if len(inScope) != 1 {
				zap.L().Debug("resolve: skipping ambiguous household figure",
					zap.String("metric", string(hh.Metric)),
					zap.Int("countries", len(inScope)),
				)
				continue
			}
			iso3 = inScope[0]
		}
		if set.Has(model.CandidateKey{ISO3: hh.ISO3, Metric: target}) ||
			set.Has(model.CandidateKey{ISO3: iso3, Metric: target}) {
			continue
		}

		ratio := ratios.Lookup(ctx, iso3)
		set.Put(model.Candidate{
			Metric:        target,
			Value:         int64(math.RoundToEven(float64(hh.Value) * ratio.PeoplePerHousehold)),
			Unit:          model.UnitPersons,
			Layer:         hh.Layer,
			MatchedPhrase: hh.MatchedPhrase,
			MethodValue:   model.MethodDerivedFromHouseholds,
			MethodDetails: ratio.Describe(),
			ISO3:          iso3,
			Meta:          map[string]any{"pph": ratio.PeoplePerHousehold},
		})
	}
}

// Resolver runs attribution, selection and household conversion.
type Resolver struct {
	ratios RatioLookup
}

// New creates a Resolver backed by ratios.
func New(ratios RatioLookup) *Resolver {
	return &Resolver{ratios: ratios}
}

// Resolve reduces cands to one candidate per key. inScope lists the ISO3
// codes the report covers.
func (r *Resolver) Resolve(ctx context.Context, cands []model.Candidate, inScope []string) *Set {
	set := Choose(Attribute(cands, inScope))
	ApplyHouseholdConversions(ctx, set, inScope, r.ratios)
	return set
}
