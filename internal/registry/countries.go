package registry

import (
	"context"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country pairs a display name with its ISO3 code.
type Country struct {
	Name string
	ISO3 string
}

// Countries is an ordered country table. Order matters: containment
// matching returns the first hit.
type Countries []Country

// LoadCountries reads a country_name,iso3 table. Rows missing either
// field are skipped.
func LoadCountries(ctx context.Context, path string) (Countries, error) {
	recs, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}

	var out Countries
	for i, rec := range recs {
		name, iso3 := rec["country_name"], strings.ToUpper(rec["iso3"])
		if name == "" || iso3 == "" {
			zap.L().Debug("registry: skipping country row", zap.Int("row", i+2))
			continue
		}
		out = append(out, Country{Name: name, ISO3: iso3})
	}
	if len(out) == 0 {
		return nil, eris.Errorf("registry: no countries in %s", path)
	}
	return out, nil
}

// Fold lower-cases s and strips combining marks, so "Côte d'Ivoire" and
// "cote d'ivoire" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Lookup finds a country by exact folded name.
func (cs Countries) Lookup(name string) (Country, bool) {
	want := Fold(name)
	if want == "" {
		return Country{}, false
	}
	for _, c := range cs {
		if Fold(c.Name) == want {
			return c, true
		}
	}
	return Country{}, false
}

// Resolve maps report country names onto the table, dropping unknown
// names and duplicate ISO3 codes while keeping order.
func (cs Countries) Resolve(names []string) Countries {
	seen := make(map[string]bool)
	var out Countries
	for _, n := range names {
		c, ok := cs.Lookup(n)
		if !ok {
			zap.L().Debug("registry: unknown country", zap.String("name", n))
			continue
		}
		if seen[c.ISO3] {
			continue
		}
		seen[c.ISO3] = true
		out = append(out, c)
	}
	return out
}

// MatchCell returns the ISO3 of the first country whose name or code is
// contained in cell, ignoring case and diacritics.
func (cs Countries) MatchCell(cell string) (string, bool) {
	folded := Fold(cell)
	if folded == "" {
		return "", false
	}
	for _, c := range cs {
		if n := Fold(c.Name); n != "" && strings.Contains(folded, n) {
			return c.ISO3, true
		}
		if c.ISO3 != "" && strings.Contains(folded, strings.ToLower(c.ISO3)) {
			return c.ISO3, true
		}
	}
	return "", false
}

// Name returns the display name for iso3, or "" when absent.
func (cs Countries) Name(iso3 string) string {
	for _, c := range cs {
		if c.ISO3 == iso3 {
			return c.Name
		}
	}
	return ""
}

// ISO3s returns the codes in table order.
func (cs Countries) ISO3s() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ISO3
	}
	return out
}
