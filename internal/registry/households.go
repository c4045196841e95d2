package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultPeoplePerHousehold is used when a country has no ratio.
const DefaultPeoplePerHousehold = 4.5

// HouseholdRatio is the people-per-household figure for one country.
type HouseholdRatio struct {
	ISO3               string
	PeoplePerHousehold float64
	Source             string
	Year               *int
	Notes              string
}

// Describe renders the ratio provenance, e.g. "PPH=5.20, source=DHS, year=2019".
func (r HouseholdRatio) Describe() string {
	bits := []string{fmt.Sprintf("PPH=%.2f", r.PeoplePerHousehold)}
	if r.Source != "" {
		bits = append(bits, "source="+r.Source)
	}
	if r.Year != nil && *r.Year != 0 {
		bits = append(bits, "year="+strconv.Itoa(*r.Year))
	}
	if r.Notes != "" {
		bits = append(bits, r.Notes)
	}
	return strings.Join(bits, ", ")
}

type overrideFile struct {
	Overrides map[string]overrideEntry `yaml:"overrides"`
}

type overrideEntry struct {
	PeoplePerHousehold *float64 `yaml:"people_per_household"`
	Source             *string  `yaml:"source"`
	Year               *int     `yaml:"year"`
	Notes              *string  `yaml:"notes"`
}

// HouseholdRatios resolves people-per-household ratios from a base table
// and a YAML override file. The table is loaded lazily on first lookup and
// cached until Invalidate.
type HouseholdRatios struct {
	tablePath     string
	overridesPath string
	fallback      float64

	mu     sync.Mutex
	table  map[string]HouseholdRatio
	loaded bool
}

// NewHouseholdRatios creates a lookup. Either path may be empty or point at
// a missing file. A non-positive fallback uses DefaultPeoplePerHousehold.
func NewHouseholdRatios(tablePath, overridesPath string, fallback float64) *HouseholdRatios {
	if fallback <= 0 {
		fallback = DefaultPeoplePerHousehold
	}
	return &HouseholdRatios{
		tablePath:     tablePath,
		overridesPath: overridesPath,
		fallback:      fallback,
	}
}

// Load reads the base table and overrides, replacing any cached state.
// Missing files are treated as empty.
func (h *HouseholdRatios) Load(ctx context.Context) error {
	table := make(map[string]HouseholdRatio)

	if exists(h.tablePath) {
		recs, err := readTable(ctx, h.tablePath)
		if err != nil {
			return eris.Wrap(err, "registry: load household ratios")
		}
		for _, rec := range recs {
			iso3 := strings.ToUpper(rec["iso3"])
			if iso3 == "" {
				continue
			}
			pph, err := strconv.ParseFloat(rec["people_per_household"], 64)
			if err != nil {
				continue
			}
			table[iso3] = HouseholdRatio{
				ISO3:               iso3,
				PeoplePerHousehold: pph,
				Source:             rec["source"],
				Year:               parseYear(rec["year"]),
				Notes:              rec["notes"],
			}
		}
	}

	if exists(h.overridesPath) {
		if err := h.applyOverrides(table); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.table = table
	h.loaded = true
	h.mu.Unlock()

	zap.L().Debug("registry: household ratios loaded", zap.Int("countries", len(table)))
	return nil
}

func (h *HouseholdRatios) applyOverrides(table map[string]HouseholdRatio) error {
	data, err := os.ReadFile(h.overridesPath)
	if err != nil {
		return eris.Wrapf(err, "registry: read overrides %s", h.overridesPath)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return eris.Wrap(err, "registry: parse overrides")
	}

	for key, o := range file.Overrides {
		iso3 := strings.ToUpper(strings.TrimSpace(key))
		if iso3 == "" || o.PeoplePerHousehold == nil {
			continue
		}
		base := table[iso3]
		r := HouseholdRatio{
			ISO3:               iso3,
			PeoplePerHousehold: *o.PeoplePerHousehold,
			Source:             base.Source,
			Year:               base.Year,
			Notes:              base.Notes,
		}
		if o.Source != nil {
			r.Source = *o.Source
		}
		if o.Year != nil {
			r.Year = o.Year
		}
		if o.Notes != nil {
			r.Notes = *o.Notes
		}
		table[iso3] = r
	}
	return nil
}

// Invalidate drops the cached table; the next Lookup reloads it.
func (h *HouseholdRatios) Invalidate() {
	h.mu.Lock()
	h.table = nil
	h.loaded = false
	h.mu.Unlock()
}

// Lookup returns the ratio for iso3: override, then base table, then the
// fallback with source "default". Load failures are logged and fall back.
func (h *HouseholdRatios) Lookup(ctx context.Context, iso3 string) HouseholdRatio {
	h.mu.Lock()
	loaded := h.loaded
	h.mu.Unlock()
	if !loaded {
		if err := h.Load(ctx); err != nil {
			zap.L().Warn("registry: household ratios unavailable, using default", zap.Error(err))
			h.mu.Lock()
			h.table = map[string]HouseholdRatio{}
			h.loaded = true
			h.mu.Unlock()
		}
	}

	key := strings.ToUpper(strings.TrimSpace(iso3))
	h.mu.Lock()
	r, ok := h.table[key]
	h.mu.Unlock()
	if ok {
		return r
	}
	if key == "" {
		key = "GLOBAL"
	}
	return HouseholdRatio{ISO3: key, PeoplePerHousehold: h.fallback, Source: "default"}
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// parseYear accepts "2019" and spreadsheet renderings like "2019.0".
func parseYear(s string) *int {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	y := int(f)
	return &y
}
