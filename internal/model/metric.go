package model

import "strings"

// Metric is a raw extraction metric from the sitrep vocabulary.
type Metric string

const (
	MetricPeopleInNeed       Metric = "people_in_need"
	MetricPeopleAffected     Metric = "people_affected"
	MetricIDPs               Metric = "idps"
	MetricHouseholdsInNeed   Metric = "households_in_need"
	MetricHouseholdsAffected Metric = "households_affected"
)

// AllMetrics returns the metric vocabulary in extraction order.
func AllMetrics() []Metric {
	return []Metric{
		MetricPeopleInNeed,
		MetricPeopleAffected,
		MetricIDPs,
		MetricHouseholdsInNeed,
		MetricHouseholdsAffected,
	}
}

// IsHousehold reports whether the metric is counted in households.
func (m Metric) IsHousehold() bool {
	return strings.HasPrefix(string(m), "households")
}

// Unit returns the natural unit for the metric.
func (m Metric) Unit() Unit {
	if m.IsHousehold() {
		return UnitHouseholds
	}
	return UnitPersons
}

// PeopleEquivalent returns the person-counted metric a household metric
// converts into. ok is false for metrics that are already person counts.
func (m Metric) PeopleEquivalent() (Metric, bool) {
	switch m {
	case MetricHouseholdsInNeed:
		return MetricPeopleInNeed, true
	case MetricHouseholdsAffected:
		return MetricPeopleAffected, true
	default:
		return "", false
	}
}

// Canonical maps the raw metric onto the output vocabulary. Household
// metrics have no canonical form and map to themselves.
func (m Metric) Canonical() string {
	switch m {
	case MetricPeopleInNeed:
		return CanonicalInNeed
	case MetricPeopleAffected:
		return CanonicalAffected
	case MetricIDPs:
		return CanonicalDisplaced
	default:
		return string(m)
	}
}

// Canonical output metrics.
const (
	CanonicalInNeed    = "in_need"
	CanonicalAffected  = "affected"
	CanonicalDisplaced = "displaced"
)

// IsAcceptedCanonical reports whether s is one of the emitted output metrics.
func IsAcceptedCanonical(s string) bool {
	switch s {
	case CanonicalInNeed, CanonicalAffected, CanonicalDisplaced:
		return true
	}
	return false
}

// Unit is the counting unit of a value.
type Unit string

const (
	UnitPersons    Unit = "persons"
	UnitHouseholds Unit = "households"
)

// Layer is the structural origin of an extracted number.
type Layer string

const (
	LayerTable       Layer = "table"
	LayerInfographic Layer = "infographic"
	LayerNarrative   Layer = "narrative"
)

// Priority returns the precedence rank of the layer; lower wins.
// Unknown layers rank after every known one.
func (l Layer) Priority() int {
	switch l {
	case LayerTable:
		return 0
	case LayerInfographic:
		return 1
	case LayerNarrative:
		return 2
	default:
		return 99
	}
}

// MethodValue records whether a value was reported or derived.
type MethodValue string

const (
	MethodReported              MethodValue = "reported"
	MethodDerivedFromHouseholds MethodValue = "derived_from_households"
)
