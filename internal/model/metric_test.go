package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetric_UnitAndHousehold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnitPersons, MetricPeopleInNeed.Unit())
	assert.Equal(t, UnitPersons, MetricIDPs.Unit())
	assert.Equal(t, UnitHouseholds, MetricHouseholdsAffected.Unit())
	assert.True(t, MetricHouseholdsInNeed.IsHousehold())
	assert.False(t, MetricPeopleAffected.IsHousehold())
}

func TestMetric_PeopleEquivalent(t *testing.T) {
	t.Parallel()

	m, ok := MetricHouseholdsInNeed.PeopleEquivalent()
	assert.True(t, ok)
	assert.Equal(t, MetricPeopleInNeed, m)

	m, ok = MetricHouseholdsAffected.PeopleEquivalent()
	assert.True(t, ok)
	assert.Equal(t, MetricPeopleAffected, m)

	_, ok = MetricIDPs.PeopleEquivalent()
	assert.False(t, ok)
}

func TestMetric_Canonical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		metric Metric
		want   string
		accept bool
	}{
		{MetricPeopleInNeed, "in_need", true},
		{MetricPeopleAffected, "affected", true},
		{MetricIDPs, "displaced", true},
		{MetricHouseholdsInNeed, "households_in_need", false},
		{MetricHouseholdsAffected, "households_affected", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			got := tt.metric.Canonical()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.accept, IsAcceptedCanonical(got))
		})
	}
}

func TestLayer_Priority(t *testing.T) {
	t.Parallel()

	assert.Less(t, LayerTable.Priority(), LayerInfographic.Priority())
	assert.Less(t, LayerInfographic.Priority(), LayerNarrative.Priority())
	assert.Equal(t, 99, Layer("unknown").Priority())
}

func TestNewCandidate_Defaults(t *testing.T) {
	t.Parallel()

	c := NewCandidate(MetricHouseholdsAffected, 1000, LayerTable, "Somalia | 1,000")
	assert.Equal(t, UnitHouseholds, c.Unit)
	assert.Equal(t, MethodReported, c.MethodValue)
	assert.Equal(t, CandidateKey{Metric: MetricHouseholdsAffected}, c.Key())
}

func TestOutputRow_RecordMatchesColumns(t *testing.T) {
	t.Parallel()

	row := OutputRow{
		EventID:         "abc",
		ISO3:            "SOM",
		Value:           500,
		ValueLevel:      1500,
		Unit:            UnitPersons,
		MethodValue:     MethodReported,
		ExtractionLayer: LayerTable,
		Revision:        1,
	}
	rec := row.Record()
	assert.Len(t, rec, len(Columns))
	assert.Len(t, row.Values(), len(Columns))

	byCol := make(map[string]string, len(Columns))
	for i, c := range Columns {
		byCol[c] = rec[i]
	}
	assert.Equal(t, "abc", byCol["event_id"])
	assert.Equal(t, "500", byCol["value"])
	assert.Equal(t, "1500", byCol["value_level"])
	assert.Equal(t, "table", byCol["extraction_layer"])
	assert.Equal(t, "1", byCol["revision"])
}
