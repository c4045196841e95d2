package model

// Candidate is a single metric observation pulled from recovered text.
// ISO3 is empty when the observation could not be tied to a country.
type Candidate struct {
	Metric        Metric         `json:"metric"`
	Value         int64          `json:"value"`
	Unit          Unit           `json:"unit"`
	Layer         Layer          `json:"layer"`
	MatchedPhrase string         `json:"matched_phrase"`
	MethodValue   MethodValue    `json:"method_value"`
	MethodDetails string         `json:"method_details,omitempty"`
	ISO3          string         `json:"iso3,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// NewCandidate builds a reported candidate with the unit implied by the metric.
func NewCandidate(metric Metric, value int64, layer Layer, phrase string) Candidate {
	return Candidate{
		Metric:        metric,
		Value:         value,
		Unit:          metric.Unit(),
		Layer:         layer,
		MatchedPhrase: phrase,
		MethodValue:   MethodReported,
	}
}

// CandidateKey identifies one resolution slot.
type CandidateKey struct {
	ISO3   string
	Metric Metric
}

// Key returns the resolution slot for the candidate.
func (c Candidate) Key() CandidateKey {
	return CandidateKey{ISO3: c.ISO3, Metric: c.Metric}
}
