// Package resolve picks one candidate per (country, metric) key and
// derives people counts from household counts.
package resolve

import "github.com/sells-group/sitrep-cli/internal/model"

// Set holds at most one candidate per key, iterated in first-insert order.
type Set struct {
	keys  []model.CandidateKey
	byKey map[model.CandidateKey]model.Candidate
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{byKey: make(map[model.CandidateKey]model.Candidate)}
}

// Get returns the candidate stored under k.
func (s *Set) Get(k model.CandidateKey) (model.Candidate, bool) {
	c, ok := s.byKey[k]
	return c, ok
}

// Has reports whether k is present.
func (s *Set) Has(k model.CandidateKey) bool {
	_, ok := s.byKey[k]
	return ok
}

// Put stores c under its key. A replaced key keeps its original position.
func (s *Set) Put(c model.Candidate) {
	k := c.Key()
	if _, ok := s.byKey[k]; !ok {
		s.keys = append(s.keys, k)
	}
	s.byKey[k] = c
}

// Len returns the number of keys.
func (s *Set) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
func (s *Set) Keys() []model.CandidateKey {
	out := make([]model.CandidateKey, len(s.keys))
	copy(out, s.keys)
	return out
}

// Candidates returns the stored candidates in insertion order.
func (s *Set) Candidates() []model.Candidate {
	out := make([]model.Candidate, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.byKey[k]
	}
	return out
}
