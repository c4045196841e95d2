package extract

import (
	"strings"

	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/registry"
)

// Narrative matches phrasing like "12,000 people in need" anywhere in the
// text. Every match is a candidate.
func Narrative(text string, _ registry.Countries) []model.Candidate {
	text = Clean(text)
	var out []model.Candidate
	for _, p := range narrativePatterns {
		for _, m := range p.pattern.FindAllStringSubmatch(text, -1) {
			v, ok := ParseNumber(m[1])
			if !ok {
				continue
			}
			out = append(out, model.NewCandidate(p.metric, v, model.LayerNarrative, strings.TrimSpace(m[0])))
		}
	}
	return out
}
