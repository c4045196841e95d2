package extract

import (
	"strings"

	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/registry"
)

// Infographic searches the text following each key-figures heading for
// "<synonym>: <value>" pairs.
func Infographic(text string, _ registry.Countries) []model.Candidate {
	cleaned := Clean(text)

	var out []model.Candidate
	for _, heading := range headingPatterns {
		loc := heading.FindStringIndex(cleaned)
		if loc == nil {
			continue
		}
		rs := []rune(cleaned[loc[0]:])
		window := string(rs[:min(len(rs), infographicWindow)])
		for i, s := range synonyms {
			m := synonymPatterns[i].FindStringSubmatch(window)
			if m == nil {
				continue
			}
			v, ok := ParseNumber(m[1])
			if !ok {
				continue
			}
			out = append(out, model.NewCandidate(s.metric, v, model.LayerInfographic, strings.TrimSpace(m[0])))
		}
	}
	return out
}
