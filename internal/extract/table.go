package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/registry"
)

var wideGap = regexp.MustCompile(`\s{2,}`)

// splitCells splits a line on '|', tab, or runs of two or more spaces,
// using the first separator present. It returns nil for plain prose.
func splitCells(line string) []string {
	var parts []string
	switch {
	case strings.Contains(line, "|"):
		parts = strings.Split(line, "|")
	case strings.Contains(line, "\t"):
		parts = strings.Split(line, "\t")
	case wideGap.MatchString(line):
		parts = wideGap.Split(line, -1)
	default:
		return nil
	}
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

type column struct {
	metric model.Metric
	index  int
}

// headerColumns maps metrics to the first cell equal to one of their
// synonyms. Later synonyms of the same metric take precedence.
func headerColumns(cells []string) []column {
	lowered := make([]string, len(cells))
	for i, c := range cells {
		lowered[i] = strings.ToLower(c)
	}

	var cols []column
	pos := make(map[model.Metric]int)
	for _, s := range synonyms {
		idx := indexOf(lowered, s.phrase)
		if idx < 0 {
			continue
		}
		if p, ok := pos[s.metric]; ok {
			cols[p].index = idx
			continue
		}
		pos[s.metric] = len(cols)
		cols = append(cols, column{metric: s.metric, index: idx})
	}
	return cols
}

func indexOf(cells []string, want string) int {
	for i, c := range cells {
		if c == want {
			return i
		}
	}
	return -1
}

// Table reads metric columns from the first row whose cells name a metric,
// tying each later row to a country by its first cell. Without such a
// header it falls back to scanning lines for a synonym and an inline
// figure; those key-figure lines are tagged infographic.
func Table(text string, countries registry.Countries) []model.Candidate {
	lines := strings.Split(Clean(text), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}

	header := -1
	var cols []column
	for i, line := range lines {
		cells := splitCells(line)
		if len(cells) < 2 {
			continue
		}
		if cols = headerColumns(cells); len(cols) > 0 {
			header = i
			break
		}
	}

	if header < 0 {
		return keyFigureLines(lines)
	}

	var out []model.Candidate
	for _, line := range lines[header+1:] {
		cells := splitCells(line)
		if len(cells) < 2 {
			continue
		}
		iso3, _ := countries.MatchCell(cells[0])
		for _, col := range cols {
			if col.index >= len(cells) {
				continue
			}
			v, ok := ParseNumber(cells[col.index])
			if !ok {
				continue
			}
			c := model.NewCandidate(col.metric, v, model.LayerTable, strings.TrimSpace(line))
			c.ISO3 = iso3
			out = append(out, c)
		}
	}
	return out
}

// keyFigureLines emits one candidate per metric whose synonym appears in a
// line carrying a number.
func keyFigureLines(lines []string) []model.Candidate {
	var out []model.Candidate
	for _, line := range lines {
		if line == "" {
			continue
		}
		low := strings.ToLower(line)
		for _, m := range model.AllMetrics() {
			if !mentions(low, m) {
				continue
			}
			v, ok := valueFromLine(line)
			if !ok {
				continue
			}
			out = append(out, model.NewCandidate(m, v, model.LayerInfographic, strings.TrimSpace(line)))
		}
	}
	return out
}

func mentions(lowered string, m model.Metric) bool {
	for _, s := range synonyms {
		if s.metric == m && strings.Contains(lowered, s.phrase) {
			return true
		}
	}
	return false
}
