package pipeline

import (
	"slices"
	"strings"
	"time"

	"github.com/sells-group/sitrep-cli/internal/extract"
)

type resourceScore struct {
	match   int
	created time.Time
	pages   int
}

func (a resourceScore) compare(b resourceScore) int {
	if a.match != b.match {
		return a.match - b.match
	}
	if c := a.created.Compare(b.created); c != 0 {
		return c
	}
	return a.pages - b.pages
}

// SelectBestPDF ranks resources by the longest preferred title contained in
// the resource label, then by created date, then by page count. Ties keep
// the earlier resource. ok is false when resources is empty.
func SelectBestPDF(resources []Resource, preferred []string) (Resource, bool) {
	if len(resources) == 0 {
		return Resource{}, false
	}
	prefs := make([]string, 0, len(preferred))
	for _, p := range preferred {
		if p = strings.ToLower(p); p != "" {
			prefs = append(prefs, p)
		}
	}

	scores := make([]resourceScore, len(resources))
	for i, r := range resources {
		scores[i] = scoreResource(r, prefs)
	}

	order := make([]int, len(resources))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return scores[b].compare(scores[a])
	})
	return resources[order[0]], true
}

func scoreResource(r Resource, prefs []string) resourceScore {
	name := strings.ToLower(extract.Clean(r.Label()))
	var s resourceScore
	for _, p := range prefs {
		if strings.Contains(name, p) {
			s.match = max(s.match, len(p))
		}
	}

	created := r.Date.Created
	if created == "" {
		created = r.Created
	}
	s.created = time.Unix(0, 0).UTC()
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		s.created = t
	}
	s.pages = max(r.PageCount, 0)
	return s
}
