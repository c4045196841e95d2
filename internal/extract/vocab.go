// Package extract pulls metric candidates out of recovered report text
// using independent table, infographic and narrative strategies.
package extract

import (
	"regexp"

	"github.com/sells-group/sitrep-cli/internal/model"
)

// synonym binds a lower-case phrase to the metric it names.
type synonym struct {
	metric model.Metric
	phrase string
}

// synonyms lists metric phrases in match order.
var synonyms = []synonym{
	{model.MetricPeopleInNeed, "people in need"},
	{model.MetricPeopleInNeed, "in need"},
	{model.MetricPeopleInNeed, "total in need"},
	{model.MetricPeopleInNeed, "pin"},
	{model.MetricPeopleAffected, "people affected"},
	{model.MetricPeopleAffected, "affected people"},
	{model.MetricPeopleAffected, "population affected"},
	{model.MetricIDPs, "internally displaced"},
	{model.MetricIDPs, "idp"},
	{model.MetricIDPs, "displaced (internal)"},
	{model.MetricIDPs, "displaced persons"},
	{model.MetricHouseholdsInNeed, "households in need"},
	{model.MetricHouseholdsInNeed, "hh in need"},
	{model.MetricHouseholdsAffected, "households affected"},
	{model.MetricHouseholdsAffected, "hh affected"},
}

// infographicHeadings introduce key-figure panels.
var infographicHeadings = []string{
	"key figures",
	"key figure",
	"at a glance",
	"snapshot",
}

var headingPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(infographicHeadings))
	for i, h := range infographicHeadings {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(h))
	}
	return out
}()

// infographicWindow is how many characters after a heading are searched.
const infographicWindow = 400

// synonymPatterns matches "<synonym>: <rest of line>" per synonym.
var synonymPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(synonyms))
	for i, s := range synonyms {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(s.phrase) + `[\s:]+([^\n]+)`)
	}
	return out
}()

const numberToken = `[0-9][0-9.,\s]*\+?(?:\s*(?:k|m|million))?`

// narrativePatterns match free-text phrasing such as "1.2 million people in need".
var narrativePatterns = []struct {
	metric  model.Metric
	pattern *regexp.Regexp
}{
	{model.MetricPeopleInNeed, regexp.MustCompile(`(?i)(` + numberToken + `)\s+people\s+in\s+need`)},
	{model.MetricPeopleAffected, regexp.MustCompile(`(?i)(` + numberToken + `)\s+(?:people|persons)\s+affected`)},
	{model.MetricIDPs, regexp.MustCompile(`(?i)(` + numberToken + `)\s+(?:idps?|internally displaced)`)},
}
