// Package pipeline turns one report into output rows: it selects the PDF
// attachment, recovers its text, extracts and resolves candidates, and
// builds rows against persisted level state.
package pipeline

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Report is one situation report with its attachments.
type Report struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	URL        string          `json:"url"`
	Source     string          `json:"source"`
	SourceType string          `json:"source_type"`
	Countries  []ReportCountry `json:"countries"`
	Hazard     Hazard          `json:"hazard"`
	Date       ReportDate      `json:"date"`
	Files      []Resource      `json:"files"`
}

// ReportCountry names a country tagged on the report.
type ReportCountry struct {
	Name      string `json:"name"`
	Shortname string `json:"shortname"`
}

// Hazard classifies the shock a report covers.
type Hazard struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Class string `json:"class"`
}

// ReportDate holds ISO 8601 timestamps.
type ReportDate struct {
	Created string `json:"created"`
	Changed string `json:"changed"`
}

// Resource is one file attached to a report.
type Resource struct {
	URL         string     `json:"url"`
	Href        string     `json:"href"`
	MimeType    string     `json:"mime_type"`
	Mimetype    string     `json:"mimetype"`
	ContentType string     `json:"content_type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Title       string     `json:"title"`
	Date        ReportDate `json:"date"`
	Created     string     `json:"created"`
	PageCount   int        `json:"page_count"`
}

// Location returns the download URL.
func (r Resource) Location() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Href
}

// Mime returns the lower-cased media type from whichever field is set.
func (r Resource) Mime() string {
	for _, m := range []string{r.MimeType, r.Mimetype, r.ContentType} {
		if m != "" {
			return strings.ToLower(m)
		}
	}
	return ""
}

// Label returns the name, description or title, first non-empty wins.
func (r Resource) Label() string {
	for _, s := range []string{r.Name, r.Description, r.Title} {
		if s != "" {
			return s
		}
	}
	return ""
}

// CountryNames returns each tagged country's name or short name.
func (r Report) CountryNames() []string {
	var out []string
	for _, c := range r.Countries {
		n := c.Name
		if n == "" {
			n = c.Shortname
		}
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// PDFResources returns the attachments whose media type mentions pdf.
func (r Report) PDFResources() []Resource {
	var out []Resource
	for _, f := range r.Files {
		if strings.Contains(f.Mime(), "pdf") {
			out = append(out, f)
		}
	}
	return out
}

// LoadReports reads a JSON file holding one report object or an array of
// reports.
func LoadReports(path string) ([]Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var reports []Report
		if err := json.Unmarshal(data, &reports); err != nil {
			return nil, eris.Wrapf(err, "pipeline: decode %s", path)
		}
		return reports, nil
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, eris.Wrapf(err, "pipeline: decode %s", path)
	}
	return []Report{rep}, nil
}
