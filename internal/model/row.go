package model

import "strconv"

// Columns is the ordered output schema for extracted document rows.
var Columns = []string{
	"event_id",
	"country_name",
	"iso3",
	"hazard_code",
	"hazard_label",
	"hazard_class",
	"metric",
	"series_semantics",
	"value",
	"unit",
	"value_level",
	"as_of_date",
	"month_start",
	"publication_date",
	"publisher",
	"source_type",
	"source_url",
	"resource_url",
	"doc_title",
	"definition_text",
	"method",
	"method_value",
	"method_details",
	"extraction_layer",
	"matched_phrase",
	"tier",
	"confidence",
	"revision",
	"ingested_at",
}

// OutputRow is one emitted metric observation carrying both the raw level
// and the period delta computed against persisted state.
type OutputRow struct {
	EventID         string      `json:"event_id"`
	CountryName     string      `json:"country_name"`
	ISO3            string      `json:"iso3"`
	HazardCode      string      `json:"hazard_code"`
	HazardLabel     string      `json:"hazard_label"`
	HazardClass     string      `json:"hazard_class"`
	Metric          string      `json:"metric"`
	SeriesSemantics string      `json:"series_semantics"`
	Value           int64       `json:"value"`
	Unit            Unit        `json:"unit"`
	ValueLevel      int64       `json:"value_level"`
	AsOfDate        string      `json:"as_of_date"`
	MonthStart      string      `json:"month_start"`
	PublicationDate string      `json:"publication_date"`
	Publisher       string      `json:"publisher"`
	SourceType      string      `json:"source_type"`
	SourceURL       string      `json:"source_url"`
	ResourceURL     string      `json:"resource_url"`
	DocTitle        string      `json:"doc_title"`
	DefinitionText  string      `json:"definition_text"`
	Method          string      `json:"method"`
	MethodValue     MethodValue `json:"method_value"`
	MethodDetails   string      `json:"method_details"`
	ExtractionLayer Layer       `json:"extraction_layer"`
	MatchedPhrase   string      `json:"matched_phrase"`
	Tier            string      `json:"tier"`
	Confidence      string      `json:"confidence"`
	Revision        int         `json:"revision"`
	IngestedAt      string      `json:"ingested_at"`
}

// Record renders the row as strings in Columns order.
func (r OutputRow) Record() []string {
	return []string{
		r.EventID,
		r.CountryName,
		r.ISO3,
		r.HazardCode,
		r.HazardLabel,
		r.HazardClass,
		r.Metric,
		r.SeriesSemantics,
		strconv.FormatInt(r.Value, 10),
		string(r.Unit),
		strconv.FormatInt(r.ValueLevel, 10),
		r.AsOfDate,
		r.MonthStart,
		r.PublicationDate,
		r.Publisher,
		r.SourceType,
		r.SourceURL,
		r.ResourceURL,
		r.DocTitle,
		r.DefinitionText,
		r.Method,
		string(r.MethodValue),
		r.MethodDetails,
		string(r.ExtractionLayer),
		r.MatchedPhrase,
		r.Tier,
		r.Confidence,
		strconv.Itoa(r.Revision),
		r.IngestedAt,
	}
}

// Values renders the row as typed values in Columns order, for database sinks.
func (r OutputRow) Values() []any {
	return []any{
		r.EventID,
		r.CountryName,
		r.ISO3,
		r.HazardCode,
		r.HazardLabel,
		r.HazardClass,
		r.Metric,
		r.SeriesSemantics,
		r.Value,
		string(r.Unit),
		r.ValueLevel,
		r.AsOfDate,
		r.MonthStart,
		r.PublicationDate,
		r.Publisher,
		r.SourceType,
		r.SourceURL,
		r.ResourceURL,
		r.DocTitle,
		r.DefinitionText,
		r.Method,
		string(r.MethodValue),
		r.MethodDetails,
		string(r.ExtractionLayer),
		r.MatchedPhrase,
		r.Tier,
		r.Confidence,
		r.Revision,
		r.IngestedAt,
	}
}
