package rows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2025, 9, 14, 10, 30, 0, 0, time.UTC)

func TestPickDates(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		created string
		changed string
		want    Dates
	}{
		{
			name: "reporting period end",
			text: "Flash Update\nReporting period: 01–31 Aug 2025\nKey figures",
			want: Dates{AsOf: "2025-08-31", Publication: "2025-08-31"},
		},
		{
			name: "coverage period with hyphen and full month",
			text: "Coverage Period 1 - 15 September 2024",
			want: Dates{AsOf: "2024-09-15", Publication: "2024-09-15"},
		},
		{
			name: "iso range",
			text: "Reporting period: 2025-08-01 - 2025-08-31\n",
			want: Dates{AsOf: "2025-08-31", Publication: "2025-08-31"},
		},
		{
			name: "ordinal suffix",
			text: "Reporting period: 1st - 21st March 2025",
			want: Dates{AsOf: "2025-03-21", Publication: "2025-03-21"},
		},
		{
			name: "report date",
			text: "Situation Report No. 4\nReport date: 12 Jul 2025\n",
			want: Dates{AsOf: "2025-07-12", Publication: "2025-07-12"},
		},
		{
			name: "report date iso",
			text: "REPORT DATE 2025/02/03",
			want: Dates{AsOf: "2025-02-03", Publication: "2025-02-03"},
		},
		{
			name:    "unparsable period falls through to created",
			text:    "Reporting period: ongoing",
			created: "2025-06-01T08:00:00+00:00",
			changed: "2025-06-03T09:00:00+00:00",
			want:    Dates{AsOf: "2025-06-01", Publication: "2025-06-03"},
		},
		{
			name:    "changed only",
			changed: "2025-05-05T00:00:00Z",
			want:    Dates{AsOf: "2025-05-05", Publication: "2025-05-05"},
		},
		{
			name:    "created only",
			created: "2025-04-04T00:00:00Z",
			want:    Dates{AsOf: "2025-04-04", Publication: "2025-04-04"},
		},
		{
			name: "today",
			text: "no dates here",
			want: Dates{AsOf: "2025-09-14", Publication: "2025-09-14"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickDates(tt.text, tt.created, tt.changed, fixedNow))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"31 Aug 2025", "2025-08-31", true},
		{" 31 August 2025 ", "2025-08-31", true},
		{"3 aug 25", "2025-08-03", true},
		{"2nd  February 2024", "2024-02-02", true},
		{"2025-08-31", "2025-08-31", true},
		{"2025/08/31", "2025-08-31", true},
		{"2025-08-31T12:00:00Z", "2025-08-31", true},
		{"2025-08-31T12:00:00", "2025-08-31", true},
		{"31\u00a0Aug\u00a02025", "2025-08-31", true},
		{"", "", false},
		{"Aug 2025", "", false},
		{"soon", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestMonthStart(t *testing.T) {
	assert.Equal(t, "2025-08-01", MonthStart("2025-08-31"))
	assert.Equal(t, "2024-02-01", MonthStart("2024-02-29T10:00:00Z"))
	assert.Equal(t, "", MonthStart("not a date"))
	assert.Equal(t, "", MonthStart(""))
}

func TestStableDigest(t *testing.T) {
	a := StableDigest([]string{"SOM", "FL", "affected", "2025-08-31", "45000", "https://x/a.pdf"}, 16)
	b := StableDigest([]string{"SOM", "FL", "affected", "2025-08-31", "45000", "https://x/a.pdf"}, 16)
	c := StableDigest([]string{"SOM", "FL", "affected", "2025-08-31", "45001", "https://x/a.pdf"}, 16)

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Known vector: sha256("a|b").
	assert.Equal(t, "0eab8a0a", StableDigest([]string{"a", "b"}, 8))
	assert.Len(t, StableDigest([]string{"x"}, 0), 64)
	assert.Len(t, StableDigest([]string{"x"}, 100), 64)
}
