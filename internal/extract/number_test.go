package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"120,000", 120000, true},
		{"45k", 45000, true},
		{"45 K", 45000, true},
		{"1.2 million", 1200000, true},
		{"1.2m", 1200000, true},
		{"3.5M", 3500000, true},
		{"10,000+", 10000, true},
		{"1 200 000", 1200000, true},
		{"1\u00a0200\u202f000", 1200000, true},
		{"1\u202f234", 1234, true},
		{"  2,222  ", 2222, true},
		{"2.5", 2, true},
		{"3.5", 4, true},
		{"0.5k", 500, true},
		{"0.5", 0, true},
		{"-5", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
		{"45k individuals", 0, false},
		{"2025 50000", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueFromLine(t *testing.T) {
	v, ok := valueFromLine("People Affected: 45k individuals")
	assert.True(t, ok)
	assert.Equal(t, int64(45000), v)

	v, ok = valueFromLine("Total in need 1.2 million people")
	assert.True(t, ok)
	assert.Equal(t, int64(1200000), v)

	_, ok = valueFromLine("no figures here")
	assert.False(t, ok)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "1 000 people", Clean("1\u00a0000\u202fpeople"))
}
