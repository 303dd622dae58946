package attendance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name                 string
		present, late, total int
		want                 string
	}{
		{name: "no classes", want: "0.00"},
		{name: "negative total", total: -1, want: "0.00"},
		{name: "all attended", present: 8, late: 2, total: 10, want: "100.00"},
		{name: "late counts as attended", late: 1, total: 1, want: "100.00"},
		{name: "quarter", present: 5, total: 20, want: "25.00"},
		{name: "two thirds rounds half up", present: 2, total: 3, want: "66.67"},
		{name: "one third", present: 1, total: 3, want: "33.33"},
		{name: "one eighth rounds away from zero", present: 1, total: 8, want: "12.50"},
		{name: "nothing attended", total: 4, want: "0.00"},
		{name: "more attended than held is capped", present: 6, late: 6, total: 10, want: "100.00"},
		{name: "negative counts floor at zero", present: -3, total: 10, want: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentage(tt.present, tt.late, tt.total)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestBandOf(t *testing.T) {
	tests := []struct {
		pct  string
		want Band
	}{
		{pct: "100", want: BandGood},
		{pct: "75", want: BandGood},
		{pct: "74.99", want: BandWarning},
		{pct: "65", want: BandWarning},
		{pct: "64.99", want: BandPoor},
		{pct: "50", want: BandPoor},
		{pct: "49.99", want: BandCritical},
		{pct: "0", want: BandCritical},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			assert.Equal(t, tt.want, BandOf(decimal.RequireFromString(tt.pct)))
		})
	}
}

func TestBand_Below(t *testing.T) {
	assert.True(t, BandCritical.Below(BandPoor))
	assert.True(t, BandPoor.Below(BandWarning))
	assert.False(t, BandWarning.Below(BandWarning))
	assert.False(t, BandGood.Below(BandWarning))

	_, ok := ParseBand("Excellent")
	assert.False(t, ok)
	b, ok := ParseBand("Poor")
	assert.True(t, ok)
	assert.Equal(t, BandPoor, b)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   Status
		wantOk bool
	}{
		{in: "Present", want: StatusPresent, wantOk: true},
		{in: " absent ", want: StatusAbsent, wantOk: true},
		{in: "LATE", want: StatusLate, wantOk: true},
		{in: "Excused"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStatus(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
	assert.True(t, StatusLate.Attended())
	assert.True(t, StatusPresent.Attended())
	assert.False(t, StatusAbsent.Attended())
}
