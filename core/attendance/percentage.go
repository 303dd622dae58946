package attendance

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percentage returns (present + late) / total * 100 rounded half away from zero to 2 places,
// or exactly 0 when total is not positive. Attended classes are clamped to [0, total], so the
// result always lies in [0, 100].
func Percentage(present, late, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	attended := min(max(present+late, 0), total)
	return decimal.NewFromInt(int64(attended)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}

// Band labels a percentage. Each band includes its lower bound.
type Band string

const (
	BandCritical Band = "Critical"
	BandPoor     Band = "Poor"
	BandWarning  Band = "Warning"
	BandGood     Band = "Good"
)

var (
	poorFloor    = decimal.NewFromInt(50)
	warningFloor = decimal.NewFromInt(65)
	goodFloor    = decimal.NewFromInt(75)

	bandRanks = map[Band]int{BandCritical: 0, BandPoor: 1, BandWarning: 2, BandGood: 3}
)

func BandOf(pct decimal.Decimal) Band {
	switch {
	case pct.GreaterThanOrEqual(goodFloor):
		return BandGood
	case pct.GreaterThanOrEqual(warningFloor):
		return BandWarning
	case pct.GreaterThanOrEqual(poorFloor):
		return BandPoor
	}
	return BandCritical
}

// Below reports whether b is a worse band than other.
func (b Band) Below(other Band) bool {
	return bandRanks[b] < bandRanks[other]
}

// ParseBand parses a band label; unknown labels yield ok == false.
func ParseBand(s string) (Band, bool) {
	b := Band(s)
	_, ok := bandRanks[b]
	return b, ok
}
