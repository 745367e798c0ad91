package yahoo

import "fmt"

// ChartRange is the lookback window requested from the chart endpoint.
type ChartRange string

const (
	Range1Day    ChartRange = "1d"
	Range5Days   ChartRange = "5d"
	Range1Month  ChartRange = "1mo"
	Range3Months ChartRange = "3mo"
	Range6Months ChartRange = "6mo"
	Range1Year   ChartRange = "1y"
)

// rangeDays maps each range to the number of calendar days it covers.
var rangeDays = map[ChartRange]int{
	Range1Day:    1,
	Range5Days:   5,
	Range1Month:  31,
	Range3Months: 92,
	Range6Months: 183,
	Range1Year:   366,
}

// IntervalDaily is the only bar interval the core requests.
const IntervalDaily = "1d"

// IsValid checks if the ChartRange is a predefined range
func (r ChartRange) IsValid() bool {
	_, ok := rangeDays[r]
	return ok
}

// RangeForDays returns the smallest predefined range covering days.
func RangeForDays(days int) (ChartRange, error) {
	if days <= 0 {
		return "", fmt.Errorf("invalid lookback: %d days", days)
	}
	best := ChartRange("")
	for r, n := range rangeDays {
		if n < days {
			continue
		}
		if best == "" || n < rangeDays[best] {
			best = r
		}
	}
	if best == "" {
		return "", fmt.Errorf("lookback too long: %d days", days)
	}
	return best, nil
}
