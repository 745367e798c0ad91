package yahoo

import "time"

// ParseBars converts a chart result into daily bars.
// Sessions with any missing OHLC value are skipped; a missing volume reads as zero.
func ParseBars(res ChartResult) []Bar {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]

	var out []Bar
	for i, ts := range res.Timestamp {
		open, ok1 := at(q.Open, i)
		high, ok2 := at(q.High, i)
		low, ok3 := at(q.Low, i)
		closeVal, ok4 := at(q.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // skip incomplete row
		}

		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}

		out = append(out, Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeVal,
			Volume: volume,
		})
	}
	return out
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}
