package collector

import (
	"time"

	"BiasSentinel/internal/model"
)

// aggregateWeekly folds daily bars into ISO-week bars.
func aggregateWeekly(daily []model.PriceBar) []model.PriceBar {
	return aggregate(daily, func(t time.Time) int64 {
		y, w := t.ISOWeek()
		return int64(y*100 + w)
	})
}

// resample folds bars into fixed-width buckets aligned to the Unix epoch.
func resample(bars []model.PriceBar, width time.Duration) []model.PriceBar {
	return aggregate(bars, func(t time.Time) int64 {
		return t.Unix() / int64(width/time.Second)
	})
}

func aggregate(bars []model.PriceBar, bucketOf func(time.Time) int64) []model.PriceBar {
	if len(bars) == 0 {
		return nil
	}
	var out []model.PriceBar
	cur := bars[0]
	key := bucketOf(cur.Time)

	for _, b := range bars[1:] {
		if k := bucketOf(b.Time); k != key {
			out = append(out, cur)
			cur, key = b, k
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}
