// Package aggregate derives the summary figures the dashboard header cards
// and charts display: counts, sums, percentage distributions and monthly
// trends. Everything is computed from the full snapshot in one pass and
// recomputed wholesale on every store change; snapshots are small enough
// that incremental aggregation is not worth its complexity.
package aggregate

import (
	"math"
	"time"
)

// CountByStatus partitions records into status buckets. The accessor is
// expected to normalize, so records without a status land in "pending".
// The bucket counts always sum to len(records).
func CountByStatus[T any](records []T, status func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[status(rec)]++
	}
	return counts
}

// Sum totals a numeric field. Non-numeric upstream values were already
// coerced to 0 at decode time, so the result is always a real number.
func Sum[T any](records []T, amount func(T) float64) float64 {
	var total float64
	for _, rec := range records {
		total += amount(rec)
	}
	return total
}

// Bucket is one slice of a percentage distribution.
type Bucket struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Distribution groups records by key and computes each bucket's share of the
// grand total, rounded to two decimals. Buckets keep the order in which their
// key first appeared. When the grand total is 0 every percentage is 0.
func Distribution[T any](records []T, key func(T) string, amount func(T) float64) []Bucket {
	var order []string
	index := make(map[string]int)

	for _, rec := range records {
		k := key(rec)
		i, ok := index[k]
		if !ok {
			i = len(order)
			index[k] = i
			order = append(order, k)
		}
		_ = i
	}

	buckets := make([]Bucket, len(order))
	for i, k := range order {
		buckets[i].Key = k
	}
	var grand float64
	for _, rec := range records {
		i := index[key(rec)]
		buckets[i].Count++
		buckets[i].Total += amount(rec)
		grand += amount(rec)
	}

	for i := range buckets {
		if grand > 0 {
			buckets[i].Percentage = round2(buckets[i].Total / grand * 100)
		}
		buckets[i].Total = round2(buckets[i].Total)
	}
	return buckets
}

// TrendPoint is one time bucket of a trend series.
type TrendPoint struct {
	Period string  `json:"period"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

// MonthlyTrend groups records by year-month, summing the numeric field per
// bucket. Buckets appear in the order their month was first seen, which for
// an upstream list sorted by date is chronological. Records without a
// parseable date are skipped.
func MonthlyTrend[T any](records []T, date func(T) (time.Time, bool), amount func(T) float64) []TrendPoint {
	var points []TrendPoint
	index := make(map[string]int)

	for _, rec := range records {
		d, ok := date(rec)
		if !ok {
			continue
		}
		period := d.Format("2006-01")
		i, ok := index[period]
		if !ok {
			i = len(points)
			index[period] = i
			points = append(points, TrendPoint{Period: period})
		}
		points[i].Count++
		points[i].Total = round2(points[i].Total + amount(rec))
	}
	return points
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
