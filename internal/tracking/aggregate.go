package tracking

import (
	"math"
	"time"

	"kwtrack/internal/models"
)

// DefaultPrecision is the number of decimals aggregate values are rounded to.
const DefaultPrecision = 4

type accumulator struct {
	start time.Time
	min   int
	max   int
	sum   int64
	count int
}

func (acc *accumulator) add(position int) {
	if acc.count == 0 || position < acc.min {
		acc.min = position
	}
	if acc.count == 0 || position > acc.max {
		acc.max = position
	}
	acc.sum += int64(position)
	acc.count++
}

func (acc *accumulator) value(metric string, precision int) float64 {
	if acc.count == 0 {
		return 0
	}
	switch metric {
	case models.MetricMin:
		return float64(acc.min)
	case models.MetricMax:
		return float64(acc.max)
	default:
		return round(float64(acc.sum)/float64(acc.count), precision)
	}
}

// Summarize aggregates observations into one value for metric plus one bucket
// per granularity period. Positions are summed as integers so the same input
// always yields bit-identical output. Observations must be ordered by time.
func Summarize(observations []models.RankingObservation, metric, granularity string, precision int) (float64, []models.AggregationBucket) {
	var total accumulator
	buckets := []models.AggregationBucket{}

	var current *accumulator
	flush := func() {
		if current == nil {
			return
		}
		buckets = append(buckets, models.AggregationBucket{
			Start: current.start,
			End:   periodEnd(current.start, granularity),
			Min:   current.min,
			Max:   current.max,
			Avg:   current.value(models.MetricAvg, precision),
			Count: current.count,
		})
	}

	for _, o := range observations {
		start := periodStart(o.ObservedAt, granularity)
		if current == nil || !current.start.Equal(start) {
			flush()
			current = &accumulator{start: start}
		}
		current.add(o.Position)
		total.add(o.Position)
	}
	flush()

	return total.value(metric, precision), buckets
}

// periodStart returns the UTC start of the day or ISO week (Monday) containing t.
func periodStart(t time.Time, granularity string) time.Time {
	d := truncateDay(t)
	if granularity == models.GranularityWeekly {
		offset := (int(d.Weekday()) + 6) % 7
		d = d.AddDate(0, 0, -offset)
	}
	return d
}

// periodEnd returns the exclusive end of the period starting at start.
func periodEnd(start time.Time, granularity string) time.Time {
	if granularity == models.GranularityWeekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 0, 1)
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
