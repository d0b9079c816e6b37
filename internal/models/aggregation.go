package models

import (
	"time"

	"github.com/google/uuid"
)

// Aggregation metrics
const (
	MetricAvg = "avg"
	MetricMin = "min"
	MetricMax = "max"
)

// Aggregation granularities
const (
	GranularityDaily  = "daily"
	GranularityWeekly = "weekly"
)

// Metrics lists every supported metric in report order.
var Metrics = []string{MetricAvg, MetricMin, MetricMax}

// IsValidMetric reports whether m names a supported metric.
func IsValidMetric(m string) bool {
	return m == MetricAvg || m == MetricMin || m == MetricMax
}

// IsValidGranularity reports whether g names a supported granularity.
func IsValidGranularity(g string) bool {
	return g == GranularityDaily || g == GranularityWeekly
}

// AggregationBucket summarizes the observations falling in one period.
// Min is the best (numerically lowest) position, Max the worst.
type AggregationBucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Min   int       `json:"min"`
	Max   int       `json:"max"`
	Avg   float64   `json:"avg"`
	Count int       `json:"count"`
}

// AggregationWindow is a derived summary over RankingObservation facts.
// It is never authoritative and can be recomputed at any time.
type AggregationWindow struct {
	Key         string              `json:"key"`
	ProjectID   uuid.UUID           `json:"project_id"`
	Keywords    []string            `json:"keywords"`
	RangeStart  time.Time           `json:"range_start"`
	RangeEnd    time.Time           `json:"range_end"`
	Metric      string              `json:"metric"`
	Granularity string              `json:"granularity"`
	Engine      string              `json:"engine,omitempty"`
	Locale      string              `json:"locale,omitempty"`
	Value       float64             `json:"value"`
	SampleCount int                 `json:"sample_count"`
	Buckets     []AggregationBucket `json:"buckets"`
	ComputedAt  time.Time           `json:"computed_at"`
}

// Age returns how long ago the window was computed.
func (w *AggregationWindow) Age(now time.Time) time.Duration {
	return now.Sub(w.ComputedAt)
}

// IsFresh returns true if the window was computed less than maxAge before now.
func (w *AggregationWindow) IsFresh(now time.Time, maxAge time.Duration) bool {
	return w.Age(now) < maxAge
}
