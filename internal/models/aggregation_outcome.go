package models

import "time"

// Aggregation outcome constants
const (
	OutcomeCache    = "cache"
	OutcomeStore    = "store"
	OutcomeComputed = "computed"
	OutcomeFailed   = "failed"
)

// AggregationOutcome is a per-metric count of how aggregation requests were served.
type AggregationOutcome struct {
	Metric     string
	Outcome    string
	Count      int64
	LastSeenAt time.Time
}
