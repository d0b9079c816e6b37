// Package tracking is the read and aggregation layer over keyword ranking history.
//
// An Accessor turns keyword-set and date-range queries into paginated reads of
// RankingObservation facts. A Planner answers aggregation requests from the
// result cache, from a fresh persisted AggregationWindow, or by computing the
// window from observations, coalescing concurrent identical computations.
package tracking
