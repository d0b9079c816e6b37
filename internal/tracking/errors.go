package tracking

import "errors"

var (
	// ErrInvalidRange marks malformed input: an empty keyword set, a range whose
	// start is after its end, or an unknown metric or granularity.
	ErrInvalidRange = errors.New("invalid query range")

	// ErrNotFound means no keyword of the requested set exists in the project.
	ErrNotFound = errors.New("no matching keyword")

	// ErrComputation means the data store was unreachable or timed out. Callers may retry.
	ErrComputation = errors.New("aggregation computation failed")
)
