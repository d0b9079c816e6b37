package tracking

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Key identifies an aggregation by project, keyword set, range, metric,
// granularity and engine/locale filters. Keywords must already be normalized
// and sorted so that equal sets produce equal keys.
func Key(req AggregateRequest) string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	write(req.ProjectID.String(), strconv.Itoa(len(req.Keywords)))
	write(req.Keywords...)
	write(req.Range.String(), req.Metric, req.Granularity, req.Engine, req.Locale)
	return "agg:" + hex.EncodeToString(h.Sum(nil))
}
