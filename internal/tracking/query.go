package tracking

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"kwtrack/internal/models"
	"kwtrack/internal/validation"
)

const day = 24 * time.Hour

// DateRange is an inclusive range of UTC calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange truncates both ends to their UTC calendar day.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: truncateDay(from), To: truncateDay(to)}
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(from, to string) (DateRange, error) {
	f, ok := validation.ParseDate(from)
	if !ok {
		return DateRange{}, fmt.Errorf("%w: from must be a YYYY-MM-DD date", ErrInvalidRange)
	}
	t, ok := validation.ParseDate(to)
	if !ok {
		return DateRange{}, fmt.Errorf("%w: to must be a YYYY-MM-DD date", ErrInvalidRange)
	}
	r := DateRange{From: f, To: t}
	return r, r.Validate()
}

// Validate rejects ranges whose start is after their end.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidRange)
	}
	if r.From.After(r.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange,
			r.From.Format(validation.DateLayout), r.To.Format(validation.DateLayout))
	}
	return nil
}

// bounds returns the half-open instant interval [start, end) covering the range.
func (r DateRange) bounds() (time.Time, time.Time) {
	return truncateDay(r.From), truncateDay(r.To).Add(day)
}

func (r DateRange) String() string {
	return r.From.Format(validation.DateLayout) + ".." + r.To.Format(validation.DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ObservationQuery asks for the ranking history of a keyword set.
type ObservationQuery struct {
	ProjectID uuid.UUID
	Keywords  []string
	Range     DateRange
	Engine    string
	Locale    string
	Cursor    string
	Limit     int
}

// ObservationPage is one page of observations in ascending time order.
// NextCursor is empty on the last page.
type ObservationPage struct {
	Observations []models.RankingObservation `json:"observations"`
	NextCursor   string                      `json:"next_cursor,omitempty"`
}

// AggregateRequest asks for one metric over a keyword set and range.
type AggregateRequest struct {
	ProjectID   uuid.UUID
	Keywords    []string
	Range       DateRange
	Metric      string
	Granularity string
	Engine      string
	Locale      string
}

// normalizeTerms lowercases, validates, de-duplicates and sorts a keyword set.
func normalizeTerms(keywords []string) ([]string, error) {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		term := validation.NormalizeKeyword(kw)
		if term == "" {
			continue
		}
		if !validation.ValidateKeyword(term) {
			return nil, fmt.Errorf("%w: invalid keyword %q", ErrInvalidRange, kw)
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: keyword set is empty", ErrInvalidRange)
	}
	slices.Sort(terms)
	return slices.Compact(terms), nil
}

// cursor is the keyset position of the last row of a page.
type cursor struct {
	observedAt time.Time
	id         int64
}

func encodeCursor(o models.RankingObservation) string {
	raw := strconv.FormatInt(o.ObservedAt.UnixNano(), 10) + ":" + strconv.FormatInt(o.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, error) {
	if s == "" {
		return cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidRange)
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidRange)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidRange)
	}
	i, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: malformed cursor", ErrInvalidRange)
	}
	return cursor{observedAt: time.Unix(0, n).UTC(), id: i}, nil
}
