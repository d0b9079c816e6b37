package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeywordPattern defines the valid keyword format: letters and digits, optionally
// joined by spaces and a small set of punctuation found in search queries.
var KeywordPattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} '&+._-]*$`)

// MaxKeywordLength bounds a tracked term in bytes.
const MaxKeywordLength = 200

// DateLayout is the calendar date format accepted by the API.
const DateLayout = "2006-01-02"

// ValidateKeyword checks if a normalized keyword matches the allowed pattern.
func ValidateKeyword(keyword string) bool {
	if keyword == "" || len(keyword) > MaxKeywordLength {
		return false
	}
	return KeywordPattern.MatchString(keyword)
}

// NormalizeKeyword lowercases a keyword and collapses runs of whitespace so
// "Running  Shoes " and "running shoes" are the same term.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// SplitKeywords parses a comma-separated keyword list, normalizing each entry
// and dropping empty ones.
func SplitKeywords(list string) []string {
	var keywords []string
	for _, part := range strings.Split(list, ",") {
		if kw := NormalizeKeyword(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(value string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseProjectID parses an opaque project identifier.
func ParseProjectID(value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ValidateLocale accepts an empty locale or a BCP 47-like tag such as "en" or "en-US".
func ValidateLocale(locale string) bool {
	return locale == "" || localePattern.MatchString(locale)
}

var localePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)
