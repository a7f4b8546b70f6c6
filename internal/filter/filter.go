// Package filter implements the predicate filtering the dashboard applies to
// every record list: free-text search combined with status, category, date
// and amount criteria. All predicates AND together; a predicate left unset
// is always true. Filtering never mutates the input slice.
package filter

import (
	"strings"
	"time"
)

// State holds the criteria for one screen. Zero values mean "no restriction":
// empty search text, nil bounds and empty sets all match everything.
type State struct {
	Search     string
	DateFrom   *time.Time // inclusive lower bound
	DateTo     *time.Time // inclusive upper bound
	Statuses   []string
	Categories []string
	AmountMin  *float64
	AmountMax  *float64
}

// IsZero reports whether no criteria are set.
func (s State) IsZero() bool {
	return s.Search == "" &&
		s.DateFrom == nil && s.DateTo == nil &&
		len(s.Statuses) == 0 && len(s.Categories) == 0 &&
		s.AmountMin == nil && s.AmountMax == nil
}

// Fields describes how to read the filterable fields of a record type. A nil
// accessor means the screen does not expose that predicate; the corresponding
// criteria are ignored for it.
type Fields[T any] struct {
	// Search returns the values the free-text search matches against.
	// The match is a case-insensitive substring test, OR across fields.
	Search func(T) []string
	// Date returns the record's date and whether it is usable. Records
	// without a parseable date fail any date-bounded filter.
	Date func(T) (time.Time, bool)
	// Amount returns the record's numeric value, already coerced so that
	// non-numeric upstream values compare as 0.
	Amount func(T) float64
	// Status returns the record's normalized status.
	Status func(T) string
	// Category returns the record's normalized category.
	Category func(T) string
}

// Apply returns the subsequence of records matching every set criterion.
// The input is never modified; an empty input yields an empty result.
func Apply[T any](records []T, state State, fields Fields[T]) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if Matches(rec, state, fields) {
			out = append(out, rec)
		}
	}
	return out
}

// Matches reports whether a single record satisfies every set criterion.
func Matches[T any](rec T, state State, fields Fields[T]) bool {
	if state.Search != "" && fields.Search != nil {
		if !matchesSearch(fields.Search(rec), state.Search) {
			return false
		}
	}

	if (state.DateFrom != nil || state.DateTo != nil) && fields.Date != nil {
		date, ok := fields.Date(rec)
		if !ok {
			return false
		}
		if state.DateFrom != nil && date.Before(*state.DateFrom) {
			return false
		}
		if state.DateTo != nil && date.After(*state.DateTo) {
			return false
		}
	}

	if len(state.Statuses) > 0 && fields.Status != nil {
		if !containsFold(state.Statuses, fields.Status(rec)) {
			return false
		}
	}

	if len(state.Categories) > 0 && fields.Category != nil {
		if !containsFold(state.Categories, fields.Category(rec)) {
			return false
		}
	}

	if (state.AmountMin != nil || state.AmountMax != nil) && fields.Amount != nil {
		amount := fields.Amount(rec)
		if state.AmountMin != nil && amount < *state.AmountMin {
			return false
		}
		if state.AmountMax != nil && amount > *state.AmountMax {
			return false
		}
	}

	return true
}

func matchesSearch(values []string, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func containsFold(set []string, value string) bool {
	for _, s := range set {
		if strings.EqualFold(s, value) {
			return true
		}
	}
	return false
}
