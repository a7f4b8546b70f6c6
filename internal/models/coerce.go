package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Amount is a monetary value that tolerates the upstream API's loose typing.
// Some endpoints return numbers, others numeric strings, and a few return
// placeholders like "N/A". Anything that cannot be parsed decodes as 0 so
// sums and percentages never see NaN.
type Amount float64

// UnmarshalJSON accepts JSON numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(parseAmountString(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

// Float64 returns the coerced numeric value.
func (a Amount) Float64() float64 {
	return float64(a)
}

func parseAmountString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// timeLayouts lists the formats the upstream API has been observed to emit.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp wraps time.Time with tolerant JSON decoding. Malformed or
// missing values decode as the zero time with Valid=false; predicates and
// aggregations treat such records as having no date.
type Timestamp struct {
	time.Time
	Valid bool
}

// UnmarshalJSON accepts the known upstream layouts, numbers are rejected.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Timestamp{}
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*t = Timestamp{}
		return nil
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp{Time: parsed, Valid: true}
			return nil
		}
	}

	*t = Timestamp{}
	return nil
}

// MarshalJSON emits RFC3339 or null for unset timestamps.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// NewTimestamp builds a valid Timestamp from a time.Time.
func NewTimestamp(ts time.Time) Timestamp {
	return Timestamp{Time: ts, Valid: true}
}
