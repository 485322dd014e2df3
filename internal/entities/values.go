package entities

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayout keeps nanoseconds fixed-width so stored strings sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp is a UTC instant stored as a fixed-width string.
// The zero value is stored as an empty string.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

// NewTimestamp wraps t, converting it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC()}
}

// String returns the stored representation.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON never fails. Null, non-string and unparseable values from
// older documents decode to the zero time, like Count does for counters.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
		t.Time = parsed.UTC()
	}
	return nil
}

// Count is a non-negative counter. Negative or non-numeric input decodes to zero
// so a malformed caller can never push a monotonic counter below zero.
type Count int

// NewCount clamps n to zero.
func NewCount(n int) Count {
	if n < 0 {
		return 0
	}
	return Count(n)
}

// Int returns the counter as an int.
func (c Count) Int() int {
	if c < 0 {
		return 0
	}
	return int(c)
}

// Add applies delta and clamps the result to zero.
func (c Count) Add(delta int) Count {
	return NewCount(c.Int() + delta)
}

func (c Count) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(c.Int())), nil
}

func (c *Count) UnmarshalJSON(data []byte) error {
	*c = ParseCount(data)
	return nil
}

// ParseCount coerces a raw JSON value (number, numeric string, anything else) to a Count.
func ParseCount(data []byte) Count {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return Count(math.MaxInt32)
	}
	return Count(int(f))
}
