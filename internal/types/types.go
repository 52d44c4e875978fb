// =============================================================================
// Attendance Dashboard - Shared Types
// =============================================================================
//
// This package contains the canonical record model shared by every other
// package. Keeping it here avoids import cycles between:
//   - csvparser / xlsxparser (producers)
//   - metrics / query (pure consumers)
//   - store / validation (owners)
//   - exporter / presentation (adapters)
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// COUNT
// =============================================================================

// Count is a non-negative class count that may be missing or malformed.
//
// A Count with Valid == false is the "not-a-number" sentinel produced when
// the source text could not be coerced. It is propagated as-is, never
// defaulted to zero, so downstream consumers can flag the row.
type Count struct {
	Value int
	Valid bool
}

// NewCount returns a valid Count holding n.
func NewCount(n int) Count {
	return Count{Value: n, Valid: true}
}

// InvalidCount returns the not-a-number sentinel.
func InvalidCount() Count {
	return Count{}
}

// ParseCount coerces text into a Count. Surrounding whitespace is ignored.
// Integral decimals such as "30.0" or "1e1" are accepted. Empty text,
// fractions and anything else yield the invalid sentinel.
func ParseCount(s string) Count {
	s = strings.TrimSpace(s)
	if s == "" {
		return InvalidCount()
	}
	if n, err := strconv.Atoi(s); err == nil {
		return NewCount(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return InvalidCount()
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return InvalidCount()
	}
	return NewCount(int(f))
}

// String renders the count the way the CSV serializer writes it.
func (c Count) String() string {
	if !c.Valid {
		return "NaN"
	}
	return strconv.Itoa(c.Value)
}

// MarshalJSON encodes an invalid count as null.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.Value)), nil
}

// UnmarshalJSON accepts a JSON number or null.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = InvalidCount()
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("count must be a number or null: %w", err)
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("count must be an integer: %w", err)
	}
	*c = NewCount(int(v))
	return nil
}

// =============================================================================
// ATTENDANCE RECORD
// =============================================================================

// Record is one student's attendance snapshot.
//
// The JSON field names match the persisted snapshot format
// ({id, name, dept, total, attended}).
type Record struct {
	// ID is the externally supplied identifier. Uniqueness is not enforced.
	ID string `json:"id" validate:"required"`

	// Name may contain commas in source text.
	Name string `json:"name" validate:"required"`

	// Department is free text and is used as the grouping/filter key.
	Department string `json:"dept" validate:"required"`

	// TotalClasses is the number of scheduled sessions.
	TotalClasses Count `json:"total"`

	// AttendedClasses is the number of sessions attended.
	AttendedClasses Count `json:"attended"`
}

// NewRecord builds a record from plain integers.
func NewRecord(id, name, department string, total, attended int) Record {
	return Record{
		ID:              id,
		Name:            name,
		Department:      department,
		TotalClasses:    NewCount(total),
		AttendedClasses: NewCount(attended),
	}
}

// Normalize returns a copy with surrounding whitespace removed from the
// text fields, the same way the parser trims imported fields.
func (r Record) Normalize() Record {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	r.Department = strings.TrimSpace(r.Department)
	return r
}

// Matches reports whether the record has exactly this id and name.
func (r Record) Matches(id, name string) bool {
	return r.ID == id && r.Name == name
}

// =============================================================================
// RECORD SET
// =============================================================================

// RecordSet is an ordered sequence of records.
type RecordSet []Record

// Clone returns an independent copy of the set. A nil set clones to an
// empty, non-nil set so JSON encodes it as [].
func (s RecordSet) Clone() RecordSet {
	out := make(RecordSet, len(s))
	copy(out, s)
	return out
}

// Len returns the number of records.
func (s RecordSet) Len() int {
	return len(s)
}
