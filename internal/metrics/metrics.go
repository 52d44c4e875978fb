// =============================================================================
// Attendance Dashboard - Metrics Engine
// =============================================================================
//
// Pure, stateless functions over records and record sets:
//   - AttendancePercent: per-record percentage
//   - Classify: Low / Medium / High threshold buckets
//   - Aggregate: KPI summary (count, average, defaulters, top record)
//   - GroupByDepartment / DepartmentAverages: chart feeds
//
// DIVISION SEMANTICS:
//   A zero total (or any invalid count) gives an undefined Percent. It is
//   never reported as +Inf and never silently as 0%.
//
// AVERAGE POLICY:
//   An undefined percent pollutes every mean it takes part in: the mean is
//   reported undefined. This applies to the overall average and to each
//   department average.
//
// =============================================================================

package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

const (
	// LowThreshold is the exclusive upper bound of the Low bucket.
	// A record below it is a defaulter.
	LowThreshold = 75.0

	// HighThreshold is the inclusive upper bound of the Medium bucket.
	HighThreshold = 85.0
)

// ErrDivisionUndefined is reported for a percent with a zero or invalid
// denominator.
var ErrDivisionUndefined = errors.New("attendance percent undefined: total classes is zero or not a number")

// =============================================================================
// PERCENT
// =============================================================================

// Percent is an attendance percentage that may be undefined.
type Percent struct {
	Value   float64
	Defined bool
}

// Err returns ErrDivisionUndefined for an undefined percent.
func (p Percent) Err() error {
	if !p.Defined {
		return ErrDivisionUndefined
	}
	return nil
}

// String formats to one decimal place, or "N/A".
func (p Percent) String() string {
	if !p.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", p.Value)
}

// MarshalJSON encodes an undefined percent as null.
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Defined {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%g", round(p.Value, 1))), nil
}

// Rounded returns the value rounded to one decimal place.
func (p Percent) Rounded() float64 {
	return round(p.Value, 1)
}

func definedPercent(v float64) Percent {
	return Percent{Value: v, Defined: true}
}

// AttendancePercent returns attended / total * 100.
func AttendancePercent(r types.Record) Percent {
	ratio, ok := Ratio(r)
	if !ok {
		return Percent{}
	}
	return definedPercent(ratio * 100)
}

// Ratio returns attended / total, or false when undefined.
func Ratio(r types.Record) (float64, bool) {
	if !r.TotalClasses.Valid || !r.AttendedClasses.Valid || r.TotalClasses.Value == 0 {
		return 0, false
	}
	return float64(r.AttendedClasses.Value) / float64(r.TotalClasses.Value), true
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classification is the threshold bucket of a percent.
type Classification string

const (
	Low       Classification = "low"
	Medium    Classification = "medium"
	High      Classification = "high"
	Undefined Classification = "undefined"
)

// Classify buckets a percent. 75 and 85 are both Medium.
func Classify(p Percent) Classification {
	switch {
	case !p.Defined || math.IsNaN(p.Value):
		return Undefined
	case p.Value < LowThreshold:
		return Low
	case p.Value <= HighThreshold:
		return Medium
	default:
		return High
	}
}

// Label is the human readable bucket name.
func (c Classification) Label() string {
	switch c {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Unknown"
	}
}

// IsDefaulter reports whether a percent is defined and below 75.
func IsDefaulter(p Percent) bool {
	return Classify(p) == Low
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Summary is the KPI block for a record set.
type Summary struct {
	Count          int
	AveragePercent Percent
	DefaulterCount int

	// Top is the record with the highest ratio, or nil.
	Top *types.Record
}

// Aggregate computes the KPI summary.
func Aggregate(set types.RecordSet) Summary {
	summary := Summary{Count: len(set)}

	percents := make([]Percent, 0, len(set))
	bestRatio := math.Inf(-1)

	for i := range set {
		p := AttendancePercent(set[i])
		percents = append(percents, p)

		if IsDefaulter(p) {
			summary.DefaulterCount++
		}

		// Strictly greater keeps the first occurrence on ties.
		if ratio, ok := Ratio(set[i]); ok && ratio > bestRatio {
			bestRatio = ratio
			top := set[i]
			summary.Top = &top
		}
	}

	summary.AveragePercent = Mean(percents)
	return summary
}

// Mean is the arithmetic mean of the percents. It is undefined for an empty
// input or when any input is undefined.
func Mean(percents []Percent) Percent {
	if len(percents) == 0 {
		return Percent{}
	}

	sum := 0.0
	for _, p := range percents {
		if !p.Defined {
			return Percent{}
		}
		sum += p.Value
	}

	return definedPercent(sum / float64(len(percents)))
}

// =============================================================================
// DEPARTMENT GROUPING
// =============================================================================

// DepartmentGroup holds the percents of one department in set order.
type DepartmentGroup struct {
	Department string
	Percents   []Percent
}

// GroupByDepartment groups percents by department. Departments appear in
// order of first occurrence; records without a department are skipped.
func GroupByDepartment(set types.RecordSet) []DepartmentGroup {
	var groups []DepartmentGroup
	index := make(map[string]int)

	for _, r := range set {
		if r.Department == "" {
			continue
		}

		i, ok := index[r.Department]
		if !ok {
			i = len(groups)
			index[r.Department] = i
			groups = append(groups, DepartmentGroup{Department: r.Department})
		}

		groups[i].Percents = append(groups[i].Percents, AttendancePercent(r))
	}

	return groups
}

// DepartmentAverage is one bar of the department chart.
type DepartmentAverage struct {
	Department string
	Average    Percent
}

// DepartmentAverages returns the mean percent per department.
func DepartmentAverages(set types.RecordSet) []DepartmentAverage {
	groups := GroupByDepartment(set)
	out := make([]DepartmentAverage, len(groups))

	for i, g := range groups {
		out[i] = DepartmentAverage{
			Department: g.Department,
			Average:    Mean(g.Percents),
		}
	}

	return out
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
