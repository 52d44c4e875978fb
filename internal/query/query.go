// =============================================================================
// Attendance Dashboard - Query Engine
// =============================================================================
//
// This module turns the authoritative record set into views:
//   - View: search text, department filter and status filter (ANDed)
//   - SortByName / SortByPercent: pure reorderings of the full set
//   - Sorter: the stateful toggles behind the two sortable table headers
//
// A view is always a new slice. The input set is never mutated.
//
// =============================================================================

package query

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/attendance-dashboard/internal/metrics"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// =============================================================================
// CRITERIA
// =============================================================================

// Status is a status-bucket filter value. The zero value means "any".
type Status string

const (
	StatusAny    Status = ""
	StatusLow    Status = "low"
	StatusMedium Status = "medium"
	StatusHigh   Status = "high"
)

// ParseStatus validates a user supplied status filter.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusAny:
		return StatusAny, nil
	case StatusLow:
		return StatusLow, nil
	case StatusMedium:
		return StatusMedium, nil
	case StatusHigh:
		return StatusHigh, nil
	default:
		return StatusAny, fmt.Errorf("unknown status %q (want low, medium or high)", s)
	}
}

// Criteria restricts a view. Empty fields mean no restriction.
type Criteria struct {
	// Search is matched case-insensitively against id, name and department.
	Search string

	// Department must equal the record's department exactly.
	Department string

	Status Status
}

// =============================================================================
// VIEW
// =============================================================================

// View returns the records matching every criterion, in set order.
func View(set types.RecordSet, c Criteria) types.RecordSet {
	search := strings.ToLower(strings.TrimSpace(c.Search))

	out := make(types.RecordSet, 0, len(set))
	for _, r := range set {
		if search != "" && !matchesSearch(r, search) {
			continue
		}
		if c.Department != "" && r.Department != c.Department {
			continue
		}
		if c.Status != StatusAny && !matchesStatus(r, c.Status) {
			continue
		}
		out = append(out, r)
	}

	return out
}

func matchesSearch(r types.Record, needle string) bool {
	return strings.Contains(strings.ToLower(r.ID), needle) ||
		strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Department), needle)
}

// matchesStatus maps the filter through metrics.Classify. An undefined
// percent belongs to no bucket.
func matchesStatus(r types.Record, s Status) bool {
	return string(metrics.Classify(metrics.AttendancePercent(r))) == string(s)
}

// Departments lists distinct non-empty departments in first-seen order.
func Departments(set types.RecordSet) []string {
	seen := make(map[string]bool)
	var out []string

	for _, r := range set {
		if r.Department == "" || seen[r.Department] {
			continue
		}
		seen[r.Department] = true
		out = append(out, r.Department)
	}

	return out
}

// =============================================================================
// SORTING
// =============================================================================

// SortByName returns a copy ordered by name using locale-aware collation.
// An empty or unparsable locale falls back to the root collation order.
//
// Equal names are ordered by id, department and counts so the order is
// total: descending is always the exact reverse of ascending, whatever
// the input order.
func SortByName(set types.RecordSet, ascending bool, locale string) types.RecordSet {
	out := set.Clone()
	col := collate.New(parseLocale(locale))

	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return compareByName(col, out[i], out[j]) < 0
		}
		return compareByName(col, out[j], out[i]) < 0
	})

	return out
}

func compareByName(col *collate.Collator, a, b types.Record) int {
	if c := col.CompareString(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Or(
		strings.Compare(a.Name, b.Name),
		strings.Compare(a.ID, b.ID),
		strings.Compare(a.Department, b.Department),
		compareCount(a.TotalClasses, b.TotalClasses),
		compareCount(a.AttendedClasses, b.AttendedClasses),
	)
}

// compareCount orders invalid counts first.
func compareCount(a, b types.Count) int {
	switch {
	case a.Valid != b.Valid:
		if a.Valid {
			return 1
		}
		return -1
	default:
		return cmp.Compare(a.Value, b.Value)
	}
}

// SortByPercent returns a copy ordered by attendance percent. Records with
// an undefined percent always sort last, in their original relative order.
func SortByPercent(set types.RecordSet, ascending bool) types.RecordSet {
	out := set.Clone()

	sort.SliceStable(out, func(i, j int) bool {
		pi := metrics.AttendancePercent(out[i])
		pj := metrics.AttendancePercent(out[j])

		switch {
		case !pi.Defined:
			return false
		case !pj.Defined:
			return true
		case ascending:
			return pi.Value < pj.Value
		default:
			return pi.Value > pj.Value
		}
	})

	return out
}

func parseLocale(locale string) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return language.Und
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// SortState is the persisted direction of both sort toggles.
type SortState struct {
	NameAscending    bool `json:"nameAsc"`
	PercentAscending bool `json:"percentAsc"`
}

// DefaultSortState matches the dashboard's initial header state: the first
// name click sorts Z-A, the first percent click sorts low-to-high.
func DefaultSortState() SortState {
	return SortState{NameAscending: true, PercentAscending: false}
}

// Sorter holds the two independent toggles.
type Sorter struct {
	State  SortState
	Locale string
}

// NewSorter creates a sorter starting from state.
func NewSorter(state SortState, locale string) *Sorter {
	return &Sorter{State: state, Locale: locale}
}

// ToggleName flips the name direction and sorts the full set by name.
func (s *Sorter) ToggleName(set types.RecordSet) types.RecordSet {
	s.State.NameAscending = !s.State.NameAscending
	return SortByName(set, s.State.NameAscending, s.Locale)
}

// TogglePercent flips the percent direction and sorts by attendance.
func (s *Sorter) TogglePercent(set types.RecordSet) types.RecordSet {
	s.State.PercentAscending = !s.State.PercentAscending
	return SortByPercent(set, s.State.PercentAscending)
}
