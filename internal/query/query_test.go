package query

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

func sampleSet() types.RecordSet {
	return types.RecordSet{
		types.NewRecord("101", "Amit Kumar", "MCA", 30, 28),     // 93.3 high
		types.NewRecord("102", "Priya Sharma", "MCA", 30, 24),   // 80 medium
		types.NewRecord("103", "Rahul Verma", "B.Tech", 30, 18), // 60 low
		types.NewRecord("104", "Sneha Gupta", "MCA", 30, 30),    // 100 high
		types.NewRecord("105", "Bob", "BCA", 0, 0),              // undefined
		types.NewRecord("106", "Neha Yadav", "BCA", 20, 15),     // 75 medium
	}
}

func names(set types.RecordSet) []string {
	out := make([]string, len(set))
	for i, r := range set {
		out[i] = r.Name
	}
	return out
}

func TestView_EmptyCriteriaReturnsEverything(t *testing.T) {
	set := sampleSet()
	view := View(set, Criteria{})
	assert.Equal(t, set, view)
	assert.Len(t, view, len(set))
}

func TestView_DoesNotMutateInput(t *testing.T) {
	set := sampleSet()
	before := set.Clone()

	view := View(set, Criteria{Search: "a"})
	if len(view) > 0 {
		view[0].Name = "changed"
	}

	assert.Equal(t, before, set)
}

func TestView_Search(t *testing.T) {
	set := sampleSet()

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"by id", "103", []string{"Rahul Verma"}},
		{"by name case-insensitive", "SNEHA", []string{"Sneha Gupta"}},
		{"by department", "b.tech", []string{"Rahul Verma"}},
		{"trimmed", "  bca  ", []string{"Bob", "Neha Yadav"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(View(set, Criteria{Search: tt.search})))
		})
	}
}

func TestView_DepartmentIsExactAndCaseSensitive(t *testing.T) {
	set := sampleSet()
	assert.Len(t, View(set, Criteria{Department: "MCA"}), 3)
	assert.Empty(t, View(set, Criteria{Department: "mca"}))
	assert.Empty(t, View(set, Criteria{Department: "MC"}))
}

func TestView_Status(t *testing.T) {
	set := sampleSet()

	assert.Equal(t, []string{"Rahul Verma"}, names(View(set, Criteria{Status: StatusLow})))
	assert.Equal(t, []string{"Priya Sharma", "Neha Yadav"}, names(View(set, Criteria{Status: StatusMedium})))
	assert.Equal(t, []string{"Amit Kumar", "Sneha Gupta"}, names(View(set, Criteria{Status: StatusHigh})))
}

func TestView_CombinedCriteriaIntersect(t *testing.T) {
	set := sampleSet()
	search := Criteria{Search: "a"}
	dept := Criteria{Department: "MCA"}
	status := Criteria{Status: StatusHigh}

	combined := View(set, Criteria{Search: "a", Department: "MCA", Status: StatusHigh})

	intersect := func(a, b types.RecordSet) types.RecordSet {
		out := types.RecordSet{}
		for _, x := range a {
			for _, y := range b {
				if x == y {
					out = append(out, x)
					break
				}
			}
		}
		return out
	}

	want := intersect(intersect(View(set, search), View(set, dept)), View(set, status))
	assert.Equal(t, want, combined)

	for _, c := range []Criteria{search, dept, status} {
		assert.LessOrEqual(t, len(View(set, c)), len(set))
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Medium ")
	require.NoError(t, err)
	assert.Equal(t, StatusMedium, s)

	s, err = ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusAny, s)

	_, err = ParseStatus("critical")
	assert.Error(t, err)
}

func TestDepartments(t *testing.T) {
	set := append(sampleSet(), types.NewRecord("107", "Nobody", "", 10, 10))
	assert.Equal(t, []string{"MCA", "B.Tech", "BCA"}, Departments(set))
}

func TestSortByName(t *testing.T) {
	set := types.RecordSet{
		types.NewRecord("1", "charlie", "X", 10, 5),
		types.NewRecord("2", "Alice", "X", 10, 5),
		types.NewRecord("3", "bob", "X", 10, 5),
	}

	asc := SortByName(set, true, "en")
	assert.Equal(t, []string{"Alice", "bob", "charlie"}, names(asc))

	desc := SortByName(set, false, "")
	assert.Equal(t, []string{"charlie", "bob", "Alice"}, names(desc))

	// Input untouched.
	assert.Equal(t, []string{"charlie", "Alice", "bob"}, names(set))
}

func TestSortByPercent_UndefinedAlwaysLast(t *testing.T) {
	set := sampleSet()

	asc := SortByPercent(set, true)
	assert.Equal(t, []string{"Rahul Verma", "Neha Yadav", "Priya Sharma", "Amit Kumar", "Sneha Gupta", "Bob"}, names(asc))

	desc := SortByPercent(set, false)
	assert.Equal(t, []string{"Sneha Gupta", "Amit Kumar", "Priya Sharma", "Neha Yadav", "Rahul Verma", "Bob"}, names(desc))
}

func TestSorter_NameToggleReverses(t *testing.T) {
	set := sampleSet()
	sorter := NewSorter(DefaultSortState(), "en")

	first := sorter.ToggleName(set)
	assert.False(t, sorter.State.NameAscending)
	second := sorter.ToggleName(first)
	assert.True(t, sorter.State.NameAscending)

	assert.Equal(t, ids(first), reversedIDs(second))
}

func TestSorter_NameToggleReversesWithDuplicateNames(t *testing.T) {
	set := types.RecordSet{
		types.NewRecord("1", "Alice", "CS", 10, 8),
		types.NewRecord("2", "Bob", "CS", 10, 8),
		types.NewRecord("3", "Alice", "IT", 10, 5),
		types.NewRecord("4", "alice", "IT", 10, 9),
		types.NewRecord("1", "Alice", "CS", 10, 8),
		types.NewRecord("5", "Alice", "CS", 0, 0),
	}
	sorter := NewSorter(DefaultSortState(), "en")

	first := sorter.ToggleName(set)
	second := sorter.ToggleName(first)
	third := sorter.ToggleName(second)

	assert.Equal(t, "Bob", first[0].Name)
	assert.Equal(t, ids(first), reversedIDs(second))
	assert.Equal(t, ids(second), reversedIDs(third))
	assert.Equal(t, first, third)
}

func TestSortByName_DescendingMirrorsAscending(t *testing.T) {
	set := types.RecordSet{
		types.NewRecord("2", "Alice", "CS", 10, 8),
		types.NewRecord("3", "Bob", "CS", 10, 8),
		types.NewRecord("1", "Alice", "CS", 10, 8),
	}

	asc := SortByName(set, true, "en")
	desc := SortByName(set, false, "en")
	assert.Equal(t, []string{"1", "2", "3"}, ids(asc))
	assert.Equal(t, ids(asc), reversedIDs(desc))

	// Input order does not matter.
	assert.Equal(t, asc, SortByName(desc, true, "en"))
}

func ids(set types.RecordSet) []string {
	out := make([]string, len(set))
	for i, r := range set {
		out[i] = r.ID
	}
	return out
}

func reversedIDs(set types.RecordSet) []string {
	out := ids(set)
	slices.Reverse(out)
	return out
}

func TestSorter_TogglesAreIndependent(t *testing.T) {
	sorter := NewSorter(DefaultSortState(), "")
	set := sampleSet()

	sorter.ToggleName(set)
	assert.False(t, sorter.State.PercentAscending)

	out := sorter.TogglePercent(set)
	assert.True(t, sorter.State.PercentAscending)
	assert.False(t, sorter.State.NameAscending)
	assert.Equal(t, "Rahul Verma", out[0].Name)
}
