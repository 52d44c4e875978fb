package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/persistence"
	"github.com/ginjaninja78/attendance-dashboard/internal/query"
	"github.com/ginjaninja78/attendance-dashboard/internal/store"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
	"github.com/ginjaninja78/attendance-dashboard/internal/validation"
)

func openSession(t *testing.T, dir string) *Dashboard {
	t.Helper()

	d, err := Open(context.Background(), Options{
		Backend: persistence.BackendFile,
		DataDir: dir,
		Locale:  "en",
	})
	require.NoError(t, err)
	return d
}

func names(set types.RecordSet) []string {
	out := make([]string, len(set))
	for i, r := range set {
		out[i] = r.Name
	}
	return out
}

func TestSession_EmptyStart(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()

	assert.Empty(t, d.Records())
	assert.NoError(t, d.RestoreErr())
}

func TestSession_SamplePersistsAcrossSessions(t *testing.T) {
	dir := t.TempDir()

	d := openSession(t, dir)
	n, err := d.LoadSample()
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	require.NoError(t, d.Close())

	d = openSession(t, dir)
	defer d.Close()
	require.Len(t, d.Records(), 10)
	assert.Equal(t, "Amit Kumar", d.Records()[0].Name)
}

func TestSession_SavesOnEveryMutation(t *testing.T) {
	dir := t.TempDir()
	d := openSession(t, dir)
	defer d.Close()

	require.NoError(t, d.Add(types.NewRecord("1", "Alice", "CS", 10, 8)))

	// A second session sees the change before the first one closes.
	kv, err := persistence.NewFileStore(dir)
	require.NoError(t, err)
	data, err := kv.Get(context.Background(), persistence.DefaultStorageKey)
	require.NoError(t, err)

	snap, err := store.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names(snap.Records()))
}

func TestSession_AddRejectsInvalid(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()

	err := d.Add(types.NewRecord("", "Alice", "CS", 10, 8))
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, d.Records())
}

func TestSession_Remove(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()

	_, err := d.LoadSample()
	require.NoError(t, err)

	assert.Equal(t, 0, d.Remove("101", "Someone Else"))
	assert.Equal(t, 1, d.Remove("101", "Amit Kumar"))
	assert.Len(t, d.Records(), 9)

	_, found := d.Find("101", "Amit Kumar")
	assert.False(t, found)

	r, found := d.Find("102", "Priya Sharma")
	require.True(t, found)
	assert.Equal(t, "MCA", r.Department)
}

func TestSession_ImportConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(first, []byte("H\n1,Alice,CS,10,8\n2,Bob,CS,10,ten"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("H\n3,Carol,EE,10,9"), 0644))

	d := openSession(t, filepath.Join(dir, "data"))
	defer d.Close()

	report, err := d.Import(context.Background(), []string{first, second})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(d.Records()))
	assert.Equal(t, 3, report.Records)
	require.Len(t, report.Files, 2)
	assert.Equal(t, 2, report.Files[0].Records)
	assert.Len(t, report.Warnings(), 1)
	assert.Equal(t, csvparser.WarningFieldCoercion, report.Warnings()[0].Kind)

	summary := report.Summary()
	assert.Equal(t, 1, summary.TotalWarnings)
	assert.Len(t, report.WarningLogEntries(), 1)
}

func TestSession_FailedImportKeepsData(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(good, []byte("H\n9,Zed,CS,10,8"), 0644))
	require.NoError(t, os.WriteFile(empty, []byte("StudentID,Name,Department,Total_Classes,Attended_Classes\n"), 0644))

	d := openSession(t, filepath.Join(dir, "data"))
	defer d.Close()
	_, err := d.LoadSample()
	require.NoError(t, err)

	_, err = d.Import(context.Background(), []string{good, empty})
	require.Error(t, err)
	assert.True(t, errors.Is(err, csvparser.ErrNoDataRows))
	assert.Len(t, d.Records(), 10)

	_, err = d.ImportText("only a header")
	require.Error(t, err)
	assert.Len(t, d.Records(), 10)
}

func TestSession_ImportText(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()

	result, err := d.ImportText("H\n1,Alice,CS,10,8")
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, []string{"Alice"}, names(d.Records()))
}

func TestSession_ImportReaderErrorKeepsData(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()
	_, err := d.LoadSample()
	require.NoError(t, err)

	_, err = d.ImportReader(iotest.ErrReader(errors.New("connection reset")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Len(t, d.Records(), 10)

	result, err := d.ImportReader(strings.NewReader("H\n1,Alice,CS,10,8\n2,Bob,CS,10,4"))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	assert.NoError(t, d.LastSaveError())
}

func TestSession_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	kv, err := persistence.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Put(context.Background(), persistence.DefaultStorageKey, []byte("{not json")))

	d := openSession(t, dir)
	var corrupt *store.CorruptDataError
	require.True(t, errors.As(d.RestoreErr(), &corrupt))
	assert.Empty(t, d.Records())
	require.NoError(t, d.Close())

	// Closing without changes leaves the corrupt data in place.
	data, err := kv.Get(context.Background(), persistence.DefaultStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))

	// The first mutation replaces it.
	d = openSession(t, dir)
	require.NoError(t, d.Add(types.NewRecord("1", "Alice", "CS", 10, 8)))
	require.NoError(t, d.Close())

	data, err = kv.Get(context.Background(), persistence.DefaultStorageKey)
	require.NoError(t, err)
	_, err = store.DecodeSnapshot(data)
	assert.NoError(t, err)
}

func TestSession_SortToggleReversesAndPersists(t *testing.T) {
	dir := t.TempDir()

	d := openSession(t, dir)
	_, err := d.LoadSample()
	require.NoError(t, err)

	state, err := d.SortByName(context.Background())
	require.NoError(t, err)
	assert.False(t, state.NameAscending)
	descending := names(d.Records())
	assert.Equal(t, "Vikram Chauhan", descending[0])
	require.NoError(t, d.Close())

	// The next session continues from the saved direction.
	d = openSession(t, dir)
	defer d.Close()
	assert.Equal(t, query.SortState{NameAscending: false, PercentAscending: false}, d.SortState())

	state, err = d.SortByName(context.Background())
	require.NoError(t, err)
	assert.True(t, state.NameAscending)

	ascending := names(d.Records())
	for i := range ascending {
		assert.Equal(t, descending[len(descending)-1-i], ascending[i])
	}
}

func TestSession_SortByPercent(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()

	_, err := d.ImportText("H\n1,A,CS,10,9\n2,B,CS,0,0\n3,C,CS,10,5")
	require.NoError(t, err)

	state, err := d.SortByPercent(context.Background())
	require.NoError(t, err)
	assert.True(t, state.PercentAscending)
	assert.Equal(t, []string{"C", "A", "B"}, names(d.Records()))
}

func TestSession_Clear(t *testing.T) {
	dir := t.TempDir()
	d := openSession(t, dir)
	defer d.Close()

	_, err := d.LoadSample()
	require.NoError(t, err)
	require.NoError(t, d.Clear(context.Background()))
	assert.Empty(t, d.Records())

	kv, err := persistence.NewFileStore(dir)
	require.NoError(t, err)
	_, err = kv.Get(context.Background(), persistence.DefaultStorageKey)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestSession_ViewAndBuild(t *testing.T) {
	d := openSession(t, t.TempDir())
	defer d.Close()

	_, err := d.LoadSample()
	require.NoError(t, err)

	view := d.View(query.Criteria{Department: "BCA"})
	assert.Equal(t, []string{"Neha Yadav", "Vikram Chauhan"}, names(view))

	dash := d.Build(query.Criteria{Status: query.StatusLow})
	assert.Equal(t, 10, dash.KPIs.Count)
	assert.Equal(t, dash.KPIs.DefaulterCount, dash.Table.Shown)
}

func TestSession_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()

	d, err := Open(context.Background(), Options{Backend: persistence.BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	_, err = d.LoadSample()
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(context.Background(), Options{Backend: persistence.BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	defer d.Close()
	assert.Len(t, d.Records(), 10)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	d := openSession(t, t.TempDir())
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}
