// =============================================================================
// Attendance Dashboard - Session Orchestration
// =============================================================================
//
// A Dashboard is one working session over the record store. It wires the
// store to persistence and exposes every user operation to the CLI and the
// HTTP server.
//
// SESSION LIFECYCLE:
//   1. Open the key-value backend
//   2. Restore the snapshot saved under the storage key (missing key means
//      an empty set; a corrupt snapshot empties the set and is logged)
//   3. Restore the sort toggle directions
//   4. Save the snapshot after every mutation
//   5. Close saves once more and releases the backend
//
// A corrupt snapshot is left on disk until the first real mutation so that
// it can still be inspected or repaired by hand.
//
// CONCURRENCY:
//   Multi-file import parses every file in its own goroutine and
//   concatenates the results in argument order. All other operations are
//   safe for concurrent use; the store serializes mutations.
//
// =============================================================================

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/persistence"
	"github.com/ginjaninja78/attendance-dashboard/internal/presentation"
	"github.com/ginjaninja78/attendance-dashboard/internal/query"
	"github.com/ginjaninja78/attendance-dashboard/internal/store"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
	"github.com/ginjaninja78/attendance-dashboard/internal/xlsxparser"
	"github.com/ginjaninja78/attendance-dashboard/pkg/utils"
)

// saveTimeout bounds one snapshot write triggered by a mutation.
const saveTimeout = 10 * time.Second

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a session.
type Options struct {
	// Backend is persistence.BackendFile or persistence.BackendSQLite.
	Backend string

	// DataDir holds the backend's files.
	DataDir string

	// StorageKey is the snapshot key. Empty means
	// persistence.DefaultStorageKey.
	StorageKey string

	// Locale drives name collation.
	Locale string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// =============================================================================
// DASHBOARD STRUCTURE
// =============================================================================

// Dashboard is one working session.
type Dashboard struct {
	store  *store.Store
	kv     persistence.KV
	key    string
	locale string
	log    *slog.Logger

	sortMu sync.Mutex
	sorter *query.Sorter

	saveMu          sync.Mutex
	lastSaveErr     error
	preserveCorrupt bool
	restoreErr      error

	unsubscribe func()
	closeOnce   sync.Once
	closeErr    error
}

// Open opens the configured backend and restores the saved session.
func Open(ctx context.Context, opts Options) (*Dashboard, error) {
	kv, err := persistence.Open(opts.Backend, opts.DataDir)
	if err != nil {
		return nil, err
	}

	d, err := New(ctx, kv, opts)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return d, nil
}

// New restores a session from kv. The dashboard takes ownership of kv and
// closes it in Close.
func New(ctx context.Context, kv persistence.KV, opts Options) (*Dashboard, error) {
	key := opts.StorageKey
	if key == "" {
		key = persistence.DefaultStorageKey
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dashboard{
		store:  store.New(),
		kv:     kv,
		key:    key,
		locale: opts.Locale,
		log:    logger.With(slog.String("component", "dashboard")),
		sorter: query.NewSorter(query.DefaultSortState(), opts.Locale),
	}

	if err := d.restore(ctx); err != nil {
		return nil, err
	}
	d.restoreSortState(ctx)

	d.unsubscribe = d.store.Subscribe(d.onChange)
	return d, nil
}

// restore loads the snapshot. Only backend failures are returned; a corrupt
// snapshot is recorded in RestoreErr.
func (d *Dashboard) restore(ctx context.Context) error {
	data, err := d.kv.Get(ctx, d.key)
	if errors.Is(err, persistence.ErrNotFound) {
		d.log.Debug("No saved snapshot", slog.String("key", d.key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := d.store.Restore(data); err != nil {
		var corrupt *store.CorruptDataError
		if !errors.As(err, &corrupt) {
			return err
		}
		d.restoreErr = err
		d.preserveCorrupt = true
		d.log.Warn("Saved snapshot is corrupt; starting empty",
			slog.String("key", d.key),
			slog.String("error", err.Error()))
		return nil
	}

	d.log.Info("Restored snapshot",
		slog.String("key", d.key),
		slog.Int("record_count", d.store.Len()))
	return nil
}

func (d *Dashboard) restoreSortState(ctx context.Context) {
	data, err := d.kv.Get(ctx, persistence.SortStateKey)
	if err != nil {
		return
	}

	var state query.SortState
	if err := json.Unmarshal(data, &state); err != nil {
		d.log.Warn("Ignoring unreadable sort state", slog.String("error", err.Error()))
		return
	}
	d.sorter.State = state
}

// onChange saves after every mutation. Restores are not mutations.
func (d *Dashboard) onChange(ev store.ChangeEvent) {
	if ev.Kind == store.ChangeRestored {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	d.saveMu.Lock()
	d.preserveCorrupt = false
	d.saveMu.Unlock()

	if err := d.Save(ctx); err != nil {
		d.log.Error("Failed to save snapshot",
			slog.String("change", string(ev.Kind)),
			slog.String("error", err.Error()))
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save writes the current snapshot under the storage key.
func (d *Dashboard) Save(ctx context.Context) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	data, err := d.store.Snapshot().Encode()
	if err == nil {
		err = d.kv.Put(ctx, d.key, data)
	}
	if err != nil {
		err = fmt.Errorf("failed to save snapshot: %w", err)
	}

	d.lastSaveErr = err
	return err
}

// LastSaveError returns the error from the most recent save, if any.
func (d *Dashboard) LastSaveError() error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	return d.lastSaveErr
}

// RestoreErr returns the *store.CorruptDataError from startup, if the saved
// snapshot could not be decoded.
func (d *Dashboard) RestoreErr() error {
	return d.restoreErr
}

// Close saves the session and releases the backend. It is safe to call more
// than once.
func (d *Dashboard) Close() error {
	d.closeOnce.Do(func() {
		d.unsubscribe()

		d.saveMu.Lock()
		skip := d.preserveCorrupt
		d.saveMu.Unlock()

		var saveErr error
		if !skip {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			saveErr = d.Save(ctx)
			cancel()
		}

		d.closeErr = errors.Join(saveErr, d.kv.Close())
	})
	return d.closeErr
}

// =============================================================================
// IMPORT
// =============================================================================

// FileResult is the outcome of parsing one import file.
type FileResult struct {
	Path     string
	Records  int
	Warnings []csvparser.Warning
	Err      error
}

// ImportReport describes an import.
type ImportReport struct {
	Files     []FileResult
	Records   int
	StartTime time.Time
	EndTime   time.Time
}

// Warnings returns every warning across files.
func (r *ImportReport) Warnings() []csvparser.Warning {
	var all []csvparser.Warning
	for _, f := range r.Files {
		all = append(all, f.Warnings...)
	}
	return all
}

// Summary converts the report for utils.FormatImportSummary.
func (r *ImportReport) Summary() utils.ImportSummary {
	s := utils.ImportSummary{
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		TotalRecords: r.Records,
	}
	for _, f := range r.Files {
		s.Files = append(s.Files, utils.ImportedFileInfo{
			InputFile: f.Path,
			Records:   f.Records,
			Warnings:  len(f.Warnings),
		})
		s.TotalWarnings += len(f.Warnings)
	}
	return s
}

// WarningLogEntries converts the warnings for utils.WriteWarningLog.
func (r *ImportReport) WarningLogEntries() []utils.WarningLogEntry {
	var entries []utils.WarningLogEntry
	for _, f := range r.Files {
		for _, w := range f.Warnings {
			entries = append(entries, utils.WarningLogEntry{
				FileName: f.Path,
				Kind:     string(w.Kind),
				Line:     w.Line,
				Field:    w.Field,
				Value:    w.Value,
				Message:  w.Message,
			})
		}
	}
	return entries
}

type parsed struct {
	index  int
	result *csvparser.Result
	err    error
}

// Import parses every file concurrently and replaces the working set with
// their records, concatenated in argument order. If any file fails the set
// is left untouched and the first failure (in argument order) is returned
// along with the per-file report.
func (d *Dashboard) Import(ctx context.Context, paths []string) (*ImportReport, error) {
	report := &ImportReport{
		Files:     make([]FileResult, len(paths)),
		StartTime: time.Now(),
	}
	if len(paths) == 0 {
		return report, fmt.Errorf("no files to import")
	}

	var wg sync.WaitGroup
	results := make(chan parsed, len(paths))

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				results <- parsed{index: i, err: err}
				return
			}

			res, err := parseFile(path)
			results <- parsed{index: i, result: res, err: err}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*csvparser.Result, len(paths))
	for p := range results {
		report.Files[p.index] = FileResult{Path: paths[p.index], Err: p.err}
		if p.err == nil {
			ordered[p.index] = p.result
			report.Files[p.index].Records = len(p.result.Records)
			report.Files[p.index].Warnings = p.result.Warnings
		}
	}
	report.EndTime = time.Now()

	var set types.RecordSet
	for i, f := range report.Files {
		if f.Err != nil {
			d.log.Error("Import failed",
				slog.String("file", f.Path),
				slog.String("error", f.Err.Error()))
			return report, f.Err
		}
		set = append(set, ordered[i].Records...)
	}

	report.Records = len(set)
	d.logWarnings(report.Warnings())
	d.store.ReplaceAll(set)

	d.log.Info("Import complete",
		slog.Int("files", len(paths)),
		slog.Int("record_count", len(set)),
		slog.Duration("duration", report.EndTime.Sub(report.StartTime)))

	return report, nil
}

func parseFile(path string) (*csvparser.Result, error) {
	if utils.IsSpreadsheet(path) {
		return xlsxparser.ParseFile(path)
	}
	return csvparser.ParseFile(path)
}

// ImportText parses CSV text and replaces the working set. On a parse error
// the set is left untouched.
func (d *Dashboard) ImportText(text string) (*csvparser.Result, error) {
	return d.ImportReader(strings.NewReader(text))
}

// ImportReader is ImportText for a stream such as a request body. A read
// error leaves the set untouched.
func (d *Dashboard) ImportReader(r io.Reader) (*csvparser.Result, error) {
	result, err := csvparser.ParseReader(r)
	if err != nil {
		return nil, err
	}

	d.logWarnings(result.Warnings)
	d.store.ReplaceAll(result.Records)
	return result, nil
}

// LoadSample replaces the working set with the built-in sample data.
func (d *Dashboard) LoadSample() (int, error) {
	result, err := csvparser.Parse(SampleCSV)
	if err != nil {
		return 0, err
	}

	d.store.ReplaceAll(result.Records)
	return len(result.Records), nil
}

func (d *Dashboard) logWarnings(warnings []csvparser.Warning) {
	for _, w := range warnings {
		d.log.Warn("Import warning",
			slog.String("kind", string(w.Kind)),
			slog.Int("line", w.Line),
			slog.String("field", w.Field),
			slog.String("value", w.Value),
			slog.String("message", w.Message))
	}
}

// =============================================================================
// EDITING
// =============================================================================

// Add validates and appends one record. Validation failures are
// *validation.ValidationError.
func (d *Dashboard) Add(r types.Record) error {
	return d.store.Add(r)
}

// Remove deletes every record matching both id and name and returns how many
// were removed.
func (d *Dashboard) Remove(id, name string) int {
	return d.store.Remove(id, name)
}

// Clear empties the working set and deletes the saved snapshot.
func (d *Dashboard) Clear(ctx context.Context) error {
	d.store.Clear()

	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	if err := d.kv.Delete(ctx, d.key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// =============================================================================
// SORTING
// =============================================================================

// SortByName flips the name direction and sorts the working set.
func (d *Dashboard) SortByName(ctx context.Context) (query.SortState, error) {
	return d.sort(ctx, d.sorter.ToggleName)
}

// SortByPercent flips the percent direction and sorts the working set.
func (d *Dashboard) SortByPercent(ctx context.Context) (query.SortState, error) {
	return d.sort(ctx, d.sorter.TogglePercent)
}

func (d *Dashboard) sort(ctx context.Context, toggle func(types.RecordSet) types.RecordSet) (query.SortState, error) {
	d.sortMu.Lock()
	defer d.sortMu.Unlock()

	if err := d.store.Sort(toggle); err != nil {
		return d.sorter.State, err
	}

	state := d.sorter.State
	data, err := json.Marshal(state)
	if err == nil {
		err = d.kv.Put(ctx, persistence.SortStateKey, data)
	}
	if err != nil {
		return state, fmt.Errorf("failed to save sort state: %w", err)
	}
	return state, nil
}

// SortState returns the current toggle directions.
func (d *Dashboard) SortState() query.SortState {
	d.sortMu.Lock()
	defer d.sortMu.Unlock()
	return d.sorter.State
}

// =============================================================================
// READING
// =============================================================================

// Records returns a copy of the working set.
func (d *Dashboard) Records() types.RecordSet {
	return d.store.Records()
}

// View returns the records matching the criteria.
func (d *Dashboard) View(c query.Criteria) types.RecordSet {
	return query.View(d.store.Records(), c)
}

// Build projects the full dashboard for the criteria.
func (d *Dashboard) Build(c query.Criteria) presentation.Dashboard {
	return presentation.Build(d.store.Records(), c)
}

// Find returns the first record matching both id and name.
func (d *Dashboard) Find(id, name string) (types.Record, bool) {
	for _, r := range d.store.Records() {
		if r.Matches(id, name) {
			return r, true
		}
	}
	return types.Record{}, false
}

// Subscribe registers an observer for store changes.
func (d *Dashboard) Subscribe(o store.Observer) func() {
	return d.store.Subscribe(o)
}
