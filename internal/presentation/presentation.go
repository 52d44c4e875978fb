// =============================================================================
// Attendance Dashboard - Presentation Projections
// =============================================================================
//
// Each adapter (terminal table, JSON API, XLSX workbook, HTML/PDF report)
// renders from the same pure projections of the current record set:
//
//   BuildTable            -> table rows + "Showing N of M rows"
//   BuildKPIs             -> count, average, defaulters, top record name
//   BuildDepartmentChart  -> department labels + average percents
//   BuildStudentChart     -> student labels + percents
//   BuildDetail           -> the per-student detail ("modal") view
//
// None of these functions mutate their input. Call them again after every
// store change; nothing here is cached.
//
// =============================================================================

package presentation

import (
	"fmt"

	"github.com/ginjaninja78/attendance-dashboard/internal/metrics"
	"github.com/ginjaninja78/attendance-dashboard/internal/query"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// =============================================================================
// TABLE
// =============================================================================

// Row is one table row.
type Row struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Department      string                 `json:"department"`
	TotalClasses    types.Count            `json:"totalClasses"`
	AttendedClasses types.Count            `json:"attendedClasses"`
	Percent         metrics.Percent        `json:"percent"`
	Classification  metrics.Classification `json:"classification"`
}

// Table is the filtered table view.
type Table struct {
	Rows  []Row `json:"rows"`
	Shown int   `json:"shown"`
	Total int   `json:"total"`
}

// Info is the caption under the table.
func (t Table) Info() string {
	return fmt.Sprintf("Showing %d of %d rows", t.Shown, t.Total)
}

// NewRow projects one record.
func NewRow(r types.Record) Row {
	p := metrics.AttendancePercent(r)
	return Row{
		ID:              r.ID,
		Name:            r.Name,
		Department:      r.Department,
		TotalClasses:    r.TotalClasses,
		AttendedClasses: r.AttendedClasses,
		Percent:         p,
		Classification:  metrics.Classify(p),
	}
}

// BuildTable applies the criteria and projects the matching rows.
func BuildTable(set types.RecordSet, c query.Criteria) Table {
	view := query.View(set, c)

	rows := make([]Row, len(view))
	for i, r := range view {
		rows[i] = NewRow(r)
	}

	return Table{Rows: rows, Shown: len(view), Total: len(set)}
}

// =============================================================================
// KPIS
// =============================================================================

// KPIs is the summary card block.
type KPIs struct {
	Count          int             `json:"count"`
	AveragePercent metrics.Percent `json:"averagePercent"`
	DefaulterCount int             `json:"defaulterCount"`
	TopRecordName  string          `json:"topRecordName"`
}

// BuildKPIs summarizes the full set.
func BuildKPIs(set types.RecordSet) KPIs {
	s := metrics.Aggregate(set)

	top := "N/A"
	if s.Top != nil {
		top = s.Top.Name
	}

	return KPIs{
		Count:          s.Count,
		AveragePercent: s.AveragePercent,
		DefaulterCount: s.DefaulterCount,
		TopRecordName:  top,
	}
}

// =============================================================================
// CHARTS
// =============================================================================

// DepartmentChart feeds the bar chart of department averages.
type DepartmentChart struct {
	Labels          []string          `json:"departmentLabels"`
	AveragePercents []metrics.Percent `json:"departmentAveragePercents"`
}

// StudentChart feeds the per-student line chart.
type StudentChart struct {
	Labels   []string          `json:"studentLabels"`
	Percents []metrics.Percent `json:"studentPercents"`
}

// Charts bundles both chart feeds.
type Charts struct {
	Department DepartmentChart `json:"department"`
	Student    StudentChart    `json:"student"`
}

// BuildDepartmentChart averages percents per department.
func BuildDepartmentChart(set types.RecordSet) DepartmentChart {
	avgs := metrics.DepartmentAverages(set)

	chart := DepartmentChart{
		Labels:          make([]string, len(avgs)),
		AveragePercents: make([]metrics.Percent, len(avgs)),
	}
	for i, a := range avgs {
		chart.Labels[i] = a.Department
		chart.AveragePercents[i] = a.Average
	}

	return chart
}

// BuildStudentChart lists every student's percent in set order.
func BuildStudentChart(set types.RecordSet) StudentChart {
	chart := StudentChart{
		Labels:   make([]string, len(set)),
		Percents: make([]metrics.Percent, len(set)),
	}
	for i, r := range set {
		chart.Labels[i] = r.Name
		chart.Percents[i] = metrics.AttendancePercent(r)
	}

	return chart
}

// BuildCharts builds both chart feeds.
func BuildCharts(set types.RecordSet) Charts {
	return Charts{
		Department: BuildDepartmentChart(set),
		Student:    BuildStudentChart(set),
	}
}

// ColorFor returns the bar colour for an average: red below 75, amber up to
// 85, green above. Undefined averages are grey.
func ColorFor(p metrics.Percent) string {
	return ClassColor(metrics.Classify(p))
}

// ClassColor returns the colour for a classification.
func ClassColor(c metrics.Classification) string {
	switch c {
	case metrics.Low:
		return "#ff6b6b"
	case metrics.Medium:
		return "#ffb020"
	case metrics.High:
		return "#28a745"
	default:
		return "#9e9e9e"
	}
}

// =============================================================================
// DETAIL
// =============================================================================

// Detail statuses.
const (
	StatusAtRisk  = "At Risk"
	StatusOK      = "OK"
	StatusUnknown = "Unknown"
)

// Detail is the per-student detail view.
type Detail struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Department      string          `json:"department"`
	AttendedClasses types.Count     `json:"attendedClasses"`
	TotalClasses    types.Count     `json:"totalClasses"`
	Percent         metrics.Percent `json:"percent"`
	Status          string          `json:"status"`

	// Note explains an Unknown status.
	Note string `json:"note,omitempty"`
}

// BuildDetail projects one record into the detail view.
func BuildDetail(r types.Record) Detail {
	p := metrics.AttendancePercent(r)

	status, note := StatusOK, ""
	switch {
	case !p.Defined:
		status, note = StatusUnknown, p.Err().Error()
	case metrics.IsDefaulter(p):
		status = StatusAtRisk
	}

	return Detail{
		ID:              r.ID,
		Name:            r.Name,
		Department:      r.Department,
		AttendedClasses: r.AttendedClasses,
		TotalClasses:    r.TotalClasses,
		Percent:         p,
		Status:          status,
		Note:            note,
	}
}

// =============================================================================
// FULL DASHBOARD
// =============================================================================

// Dashboard is everything one render needs.
type Dashboard struct {
	Table       Table    `json:"table"`
	KPIs        KPIs     `json:"kpis"`
	Charts      Charts   `json:"charts"`
	Departments []string `json:"departments"`
}

// Build projects the whole dashboard. KPIs and charts always describe the
// full set; only the table honours the criteria.
func Build(set types.RecordSet, c query.Criteria) Dashboard {
	return Dashboard{
		Table:       BuildTable(set, c),
		KPIs:        BuildKPIs(set),
		Charts:      BuildCharts(set),
		Departments: query.Departments(set),
	}
}
