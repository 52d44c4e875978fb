package exporter

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ginjaninja78/attendance-dashboard/internal/metrics"
	"github.com/ginjaninja78/attendance-dashboard/internal/presentation"
	"github.com/ginjaninja78/attendance-dashboard/internal/query"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// reportData feeds the HTML report template.
type reportData struct {
	Title     string
	Generated string
	Dashboard presentation.Dashboard
	Bars      []reportBar
}

type reportBar struct {
	Label   string
	Percent metrics.Percent
	Width   float64
	Color   string
}

var reportFuncs = template.FuncMap{
	"color": presentation.ColorFor,
	"css":   func(s string) template.CSS { return template.CSS(s) },
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; margin: 24px; color: #222; }
h1 { margin-bottom: 4px; }
.generated { color: #777; font-size: 12px; }
.cards { display: flex; gap: 16px; margin: 16px 0; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 12px 16px; min-width: 140px; }
.card .label { color: #777; font-size: 12px; }
.card .value { font-size: 22px; font-weight: bold; }
table { border-collapse: collapse; width: 100%; margin-top: 16px; }
th, td { border: 1px solid #ddd; padding: 6px 8px; text-align: left; font-size: 13px; }
th { background: #f4f4f4; }
.bar-row { display: flex; align-items: center; margin: 4px 0; font-size: 13px; }
.bar-label { width: 160px; }
.bar { height: 14px; margin-right: 8px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="generated">Generated {{.Generated}}</div>

<div class="cards">
  <div class="card"><div class="label">Average attendance</div><div class="value">{{.Dashboard.KPIs.AveragePercent}}</div></div>
  <div class="card"><div class="label">Students</div><div class="value">{{.Dashboard.KPIs.Count}}</div></div>
  <div class="card"><div class="label">Defaulters</div><div class="value">{{.Dashboard.KPIs.DefaulterCount}}</div></div>
  <div class="card"><div class="label">Top student</div><div class="value">{{.Dashboard.KPIs.TopRecordName}}</div></div>
</div>

<h2>Department averages</h2>
{{range .Bars}}<div class="bar-row"><span class="bar-label">{{.Label}}</span><span class="bar" style="{{css (printf "width:%.0fpx;background:%s" .Width .Color)}}"></span><span>{{.Percent}}</span></div>
{{end}}
<table>
<thead><tr><th>StudentID</th><th>Name</th><th>Department</th><th>Total</th><th>Attended</th><th>Percent</th><th>Status</th></tr></thead>
<tbody>
{{range .Dashboard.Table.Rows}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Department}}</td><td>{{.TotalClasses}}</td><td>{{.AttendedClasses}}</td><td style="{{css (printf "color:%s" (color .Percent))}}">{{.Percent}}</td><td>{{.Classification.Label}}</td></tr>
{{end}}</tbody>
</table>
<p class="generated">{{.Dashboard.Table.Info}}</p>
</body>
</html>
`))

// WriteHTML renders a standalone HTML report of the whole set.
func WriteHTML(w io.Writer, set types.RecordSet) error {
	return writeHTML(w, set, time.Now())
}

func writeHTML(w io.Writer, set types.RecordSet, now time.Time) error {
	dash := presentation.Build(set, query.Criteria{})

	data := reportData{
		Title:     "Attendance Report",
		Generated: now.Format("2006-01-02 15:04"),
		Dashboard: dash,
	}
	for i, label := range dash.Charts.Department.Labels {
		p := dash.Charts.Department.AveragePercents[i]
		width := 0.0
		if p.Defined {
			width = p.Value * 3
		}
		data.Bars = append(data.Bars, reportBar{
			Label:   label,
			Percent: p,
			Width:   width,
			Color:   presentation.ColorFor(p),
		})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// RenderHTML returns the HTML report as a string.
func RenderHTML(set types.RecordSet) (string, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, set); err != nil {
		return "", err
	}
	return buf.String(), nil
}
