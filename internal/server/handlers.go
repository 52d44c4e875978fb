package server

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/exporter"
	"github.com/ginjaninja78/attendance-dashboard/internal/presentation"
	"github.com/ginjaninja78/attendance-dashboard/internal/query"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// contentTypes maps export formats to response content types.
var contentTypes = map[exporter.Format]string{
	exporter.FormatCSV:  "text/csv; charset=utf-8",
	exporter.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	exporter.FormatXML:  "application/xml; charset=utf-8",
	exporter.FormatHTML: "text/html; charset=utf-8",
	exporter.FormatPDF:  "application/pdf",
}

// WarningResponse is one import warning.
type WarningResponse struct {
	Kind    csvparser.WarningKind `json:"kind"`
	Line    int                   `json:"line"`
	Field   string                `json:"field,omitempty"`
	Value   string                `json:"value,omitempty"`
	Message string                `json:"message"`
}

// ImportResponse is returned by POST /api/import.
type ImportResponse struct {
	Records  int               `json:"records"`
	Warnings []WarningResponse `json:"warnings"`
}

// RemoveResponse is returned by DELETE /api/records.
type RemoveResponse struct {
	Removed int `json:"removed"`
}

// criteriaFromQuery reads search, department and status.
func criteriaFromQuery(r *http.Request) (query.Criteria, error) {
	q := r.URL.Query()

	status, err := query.ParseStatus(q.Get("status"))
	if err != nil {
		return query.Criteria{}, ErrInvalidParameter.WithDetails(err.Error())
	}

	return query.Criteria{
		Search:     q.Get("search"),
		Department: q.Get("department"),
		Status:     status,
	}, nil
}

// idAndName reads the id and name query parameters, both required.
func idAndName(r *http.Request) (string, string, error) {
	id := r.URL.Query().Get("id")
	name := r.URL.Query().Get("name")
	if id == "" || name == "" {
		return "", "", ErrMissingParameter.WithDetails("id and name are required")
	}
	return id, name, nil
}

// =============================================================================
// READ HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":  "ok",
		"records": len(s.dash.Records()),
		"clients": s.hub.ClientCount(),
	})
}

// handleReport renders the full HTML report of the current records.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	html, err := exporter.RenderHTML(s.dash.Records())
	if err != nil {
		renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[exporter.FormatHTML])
	io.WriteString(w, html)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, s.dash.Build(c))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, presentation.BuildTable(s.dash.Records(), c))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, name, err := idAndName(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	record, ok := s.dash.Find(id, name)
	if !ok {
		renderError(w, r, ErrNotFound.WithDetails(fmt.Sprintf("no record with id %q and name %q", id, name)))
		return
	}
	render.JSON(w, r, presentation.BuildDetail(record))
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, presentation.BuildKPIs(s.dash.Records()))
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, presentation.BuildCharts(s.dash.Records()))
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, query.Departments(s.dash.Records()))
}

// handleExport streams one export format as an attachment. The document
// is built in memory first so a failure still produces a JSON error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := exporter.Format(chi.URLParam(r, "format"))
	contentType, ok := contentTypes[format]
	if !ok {
		renderError(w, r, ErrInvalidParameter.WithDetails(fmt.Sprintf("unknown export format %q", format)))
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(r.Context(), &buf, s.dash.Records(), format, s.opts.Export); err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed",
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		renderError(w, r, err)
		return
	}

	filename := fmt.Sprintf("attendance_%s.%s", time.Now().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// handleSchema serves the XSD describing the XML export.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := exporter.WriteXSD(&buf); err != nil {
		renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[exporter.FormatXML])
	w.Write(buf.Bytes())
}

// =============================================================================
// MUTATING HANDLERS
// =============================================================================

// saved reports a snapshot write that failed after a mutation. The change
// stays in memory; the client learns it was not persisted.
func (s *Server) saved(w http.ResponseWriter, r *http.Request) bool {
	if err := s.dash.LastSaveError(); err != nil {
		s.logger.ErrorContext(r.Context(), "Mutation not persisted", slog.String("error", err.Error()))
		renderError(w, r, ErrSaveFailed.WithDetails(err.Error()))
		return false
	}
	return true
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var record types.Record
	if err := render.DecodeJSON(r.Body, &record); err != nil {
		renderError(w, r, ErrInvalidRequest.WithDetails(err.Error()))
		return
	}

	if err := s.dash.Add(record); err != nil {
		renderError(w, r, err)
		return
	}
	if !s.saved(w, r) {
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, presentation.NewRow(record.Normalize()))
}

func (s *Server) handleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	id, name, err := idAndName(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	removed := s.dash.Remove(id, name)
	if removed > 0 && !s.saved(w, r) {
		return
	}
	render.JSON(w, r, RemoveResponse{Removed: removed})
}

// handleImport replaces the record set with the CSV text in the body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.dash.ImportReader(http.MaxBytesReader(w, r.Body, s.maxImportBytes()))
	if err != nil {
		renderError(w, r, err)
		return
	}
	if !s.saved(w, r) {
		return
	}

	resp := ImportResponse{Records: len(result.Records), Warnings: []WarningResponse{}}
	for _, warn := range result.Warnings {
		resp.Warnings = append(resp.Warnings, WarningResponse{
			Kind:    warn.Kind,
			Line:    warn.Line,
			Field:   warn.Field,
			Value:   warn.Value,
			Message: warn.Message,
		})
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	n, err := s.dash.LoadSample()
	if err != nil {
		renderError(w, r, err)
		return
	}
	if !s.saved(w, r) {
		return
	}
	render.JSON(w, r, ImportResponse{Records: n, Warnings: []WarningResponse{}})
}

// handleSort toggles the name or percent sort direction.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var (
		state query.SortState
		err   error
	)

	switch field := chi.URLParam(r, "field"); field {
	case "name":
		state, err = s.dash.SortByName(r.Context())
	case "percent":
		state, err = s.dash.SortByPercent(r.Context())
	default:
		err = ErrInvalidParameter.WithDetails(fmt.Sprintf("unknown sort field %q (want name or percent)", field))
	}

	if err != nil {
		renderError(w, r, err)
		return
	}
	if !s.saved(w, r) {
		return
	}
	render.JSON(w, r, state)
}

// handleClear empties the set and deletes the persisted snapshot.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Clear(r.Context()); err != nil {
		renderError(w, r, err)
		return
	}
	if !s.saved(w, r) {
		return
	}
	render.NoContent(w, r)
}
