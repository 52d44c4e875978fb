package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/internal/persistence"
	"github.com/ginjaninja78/attendance-dashboard/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *dashboard.Dashboard) {
	t.Helper()

	dash, err := dashboard.Open(context.Background(), dashboard.Options{
		Backend: persistence.BackendFile,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)

	return newTestServerWith(t, dash, Options{}), dash
}

func newTestServerWith(t *testing.T, dash *dashboard.Dashboard, opts Options) *httptest.Server {
	t.Helper()

	srv := New(dash, opts)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		dash.Close()
	})
	return ts
}

// readOnlyKV starts empty and rejects every write.
type readOnlyKV struct{}

func (readOnlyKV) Get(context.Context, string) ([]byte, error) { return nil, persistence.ErrNotFound }
func (readOnlyKV) Put(context.Context, string, []byte) error   { return errors.New("disk full") }
func (readOnlyKV) Delete(context.Context, string) error        { return nil }
func (readOnlyKV) Close() error                                { return nil }

func do(t *testing.T, method, url, contentType, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServer_SampleAndKPIs(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/sample", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imported ImportResponse
	decode(t, resp, &imported)
	assert.Equal(t, 10, imported.Records)

	resp = do(t, http.MethodGet, ts.URL+"/api/kpis", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var kpis map[string]interface{}
	decode(t, resp, &kpis)
	assert.Equal(t, 10.0, kpis["count"])
	assert.Equal(t, 4.0, kpis["defaulterCount"])
	assert.Equal(t, "Sneha Gupta", kpis["topRecordName"])

	resp = do(t, http.MethodGet, ts.URL+"/api/departments", "", "")
	var departments []string
	decode(t, resp, &departments)
	assert.Equal(t, []string{"MCA", "B.Tech", "BCA"}, departments)
}

func TestServer_ListRecordsFilters(t *testing.T) {
	ts, dash := newTestServer(t)
	_, err := dash.LoadSample()
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/api/records?department=BCA", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var table struct {
		Rows []struct {
			Name           string `json:"name"`
			Classification string `json:"classification"`
		} `json:"rows"`
		Shown int `json:"shown"`
		Total int `json:"total"`
	}
	decode(t, resp, &table)
	assert.Equal(t, 2, table.Shown)
	assert.Equal(t, 10, table.Total)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Neha Yadav", table.Rows[0].Name)
	assert.Equal(t, "low", table.Rows[1].Classification)

	resp = do(t, http.MethodGet, ts.URL+"/api/records?status=sideways", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr APIError
	decode(t, resp, &apiErr)
	assert.Equal(t, "INVALID_PARAMETER", apiErr.ErrorCode)
}

func TestServer_AddRecord(t *testing.T) {
	ts, dash := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/records", "application/json",
		`{"id":"1","name":"Alice","dept":"CS","total":10,"attended":8}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var row map[string]interface{}
	decode(t, resp, &row)
	assert.Equal(t, 80.0, row["percent"])
	assert.Equal(t, "medium", row["classification"])
	assert.Len(t, dash.Records(), 1)

	resp = do(t, http.MethodPost, ts.URL+"/api/records", "application/json",
		`{"id":"","name":"Bob","dept":"CS","total":10,"attended":8}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var apiErr struct {
		ErrorCode string            `json:"error_code"`
		Details   map[string]string `json:"details"`
	}
	decode(t, resp, &apiErr)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
	assert.Equal(t, "id", apiErr.Details["field"])
	assert.Len(t, dash.Records(), 1)

	resp = do(t, http.MethodPost, ts.URL+"/api/records", "application/json", `{not json`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_AddRecordTrimsFields(t *testing.T) {
	ts, dash := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/records", "application/json",
		`{"id":" 7 ","name":" Bob ","dept":" CS ","total":10,"attended":8}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var row map[string]interface{}
	decode(t, resp, &row)
	assert.Equal(t, "7", row["id"])
	assert.Equal(t, "Bob", row["name"])
	assert.Equal(t, "CS", row["department"])

	resp = do(t, http.MethodDelete, ts.URL+"/api/records?id=7&name=Bob", "", "")
	var removed RemoveResponse
	decode(t, resp, &removed)
	assert.Equal(t, 1, removed.Removed)
	assert.Empty(t, dash.Records())
}

func TestServer_SaveFailureIsReported(t *testing.T) {
	dash, err := dashboard.New(context.Background(), readOnlyKV{}, dashboard.Options{})
	require.NoError(t, err)
	ts := newTestServerWith(t, dash, Options{})

	resp := do(t, http.MethodPost, ts.URL+"/api/sample", "", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var apiErr APIError
	decode(t, resp, &apiErr)
	assert.Equal(t, "SAVE_FAILED", apiErr.ErrorCode)

	// The change itself is kept in memory.
	assert.Len(t, dash.Records(), 10)

	resp = do(t, http.MethodDelete, ts.URL+"/api/records?id=999&name=Nobody", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_ImportTooLarge(t *testing.T) {
	dash, err := dashboard.Open(context.Background(), dashboard.Options{
		Backend: persistence.BackendFile,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	ts := newTestServerWith(t, dash, Options{MaxImportBytes: 16})

	resp := do(t, http.MethodPost, ts.URL+"/api/import", "text/csv",
		"StudentID,Name,Department,Total_Classes,Attended_Classes\n1,Alice,CS,10,8")
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var apiErr APIError
	decode(t, resp, &apiErr)
	assert.Equal(t, "REQUEST_TOO_LARGE", apiErr.ErrorCode)
	assert.Empty(t, dash.Records())
}

func TestServer_RemoveAndDetail(t *testing.T) {
	ts, dash := newTestServer(t)
	_, err := dash.LoadSample()
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/api/records/detail?id=103&name=Rahul+Verma", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail map[string]interface{}
	decode(t, resp, &detail)
	assert.Equal(t, "At Risk", detail["status"])

	resp = do(t, http.MethodDelete, ts.URL+"/api/records?id=103&name=Rahul+Verma", "", "")
	var removed RemoveResponse
	decode(t, resp, &removed)
	assert.Equal(t, 1, removed.Removed)
	assert.Len(t, dash.Records(), 9)

	resp = do(t, http.MethodGet, ts.URL+"/api/records/detail?id=103&name=Rahul+Verma", "", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/records?id=103", "", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Import(t *testing.T) {
	ts, dash := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/import", "text/csv",
		"StudentID,Name,Department,Total_Classes,Attended_Classes\n1,Alice,CS,10,8\n2,Bob,CS,ten,5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imported ImportResponse
	decode(t, resp, &imported)
	assert.Equal(t, 2, imported.Records)
	require.Len(t, imported.Warnings, 1)
	assert.Equal(t, 3, imported.Warnings[0].Line)

	resp = do(t, http.MethodPost, ts.URL+"/api/import", "text/csv", "only a header")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var apiErr APIError
	decode(t, resp, &apiErr)
	assert.Equal(t, "NO_DATA_ROWS", apiErr.ErrorCode)
	assert.Len(t, dash.Records(), 2)
}

func TestServer_Sort(t *testing.T) {
	ts, dash := newTestServer(t)
	_, err := dash.LoadSample()
	require.NoError(t, err)

	resp := do(t, http.MethodPost, ts.URL+"/api/sort/percent", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state map[string]bool
	decode(t, resp, &state)
	assert.True(t, state["percentAsc"])
	assert.Equal(t, "Rahul Verma", dash.Records()[0].Name)

	resp = do(t, http.MethodPost, ts.URL+"/api/sort/height", "", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ExportAndReport(t *testing.T) {
	ts, dash := newTestServer(t)
	_, err := dash.LoadSample()
	require.NoError(t, err)

	resp := do(t, http.MethodGet, ts.URL+"/api/export/csv", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "StudentID,Name,Department,Total_Classes,Attended_Classes\n101,Amit Kumar,MCA,30,28"))

	resp = do(t, http.MethodGet, ts.URL+"/api/export/docx", "", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/", "", "")
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Showing 10 of 10 rows")
}

func TestServer_ClearStorage(t *testing.T) {
	ts, dash := newTestServer(t)
	_, err := dash.LoadSample()
	require.NoError(t, err)

	resp := do(t, http.MethodDelete, ts.URL+"/api/storage", "", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, dash.Records())
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/sample", "", "")
	resp.Body.Close()

	resp = do(t, http.MethodGet, ts.URL+"/metrics", "", "")
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "attendash_records 10")
	assert.Contains(t, text, "attendash_defaulters 4")
	assert.Contains(t, text, `attendash_store_changes_total{kind="replaced"} 1`)
}

func TestServer_WebSocketReceivesChanges(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeConnection, hello.Type)
	assert.NotEmpty(t, hello.ClientID)

	resp := do(t, http.MethodPost, ts.URL+"/api/sample", "", "")
	resp.Body.Close()

	var change Message
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, TypeChange, change.Type)
	assert.Equal(t, store.ChangeReplaced, change.Change)
	assert.Equal(t, 10, change.Count)
}

func TestServer_Schema(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/export/schema.xsd", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<xs:schema")
}

func TestToAPIError_Unknown(t *testing.T) {
	apiErr := toAPIError(io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", apiErr.ErrorCode)
}
