package ui

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"kpijoin/adapters/excel"
	"kpijoin/domain/core"
	"kpijoin/internal/api"
	"kpijoin/internal/config"
	"kpijoin/internal/container"
	"kpijoin/internal/kpi"
	"kpijoin/models"
	"kpijoin/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const salesCSV = `id,Units_Sold,Price,Brand
1,10,100,Acme
2,20,50,Zen
3,30,10,Acme
4,40,20,Zen
5,50,30,Acme
`

const regionsCSV = `id,Discount,Region,Date
3,10,North,2024-01-05
4,0,South,2024-02-05
5,20,North,2024-03-05
6,5,East,2024-03-06
7,5,West,2024-04-01
`

func init() {
	gin.SetMode(gin.TestMode)
}

// MockRunRepository records ledger calls
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Record(ctx context.Context, run *models.AnalysisRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.AnalysisRun), args.Error(1)
}

func (m *MockRunRepository) CountBySession(ctx context.Context, sessionTag string) (int, error) {
	args := m.Called(ctx, sessionTag)
	return args.Int(0), args.Error(1)
}

var _ ports.RunRepository = (*MockRunRepository)(nil)

func newTestServer(t *testing.T, cfg *config.Config, runs ports.RunRepository) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	c, err := container.New(cfg)
	require.NoError(t, err)
	c.RunRepo = runs

	// the templates live at ui/templates relative to the module root
	srv, err := NewServer(c, os.DirFS(".."))
	require.NoError(t, err)
	return srv
}

type formFile struct {
	field, name, content string
}

// client replays the session cookie between requests like a browser
type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, srv *Server) *client {
	return &client{t: t, handler: srv.Handler()}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	cl.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		cl.cookies = cookies
	}
	return rec
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) upload(files ...formFile) *httptest.ResponseRecorder {
	cl.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(cl.t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(cl.t, err)
	}
	require.NoError(cl.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return cl.do(req)
}

func (cl *client) uploadPair() {
	cl.t.Helper()
	rec := cl.upload(
		formFile{"file1", "sales.csv", salesCSV},
		formFile{"file2", "regions.csv", regionsCSV},
	)
	require.Equal(cl.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (cl *client) sessionID() string {
	for _, c := range cl.cookies {
		if c.Name == config.Default().Session.CookieName {
			return c.Value
		}
	}
	return ""
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

type analyzeResponse struct {
	KPIs []struct {
		Name  string      `json:"name"`
		Value interface{} `json:"value"`
	} `json:"kpis"`
	ChartData []map[string]interface{} `json:"chart_data"`
	Category  *string                  `json:"category"`
	Tips      []string                 `json:"tips"`
}

func TestIndexPage(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))

	rec := cl.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "KPI Join Wizard")
	assert.NotEmpty(t, cl.sessionID(), "first visit issues a session cookie")
	assert.NotContains(t, rec.Body.String(), "innerHTML", "uploaded text is only ever set as textContent")
}

func TestReportEscapesUploadedText(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))
	rec := cl.upload(
		formFile{"file1", "sales.csv", "id,Units_Sold,Price,Brand\n1,10,100,<img src=x onerror=alert(1)>\n"},
		formFile{"file2", "terms.csv", "id,Discount\n1,10\n"},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}}).Code)
	require.Equal(t, http.StatusOK, cl.postForm("/analyze_kpi", url.Values{"dataset": {"joined"}}).Code)

	rec = cl.get("/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<img")
	assert.Contains(t, rec.Body.String(), kpi.NameTopBrand)
}

func TestWizardEndToEnd(t *testing.T) {
	runs := &MockRunRepository{}
	runs.On("Record", mock.Anything, mock.AnythingOfType("*models.AnalysisRun")).Return(nil).Once()

	cl := newClient(t, newTestServer(t, nil, runs))

	// upload
	rec := cl.upload(
		formFile{"file1", "sales.csv", salesCSV},
		formFile{"file2", "regions.csv", regionsCSV},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var described struct {
		ColsA  []string `json:"dataset1_cols"`
		ColsB  []string `json:"dataset2_cols"`
		Common []string `json:"common_columns"`
	}
	decode(t, rec, &described)
	assert.Equal(t, []string{"id", "Units_Sold", "Price", "Brand"}, described.ColsA)
	assert.Equal(t, []string{"id", "Discount", "Region", "Date"}, described.ColsB)
	assert.Equal(t, []string{"id"}, described.Common)

	// join
	rec = cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}, "join_type": {"inner"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined struct {
		Rows []map[string]interface{} `json:"joined_data"`
	}
	decode(t, rec, &joined)
	require.Len(t, joined.Rows, 3)
	for i, id := range []float64{3, 4, 5} {
		assert.Equal(t, id, joined.Rows[i]["id"])
	}
	assert.Equal(t, "North", joined.Rows[0]["Region"])

	// analyze
	rec = cl.postForm("/analyze_kpi", url.Values{"dataset": {"joined"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var analysis analyzeResponse
	decode(t, rec, &analysis)

	values := make(map[string]interface{})
	for _, k := range analysis.KPIs {
		values[k.Name] = k.Value
	}
	assert.Equal(t, 2270.0, values[kpi.NameTotalRevenue])
	assert.Equal(t, 120.0, values[kpi.NameTotalUnits])
	assert.Equal(t, 10.0, values[kpi.NameAverageDiscount])
	assert.Equal(t, "Acme", values[kpi.NameTopBrand])
	assert.Equal(t, "North", values[kpi.NameTopRegion])

	require.NotNil(t, analysis.Category)
	assert.Equal(t, "Month", *analysis.Category)
	require.Len(t, analysis.ChartData, 3)
	assert.Equal(t, "2024-01", analysis.ChartData[0]["Month"])
	assert.Equal(t, 30.0, analysis.ChartData[0]["Count"])
	assert.Equal(t, []string{
		kpi.TipLowSales,
		"📈 Sales trend increasing by 10.0 units/month — maintain stock levels.",
	}, analysis.Tips)

	// export
	rec = cl.get("/export")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, excel.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "kpi_analysis.xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{excel.KPISheet, excel.ChartSheet}, book.GetSheetList())

	// report
	rec = cl.get("/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), kpi.NameTotalRevenue)

	// ledger entry carries the session tag and source
	runs.AssertExpectations(t)
	run := runs.Calls[0].Arguments.Get(1).(*models.AnalysisRun)
	assert.Equal(t, core.SessionID(cl.sessionID()).Tag(), run.SessionTag)
	assert.Equal(t, "joined", run.Source)
	assert.Equal(t, 3, run.RowCount)
}

func TestRunLedgerDoesNotLeakSessionCookie(t *testing.T) {
	runs := &MockRunRepository{}
	runs.On("Record", mock.Anything, mock.AnythingOfType("*models.AnalysisRun")).Return(nil)
	srv := newTestServer(t, nil, runs)

	victim := newClient(t, srv)
	victim.uploadPair()
	require.Equal(t, http.StatusOK, victim.postForm("/analyze_kpi", url.Values{"dataset": {"dataset1"}}).Code)
	cookie := victim.sessionID()
	require.NotEmpty(t, cookie)

	recorded := runs.Calls[0].Arguments.Get(1).(*models.AnalysisRun)
	runs.On("ListRecent", mock.Anything, mock.Anything).Return([]*models.AnalysisRun{recorded}, nil)

	rec := httptest.NewRecorder()
	api.NewOpsServer(srv.sessions, runs).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), cookie)
	assert.Contains(t, rec.Body.String(), core.SessionID(cookie).Tag())

	// the tag is not a usable cookie
	intruder := newClient(t, srv)
	intruder.cookies = []*http.Cookie{{Name: config.Default().Session.CookieName, Value: core.SessionID(cookie).Tag()}}
	assert.Equal(t, http.StatusBadRequest, intruder.get("/export").Code)
}

func TestAnalyzeSingleDataset(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))
	cl.uploadPair()

	rec := cl.postForm("/analyze_kpi", url.Values{"dataset": {"dataset1"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis analyzeResponse
	decode(t, rec, &analysis)
	assert.Empty(t, analysis.KPIs, "dataset1 has no discount so no revenue is derived")
	assert.Nil(t, analysis.Category)
	assert.NotNil(t, analysis.ChartData)
	assert.Equal(t, []string{kpi.TipLowSales}, analysis.Tips)
}

func TestUploadErrors(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))

	rec := cl.upload(formFile{"file1", "sales.csv", salesCSV})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Both files are required", errorMessage(t, rec))

	rec = cl.upload(
		formFile{"file1", "sales.csv", salesCSV},
		formFile{"file2", "notes.txt", "hello"},
	)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported file type", errorMessage(t, rec))

	rec = cl.upload(
		formFile{"file1", "sales.csv", salesCSV},
		formFile{"file2", "broken.csv", "a,b\n\"1,2\n"},
	)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Could not read broken.csv", errorMessage(t, rec))
}

func TestUploadTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Upload.MaxSizeMB = 1
	cl := newClient(t, newTestServer(t, cfg, nil))

	big := "id\n" + strings.Repeat("1\n", 1<<20)
	rec := cl.upload(
		formFile{"file1", "a.csv", big},
		formFile{"file2", "b.csv", "id\n1\n"},
	)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Upload exceeds the 1 MB limit", errorMessage(t, rec))
}

func TestJoinErrors(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))

	rec := cl.postForm("/process_join", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No join columns provided", errorMessage(t, rec))

	rec = cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Dataset not available", errorMessage(t, rec))

	cl.uploadPair()

	rec = cl.postForm("/process_join", url.Values{"join_columns[]": {"Brand"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Join column 'Brand' not found in dataset2", errorMessage(t, rec))

	rec = cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}, "join_type": {"cross"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid join type 'cross'", errorMessage(t, rec))
}

func TestJoinDefaultsToInnerAndPreviewIsCapped(t *testing.T) {
	cfg := config.Default()
	cfg.Upload.PreviewRows = 2
	cl := newClient(t, newTestServer(t, cfg, nil))
	cl.uploadPair()

	rec := cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}, "join_type": {"outer"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined struct {
		Rows []map[string]interface{} `json:"joined_data"`
	}
	decode(t, rec, &joined)
	assert.Len(t, joined.Rows, 2)

	rec = cl.get("/session")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]interface{}
	decode(t, rec, &summary)
	assert.Equal(t, "outer", summary["join_type"])
	assert.Equal(t, core.SessionID(cl.sessionID()).Tag(), summary["session_tag"])
	assert.NotContains(t, rec.Body.String(), cl.sessionID())

	rec = cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, cl.get("/session"), &summary)
	assert.Equal(t, "inner", summary["join_type"])
}

func TestAnalyzeAndExportErrors(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))

	rec := cl.postForm("/analyze_kpi", url.Values{"dataset": {"dataset1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Dataset not available", errorMessage(t, rec))

	rec = cl.get("/export")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No KPI data to export", errorMessage(t, rec))

	rec = cl.get("/report")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cl.uploadPair()

	rec = cl.postForm("/analyze_kpi", url.Values{"dataset": {"joined"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing joined yet")

	rec = cl.postForm("/analyze_kpi", url.Values{"dataset": {"everything"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Dataset not available", errorMessage(t, rec))
}

func TestRejoinDiscardsJoinedAnalysis(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))
	cl.uploadPair()

	require.Equal(t, http.StatusOK, cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}}).Code)
	require.Equal(t, http.StatusOK, cl.postForm("/analyze_kpi", url.Values{"dataset": {"joined"}}).Code)
	require.Equal(t, http.StatusOK, cl.get("/export").Code)

	require.Equal(t, http.StatusOK, cl.postForm("/process_join", url.Values{"join_columns[]": {"id"}, "join_type": {"left"}}).Code)
	assert.Equal(t, http.StatusBadRequest, cl.get("/export").Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	alice := newClient(t, srv)
	bob := newClient(t, srv)

	alice.uploadPair()
	require.Equal(t, http.StatusOK, alice.postForm("/analyze_kpi", url.Values{"dataset": {"dataset2"}}).Code)
	assert.Equal(t, http.StatusOK, alice.get("/export").Code)

	assert.Equal(t, http.StatusBadRequest, bob.get("/export").Code)
	assert.Equal(t, http.StatusBadRequest, bob.postForm("/analyze_kpi", url.Values{"dataset": {"dataset2"}}).Code)
	assert.NotEqual(t, alice.sessionID(), bob.sessionID())
}

func TestUnknownSessionCookieGetsFreshWorkspace(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))
	cl.cookies = []*http.Cookie{{Name: config.Default().Session.CookieName, Value: "not-a-session"}}

	rec := cl.get("/session")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "not-a-session", cl.sessionID())
}

func TestDatasetProfile(t *testing.T) {
	cl := newClient(t, newTestServer(t, nil, nil))

	assert.Equal(t, http.StatusNotFound, cl.get("/datasets/nope/profile").Code)
	assert.Equal(t, http.StatusBadRequest, cl.get("/datasets/dataset1/profile").Code)

	cl.uploadPair()
	rec := cl.get("/datasets/dataset1/profile")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Dataset string                   `json:"dataset"`
		Rows    int                      `json:"rows"`
		Columns []map[string]interface{} `json:"columns"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "dataset1", body.Dataset)
	assert.Equal(t, 5, body.Rows)
	require.Len(t, body.Columns, 4)
	assert.Equal(t, "Units_Sold", body.Columns[1]["name"])
}

func TestLedgerFailureDoesNotFailAnalysis(t *testing.T) {
	runs := &MockRunRepository{}
	runs.On("Record", mock.Anything, mock.Anything).Return(stderrors.New("connection refused"))

	cl := newClient(t, newTestServer(t, nil, runs))
	cl.uploadPair()

	rec := cl.postForm("/analyze_kpi", url.Values{"dataset": {"dataset1"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	runs.AssertNumberOfCalls(t, "Record", 1)
}
