package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakscan/internal/business"
	"leakscan/internal/business/cohort"
	"leakscan/internal/business/schema"
	"leakscan/pkg/config"
	"leakscan/pkg/logger"
	"leakscan/pkg/sessionstore"
)

const supermarketCSV = `Invoice_Number,Billed_Amount,Actual_Amount,Tax_Amount,Service_Charge,Discount_Amount,Billing_Date
INV001,50,40,5,5,0,15-01-2023
INV002,80,60,,10,0,not-a-date
INV003,100,90,5,5,0,01-03-2023
`

func newTestHandler(t *testing.T) (*AnalysisHandler, sessionstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Storage.OutputDir = t.TempDir()

	services := make(map[string]*business.AnalysisService)
	for _, domain := range []string{schema.DomainSupermarket, schema.DomainTelecom} {
		svc, err := business.BuildService(domain, cfg, logger.NewNopLogger())
		require.NoError(t, err)
		services[domain] = svc
	}

	store := sessionstore.NewMemoryStore()
	h := NewAnalysisHandler(services, store, nil, nil, "", t.TempDir(), 0, logger.NewNopLogger())
	return h, store
}

func newTestRouter(h *AnalysisHandler) *gin.Engine {
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/:domain/predict", h.Predict)
	v1.GET("/results/:session_id", h.Results)
	v1.GET("/sessions", h.Sessions)
	v1.GET("/download/:type/:session_id", h.Download)
	v1.GET("/report/:session_id", h.GetReport)
	return r
}

func uploadRequest(t *testing.T, url, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestPredictSync(t *testing.T) {
	h, store := newTestHandler(t)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/v1/supermarket/predict", "billing.csv", supermarketCSV))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Meta struct {
			Code int `json:"code"`
		} `json:"meta"`
		Data business.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Meta.Code)
	assert.Equal(t, schema.DomainSupermarket, resp.Data.Domain)
	assert.Equal(t, 3, resp.Data.Summary.TotalRecords)
	assert.Equal(t, 1, resp.Data.Summary.RiskAssessment.HighRiskCount)

	// 同步路径落库为 ANALYZED
	record, err := store.Get(context.Background(), resp.Data.SessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionstore.StatusAnalyzed, record.Status)
}

func TestPredictUnsupportedDomain(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/v1/hospital/predict", "billing.csv", supermarketCSV))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictRejectsOversizedUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Storage.OutputDir = t.TempDir()
	svc, err := business.BuildService(schema.DomainSupermarket, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	services := map[string]*business.AnalysisService{schema.DomainSupermarket: svc}

	// 上限设得比表单还小，触发请求体大小保护
	h := NewAnalysisHandler(services, sessionstore.NewMemoryStore(), nil, nil, "",
		t.TempDir(), 64, logger.NewNopLogger())
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/v1/supermarket/predict", "billing.csv", supermarketCSV))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds limit")
}

func TestPredictRejectsNonCSV(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/v1/supermarket/predict", "billing.xlsx", "junk"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictMissingFile(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/supermarket/predict", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictAsyncDisabled(t *testing.T) {
	// publisher 未配置时异步模式拒绝
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/v1/supermarket/predict?mode=async", "billing.csv", supermarketCSV))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultsNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/results/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResultsAndSessions(t *testing.T) {
	h, store := newTestHandler(t)
	r := newTestRouter(h)

	require.NoError(t, store.Put(context.Background(), &sessionstore.Record{
		SessionID:  "sess-001",
		Domain:     schema.DomainSupermarket,
		Filename:   "billing.csv",
		Status:     sessionstore.StatusProcessing,
		SavedFiles: map[string]string{business.OutputAllPredictions: "/tmp/x.csv"},
		CreatedAt:  time.Now(),
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/results/sess-001", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data SessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sessionstore.StatusProcessing, resp.Data.Status)
	assert.Equal(t, []string{business.OutputAllPredictions}, resp.Data.SavedFiles)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data []*SessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Nil(t, list.Data[0].Result)
}

func TestSessionsRejectsOutOfRangeLimit(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	// 超出上限的 limit 返回带字段详情的校验错误
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=500", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Meta struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Details []struct {
				Path string `json:"path"`
				Info string `json:"info"`
			} `json:"details"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Validation failed", resp.Meta.Message)
	require.Len(t, resp.Meta.Details, 1)
	assert.Equal(t, "Limit", resp.Meta.Details[0].Path)
	assert.Contains(t, resp.Meta.Details[0].Info, "at most 100")

	// 合法 limit 正常返回
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetReportFlow(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	// 先同步分析一份数据
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/v1/supermarket/predict", "billing.csv", supermarketCSV))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data business.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/report/"+resp.Data.SessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Data Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	// 3 行内 1 行异常 → 33.3% ≥ 20% 判高风险
	assert.Equal(t, "HIGH", report.Data.RiskLevel)
	assert.Equal(t, resp.Data.SessionID, report.Data.SessionID)
}

func TestReportNotAvailableWhileProcessing(t *testing.T) {
	h, store := newTestHandler(t)
	r := newTestRouter(h)

	require.NoError(t, store.Put(context.Background(), &sessionstore.Record{
		SessionID: "sess-001",
		Status:    sessionstore.StatusProcessing,
		CreatedAt: time.Now(),
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/report/sess-001", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadValidation(t *testing.T) {
	h, store := newTestHandler(t)
	r := newTestRouter(h)

	// 未知产物类型
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/download/bogus/sess-001", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 会话不存在
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/download/all_predictions/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 会话处理中不可下载
	require.NoError(t, store.Put(context.Background(), &sessionstore.Record{
		SessionID: "sess-001",
		Status:    sessionstore.StatusProcessing,
		CreatedAt: time.Now(),
	}))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/download/all_predictions/sess-001", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRiskLevelThresholds(t *testing.T) {
	mk := func(pct float64) business.Result {
		return business.Result{Summary: &cohort.Summary{
			RiskAssessment: cohort.RiskAssessment{HighRiskPercentage: pct},
		}}
	}

	assert.Equal(t, "HIGH", riskLevel(mk(20)))
	assert.Equal(t, "MEDIUM", riskLevel(mk(5)))
	assert.Equal(t, "MEDIUM", riskLevel(mk(19.9)))
	assert.Equal(t, "LOW", riskLevel(mk(4.9)))
	assert.Equal(t, "LOW", riskLevel(business.Result{}))
}
