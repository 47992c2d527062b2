package domains

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakscan/internal/business"
	"leakscan/internal/business/schema"
	"leakscan/internal/domains/common"
	"leakscan/pkg/config"
	"leakscan/pkg/logger"
	"leakscan/pkg/lmstfyx"
	"leakscan/pkg/sessionstore"
)

func newTestDeps(t *testing.T) *common.Deps {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage.OutputDir = t.TempDir()

	svc, err := business.BuildService(schema.DomainSupermarket, cfg, logger.NewNopLogger())
	require.NoError(t, err)

	return &common.Deps{
		Services: map[string]*business.AnalysisService{schema.DomainSupermarket: svc},
		Store:    sessionstore.NewMemoryStore(),
		Logger:   logger.NewNopLogger(),
	}
}

// failingStore 落库恒失败的会话存储，模拟存储端临时故障
type failingStore struct {
	sessionstore.Store
}

func (s *failingStore) Put(ctx context.Context, record *sessionstore.Record) error {
	return fmt.Errorf("connection reset by peer")
}

func jobWithData(data string) *client.Job {
	return &client.Job{Data: []byte(data)}
}

func TestGetProcessSuccess(t *testing.T) {
	deps := newTestDeps(t)
	proc := GetProcess(logger.NewNopLogger(), deps)

	uploadPath := filepath.Join(t.TempDir(), "billing.csv")
	csv := "Invoice_Number,Billed_Amount,Actual_Amount,Tax_Amount,Service_Charge,Discount_Amount,Billing_Date\n" +
		"INV001,50,40,5,5,0,15-01-2023\n"
	require.NoError(t, os.WriteFile(uploadPath, []byte(csv), 0o644))

	payload := fmt.Sprintf(`{
		"payload": {
			"data": {
				"request_id": "req-001",
				"action_type": "supermarket_analyze",
				"session_id": "sess-001",
				"domain": "supermarket",
				"data": {"file_path": %q, "filename": "billing.csv"}
			}
		}
	}`, uploadPath)

	resp := proc(context.Background(), jobWithData(payload))
	require.NotNil(t, resp)
	assert.Equal(t, lmstfyx.JobRespStatusSuccess, resp.Action)

	// 处理完成后会话记录应为 ANALYZED
	record, err := deps.Store.Get(context.Background(), "sess-001")
	require.NoError(t, err)
	assert.Equal(t, sessionstore.StatusAnalyzed, record.Status)
	assert.NotEmpty(t, record.ResultJSON)
	assert.Len(t, record.SavedFiles, 3)
}

func TestGetProcessStorePutFailureReleases(t *testing.T) {
	deps := newTestDeps(t)
	deps.Store = &failingStore{Store: sessionstore.NewMemoryStore()}
	proc := GetProcess(logger.NewNopLogger(), deps)

	uploadPath := filepath.Join(t.TempDir(), "billing.csv")
	csv := "Invoice_Number,Billed_Amount,Actual_Amount,Tax_Amount,Service_Charge,Discount_Amount,Billing_Date\n" +
		"INV001,50,40,5,5,0,15-01-2023\n"
	require.NoError(t, os.WriteFile(uploadPath, []byte(csv), 0o644))

	payload := fmt.Sprintf(`{
		"payload": {
			"data": {
				"request_id": "req-002",
				"action_type": "supermarket_analyze",
				"session_id": "sess-003",
				"domain": "supermarket",
				"data": {"file_path": %q, "filename": "billing.csv"}
			}
		}
	}`, uploadPath)

	// 分析成功但状态落库失败：可重试，Release 等待重投
	resp := proc(context.Background(), jobWithData(payload))
	require.NotNil(t, resp)
	assert.Equal(t, lmstfyx.JobRespStatusRelease, resp.Action)
}

func TestGetProcessMalformedJob(t *testing.T) {
	proc := GetProcess(logger.NewNopLogger(), newTestDeps(t))

	resp := proc(context.Background(), jobWithData("not-json"))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)

	resp = proc(context.Background(), jobWithData(`{"payload":{}}`))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
}

func TestGetProcessUnknownAction(t *testing.T) {
	proc := GetProcess(logger.NewNopLogger(), newTestDeps(t))

	resp := proc(context.Background(), jobWithData(`{
		"payload": {"data": {"action_type": "hospital_analyze", "session_id": "sess-001"}}
	}`))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
}

func TestGetProcessMissingFilePath(t *testing.T) {
	proc := GetProcess(logger.NewNopLogger(), newTestDeps(t))

	// Handler 构造阶段校验 file_path
	resp := proc(context.Background(), jobWithData(`{
		"payload": {"data": {"action_type": "supermarket_analyze", "session_id": "sess-001", "data": {}}}
	}`))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)
}

func TestGetProcessMissingUploadFails(t *testing.T) {
	deps := newTestDeps(t)
	proc := GetProcess(logger.NewNopLogger(), deps)

	// 文件不存在：不可重试，Bury 并把失败写回会话
	resp := proc(context.Background(), jobWithData(`{
		"payload": {"data": {"action_type": "supermarket_analyze", "session_id": "sess-002",
			"data": {"file_path": "/nonexistent/billing.csv", "filename": "billing.csv"}}}
	}`))
	assert.Equal(t, lmstfyx.JobRespStatusBury, resp.Action)

	record, err := deps.Store.Get(context.Background(), "sess-002")
	require.NoError(t, err)
	assert.Equal(t, sessionstore.StatusFailed, record.Status)
	assert.NotEmpty(t, record.Error)
}
