package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJob(t *testing.T) {
	raw := []byte(`{
		"payload": {
			"data": {
				"request_id": "req-001",
				"action_type": "supermarket_analyze",
				"session_id": "sess-001",
				"domain": "supermarket",
				"data": {"file_path": "/tmp/upload.csv", "filename": "upload.csv"}
			}
		}
	}`)

	h := &BaseHandler{}
	require.NoError(t, h.ParseJob(context.Background(), raw))

	meta := h.GetMeta()
	require.NotNil(t, meta)
	assert.Equal(t, "req-001", meta.RequestID)
	assert.Equal(t, "supermarket_analyze", meta.ActionType)
	assert.Equal(t, "sess-001", meta.SessionID)
	assert.Equal(t, "supermarket", meta.Domain)
	assert.Equal(t, raw, h.GetRawData())

	biz, ok := h.GetBizPayload().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/tmp/upload.csv", biz["file_path"])
}

func TestParseJobInvalid(t *testing.T) {
	h := &BaseHandler{}

	assert.Error(t, h.ParseJob(context.Background(), []byte("not-json")))
	assert.Error(t, h.ParseJob(context.Background(), []byte(`{}`)))
	assert.Error(t, h.ParseJob(context.Background(), []byte(`{"payload":{}}`)))
}

func TestWrapResponse(t *testing.T) {
	h := &BaseHandler{}
	require.NoError(t, h.ParseJob(context.Background(), []byte(
		`{"payload":{"data":{"request_id":"req-001","action_type":"telecom_analyze"}}}`)))

	data, err := h.WrapResponse(context.Background(), map[string]string{"status": "ok"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"processed":true`)
	assert.Contains(t, string(data), `"req-001"`)

	data, err = h.WrapErrorResponse(context.Background(), errors.New("boom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"processed":false`)
	assert.Contains(t, string(data), "boom")
}

func TestPreProcessorRun(t *testing.T) {
	var order []int
	chain := NewPreProcessor([]Step{
		{Name: "first", Run: func(ctx context.Context) error {
			order = append(order, 1)
			return nil
		}},
		{Name: "second", Run: func(ctx context.Context) error {
			order = append(order, 2)
			return errors.New("stop here")
		}},
		{Name: "third", Run: func(ctx context.Context) error {
			order = append(order, 3)
			return nil
		}},
	})

	err := chain.Run(context.Background())
	require.Error(t, err)
	// 链在首个错误处中断，错误带失败步骤名
	assert.Equal(t, []int{1, 2}, order)
	assert.Contains(t, err.Error(), "second failed")
}
