package analysis

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	"leakscan/pkg/ginx"
	"leakscan/pkg/sessionstore"
)

// ListSessionsRequest 会话列表查询参数
type ListSessionsRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// SessionView 会话查询响应
type SessionView struct {
	SessionID  string      `json:"session_id"`
	Domain     string      `json:"domain"`
	Filename   string      `json:"filename"`
	Status     string      `json:"status"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  string      `json:"created_at"`
	SavedFiles []string    `json:"saved_files,omitempty"`
}

// Results 查询分析会话结果
// GET /api/v1/results/:session_id
// 异步会话处理中时返回 PROCESSING 状态，客户端轮询
func (h *AnalysisHandler) Results(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		ginx.BadRequest(c, "session_id required")
		return
	}

	record, err := h.store.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			ginx.NotFound(c, "session not found")
			return
		}
		h.logger.Errorf(c.Request.Context(), "[Results] store get failed: %v", err)
		ginx.InternalError(c, "failed to load session")
		return
	}

	ginx.Success(c, toSessionView(record))
}

// Sessions 列出最近的分析会话
// GET /api/v1/sessions?limit=20
func (h *AnalysisHandler) Sessions(c *gin.Context) {
	var req ListSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	records, err := h.store.ListRecent(c.Request.Context(), req.Limit)
	if err != nil {
		h.logger.Errorf(c.Request.Context(), "[Sessions] store list failed: %v", err)
		ginx.InternalError(c, "failed to list sessions")
		return
	}

	views := make([]*SessionView, 0, len(records))
	for _, record := range records {
		view := toSessionView(record)
		view.Result = nil // 列表不带结果快照，按会话单查
		views = append(views, view)
	}

	ginx.Success(c, views)
}

// toSessionView 会话记录转响应视图
func toSessionView(record *sessionstore.Record) *SessionView {
	view := &SessionView{
		SessionID: record.SessionID,
		Domain:    record.Domain,
		Filename:  record.Filename,
		Status:    record.Status,
		Error:     record.Error,
		CreatedAt: record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	for kind := range record.SavedFiles {
		view.SavedFiles = append(view.SavedFiles, kind)
	}

	if len(record.ResultJSON) > 0 {
		var result interface{}
		if err := json.Unmarshal(record.ResultJSON, &result); err == nil {
			view.Result = result
		}
	}

	return view
}
