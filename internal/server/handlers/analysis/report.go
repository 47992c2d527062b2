package analysis

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	"leakscan/internal/business"
	"leakscan/pkg/ginx"
	"leakscan/pkg/sessionstore"
)

// 风险等级阈值（高风险记录占比）
const (
	riskLevelHighThreshold   = 20.0
	riskLevelMediumThreshold = 5.0
)

// Report 综合分析报告
type Report struct {
	SessionID       string      `json:"session_id"`
	Domain          string      `json:"domain"`
	Filename        string      `json:"filename"`
	GeneratedAt     string      `json:"generated_at"`
	RiskLevel       string      `json:"risk_level"` // HIGH / MEDIUM / LOW
	InputSummary    interface{} `json:"input_summary"`
	Summary         interface{} `json:"prediction_summary"`
	DefaultsApplied interface{} `json:"defaults_applied"`
	Recommendations string      `json:"recommendations,omitempty"`
}

// GetReport 生成会话的综合分析报告
// GET /api/v1/report/:session_id
func (h *AnalysisHandler) GetReport(c *gin.Context) {
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
		h.logger.Errorf(c.Request.Context(), "[GetReport] store get failed: %v", err)
		ginx.InternalError(c, "failed to load session")
		return
	}

	if record.Status != sessionstore.StatusAnalyzed {
		ginx.BadRequest(c, "report is only available for analyzed sessions")
		return
	}

	var result business.Result
	if err := json.Unmarshal(record.ResultJSON, &result); err != nil {
		h.logger.Errorf(c.Request.Context(), "[GetReport] unmarshal result failed: %v", err)
		ginx.InternalError(c, "stored result is corrupted")
		return
	}

	report := &Report{
		SessionID:       record.SessionID,
		Domain:          record.Domain,
		Filename:        record.Filename,
		GeneratedAt:     record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		RiskLevel:       riskLevel(result),
		InputSummary:    result.InputSummary,
		Summary:         result.Summary,
		DefaultsApplied: result.DefaultsApplied,
		Recommendations: result.Recommendations,
	}

	ginx.Success(c, report)
}

// riskLevel 按高风险记录占比评级
func riskLevel(result business.Result) string {
	if result.Summary == nil {
		return "LOW"
	}
	pct := result.Summary.RiskAssessment.HighRiskPercentage
	switch {
	case pct >= riskLevelHighThreshold:
		return "HIGH"
	case pct >= riskLevelMediumThreshold:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
