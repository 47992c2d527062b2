package response

import (
	"leakscan/internal/domains/common/job"
	"leakscan/pkg/errorutil"
)

// AnalysisResult 分析结果（实现 ResultI 接口）
type AnalysisResult struct {
	SessionID string           `json:"session_id"`
	Domain    string           `json:"domain"`
	Status    string           `json:"status"`
	Data      interface{}      `json:"data"`
	Error     *errorutil.Error `json:"error,omitempty"`
}

const (
	AnalysisStatusSuccess = "ANALYZED"
	AnalysisStatusFailed  = "FAILED"
)

// NewAnalysisResult 创建分析结果
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{}
}

// Set 实现 ResultI 接口
func (r *AnalysisResult) Set(meta *job.Meta, err error) {
	r.SessionID = meta.SessionID
	r.Domain = meta.Domain
	if err != nil {
		r.Status = AnalysisStatusFailed
		r.Error = errorutil.Wrap(err)
	} else {
		r.Status = AnalysisStatusSuccess
	}
}

// GetStatus 实现 ResultI 接口
func (r *AnalysisResult) GetStatus() string {
	return r.Status
}
