package business

import (
	"context"
	"fmt"

	"leakscan/internal/business/cohort"
	"leakscan/internal/business/coerce"
	"leakscan/internal/business/dataset"
	"leakscan/internal/business/normalize"
	"leakscan/internal/business/predict"
	"leakscan/internal/business/schema"
	"leakscan/pkg/logger"
	"leakscan/pkg/storage"
)

// 输出文件类型
const (
	OutputAllPredictions = "all_predictions"
	OutputNoLeakage      = "no_leakage"
	OutputAnomalies      = "anomalies"
)

// Result 单次分析的完整结果
type Result struct {
	SessionID       string            `json:"session_id"`
	Domain          string            `json:"domain"`
	InputSummary    *InputSummary     `json:"input_summary"`
	Summary         *cohort.Summary   `json:"prediction_summary"`
	DefaultsApplied map[string]int    `json:"defaults_applied"`
	SavedFiles      map[string]string `json:"saved_files"`
	Recommendations string            `json:"recommendations,omitempty"`
}

// AnalysisService 分析服务：归一化 → 类型强制 → 预测 → 分组 → 落盘
// 每个请求处理自己的数据副本，模型与编码器为进程级只读共享状态
type AnalysisService struct {
	sch     *schema.Schema
	adapter *predict.Adapter
	sink    storage.Sink
	logger  logger.Logger
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(sch *schema.Schema, adapter *predict.Adapter, sink storage.Sink, log logger.Logger) (*AnalysisService, error) {
	if err := sch.Validate(); err != nil {
		return nil, err
	}
	return &AnalysisService{
		sch:     sch,
		adapter: adapter,
		sink:    sink,
		logger:  log,
	}, nil
}

// Schema 当前服务的域描述符
func (s *AnalysisService) Schema() *schema.Schema {
	return s.sch
}

// Analyze 对上传数据执行端到端分析
// 数据流单向：归一化 → 强制 → 预测 → 分组，无反馈回路
func (s *AnalysisService) Analyze(ctx context.Context, ds *dataset.Dataset, sessionID string) (*Result, error) {
	s.logger.Infof(ctx, "[Analysis] Starting: domain=%s, rows=%d, columns=%d",
		s.sch.Domain, ds.NumRows(), ds.NumColumns())

	inputSummary := SummarizeInput(ds)

	// 1. 归一化（行数守恒）
	normalized, normReport, err := normalize.Run(ds, s.sch)
	if err != nil {
		return nil, err
	}

	// 2. 特征视图 + 类型强制
	features := normalize.Features(normalized, s.sch)
	matrix, coerceReport, err := coerce.Run(features, s.sch)
	if err != nil {
		return nil, err
	}

	// 3. 预测与解码（注解底座为预强制的人类可读行集）
	annotated, err := s.adapter.Predict(ctx, normalized, matrix)
	if err != nil {
		return nil, err
	}

	// 4. 分组与汇总
	cohorts, err := cohort.Partition(annotated, s.sch)
	if err != nil {
		return nil, err
	}
	summary := cohort.Summarize(cohorts, s.sch)

	// 5. 落盘（每个会话只写一次）
	savedFiles, err := s.saveCohorts(cohorts, sessionID)
	if err != nil {
		return nil, err
	}

	defaults := mergeDefaults(normReport.Defaults, coerceReport.Defaults)
	s.logger.Infof(ctx, "[Analysis] Complete: total=%d, anomalies=%d, defaults=%d",
		summary.TotalRecords, summary.RiskAssessment.HighRiskCount, len(defaults))

	return &Result{
		SessionID:       sessionID,
		Domain:          s.sch.Domain,
		InputSummary:    inputSummary,
		Summary:         summary,
		DefaultsApplied: defaults,
		SavedFiles:      savedFiles,
	}, nil
}

// saveCohorts 三个分组各写一个 CSV
func (s *AnalysisService) saveCohorts(c *cohort.Cohorts, sessionID string) (map[string]string, error) {
	outputs := []struct {
		kind string
		ds   *dataset.Dataset
	}{
		{OutputAllPredictions, c.All},
		{OutputNoLeakage, c.Clean},
		{OutputAnomalies, c.Anomaly},
	}

	saved := make(map[string]string, len(outputs))
	for _, out := range outputs {
		name := fmt.Sprintf("%s_%s_%s.csv", s.sch.Domain, sessionID, out.kind)
		path, err := s.sink.Save(out.ds, name)
		if err != nil {
			return nil, fmt.Errorf("save %s failed: %w", out.kind, err)
		}
		saved[out.kind] = path
	}

	return saved, nil
}

func mergeDefaults(reports ...map[string]int) map[string]int {
	merged := make(map[string]int)
	for _, report := range reports {
		for kind, count := range report {
			merged[kind] += count
		}
	}
	return merged
}
