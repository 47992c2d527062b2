package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"leakscan/internal/business"
	"leakscan/internal/business/dataset"
	"leakscan/internal/domains/common"
	"leakscan/internal/domains/common/job"
	"leakscan/internal/domains/common/response"
	"leakscan/internal/framework"
	"leakscan/pkg/errorutil"
	redisx "leakscan/pkg/infra/redis"
	"leakscan/pkg/sessionstore"
)

// BusinessData 分析任务的业务数据
type BusinessData struct {
	FilePath string `json:"file_path"` // 上传文件的落盘路径
	Filename string `json:"filename"`  // 原始文件名
}

// AnalyzeHandler 账单分析 Handler
type AnalyzeHandler struct {
	ctx     context.Context
	meta    *job.Meta
	jobData *BusinessData

	// 处理链的中间状态
	deps *common.Deps
	ds   *dataset.Dataset
	res  *business.Result
}

// NewAnalyzeHandler 创建分析 Handler
// 解析标准化 Job 消息
func NewAnalyzeHandler(ctx context.Context, meta *job.Meta, payload interface{}) (common.HandlerServ, error) {
	// 1. 解析 payload（业务数据）
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}

	var bizData BusinessData
	if err := json.Unmarshal(payloadBytes, &bizData); err != nil {
		return nil, fmt.Errorf("unmarshal business data failed: %w", err)
	}

	// 2. 校验必填字段
	if meta.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if bizData.FilePath == "" {
		return nil, fmt.Errorf("file_path is required")
	}

	// 3. Domain 为空时从 action_type 推导（supermarket_analyze → supermarket）
	if meta.Domain == "" {
		meta.Domain = strings.TrimSuffix(meta.ActionType, "_analyze")
	}

	return &AnalyzeHandler{
		ctx:     ctx,
		meta:    meta,
		jobData: &bizData,
	}, nil
}

// GetProcess 处理分析请求
func (h *AnalyzeHandler) GetProcess() *response.Response {
	// 创建结果
	result := response.NewAnalysisResult()

	// 处理业务逻辑
	err := h.process(result)

	// 包装响应
	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)

	return resp
}

// process 业务处理逻辑（函数链组织）
// 无论成败都把最终状态写回会话存储并发布完成通知
func (h *AnalyzeHandler) process(result *response.AnalysisResult) error {
	deps, ok := common.DepsFromContext(h.ctx)
	if !ok {
		return fmt.Errorf("analysis deps not found in context")
	}
	h.deps = deps

	steps := []framework.Step{
		{Name: "load dataset", Run: h.loadDataset},
		{Name: "run analysis", Run: h.runAnalysis},
		{Name: "attach recommendations", Run: h.attachRecommendations},
	}

	if err := framework.NewPreProcessor(steps).Run(h.ctx); err != nil {
		if putErr := h.finish(deps, nil, err); putErr != nil {
			deps.Logger.Errorf(h.ctx, "[Analyze] session store put failed: %v", putErr)
		}
		return err
	}

	result.Data = h.res

	// 落库 + 通知 + 回调
	// 分析已成功但状态未落库时按可重试错误上报，任务 Release 后重投
	if putErr := h.finish(deps, h.res, nil); putErr != nil {
		return errorutil.Retriable(fmt.Sprintf("session store put failed: %v", putErr))
	}

	return nil
}

// loadDataset 加载上传文件
func (h *AnalyzeHandler) loadDataset(ctx context.Context) error {
	ds, err := dataset.ReadCSVFile(h.jobData.FilePath)
	if err != nil {
		return fmt.Errorf("read upload file failed: %w", err)
	}
	h.ds = ds
	return nil
}

// runAnalysis 按业务域执行分析流水线
func (h *AnalyzeHandler) runAnalysis(ctx context.Context) error {
	svc, ok := h.deps.Services[h.meta.Domain]
	if !ok || svc == nil {
		return fmt.Errorf("unsupported domain: %s", h.meta.Domain)
	}

	res, err := svc.Analyze(ctx, h.ds, h.meta.SessionID)
	if err != nil {
		return err
	}
	h.res = res
	return nil
}

// attachRecommendations 生成整改建议（尽力而为，失败不影响分析结果）
func (h *AnalyzeHandler) attachRecommendations(ctx context.Context) error {
	if h.deps.Recommender == nil {
		return nil
	}
	if text, err := h.deps.Recommender.Recommend(ctx, h.meta.Domain, h.res.Summary); err == nil {
		h.res.Recommendations = text
	}
	return nil
}

// finish 写回会话状态并发布完成通知与回调
// 返回落库错误；通知与回调失败只记录日志
func (h *AnalyzeHandler) finish(deps *common.Deps, res *business.Result, procErr error) error {
	status := sessionstore.StatusAnalyzed
	record := &sessionstore.Record{
		SessionID: h.meta.SessionID,
		Domain:    h.meta.Domain,
		Filename:  h.jobData.Filename,
		CreatedAt: time.Now(),
	}

	if procErr != nil {
		status = sessionstore.StatusFailed
		record.Error = procErr.Error()
	} else if res != nil {
		record.SavedFiles = res.SavedFiles
		if data, err := json.Marshal(res); err == nil {
			record.ResultJSON = data
		}
	}
	record.Status = status

	putErr := deps.Store.Put(h.ctx, record)

	// Redis 完成通知（可选依赖）
	if deps.PubSub != nil && deps.NotifyChannel != "" {
		notification := &redisx.AnalysisNotification{
			SessionID: h.meta.SessionID,
			Domain:    h.meta.Domain,
			Status:    status,
			Timestamp: time.Now().Unix(),
		}
		if err := deps.PubSub.PublishAnalysisComplete(h.ctx, deps.NotifyChannel, notification); err != nil {
			deps.Logger.Errorf(h.ctx, "[Analyze] publish notification failed: %v", err)
		}
	}

	// 回调队列投递（可选依赖）
	if deps.LmstfyClient != nil && deps.CallbackQueue != "" {
		callback := map[string]interface{}{
			"session_id": h.meta.SessionID,
			"domain":     h.meta.Domain,
			"status":     status,
			"request_id": h.meta.RequestID,
		}
		if err := deps.LmstfyClient.PublishJSON(deps.CallbackQueue, callback, 0, 0); err != nil {
			deps.Logger.Errorf(h.ctx, "[Analyze] publish callback failed: %v", err)
		}
	}

	return putErr
}
