package domains

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"leakscan/internal/domains/common"
	"leakscan/internal/domains/common/job"
	"leakscan/internal/domains/common/response"
	"leakscan/internal/framework"
	"leakscan/pkg/lmstfyx"
	"leakscan/pkg/logger"
)

// GetProcess 返回核心处理函数（注入到 Processor）
// deps 为 Handler 依赖集合，随 Context 下发
func GetProcess(log logger.Logger, deps *common.Deps) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		meta, bizPayload, err := parseJob(ctx, lmstfyJob, log)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: %v", err)
			return &lmstfyx.JobResp{
				Action: lmstfyx.JobRespStatusBury,
				Data:   nil,
			}
		}

		// 2. 注入 TraceID 和依赖到 Context
		ctx = context.WithValue(ctx, "trace_id", meta.RequestID)
		ctx = context.WithValue(ctx, "session_id", meta.SessionID)
		ctx = context.WithValue(ctx, "domain", meta.Domain)
		ctx = context.WithValue(ctx, "action_type", meta.ActionType)
		if deps != nil {
			ctx = context.WithValue(ctx, common.DepsContextKey, deps)
		}

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, session_id=%s",
			meta.ActionType, meta.RequestID, meta.SessionID)

		// 3. 从 HandlerMap 获取 Handler
		handlerFunc, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return &lmstfyx.JobResp{
				Action: lmstfyx.JobRespStatusBury,
				Data:   nil,
			}
		}

		// 4. 调用 Handler（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
					resp = &lmstfyx.JobResp{
						Action: lmstfyx.JobRespStatusBury,
						Data:   nil,
					}
				}
			}()

			handler, err := handlerFunc(ctx, meta, bizPayload)
			if err != nil {
				log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
				resp = &lmstfyx.JobResp{
					Action: lmstfyx.JobRespStatusBury,
					Data:   nil,
				}
				return
			}

			handlerResp := handler.GetProcess()
			resp = doJobReport(ctx, handlerResp, log)
		}()

		// 5. 记录处理时长
		duration := time.Since(startTime)
		log.Infof(ctx, "[GetProcess] Processing complete: action=%d, duration=%v", resp.Action, duration)

		return resp
	}
}

// parseJob 通过框架 BaseHandler 解析标准 Job 结构
func parseJob(ctx context.Context, lmstfyJob *client.Job, log logger.Logger) (*job.Meta, interface{}, error) {
	// 1. 委托框架解析（结构校验在 ParseJob 内完成）
	base := &framework.BaseHandler{}
	if err := base.ParseJob(ctx, lmstfyJob.Data); err != nil {
		return nil, nil, err
	}

	// 2. 转换为业务侧元数据
	raw := base.GetMeta()
	meta := &job.Meta{
		RequestID:  raw.RequestID,
		ActionType: raw.ActionType,
		SessionID:  raw.SessionID,
		Domain:     raw.Domain,
	}

	// RequestID 为空则生成一个
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}

	log.Debugf(ctx, "[parseJob] Parsed: action_type=%s, request_id=%s, session_id=%s",
		meta.ActionType, meta.RequestID, meta.SessionID)

	return meta, base.GetBizPayload(), nil
}

// doJobReport 生成 JobResp（根据 Response 判断 ACK/Bury/Release）
// 可重试错误返回 Release，等待 TTR 到期后重投；其余失败 Bury
func doJobReport(ctx context.Context, resp *response.Response, log logger.Logger) *lmstfyx.JobResp {
	// 序列化响应数据
	data, err := json.Marshal(resp)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] marshal response failed: %v", err)
		return &lmstfyx.JobResp{
			Action: lmstfyx.JobRespStatusBury,
			Data:   nil,
		}
	}

	if resp.Error != nil {
		action := lmstfyx.JobRespStatusBury
		if resp.Error.Retryable {
			action = lmstfyx.JobRespStatusRelease
		}
		return &lmstfyx.JobResp{
			Action: action,
			Data:   data,
		}
	}

	return &lmstfyx.JobResp{
		Action: lmstfyx.JobRespStatusSuccess,
		Data:   data,
	}
}
