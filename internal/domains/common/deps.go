package common

import (
	"context"

	"leakscan/internal/business"
	"leakscan/internal/recommend"
	redisx "leakscan/pkg/infra/redis"
	"leakscan/pkg/lmstfy"
	"leakscan/pkg/logger"
	"leakscan/pkg/sessionstore"
)

// DepsContextKey Context 中依赖集合的键
const DepsContextKey = "analysis_deps"

// Deps Handler 依赖集合
// 由 Manager 初始化后注入 Context，Handler 从 Context 取用
type Deps struct {
	Services      map[string]*business.AnalysisService // 业务域 → 分析服务
	Store         sessionstore.Store                   // 会话存储
	PubSub        *redisx.PubSub                       // 完成通知（可为 nil）
	NotifyChannel string                               // Redis 通知频道
	Recommender   recommend.Recommender                // 整改建议生成器
	LmstfyClient  *lmstfy.Client                       // 回调队列投递
	CallbackQueue string                               // 回调队列名称
	Logger        logger.Logger                        // 结构化日志
}

// DepsFromContext 从 Context 提取依赖集合
func DepsFromContext(ctx context.Context) (*Deps, bool) {
	deps, ok := ctx.Value(DepsContextKey).(*Deps)
	return deps, ok && deps != nil
}
