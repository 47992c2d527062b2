package domains

import (
	"leakscan/internal/domains/common"
	"leakscan/internal/domains/handlers/analyze"
)

// HandlerMap 路由表（ActionType → Handler 映射）
// 两个业务域复用同一 Handler，域信息由 Job 元数据携带
var HandlerMap = map[string]common.HandlerServProc{
	"supermarket_analyze": analyze.NewAnalyzeHandler,
	"telecom_analyze":     analyze.NewAnalyzeHandler,
}
