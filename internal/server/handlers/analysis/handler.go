package analysis

import (
	"leakscan/internal/business"
	"leakscan/internal/recommend"
	"leakscan/pkg/lmstfy"
	"leakscan/pkg/logger"
	"leakscan/pkg/sessionstore"
)

// AnalysisHandler 账单分析 HTTP 处理器
type AnalysisHandler struct {
	services    map[string]*business.AnalysisService // 业务域 → 分析服务
	store       sessionstore.Store
	recommender recommend.Recommender
	publisher   *lmstfy.Client // 异步模式任务投递（可为 nil）
	jobQueue    string         // 分析任务队列名称
	uploadDir   string
	maxUpload   int64 // 上传大小上限（字节）
	logger      logger.Logger
}

// defaultMaxUpload 未配置上传上限时的兜底值
const defaultMaxUpload = 16 << 20

// NewAnalysisHandler 创建分析处理器实例
func NewAnalysisHandler(
	services map[string]*business.AnalysisService,
	store sessionstore.Store,
	recommender recommend.Recommender,
	publisher *lmstfy.Client,
	jobQueue string,
	uploadDir string,
	maxUpload int64,
	log logger.Logger,
) *AnalysisHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &AnalysisHandler{
		services:    services,
		store:       store,
		recommender: recommender,
		publisher:   publisher,
		jobQueue:    jobQueue,
		uploadDir:   uploadDir,
		maxUpload:   maxUpload,
		logger:      log,
	}
}
