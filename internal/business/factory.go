package business

import (
	"leakscan/internal/business/predict"
	"leakscan/internal/business/schema"
	"leakscan/pkg/config"
	"leakscan/pkg/logger"
	"leakscan/pkg/storage"
)

// BuildService 按域组装分析服务
// 编码器优先从配置的工件加载；未配置时使用默认类别与内置规则模型
// 模型与编码器在进程启动时加载一次，此后只读
func BuildService(domain string, cfg *config.Config, log logger.Logger) (*AnalysisService, error) {
	sch, err := schema.ByDomain(domain)
	if err != nil {
		return nil, err
	}

	var artifacts config.ModelArtifacts
	if domain == "telecom" {
		artifacts = cfg.Models.Telecom
	} else {
		artifacts = cfg.Models.Supermarket
	}

	leakEnc, err := loadEncoder(artifacts.LeakageEncoder, predict.DefaultLeakageClasses(sch))
	if err != nil {
		return nil, err
	}
	anomEnc, err := loadEncoder(artifacts.AnomalyEncoder, predict.DefaultAnomalyClasses(sch))
	if err != nil {
		return nil, err
	}

	oracle, err := predict.NewRuleOracle(sch, leakEnc, anomEnc, predict.DefaultRules(sch))
	if err != nil {
		return nil, err
	}

	sink, err := storage.NewCSVSink(cfg.Storage.OutputDir)
	if err != nil {
		return nil, err
	}

	adapter := predict.NewAdapter(oracle, leakEnc, anomEnc, sch)
	return NewAnalysisService(sch, adapter, sink, log)
}

func loadEncoder(path string, defaults []string) (*predict.ClassEncoder, error) {
	if path == "" {
		return predict.NewClassEncoder(defaults)
	}
	return predict.LoadClassEncoder(path)
}
