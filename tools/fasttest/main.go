package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"leakscan/internal/business"
	"leakscan/internal/business/dataset"
	"leakscan/pkg/config"
	"leakscan/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
	domain     = flag.String("domain", "supermarket", "业务域（supermarket/telecom）")
	filePath   = flag.String("file", "", "待分析的 CSV 文件路径")
)

func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  FastTest - LEAKSCAN 快速测试工具")
	fmt.Println("========================================")

	if *filePath == "" {
		fmt.Println("❌ -file is required")
		os.Exit(1)
	}

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Config loaded: %s\n", cfg.App.Name)

	// 2. 构建分析服务（内置规则模型，不依赖外部服务）
	svc, err := business.BuildService(*domain, cfg, logger.NewNopLogger())
	if err != nil {
		fmt.Printf("❌ Failed to build service: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Analysis service ready: domain=%s\n", *domain)

	// 3. 加载数据集
	ds, err := dataset.ReadCSVFile(*filePath)
	if err != nil {
		fmt.Printf("❌ Failed to read csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Loaded %d rows, %d columns from %s\n", ds.NumRows(), ds.NumColumns(), *filePath)

	// 4. 执行分析
	sessionID := uuid.New().String()
	start := time.Now()
	result, err := svc.Analyze(context.Background(), ds, sessionID)
	if err != nil {
		fmt.Printf("❌ Analysis failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Analysis complete in %v, session=%s\n", time.Since(start), sessionID)

	// 5. 打印汇总
	data, _ := json.MarshalIndent(result.Summary, "", "  ")
	fmt.Println("---------- prediction summary ----------")
	fmt.Println(string(data))

	fmt.Println("---------- saved files ----------")
	for kind, path := range result.SavedFiles {
		fmt.Printf("  %s: %s\n", kind, path)
	}
}
