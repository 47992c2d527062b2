package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leakscan/internal/business"
	"leakscan/internal/business/schema"
	"leakscan/internal/recommend"
	"leakscan/internal/server/handlers/analysis"
	"leakscan/internal/server/routers"
	"leakscan/pkg/config"
	"leakscan/pkg/lmstfy"
	"leakscan/pkg/logger"
	"leakscan/pkg/sessionstore"
)

var (
	configPath = flag.String("config", "./config/apiserver.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. 构建两个业务域的分析服务
	services := make(map[string]*business.AnalysisService)
	for _, domain := range []string{schema.DomainSupermarket, schema.DomainTelecom} {
		svc, err := business.BuildService(domain, cfg, zapLogger)
		if err != nil {
			log.Fatalf("Failed to build %s service: %v", domain, err)
		}
		services[domain] = svc
	}

	// 4. 会话存储：DSN 为空时退化为内存存储
	var store sessionstore.Store
	if cfg.MySQL.DSN != "" {
		store, err = sessionstore.NewMySQLStore(cfg.MySQL.DSN)
		if err != nil {
			log.Fatalf("Failed to create mysql store: %v", err)
		}
	} else {
		store = sessionstore.NewMemoryStore()
	}

	// 5. 异步任务投递（lmstfy 未配置时仅支持同步模式）
	var publisher *lmstfy.Client
	var jobQueue string
	if cfg.Lmstfy.Host != "" && len(cfg.Workers) > 0 {
		publisher, err = lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		if err != nil {
			log.Fatalf("Failed to create lmstfy client: %v", err)
		}
		jobQueue = cfg.Workers[0].QueueName
	}

	// 6. 整改建议生成器（未配置时为空实现）
	recommender, err := recommend.New(cfg.Recommend)
	if err != nil {
		log.Fatalf("Failed to create recommender: %v", err)
	}

	// 7. 组装路由
	handler := analysis.NewAnalysisHandler(
		services, store, recommender, publisher, jobQueue,
		cfg.Storage.UploadDir, cfg.Server.MaxUploadSize, zapLogger)
	engine := routers.SetupRoutes(handler)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	// 8. 启动 HTTP Server（后台 goroutine）
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 9. 优雅停机处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal, gracefully shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		} else {
			log.Println("HTTP server stopped gracefully")
		}
	case err := <-serverErrChan:
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Println("Application stopped")
}
