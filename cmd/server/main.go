package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"tuslite/internal/api"
	"tuslite/internal/capability"
	"tuslite/internal/config"
	"tuslite/internal/database"
	"tuslite/internal/info"
	infofile "tuslite/internal/info/file"
	infopg "tuslite/internal/info/postgres"
	"tuslite/internal/logging"
	"tuslite/internal/service"
	"tuslite/internal/storage"
	"tuslite/internal/storage/local"
	"tuslite/internal/storage/null"
	"tuslite/internal/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New()
	logger.Println("配置加载完成，开始启动服务")

	ctx := context.Background()

	infos, err := buildInfoStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("初始化元数据存储失败: %v", err)
	}

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		logger.Fatalf("初始化存储后端失败: %v", err)
	}
	if err := backend.Prepare(ctx); err != nil {
		logger.Fatalf("存储后端 %s 初始化失败: %v", backend.Name(), err)
	}
	logger.Printf("存储后端就绪: %s", backend.Name())

	exts := negotiatedExtensions(cfg, backend)
	logger.Printf("启用协议能力: %s", capability.Render(exts))

	svc := service.NewUploadService(infos, backend)
	handler := api.NewUploadHandler(svc, exts, cfg.MaxChunkSizeBytes)
	router := api.NewRouter(cfg, handler)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		ReadTimeout:  5 * time.Minute, // 块上传请求体可能很大
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		Handler:      router,
	}

	logger.Printf("服务监听端口 :%s\n", cfg.HTTPPort)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("监听失败: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("优雅关闭失败: %v", err)
	}

	logger.Println("服务已停止")
}

func buildInfoStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (info.Store, error) {
	switch cfg.InfoStorage {
	case "postgres":
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Println("使用 Postgres 元数据存储")
		return infopg.New(db), nil
	default:
		logger.Printf("使用文件元数据存储: %s", cfg.InfoDir)
		return infofile.New(cfg.InfoDir)
	}
}

func buildBackend(cfg *config.Config, logger *log.Logger) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case "null":
		return null.New(cfg.DataDir, cfg.DirStructure), nil
	case "s3":
		staging := local.New(cfg.DataDir, cfg.DirStructure)
		return s3.New(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			KeyPrefix: cfg.S3KeyPrefix,
		}, staging, logger)
	default:
		return local.New(cfg.DataDir, cfg.DirStructure), nil
	}
}

// negotiatedExtensions 把配置的能力集按后端实际支持情况收窄，
// 确保对外公布的能力后端都能兑现。
func negotiatedExtensions(cfg *config.Config, backend storage.Backend) []capability.Extension {
	exts := capability.Parse(cfg.Extensions)
	caps := backend.Capabilities()
	if !caps.Concatenation {
		exts = capability.Without(exts, capability.Concatenation)
	}
	if !caps.Termination {
		exts = capability.Without(exts, capability.Termination)
	}
	return exts
}
