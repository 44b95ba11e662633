// Package main 故事生成服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appstory "tale-weaver-api/internal/application/story"
	"tale-weaver-api/internal/config"
	"tale-weaver-api/internal/infrastructure/gemini"
	"tale-weaver-api/internal/infrastructure/persistence/redis"
	"tale-weaver-api/internal/interfaces/http/handler"
	"tale-weaver-api/internal/interfaces/http/router"
	"tale-weaver-api/pkg/logger"
	"tale-weaver-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting tale-weaver",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 会话后端：默认进程内，启用 Redis 后切换为共享后端
	var redisClient *redis.Client
	if cfg.Cache.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()
	}

	factory := buildSessionFactory(cfg, redisClient)
	registry := appstory.NewRegistry(factory)

	// 上游生成客户端
	geminiClient := gemini.NewClient(&cfg.LLM.Gemini)
	service := appstory.NewService(geminiClient)

	// 处理器与路由
	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(redisClient),
		Story:  handler.NewStoryHandler(service, registry),
	})

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// buildSessionFactory 按配置选择会话的限流与缓存后端
func buildSessionFactory(cfg *config.Config, redisClient *redis.Client) appstory.SessionFactory {
	limit := cfg.RateLimit.RequestsPerWindow
	window := cfg.RateLimit.Window
	maxEntries := cfg.Cache.Memory.MaxEntries

	if redisClient != nil {
		return func(id string) *appstory.Session {
			return &appstory.Session{
				ID:      id,
				Limiter: redis.NewSessionLimiter(redisClient, id, limit, window),
				Cache:   redis.NewStoryCache(redisClient, id),
			}
		}
	}

	return func(id string) *appstory.Session {
		return &appstory.Session{
			ID:      id,
			Limiter: appstory.NewSlidingWindowLimiter(limit, window),
			Cache:   appstory.NewMemoryCache(maxEntries),
		}
	}
}
