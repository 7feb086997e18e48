package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/storyframe/api/handlers"
	"github.com/BaSui01/storyframe/config"
	"github.com/BaSui01/storyframe/internal/dispatch"
	"github.com/BaSui01/storyframe/internal/metrics"
	"github.com/BaSui01/storyframe/internal/pool"
	"github.com/BaSui01/storyframe/internal/server"
	"github.com/BaSui01/storyframe/internal/storage"
	"github.com/BaSui01/storyframe/internal/telemetry"
	"github.com/BaSui01/storyframe/providers"
	"github.com/BaSui01/storyframe/providers/imagen"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 StoryFrame 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler *handlers.HealthHandler
	sceneHandler  *handlers.SceneHandler
	vapiHandler   *handlers.VapiHandler

	// 生成管线
	store      *storage.Store
	workerPool *pool.WorkerPool
	dispatcher *dispatch.Dispatcher

	// 指标收集器
	metricsCollector *metrics.Collector

	// 遥测
	otelProviders *telemetry.Providers

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("storyframe", s.logger)

	// 2. 初始化生成管线 + Handlers
	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init pipeline: %w", err)
	}
	s.initHandlers()

	// 3. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 4. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initPipeline 初始化存储、Provider、工作池与调度器
func (s *Server) initPipeline() error {
	store, err := storage.NewStore(s.cfg.Storage.Dir, s.cfg.Storage.PublicBase, s.logger)
	if err != nil {
		return fmt.Errorf("failed to init image store: %w", err)
	}
	s.store = store

	provider := imagen.NewImagenProvider(providers.ImagenConfig{
		APIKey:  s.cfg.Provider.APIKey,
		BaseURL: s.cfg.Provider.BaseURL,
		Model:   s.cfg.Provider.Model,
		Timeout: s.cfg.Provider.Timeout,
	}, store, s.logger)

	s.workerPool = pool.New(pool.Config{
		MaxWorkers: s.cfg.Dispatch.MaxConcurrent,
		QueueSize:  s.cfg.Dispatch.QueueSize,
	})

	s.dispatcher = dispatch.NewDispatcher(provider, s.workerPool, s.logger)

	s.logger.Info("Generation pipeline initialized",
		zap.String("model", s.cfg.Provider.Model),
		zap.String("storage_dir", store.Dir()),
		zap.Int("max_concurrent", s.cfg.Dispatch.MaxConcurrent),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.sceneHandler = handlers.NewSceneHandler(s.dispatcher, s.metricsCollector, s.logger)
	s.vapiHandler = handlers.NewVapiHandler(s.dispatcher, s.metricsCollector, s.logger)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)

	// ========================================
	// 直连生成端点
	// ========================================
	mux.HandleFunc("/api/generate_scene", s.sceneHandler.HandleGenerateScene)
	mux.HandleFunc("/api/generate_choices", s.sceneHandler.HandleGenerateChoices)
	mux.HandleFunc("/generate_scene", s.sceneHandler.HandleLegacyScene)
	mux.HandleFunc("/test_vapi", s.sceneHandler.HandleTestVapi)

	// ========================================
	// 语音平台 webhook 端点（共用适配器，按工具名分发）
	// ========================================
	mux.HandleFunc("/vapi/generate_scene", s.vapiHandler.HandleToolCalls)
	mux.HandleFunc("/vapi/generate_choices", s.vapiHandler.HandleToolCalls)

	// ========================================
	// 生成的图片静态目录
	// ========================================
	staticPrefix := s.cfg.Storage.PublicBase + "/"
	mux.Handle(staticPrefix, http.StripPrefix(staticPrefix, http.FileServer(http.Dir(s.store.Dir()))))

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}
	middlewares = append(middlewares,
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
	)

	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 停止工作池（排空在途生成任务）
	if s.workerPool != nil {
		s.workerPool.Close()
	}

	// 4. 关闭遥测
	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	// 5. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
