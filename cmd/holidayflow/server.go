package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaSui01/holidayflow/agent/orchestrator"
	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
	"github.com/BaSui01/holidayflow/api/handlers"
	"github.com/BaSui01/holidayflow/config"
	"github.com/BaSui01/holidayflow/internal/metrics"
	"github.com/BaSui01/holidayflow/internal/server"
	"github.com/BaSui01/holidayflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting HolidayFlow orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("agents", cfg.Orchestrator.Agents.String()),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, "orchestrator", logger, telemetry.WithVersion(Version))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	srv, err := NewServer(cfg, logger, metrics.NewCollector("holidayflow", logger))
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, logger, srv.Managers()...); err != nil {
		return err
	}
	logger.Info("HolidayFlow orchestrator stopped")
	return nil
}

// shutdownTelemetry 刷新并关闭遥测导出器
func shutdownTelemetry(p *telemetry.Providers, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}

// =============================================================================
// 🧭 编排服务
// =============================================================================

// Server 编排服务, 持有编排器、HTTP 与 Metrics 两个服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	orchestrator     *orchestrator.Orchestrator
	metricsCollector *metrics.Collector

	handler        http.Handler
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建编排服务, 服务器在 server.Run 中启动
func NewServer(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (*Server, error) {
	o, err := orchestrator.New(orchestratorConfig(cfg.Orchestrator),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	s := &Server{
		cfg:              cfg,
		logger:           logger,
		orchestrator:     o,
		metricsCollector: collector,
	}
	s.handler = s.buildHandler()

	s.httpManager = server.NewManager(s.handler, server.Config{
		Name:            "orchestrator",
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                    // 1 MB
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	if cfg.Server.MetricsPort > 0 {
		s.metricsManager = newMetricsManager("orchestrator-metrics", cfg.Server.MetricsPort, cfg.Server, logger)
	}
	return s, nil
}

// buildHandler 注册路由并构建中间件链
func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	healthHandler := handlers.NewHealthHandler("orchestrator", s.logger).
		WithReadyTimeout(s.cfg.Orchestrator.DiscoveryTimeout + time.Second)
	healthHandler.RegisterCheck(handlers.NewAgentsHealthCheck(s.orchestrator))
	healthHandler.Register(mux, handlers.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	// ========================================
	// 预订 API
	// ========================================
	handlers.NewBookingHandler(s.orchestrator, Version, s.logger).Register(mux)

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing("orchestrator"),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

// Handler 返回带中间件的 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Managers 返回需要一起运行的服务器
func (s *Server) Managers() []*server.Manager {
	if s.metricsManager == nil {
		return []*server.Manager{s.httpManager}
	}
	return []*server.Manager{s.httpManager, s.metricsManager}
}

// Close 停止限流清理并等待进行中的远程取消
func (s *Server) Close() {
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	s.orchestrator.Close()
}

// orchestratorConfig 将配置文件的编排器部分转换为 orchestrator.Config
func orchestratorConfig(c config.OrchestratorConfig) orchestrator.Config {
	agents := make([]orchestrator.AgentEndpoint, 0, len(c.Agents))
	for _, a := range c.Agents {
		agents = append(agents, orchestrator.AgentEndpoint{Domain: a.Domain, URL: a.URL})
	}

	client := a2a.DefaultClientConfig()
	if c.DomainTimeout > 0 {
		client.Timeout = c.DomainTimeout
	}
	client.RetryCount = c.RetryCount
	client.RetryDelay = c.RetryDelay
	client.CardTTL = c.CardCacheTTL
	client.UserAgent = "holidayflow-orchestrator/" + Version

	return orchestrator.Config{
		Agents:           agents,
		DomainTimeout:    c.DomainTimeout,
		CancelTimeout:    c.CancelTimeout,
		DiscoveryTimeout: c.DiscoveryTimeout,
		MaxConcurrency:   c.MaxConcurrency,
		RequireDomains:   c.RequireDomains,
		Client:           client,
	}
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func newMetricsManager(name string, port int, cfg config.ServerConfig, logger *zap.Logger) *server.Manager {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return server.NewManager(mux, server.Config{
		Name:            name,
		Addr:            fmt.Sprintf(":%d", port),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     2 * cfg.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
}
