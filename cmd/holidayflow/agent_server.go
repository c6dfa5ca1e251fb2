package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/BaSui01/holidayflow/agent/booking"
	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
	"github.com/BaSui01/holidayflow/config"
	"github.com/BaSui01/holidayflow/internal/metrics"
	"github.com/BaSui01/holidayflow/internal/server"
	"github.com/BaSui01/holidayflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const telemetryShutdownTimeout = 5 * time.Second

// =============================================================================
// 🧳 agent / agents 命令
// =============================================================================

func runAgent(args []string) error {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	configPath := configFlag(fs)
	domain := fs.String("domain", "", "Booking domain: "+domainList())
	port := fs.Int("port", 0, "Listen port (defaults to the domain port from config)")
	_ = fs.Parse(args)

	d, err := booking.ParseDomain(*domain)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Executor.SetPort(d.String(), *port)
	}
	return serveAgents(cfg, []booking.Domain{d}, booking.AgentName(d))
}

func runAgents(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	configPath := configFlag(fs)
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	return serveAgents(cfg, booking.Domains(), "agents")
}

// serveAgents 启动给定领域的预订代理, 阻塞直到收到退出信号
func serveAgents(cfg *config.Config, domains []booking.Domain, role string) error {
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	otelProviders, err := telemetry.Init(cfg.Telemetry, role, logger, telemetry.WithVersion(Version))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("holidayflow", logger)
	managers := make([]*server.Manager, 0, len(domains))
	for _, d := range domains {
		agent, err := NewAgentServer(d, cfg, logger, collector)
		if err != nil {
			return err
		}
		agent.StartCleanup(ctx)
		managers = append(managers, agent.Manager())

		logger.Info("booking agent configured",
			zap.String("domain", d.String()),
			zap.String("addr", agent.Manager().Addr()),
			zap.String("url", agent.Card().URL),
		)
	}

	if err := server.Run(ctx, logger, managers...); err != nil {
		return err
	}
	logger.Info("booking agents stopped")
	return nil
}

// =============================================================================
// 🧳 预订代理服务
// =============================================================================

// AgentServer 一个领域的预订代理: 执行器、A2A 传输与 HTTP 服务器
type AgentServer struct {
	domain   booking.Domain
	a2a      *a2a.HTTPServer
	handler  http.Handler
	manager  *server.Manager
	interval time.Duration
}

// NewAgentServer 根据配置创建领域 d 的预订代理
func NewAgentServer(d booking.Domain, cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (*AgentServer, error) {
	exec := cfg.Executor
	port := exec.Port(d.String())
	if port == 0 {
		port = booking.DefaultPort(d)
	}
	if port <= 0 {
		return nil, fmt.Errorf("no port configured for %s agent", d)
	}

	synth, err := booking.Synthesizer(d,
		booking.WithLatency(exec.SimulatedLatency),
		booking.WithUnavailable(exec.Unavailable...),
	)
	if err != nil {
		return nil, err
	}

	name := booking.AgentName(d)
	agentLogger := logger.With(zap.String("agent", name))
	executor := a2a.NewExecutor(name, synth,
		a2a.WithExecutorLogger(agentLogger),
		a2a.WithUpdateHook(taskMetricsHook(name, collector)),
	)

	publicURL := "http://" + net.JoinHostPort(exec.PublicHost, strconv.Itoa(port))
	card, err := booking.NewCard(d, publicURL, exec.Version)
	if err != nil {
		return nil, err
	}

	a2aServer, err := a2a.NewHTTPServer(card, executor, &a2a.ServerConfig{
		RequestTimeout: exec.RequestTimeout,
		TaskRetention:  exec.TaskRetention,
		MaxBodyBytes:   exec.MaxBodyBytes,
		Logger:         agentLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s server: %w", name, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", a2aServer)

	handler := Chain(mux,
		Recovery(agentLogger),
		RequestID(),
		OTelTracing(name),
		RequestLogger(agentLogger),
		MetricsMiddleware(collector),
	)

	manager := server.NewManager(handler, server.Config{
		Name:            name,
		Addr:            net.JoinHostPort(exec.Host, strconv.Itoa(port)),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    exec.RequestTimeout + cfg.Server.ReadTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return &AgentServer{
		domain:   d,
		a2a:      a2aServer,
		handler:  handler,
		manager:  manager,
		interval: exec.CleanupInterval,
	}, nil
}

// Card 返回代理卡
func (a *AgentServer) Card() *a2a.AgentCard {
	return a.a2a.Card()
}

// Handler 返回带中间件的 HTTP 处理器
func (a *AgentServer) Handler() http.Handler {
	return a.handler
}

// Manager 返回 HTTP 服务器管理器
func (a *AgentServer) Manager() *server.Manager {
	return a.manager
}

// StartCleanup 定期清理已结束的任务, ctx 结束时停止
func (a *AgentServer) StartCleanup(ctx context.Context) {
	a.a2a.StartCleanupLoop(ctx, a.interval)
}

// taskMetricsHook 将任务状态变化记录为 Prometheus 指标
func taskMetricsHook(agent string, collector *metrics.Collector) a2a.UpdateHook {
	var started sync.Map
	return func(u a2a.TaskUpdate) {
		collector.RecordTaskTransition(agent, u.From.String(), u.Status.State.String())

		if u.From == a2a.TaskStateSubmitted {
			started.Store(u.TaskID, u.Status.Timestamp)
		}
		if !u.Status.State.IsTerminal() {
			return
		}
		var d time.Duration
		if v, ok := started.LoadAndDelete(u.TaskID); ok {
			d = u.Status.Timestamp.Sub(v.(time.Time))
		}
		collector.RecordTaskExecution(agent, u.Status.State.String(), d)
	}
}

func domainList() string {
	domains := booking.Domains()
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}
