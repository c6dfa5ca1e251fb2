package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/holidayflow/agent/orchestrator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultReadyTimeout 就绪检查的默认总超时
const DefaultReadyTimeout = 5 * time.Second

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthCheck 可插拔的就绪检查
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus /health 与 /ready 的响应
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy" | "unhealthy"
	Service   string                 `json:"service"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status    string `json:"status"` // "pass" | "fail"
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// BuildInfo /version 的响应
type BuildInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthHandler 存活与就绪探针. 存活只说明进程在运行,
// 就绪要求所有注册的检查通过.
type HealthHandler struct {
	service      string
	logger       *zap.Logger
	readyTimeout time.Duration

	mu     sync.RWMutex
	checks []HealthCheck
}

// NewHealthHandler 创建 service 的健康检查处理器
func NewHealthHandler(service string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		service:      service,
		logger:       logger.With(zap.String("component", "health")),
		readyTimeout: DefaultReadyTimeout,
	}
}

// WithReadyTimeout 设置就绪检查的总超时, d <= 0 时保持默认值
func (h *HealthHandler) WithReadyTimeout(d time.Duration) *HealthHandler {
	if d > 0 {
		h.readyTimeout = d
	}
	return h
}

// RegisterCheck 注册就绪检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// Register 注册 /health, /healthz, /ready, /readyz 与 /version
func (h *HealthHandler) Register(mux *http.ServeMux, info BuildInfo) {
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /ready", h.HandleReady)
	mux.HandleFunc("GET /readyz", h.HandleReady)
	mux.HandleFunc("GET /version", h.HandleVersion(info))
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 存活探针
// @Summary 存活检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务正在运行"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Service:   h.service,
		Timestamp: time.Now(),
	})
}

// HandleReady 就绪探针, 并发执行全部检查
// @Summary 就绪检查
// @Description 编排服务至少有一个预订代理可达时就绪
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务已就绪"
// @Failure 503 {object} HealthStatus "服务未就绪"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	g := new(errgroup.Group)
	for i, check := range checks {
		g.Go(func() error {
			results[i] = h.run(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.service,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	code := http.StatusOK
	for i, check := range checks {
		status.Checks[check.Name()] = results[i]
		if results[i].Status != "pass" {
			status.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	WriteJSON(w, code, status)
}

func (h *HealthHandler) run(ctx context.Context, check HealthCheck) CheckResult {
	start := time.Now()
	err := check.Check(ctx)
	result := CheckResult{Status: "pass", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = "fail"
		result.Message = err.Error()
		h.logger.Warn("readiness check failed",
			zap.String("check", check.Name()),
			zap.Error(err),
			zap.Int64("latency_ms", result.LatencyMs),
		)
	}
	return result
}

// HandleVersion 返回构建信息
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} Response{data=BuildInfo} "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(info BuildInfo) http.HandlerFunc {
	if info.Service == "" {
		info.Service = h.service
	}
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, info)
	}
}

// =============================================================================
// 🔧 内置检查
// =============================================================================

// FuncHealthCheck 以函数实现的检查
type FuncHealthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// NewFuncHealthCheck 创建函数检查
func NewFuncHealthCheck(name string, check func(ctx context.Context) error) *FuncHealthCheck {
	return &FuncHealthCheck{name: name, check: check}
}

func (c *FuncHealthCheck) Name() string { return c.name }

func (c *FuncHealthCheck) Check(ctx context.Context) error { return c.check(ctx) }

// AgentStatusSource 提供预订代理的可达性
type AgentStatusSource interface {
	AgentsStatus(ctx context.Context) map[string]orchestrator.AgentStatus
}

// AgentsHealthCheck 至少一个预订代理可达时通过.
// 失败信息列出每个不可达的领域.
type AgentsHealthCheck struct {
	source AgentStatusSource
}

// NewAgentsHealthCheck 创建预订代理就绪检查
func NewAgentsHealthCheck(source AgentStatusSource) *AgentsHealthCheck {
	return &AgentsHealthCheck{source: source}
}

func (c *AgentsHealthCheck) Name() string { return "agents" }

func (c *AgentsHealthCheck) Check(ctx context.Context) error {
	statuses := c.source.AgentsStatus(ctx)
	if len(statuses) == 0 {
		return nil
	}

	down := make([]string, 0, len(statuses))
	for domain, s := range statuses {
		if s.Reachable {
			return nil
		}
		down = append(down, domain)
	}
	sort.Strings(down)
	return fmt.Errorf("no booking agent is reachable (%s)", strings.Join(down, ", "))
}
