package handlers

import (
	"context"
	"net/http"

	"github.com/BaSui01/holidayflow/agent/booking"
	"github.com/BaSui01/holidayflow/agent/orchestrator"
	"github.com/BaSui01/holidayflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// ✈️ 假期预订 Handler
// =============================================================================

// BookingService 编排服务能力, 由 *orchestrator.Orchestrator 实现
type BookingService interface {
	Agents() []orchestrator.AgentEndpoint
	BookHoliday(ctx context.Context, req booking.HolidayRequest) (*orchestrator.BookingResult, error)
	BookDomain(ctx context.Context, domain string, req booking.HolidayRequest) (*orchestrator.DomainOutcome, error)
	AgentsStatus(ctx context.Context) map[string]orchestrator.AgentStatus
}

// BookingHandler 假期预订处理器
type BookingHandler struct {
	service BookingService
	version string
	logger  *zap.Logger
}

// ServiceInfo 服务信息
type ServiceInfo struct {
	Name      string                       `json:"name"`
	Version   string                       `json:"version"`
	Agents    []orchestrator.AgentEndpoint `json:"agents"`
	Endpoints []string                     `json:"endpoints"`
}

// AgentsStatusResponse 代理状态响应
type AgentsStatusResponse struct {
	Agents map[string]orchestrator.AgentStatus `json:"agents"`
}

// NewBookingHandler 创建预订处理器
func NewBookingHandler(service BookingService, version string, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{
		service: service,
		version: version,
		logger:  logger.With(zap.String("component", "booking_handler")),
	}
}

// Register 注册预订路由
func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.HandleInfo)
	mux.HandleFunc("POST /book-holiday", h.HandleBookHoliday)
	mux.HandleFunc("GET /book-holiday/demo", h.HandleDemo)
	mux.HandleFunc("GET /agents/status", h.HandleAgentsStatus)
	mux.HandleFunc("POST /book/{domain}", h.HandleBookDomain)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleInfo 返回服务信息
// @Summary 服务信息
// @Tags 预订
// @Produce json
// @Success 200 {object} ServiceInfo "服务信息"
// @Router / [get]
func (h *BookingHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceInfo{
		Name:    "holidayflow orchestrator",
		Version: h.version,
		Agents:  h.service.Agents(),
		Endpoints: []string{
			"POST /book-holiday",
			"GET /book-holiday/demo",
			"GET /agents/status",
			"POST /book/{domain}",
		},
	})
}

// HandleBookHoliday 向所有已配置领域预订假期
// @Summary 预订假期
// @Description 并发调用航班、酒店、接送代理并汇总结果, 部分失败仍返回 200
// @Tags 预订
// @Accept json
// @Produce json
// @Param request body booking.HolidayRequest true "预订请求"
// @Success 200 {object} orchestrator.BookingResult "汇总结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 503 {object} Response "未配置领域"
// @Router /book-holiday [post]
func (h *BookingHandler) HandleBookHoliday(w http.ResponseWriter, r *http.Request) {
	var req booking.HolidayRequest
	if !DecodeJSONBody(w, r, &req, h.logger) {
		return
	}
	h.book(w, r, req)
}

// HandleDemo 使用固定的演示请求预订 (Delhi → Paris)
// @Summary 演示预订
// @Tags 预订
// @Produce json
// @Success 200 {object} orchestrator.BookingResult "汇总结果"
// @Router /book-holiday/demo [get]
func (h *BookingHandler) HandleDemo(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, booking.DemoRequest())
}

// HandleAgentsStatus 查询各代理的可达性与能力描述
// @Summary 代理状态
// @Tags 预订
// @Produce json
// @Success 200 {object} AgentsStatusResponse "代理状态"
// @Router /agents/status [get]
func (h *BookingHandler) HandleAgentsStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, AgentsStatusResponse{Agents: h.service.AgentsStatus(r.Context())})
}

// HandleBookDomain 直接预订单个领域
// @Summary 单领域预订
// @Tags 预订
// @Accept json
// @Produce json
// @Param domain path string true "flight | hotel | cab"
// @Param request body booking.HolidayRequest true "预订请求"
// @Success 200 {object} orchestrator.DomainOutcome "领域结果"
// @Failure 404 {object} Response "未知领域"
// @Router /book/{domain} [post]
func (h *BookingHandler) HandleBookDomain(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")
	if domain == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "domain is required", h.logger)
		return
	}
	var req booking.HolidayRequest
	if !DecodeJSONBody(w, r, &req, h.logger) {
		return
	}

	outcome, err := h.service.BookDomain(r.Context(), domain, req)
	if err != nil {
		WriteErrorFrom(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, outcome)
}

func (h *BookingHandler) book(w http.ResponseWriter, r *http.Request, req booking.HolidayRequest) {
	result, err := h.service.BookHoliday(r.Context(), req)
	if err != nil {
		WriteErrorFrom(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
