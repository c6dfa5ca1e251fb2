package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 耗时分桶: 代理内的任务执行较快, 派发与整单预订包含网络往返与模拟延迟
var (
	taskBuckets     = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}
	dispatchBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	bookingBuckets  = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	sizeBuckets     = prometheus.ExponentialBuckets(100, 10, 8)
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 持有 HolidayFlow 的全部 Prometheus 指标.
// 编排服务使用 HTTP 与编排指标, 预订代理使用 HTTP 与任务指标.
type Collector struct {
	httpRequests     *prometheus.CounterVec   // method, path, status
	httpDuration     *prometheus.HistogramVec // method, path
	httpRequestSize  *prometheus.HistogramVec
	httpResponseSize *prometheus.HistogramVec

	taskExecutions  *prometheus.CounterVec   // agent, state
	taskDuration    *prometheus.HistogramVec // agent
	taskTransitions *prometheus.CounterVec   // agent, from_state, to_state

	dispatches       *prometheus.CounterVec   // domain, outcome
	dispatchDuration *prometheus.HistogramVec // domain
	bookings         *prometheus.CounterVec   // tier
	bookingDuration  *prometheus.HistogramVec // tier
	agentUp          *prometheus.GaugeVec     // domain
}

// NewCollector 在默认 Registry 上注册指标. 同一 namespace 在一个进程内只能创建一次.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith 在指定 Registerer 上注册指标
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}

	c := &Collector{
		httpRequests:     counter("http_requests_total", "HTTP requests by route and status class", "method", "path", "status"),
		httpDuration:     histogram("http_request_duration_seconds", "HTTP request latency", prometheus.DefBuckets, "method", "path"),
		httpRequestSize:  histogram("http_request_size_bytes", "HTTP request body size", sizeBuckets, "method", "path"),
		httpResponseSize: histogram("http_response_size_bytes", "HTTP response body size", sizeBuckets, "method", "path"),

		taskExecutions:  counter("task_executions_total", "Tasks run by a booking agent, by final state", "agent", "state"),
		taskDuration:    histogram("task_execution_duration_seconds", "Time from task submission to its final state", taskBuckets, "agent"),
		taskTransitions: counter("task_state_transitions_total", "Task state transitions applied by a booking agent", "agent", "from_state", "to_state"),

		dispatches:       counter("dispatch_total", "Domain dispatches by outcome", "domain", "outcome"),
		dispatchDuration: histogram("dispatch_duration_seconds", "Time spent on one domain of a booking", dispatchBuckets, "domain"),
		bookings:         counter("bookings_total", "Holiday bookings by summary tier", "tier"),
		bookingDuration:  histogram("booking_duration_seconds", "End-to-end holiday booking latency", bookingBuckets, "tier"),
		agentUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_up",
			Help:      "1 if the booking agent answered its last discovery, else 0",
		}, []string{"domain"}),
	}

	logger.Debug("metrics registered", zap.String("component", "metrics"), zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest 记录一次 HTTP 请求, path 应已归一化
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordTaskExecution 记录任务到达终态
func (c *Collector) RecordTaskExecution(agent, state string, duration time.Duration) {
	c.taskExecutions.WithLabelValues(agent, state).Inc()
	c.taskDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordTaskTransition 记录一次状态转换
func (c *Collector) RecordTaskTransition(agent, fromState, toState string) {
	c.taskTransitions.WithLabelValues(agent, fromState, toState).Inc()
}

// RecordDispatch 记录单个领域的派发结果
func (c *Collector) RecordDispatch(domain, outcome string, duration time.Duration) {
	c.dispatches.WithLabelValues(domain, outcome).Inc()
	c.dispatchDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordBooking 记录一次整单预订
func (c *Collector) RecordBooking(tier string, duration time.Duration) {
	c.bookings.WithLabelValues(tier).Inc()
	c.bookingDuration.WithLabelValues(tier).Observe(duration.Seconds())
}

// RecordAgentStatus 记录代理可达性
func (c *Collector) RecordAgentStatus(domain string, reachable bool) {
	g := c.agentUp.WithLabelValues(domain)
	if reachable {
		g.Set(1)
	} else {
		g.Set(0)
	}
}

// statusClass 把状态码折叠为 "2xx" 这样的类别, 控制标签基数
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
