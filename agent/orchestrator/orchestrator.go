package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/holidayflow/agent/booking"
	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
	"github.com/BaSui01/holidayflow/types"
)

const instrumentationName = "github.com/BaSui01/holidayflow/agent/orchestrator"

// MetricsRecorder receives orchestration measurements.
type MetricsRecorder interface {
	RecordDispatch(domain, outcome string, duration time.Duration)
	RecordBooking(tier string, duration time.Duration)
	RecordAgentStatus(domain string, reachable bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordDispatch(string, string, time.Duration) {}
func (nopRecorder) RecordBooking(string, time.Duration)          {}
func (nopRecorder) RecordAgentStatus(string, bool)               {}

// cardCache is implemented by clients that cache the agent card.
type cardCache interface {
	ClearCache()
}

// ClientFactory builds the client used to reach one agent.
type ClientFactory func(endpoint string, cfg *a2a.ClientConfig) a2a.A2AClient

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithClientFactory replaces the default HTTP client construction.
func WithClientFactory(factory ClientFactory) Option {
	return func(o *Orchestrator) {
		if factory != nil {
			o.newClient = factory
		}
	}
}

// WithClock sets the clock used to default departure dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

type agentHandle struct {
	domain   booking.Domain
	endpoint string
	client   a2a.A2AClient
}

// AgentStatus is the reachability of one configured agent.
type AgentStatus struct {
	Domain    string         `json:"domain"`
	URL       string         `json:"url"`
	Reachable bool           `json:"reachable"`
	Card      *a2a.AgentCard `json:"card,omitempty"`
	Error     string         `json:"error,omitempty"`
	LatencyMs int64          `json:"latency_ms"`
}

// Orchestrator books a holiday by dispatching one task per configured domain
// concurrently and aggregating the outcomes. It is safe for concurrent use.
type Orchestrator struct {
	config    Config
	agents    []agentHandle
	byDomain  map[booking.Domain]*agentHandle
	newClient ClientFactory

	logger   *zap.Logger
	recorder MetricsRecorder
	now      func() time.Time

	tracer          trace.Tracer
	dispatchLatency metric.Float64Histogram

	// detached remote cancels still running
	pending sync.WaitGroup
}

// New validates cfg and creates one client per agent.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		cfg.Client = a2a.DefaultClientConfig()
	}

	o := &Orchestrator{
		config:   cfg,
		byDomain: make(map[booking.Domain]*agentHandle, len(cfg.Agents)),
		newClient: func(endpoint string, c *a2a.ClientConfig) a2a.A2AClient {
			return a2a.NewHTTPClient(endpoint, c)
		},
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))

	hist, err := otel.Meter(instrumentationName).Float64Histogram("holiday.dispatch.duration",
		metric.WithDescription("Duration of one domain dispatch in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return nil, fmt.Errorf("create dispatch histogram: %w", err)
	}
	o.dispatchLatency = hist

	o.agents = make([]agentHandle, len(cfg.Agents))
	for i, a := range cfg.Agents {
		d, _ := booking.ParseDomain(a.Domain)
		o.agents[i] = agentHandle{
			domain:   d,
			endpoint: a.URL,
			client:   o.newClient(a.URL, cfg.Client),
		}
		o.byDomain[d] = &o.agents[i]
	}

	return o, nil
}

// Agents returns the configured agents in dispatch order.
func (o *Orchestrator) Agents() []AgentEndpoint {
	out := make([]AgentEndpoint, len(o.agents))
	for i, h := range o.agents {
		out[i] = AgentEndpoint{Domain: string(h.domain), URL: h.endpoint}
	}
	return out
}

// BookHoliday dispatches the request to every configured domain and aggregates
// the outcomes. Per-domain failures never surface as an error; only a request
// rejected before dispatch returns a *types.Error.
func (o *Orchestrator) BookHoliday(ctx context.Context, req booking.HolidayRequest) (*BookingResult, error) {
	if len(o.agents) == 0 && o.config.RequireDomains {
		return nil, types.NewError(types.ErrNoDomains, "no booking domains configured").
			WithHTTPStatus(http.StatusServiceUnavailable)
	}
	req, err := o.prepare(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bookingID := uuid.New().String()
	ctx = types.WithBookingID(ctx, bookingID)

	ctx, span := o.tracer.Start(ctx, "holiday.book", trace.WithAttributes(
		attribute.String("booking.id", bookingID),
		attribute.String("booking.origin", req.Origin),
		attribute.String("booking.destination", req.Destination),
		attribute.Int("booking.domains", len(o.agents)),
	))
	defer span.End()

	logger := o.logger.With(zap.String("booking_id", bookingID))
	if requestID, ok := types.RequestID(ctx); ok {
		logger = logger.With(zap.String("request_id", requestID))
	}
	logger.Info("booking holiday",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Int("domains", len(o.agents)),
	)

	outcomes := make([]DomainOutcome, len(o.agents))
	g := new(errgroup.Group)
	if o.config.MaxConcurrency > 0 {
		g.SetLimit(o.config.MaxConcurrency)
	}
	for i := range o.agents {
		h := &o.agents[i]
		g.Go(func() error {
			outcomes[i] = o.dispatch(ctx, bookingID, h, req)
			return nil // 单个领域失败不影响其他领域
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	result := aggregate(bookingID, outcomes, elapsed)

	o.recorder.RecordBooking(string(result.SummaryTier), elapsed)
	span.SetAttributes(
		attribute.String("booking.tier", string(result.SummaryTier)),
		attribute.Int("booking.successful", result.SuccessfulBookings),
	)
	if result.SummaryTier == TierTotalFailure && result.TotalServices > 0 {
		span.SetStatus(codes.Error, result.Summary)
	}

	logger.Info("holiday booking finished",
		zap.String("tier", string(result.SummaryTier)),
		zap.Int("successful", result.SuccessfulBookings),
		zap.Int("domain_failures", result.DomainFailures),
		zap.Int("transport_errors", result.TransportErrors),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

// BookDomain books a single domain, bypassing aggregation.
func (o *Orchestrator) BookDomain(ctx context.Context, domain string, req booking.HolidayRequest) (*DomainOutcome, error) {
	d, err := booking.ParseDomain(domain)
	if err != nil {
		return nil, types.NewError(types.ErrUnknownDomain, err.Error()).
			WithCause(err).
			WithDomain(domain).
			WithHTTPStatus(http.StatusNotFound)
	}
	h, ok := o.byDomain[d]
	if !ok {
		return nil, types.NewError(types.ErrUnknownDomain, fmt.Sprintf("domain %s is not configured", d)).
			WithDomain(string(d)).
			WithHTTPStatus(http.StatusNotFound)
	}
	req, err = o.prepare(req)
	if err != nil {
		return nil, err
	}

	bookingID := uuid.New().String()
	ctx = types.WithBookingID(ctx, bookingID)
	outcome := o.dispatch(ctx, bookingID, h, req)
	return &outcome, nil
}

// AgentsStatus fetches every agent card concurrently. One unreachable agent
// does not affect the others.
func (o *Orchestrator) AgentsStatus(ctx context.Context) map[string]AgentStatus {
	statuses := make([]AgentStatus, len(o.agents))

	g := new(errgroup.Group)
	for i := range o.agents {
		h := &o.agents[i]
		g.Go(func() error {
			statuses[i] = o.checkAgent(ctx, h)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]AgentStatus, len(statuses))
	for _, s := range statuses {
		out[s.Domain] = s
		o.recorder.RecordAgentStatus(s.Domain, s.Reachable)
	}
	return out
}

// Close waits for detached remote cancels to finish.
func (o *Orchestrator) Close() {
	o.pending.Wait()
}

func (o *Orchestrator) prepare(req booking.HolidayRequest) (booking.HolidayRequest, error) {
	if err := req.Validate(); err != nil {
		return req, types.NewInvalidRequestError(err.Error()).
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest)
	}
	return req.Normalize(o.now()), nil
}

func (o *Orchestrator) checkAgent(ctx context.Context, h *agentHandle) AgentStatus {
	status := AgentStatus{Domain: string(h.domain), URL: h.endpoint}

	if o.config.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.DiscoveryTimeout)
		defer cancel()
	}

	start := time.Now()
	card, err := h.client.Discover(ctx)
	status.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Reachable = true
	status.Card = card
	return status
}

// dispatch submits one domain task and classifies its outcome.
func (o *Orchestrator) dispatch(ctx context.Context, bookingID string, h *agentHandle, req booking.HolidayRequest) DomainOutcome {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "holiday.dispatch", trace.WithAttributes(
		attribute.String("booking.id", bookingID),
		attribute.String("booking.domain", string(h.domain)),
		attribute.String("agent.url", h.endpoint),
	))
	defer span.End()

	outcome := DomainOutcome{
		Service:        string(h.domain),
		BookingDetails: booking.Details(h.domain, req),
	}
	logger := o.logger.With(
		zap.String("booking_id", bookingID),
		zap.String("domain", string(h.domain)),
	)

	defer func() {
		elapsed := time.Since(start)
		outcome.DurationMs = elapsed.Milliseconds()
		o.recorder.RecordDispatch(string(h.domain), string(outcome.Kind), elapsed)
		o.dispatchLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("domain", string(h.domain)),
			attribute.String("outcome", string(outcome.Kind)),
		))
		span.SetAttributes(attribute.String("booking.outcome", string(outcome.Kind)))
	}()

	text, err := booking.BuildMessage(h.domain, req)
	if err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Message = "Error: " + err.Error()
		outcome.Error = err.Error()
		return outcome
	}

	task := a2a.NewTask(a2a.NewUserMessage(text)).
		WithContextID(bookingID).
		SetMetadata("domain", string(h.domain))
	outcome.TaskID = task.ID

	submitCtx := ctx
	if o.config.DomainTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, o.config.DomainTimeout)
		defer cancel()
	}

	final, err := h.client.Submit(submitCtx, task)
	switch {
	case err == nil:
		outcome.State = final.Status.State
		if final.Status.State == a2a.TaskStateCompleted {
			outcome.Kind = OutcomeCompleted
			outcome.Message = final.ResponseText()
		} else {
			outcome.Kind = OutcomeFailed
			outcome.Error = final.Status.Reason
			outcome.Message = final.ResponseText()
			if outcome.Message == "" {
				outcome.Message = fmt.Sprintf("Booking %s: %s", final.Status.State, final.Status.Reason)
			}
		}
		logger.Debug("domain answered", zap.String("state", final.Status.State.String()))

	case ctx.Err() != nil:
		// 调用方取消: 通知执行端, 不等待结果
		o.cancelRemote(h, task.ID)
		outcome.Kind = OutcomeTransportError
		outcome.State = a2a.TaskStateCancelled
		outcome.Error = ctx.Err().Error()
		outcome.Message = "Booking cancelled before the agent answered"
		logger.Warn("domain cancelled by caller", zap.Error(ctx.Err()))

	default:
		if errors.Is(err, a2a.ErrTimeout) {
			o.cancelRemote(h, task.ID)
			outcome.Message = "Error: agent did not answer in time"
		} else {
			outcome.Message = "Error: agent unavailable"
			// 下一次状态查询重新发现, 而不是继续报告缓存的代理卡
			if c, ok := h.client.(cardCache); ok {
				c.ClearCache()
			}
		}
		outcome.Kind = OutcomeTransportError
		outcome.Error = err.Error()
		span.RecordError(err)
		logger.Warn("domain transport error", zap.Error(err))
	}

	return outcome
}

// cancelRemote asks the agent to drop a task in a detached goroutine bounded by CancelTimeout.
func (o *Orchestrator) cancelRemote(h *agentHandle, taskID string) {
	if o.config.CancelTimeout <= 0 {
		return
	}

	o.pending.Add(1)
	go func() {
		defer o.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), o.config.CancelTimeout)
		defer cancel()

		cancelled, err := h.client.Cancel(ctx, taskID)
		if err != nil {
			o.logger.Debug("remote cancel failed",
				zap.String("domain", string(h.domain)),
				zap.String("task_id", taskID),
				zap.Error(err),
			)
			return
		}
		o.logger.Debug("remote cancel sent",
			zap.String("domain", string(h.domain)),
			zap.String("task_id", taskID),
			zap.Bool("cancelled", cancelled),
		)
	}()
}
