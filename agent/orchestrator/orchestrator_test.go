package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/holidayflow/agent/booking"
	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
	"github.com/BaSui01/holidayflow/types"
)

// =============================================================================
// Fixtures
// =============================================================================

type testAgent struct {
	server   *httptest.Server
	executor *a2a.Executor
}

func startAgent(t *testing.T, d booking.Domain, opts ...booking.SynthOption) *testAgent {
	t.Helper()

	synth, err := booking.Synthesizer(d, opts...)
	require.NoError(t, err)
	executor := a2a.NewExecutor(booking.AgentName(d), synth)

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	card, err := booking.NewCard(d, ts.URL, "1.0.0")
	require.NoError(t, err)
	server, err := a2a.NewHTTPServer(card, executor, nil)
	require.NoError(t, err)
	handler = server

	return &testAgent{server: ts, executor: executor}
}

// startSilentAgent accepts connections but never answers until the client gives up.
func startSilentAgent(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })
	return ts
}

func testClientConfig() *a2a.ClientConfig {
	return &a2a.ClientConfig{
		Timeout:    5 * time.Second,
		RetryCount: 0,
		RetryDelay: 10 * time.Millisecond,
		CardTTL:    time.Minute,
	}
}

func testConfig(endpoints map[booking.Domain]string) Config {
	cfg := Config{
		DomainTimeout:    5 * time.Second,
		CancelTimeout:    500 * time.Millisecond,
		DiscoveryTimeout: time.Second,
		Client:           testClientConfig(),
	}
	for _, d := range booking.Domains() {
		if url, ok := endpoints[d]; ok {
			cfg.Agents = append(cfg.Agents, AgentEndpoint{Domain: string(d), URL: url})
		}
	}
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	o, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func tokyoRequest() booking.HolidayRequest {
	return booking.HolidayRequest{
		Origin:        "Delhi",
		Destination:   "Tokyo",
		DepartureDate: "2026-12-20",
		Passengers:    2,
		Nights:        4,
	}
}

type recordingClient struct {
	a2a.A2AClient
	cancels atomic.Int32
}

func (c *recordingClient) Cancel(ctx context.Context, taskID string) (bool, error) {
	c.cancels.Add(1)
	return c.A2AClient.Cancel(ctx, taskID)
}

type fakeRecorder struct {
	mu         sync.Mutex
	dispatches map[string]string
	tiers      []string
	status     map[string]bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{dispatches: map[string]string{}, status: map[string]bool{}}
}

func (r *fakeRecorder) RecordDispatch(domain, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches[domain] = outcome
}

func (r *fakeRecorder) RecordBooking(tier string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
}

func (r *fakeRecorder) RecordAgentStatus(domain string, reachable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[domain] = reachable
}

// =============================================================================
// Config
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"default is valid", func(*Config) {}, nil},
		{"empty agents is valid", func(c *Config) { c.Agents = nil }, nil},
		{"duplicate domain", func(c *Config) {
			c.Agents = append(c.Agents, AgentEndpoint{Domain: "FLIGHT", URL: "http://x"})
		}, ErrDuplicateDomain},
		{"unknown domain", func(c *Config) {
			c.Agents = append(c.Agents, AgentEndpoint{Domain: "train", URL: "http://x"})
		}, ErrInvalidConfig},
		{"missing url", func(c *Config) { c.Agents[0].URL = " " }, ErrInvalidConfig},
		{"negative timeout", func(c *Config) { c.DomainTimeout = -time.Second }, ErrInvalidConfig},
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultAgents(t *testing.T) {
	agents := DefaultAgents()
	require.Len(t, agents, 3)
	assert.Equal(t, AgentEndpoint{Domain: "flight", URL: "http://localhost:5002"}, agents[0])
	assert.Equal(t, AgentEndpoint{Domain: "hotel", URL: "http://localhost:5003"}, agents[1])
	assert.Equal(t, AgentEndpoint{Domain: "cab", URL: "http://localhost:5001"}, agents[2])
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = append(cfg.Agents, cfg.Agents[0])

	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrDuplicateDomain)
}

// =============================================================================
// BookHoliday
// =============================================================================

func TestBookHoliday_AllDomainsBooked(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight)
	hotel := startAgent(t, booking.DomainHotel)
	cab := startAgent(t, booking.DomainCab)

	recorder := newFakeRecorder()
	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  hotel.server.URL,
		booking.DomainCab:    cab.server.URL,
	}), WithMetrics(recorder))

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, TierFull, result.SummaryTier)
	assert.Equal(t, 3, result.TotalServices)
	assert.Equal(t, 3, result.SuccessfulBookings)
	assert.Equal(t, 0, result.FailedBookings)
	assert.Equal(t, float64(100), result.SuccessRate)
	assert.Equal(t, "🎊 Complete holiday package booked successfully!", result.Summary)
	assert.NotEmpty(t, result.BookingID)

	require.Len(t, result.Results, 3)
	for i, d := range booking.Domains() {
		outcome := result.Results[i]
		assert.Equal(t, string(d), outcome.Service)
		assert.Equal(t, OutcomeCompleted, outcome.Kind)
		assert.Equal(t, a2a.TaskStateCompleted, outcome.State)
		assert.Contains(t, outcome.Message, "✅")
		assert.Contains(t, outcome.Message, "Tokyo")
		assert.Same(t, &result.Results[i], result.Outcomes[string(d)])
	}
	assert.Equal(t, "Tokyo", result.Outcomes["flight"].BookingDetails["destination"])
	assert.Equal(t, "Tokyo Airport", result.Outcomes["cab"].BookingDetails["pickup"])

	// every task carries the booking ID as its context
	task, err := hotel.executor.Store().Get(result.Outcomes["hotel"].TaskID)
	require.NoError(t, err)
	assert.Equal(t, result.BookingID, task.ContextID)
	assert.Equal(t, "hotel", task.Metadata["domain"])

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, map[string]string{"flight": "completed", "hotel": "completed", "cab": "completed"}, recorder.dispatches)
	assert.Equal(t, []string{"full"}, recorder.tiers)
}

func TestBookHoliday_AgentDownIsPartial(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight)
	hotel := startAgent(t, booking.DomainHotel)
	cab := startAgent(t, booking.DomainCab)
	hotelURL := hotel.server.URL
	hotel.server.Close()

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  hotelURL,
		booking.DomainCab:    cab.server.URL,
	}))

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, TierPartial, result.SummaryTier)
	assert.Equal(t, 2, result.SuccessfulBookings)
	assert.Equal(t, 1, result.FailedBookings)
	assert.Equal(t, 0, result.DomainFailures)
	assert.Equal(t, 1, result.TransportErrors)
	assert.Equal(t, "⚠️ Partial booking completed (2/3 services)", result.Summary)
	assert.InDelta(t, 66.67, result.SuccessRate, 0.01)

	hotelOutcome := result.Outcomes["hotel"]
	assert.Equal(t, OutcomeTransportError, hotelOutcome.Kind)
	assert.NotEmpty(t, hotelOutcome.Error)
	assert.Equal(t, OutcomeCompleted, result.Outcomes["flight"].Kind)
	assert.Equal(t, OutcomeCompleted, result.Outcomes["cab"].Kind)
}

func TestBookHoliday_FailedTaskIsNotTransportError(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight)
	hotel := startAgent(t, booking.DomainHotel, booking.WithUnavailable("tokyo"))

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  hotel.server.URL,
	}))

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)

	assert.Equal(t, TierPartial, result.SummaryTier)
	assert.Equal(t, 0, result.TransportErrors)
	assert.Equal(t, 1, result.DomainFailures)
	assert.Equal(t, 1, result.FailedBookings)

	hotelOutcome := result.Outcomes["hotel"]
	assert.Equal(t, OutcomeFailed, hotelOutcome.Kind)
	assert.Equal(t, a2a.TaskStateFailed, hotelOutcome.State)
	assert.Contains(t, hotelOutcome.Message, "Sorry")
	assert.NotEmpty(t, hotelOutcome.Error)
}

func TestBookHoliday_AllDown(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: "http://127.0.0.1:1",
		booking.DomainCab:    "http://127.0.0.1:1",
	}))

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)

	assert.Equal(t, TierTotalFailure, result.SummaryTier)
	assert.Equal(t, float64(0), result.SuccessRate)
	assert.Equal(t, 2, result.TransportErrors)
	assert.Equal(t, "❌ Holiday booking failed - no services were booked", result.Summary)
}

func TestBookHoliday_DomainsRunConcurrently(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight, booking.WithLatency(100*time.Millisecond))
	hotel := startAgent(t, booking.DomainHotel, booking.WithLatency(300*time.Millisecond))
	cab := startAgent(t, booking.DomainCab, booking.WithLatency(300*time.Millisecond))

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  hotel.server.URL,
		booking.DomainCab:    cab.server.URL,
	}))

	start := time.Now()
	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, TierFull, result.SummaryTier)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	// sequential dispatch would take at least 700ms
	assert.Less(t, elapsed, 650*time.Millisecond)
}

func TestBookHoliday_MaxConcurrencyOne(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight, booking.WithLatency(100*time.Millisecond))
	hotel := startAgent(t, booking.DomainHotel, booking.WithLatency(100*time.Millisecond))

	cfg := testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  hotel.server.URL,
	})
	cfg.MaxConcurrency = 1
	o := newTestOrchestrator(t, cfg)

	start := time.Now()
	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)

	assert.Equal(t, TierFull, result.SummaryTier)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestBookHoliday_SilentAgentIsIsolated(t *testing.T) {
	silent := startSilentAgent(t)
	hotel := startAgent(t, booking.DomainHotel)
	cab := startAgent(t, booking.DomainCab)

	cfg := testConfig(map[booking.Domain]string{
		booking.DomainFlight: silent.URL,
		booking.DomainHotel:  hotel.server.URL,
		booking.DomainCab:    cab.server.URL,
	})
	cfg.DomainTimeout = 200 * time.Millisecond
	cfg.CancelTimeout = 100 * time.Millisecond
	o := newTestOrchestrator(t, cfg)

	start := time.Now()
	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, TierPartial, result.SummaryTier)
	flightOutcome := result.Outcomes["flight"]
	assert.Equal(t, OutcomeTransportError, flightOutcome.Kind)
	assert.Contains(t, flightOutcome.Error, a2a.ErrTimeout.Error())
	assert.Equal(t, OutcomeCompleted, result.Outcomes["hotel"].Kind)
	assert.Equal(t, OutcomeCompleted, result.Outcomes["cab"].Kind)
}

func TestBookHoliday_CallerCancellation(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight)
	hotel := startAgent(t, booking.DomainHotel, booking.WithLatency(5*time.Second))

	var hotelClient *recordingClient
	factory := func(endpoint string, cfg *a2a.ClientConfig) a2a.A2AClient {
		c := &recordingClient{A2AClient: a2a.NewHTTPClient(endpoint, cfg)}
		if endpoint == hotel.server.URL {
			hotelClient = c
		}
		return c
	}

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  hotel.server.URL,
	}), WithClientFactory(factory))
	require.NotNil(t, hotelClient)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	result, err := o.BookHoliday(ctx, tokyoRequest())
	require.NoError(t, err)

	hotelOutcome := result.Outcomes["hotel"]
	assert.Equal(t, OutcomeTransportError, hotelOutcome.Kind)
	assert.Equal(t, a2a.TaskStateCancelled, hotelOutcome.State)
	assert.Equal(t, OutcomeCompleted, result.Outcomes["flight"].Kind)

	o.Close()
	assert.Equal(t, int32(1), hotelClient.cancels.Load())

	assert.Eventually(t, func() bool {
		task, err := hotel.executor.Store().Get(hotelOutcome.TaskID)
		return err == nil && task.Status.State == a2a.TaskStateCancelled
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBookHoliday_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(nil))

	req := tokyoRequest()
	req.Origin = ""
	_, err := o.BookHoliday(context.Background(), req)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.ErrorIs(t, err, booking.ErrInvalidRequest)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus)
}

func TestBookHoliday_NoDomains(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(nil))

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalServices)
	assert.Equal(t, float64(100), result.SuccessRate)
	assert.Equal(t, TierFull, result.SummaryTier)
	assert.Empty(t, result.Results)

	cfg := testConfig(nil)
	cfg.RequireDomains = true
	strict := newTestOrchestrator(t, cfg)

	_, err = strict.BookHoliday(context.Background(), tokyoRequest())
	assert.True(t, types.IsErrorCode(err, types.ErrNoDomains))
}

func TestBookHoliday_DefaultsDepartureDate(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
	}), WithClock(func() time.Time { return fixed }))

	req := tokyoRequest()
	req.DepartureDate = ""
	result, err := o.BookHoliday(context.Background(), req)
	require.NoError(t, err)

	date, ok := result.Outcomes["flight"].BookingDetails["date"].(string)
	require.True(t, ok)
	assert.Equal(t, "2026-03-01", date)
}

// ferryKind is a domain registered by the test, not one of the built-ins.
func ferryKind() booking.Kind {
	return booking.Kind{
		Domain:    "ferry",
		AgentName: "FerryBookingAgent",
		Message: func(r booking.HolidayRequest) booking.Template {
			return booking.Template{Title: "Book a ferry crossing:", Lines: []booking.Line{
				{Key: "Port", Value: r.Destination + " harbour"},
				{Key: "Date", Value: r.DepartureDate},
			}}
		},
		Details: func(r booking.HolidayRequest) map[string]any {
			return map[string]any{"port": r.Destination + " harbour"}
		},
		Confirm: func(req booking.Request) (booking.Template, error) {
			return booking.Template{Title: "Ferry booked", Lines: []booking.Line{
				{Key: "Booking Reference", Value: req.Reference("FR")},
				{Key: "Port", Value: req.Fields.Get("port")},
			}}, nil
		},
	}
}

func TestBookHoliday_RegisteredDomain(t *testing.T) {
	require.NoError(t, booking.Register(ferryKind()))
	t.Cleanup(func() { booking.Unregister("ferry") })

	flight := startAgent(t, booking.DomainFlight)
	ferry := startAgent(t, "ferry")

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		"ferry":              ferry.server.URL,
	}))
	assert.Equal(t, []AgentEndpoint{
		{Domain: "flight", URL: flight.server.URL},
		{Domain: "ferry", URL: ferry.server.URL},
	}, o.Agents())

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)
	assert.Equal(t, TierFull, result.SummaryTier)
	assert.Equal(t, 2, result.SuccessfulBookings)

	outcome := result.Outcomes["ferry"]
	require.NotNil(t, outcome)
	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Contains(t, outcome.Message, "Ferry booked")
	assert.Contains(t, outcome.Message, "Port: Tokyo harbour")
	assert.Equal(t, "Tokyo harbour", outcome.BookingDetails["port"])
}

// =============================================================================
// BookDomain
// =============================================================================

func TestBookDomain(t *testing.T) {
	cab := startAgent(t, booking.DomainCab)
	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainCab: cab.server.URL,
	}))

	outcome, err := o.BookDomain(context.Background(), "CAB", tokyoRequest())
	require.NoError(t, err)
	assert.Equal(t, "cab", outcome.Service)
	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Contains(t, outcome.Message, "Airport transfer booked")

	_, err = o.BookDomain(context.Background(), "train", tokyoRequest())
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownDomain))

	// known but not configured
	_, err = o.BookDomain(context.Background(), "hotel", tokyoRequest())
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownDomain))

	_, err = o.BookDomain(context.Background(), "cab", booking.HolidayRequest{})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

// =============================================================================
// Status
// =============================================================================

func TestAgentsStatus(t *testing.T) {
	flight := startAgent(t, booking.DomainFlight)

	recorder := newFakeRecorder()
	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{
		booking.DomainFlight: flight.server.URL,
		booking.DomainHotel:  "http://127.0.0.1:1",
	}), WithMetrics(recorder))

	statuses := o.AgentsStatus(context.Background())
	require.Len(t, statuses, 2)

	assert.True(t, statuses["flight"].Reachable)
	require.NotNil(t, statuses["flight"].Card)
	assert.Equal(t, "FlightBookingAgent", statuses["flight"].Card.Name)
	assert.Empty(t, statuses["flight"].Error)

	assert.False(t, statuses["hotel"].Reachable)
	assert.NotEmpty(t, statuses["hotel"].Error)
	assert.Nil(t, statuses["hotel"].Card)

	recorder.mu.Lock()
	assert.Equal(t, map[string]bool{"flight": true, "hotel": false}, recorder.status)
	recorder.mu.Unlock()
}

func TestAgents(t *testing.T) {
	o := newTestOrchestrator(t, DefaultConfig())
	assert.Equal(t, DefaultAgents(), o.Agents())
}

func TestBookHoliday_UnavailableAgentDropsCachedCard(t *testing.T) {
	var cardFetches atomic.Int32
	var card *a2a.AgentCard
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == a2a.PathAgentCard {
			cardFetches.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(card)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	var err error
	card, err = booking.NewCard(booking.DomainFlight, ts.URL, "1.0.0")
	require.NoError(t, err)

	o := newTestOrchestrator(t, testConfig(map[booking.Domain]string{booking.DomainFlight: ts.URL}))

	require.True(t, o.AgentsStatus(context.Background())["flight"].Reachable)
	require.True(t, o.AgentsStatus(context.Background())["flight"].Reachable)
	assert.Equal(t, int32(1), cardFetches.Load(), "second health check is served from cache")

	result, err := o.BookHoliday(context.Background(), tokyoRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransportError, result.Outcomes["flight"].Kind)

	o.AgentsStatus(context.Background())
	assert.Equal(t, int32(2), cardFetches.Load(), "cache dropped after the agent failed")
}
