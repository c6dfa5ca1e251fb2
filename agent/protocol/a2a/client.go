package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/BaSui01/holidayflow/internal/tlsutil"
)

// maxResponseBytes bounds any executor reply the client will read.
const maxResponseBytes = 4 << 20

// A2AClient is the submitter's view of one executor.
type A2AClient interface {
	// Discover fetches the executor's agent card.
	Discover(ctx context.Context) (*AgentCard, error)
	// Submit sends a task and blocks until the executor returns it in a terminal state.
	Submit(ctx context.Context, task *Task) (*Task, error)
	// Cancel asks the executor to cancel a task and reports whether it did.
	Cancel(ctx context.Context, taskID string) (bool, error)
	// GetTask returns the executor's snapshot of a task.
	GetTask(ctx context.Context, taskID string) (*Task, error)
	// Endpoint returns the executor base URL.
	Endpoint() string
}

// ClientConfig configures an HTTPClient.
type ClientConfig struct {
	// Timeout bounds each HTTP exchange. Zero leaves it to the caller's context.
	Timeout time.Duration
	// RetryCount applies to discovery only. Submissions are never retried.
	RetryCount int
	RetryDelay time.Duration
	// CardTTL is how long a discovered card is reused. <= 0 disables caching.
	CardTTL time.Duration
	// UserAgent is sent on every request when set.
	UserAgent string
}

// DefaultClientConfig returns the settings the orchestrator starts from.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:    30 * time.Second,
		RetryCount: 2,
		RetryDelay: 500 * time.Millisecond,
		CardTTL:    5 * time.Minute,
	}
}

// HTTPClient implements A2AClient over HTTP/JSON for a single executor.
type HTTPClient struct {
	endpoint string
	config   ClientConfig
	http     *http.Client

	mu        sync.RWMutex
	card      *AgentCard
	cardUntil time.Time
}

var _ A2AClient = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the executor at endpoint. A trailing
// slash on endpoint is ignored. A nil config means DefaultClientConfig.
func NewHTTPClient(endpoint string, config *ClientConfig) *HTTPClient {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		config:   *config,
		http:     tlsutil.SecureHTTPClient(config.Timeout),
	}
}

// Endpoint returns the executor base URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Discover returns the executor's card, from cache while it is fresh.
// Unreachable executors are retried RetryCount times; a malformed card is not.
// Errors wrap ErrRemoteUnavailable or ErrInvalidMessage and are never a
// *TransportError.
func (c *HTTPClient) Discover(ctx context.Context) (*AgentCard, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: empty url", ErrRemoteUnavailable)
	}
	if card := c.cachedCard(); card != nil {
		return card, nil
	}

	for attempt := 0; ; attempt++ {
		card, err := c.fetchCard(ctx)
		if err == nil {
			c.storeCard(card)
			return card, nil
		}
		if errors.Is(err, ErrInvalidMessage) || attempt >= c.config.RetryCount {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, ctx.Err())
		case <-time.After(c.config.RetryDelay):
		}
	}
}

func (c *HTTPClient) fetchCard(ctx context.Context) (*AgentCard, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.endpoint+PathAgentCard, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, status)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &card, nil
}

func (c *HTTPClient) cachedCard() *AgentCard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.card != nil && time.Now().Before(c.cardUntil) {
		return c.card
	}
	return nil
}

func (c *HTTPClient) storeCard(card *AgentCard) {
	if c.config.CardTTL <= 0 {
		return
	}
	c.mu.Lock()
	c.card, c.cardUntil = card, time.Now().Add(c.config.CardTTL)
	c.mu.Unlock()
}

// ClearCache drops the cached card so the next Discover goes to the executor.
func (c *HTTPClient) ClearCache() {
	c.mu.Lock()
	c.card, c.cardUntil = nil, time.Time{}
	c.mu.Unlock()
}

// Submit posts task and returns the executor's terminal snapshot. A failed
// or cancelled task is a result, not an error. Every error after the task
// leaves the client is a *TransportError.
func (c *HTTPClient) Submit(ctx context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: nil task", ErrInvalidMessage)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	payload, err := json.Marshal(SendTaskRequest{Task: task})
	if err != nil {
		return nil, fmt.Errorf("%w: encode task: %v", ErrInvalidMessage, err)
	}

	status, body, err := c.do(ctx, http.MethodPost, c.endpoint+PathTaskSend, payload)
	if err != nil {
		return nil, c.transportError("submit", err)
	}
	if status != http.StatusOK {
		// 5xx: the executor is up but broken; 4xx: it rejected what we sent
		cause := ErrInvalidMessage
		if status >= http.StatusInternalServerError {
			cause = ErrRemoteUnavailable
		}
		return nil, c.transportError("submit", statusError(cause, status, body))
	}

	var out SendTaskResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, c.transportError("submit", fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}
	if err := validateResult(task, out.Task); err != nil {
		return nil, c.transportError("submit", err)
	}
	return out.Task, nil
}

// Cancel asks the executor to cancel taskID. An unknown task wraps
// ErrTaskNotFound.
func (c *HTTPClient) Cancel(ctx context.Context, taskID string) (bool, error) {
	var out CancelTaskResponse
	if err := c.taskCall(ctx, "cancel", http.MethodPost, taskID, "/cancel", &out); err != nil {
		return false, err
	}
	return out.Cancelled, nil
}

// GetTask fetches the executor's snapshot of taskID. An unknown task wraps
// ErrTaskNotFound.
func (c *HTTPClient) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var out SendTaskResponse
	if err := c.taskCall(ctx, "get_task", http.MethodGet, taskID, "", &out); err != nil {
		return nil, err
	}
	if out.Task == nil {
		return nil, c.transportError("get_task", fmt.Errorf("%w: missing task in response", ErrInvalidMessage))
	}
	return out.Task, nil
}

// taskCall performs a request on /a2a/tasks/{id}{suffix} and decodes a 200 reply into out.
func (c *HTTPClient) taskCall(ctx context.Context, op, method, taskID, suffix string, out any) error {
	if taskID == "" {
		return fmt.Errorf("%w: empty task_id", ErrInvalidMessage)
	}

	status, body, err := c.do(ctx, method, c.endpoint+PathTaskPrefix+url.PathEscape(taskID)+suffix, nil)
	switch {
	case err != nil:
		return c.transportError(op, err)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	case status != http.StatusOK:
		return c.transportError(op, statusError(ErrRemoteUnavailable, status, body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.transportError(op, fmt.Errorf("%w: %v", ErrInvalidMessage, err))
	}
	return nil
}

// do sends one request and reads at most maxResponseBytes of the reply.
// Round-trip failures come back classified as ErrTimeout or ErrRemoteUnavailable.
func (c *HTTPClient) do(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %v", ErrInvalidMessage, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	// the executor continues the submitter's trace
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classifyDoError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, classifyDoError(ctx, err)
	}
	return resp.StatusCode, body, nil
}

func (c *HTTPClient) transportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Endpoint: c.endpoint, Err: err}
}

func statusError(cause error, status int, body []byte) error {
	return fmt.Errorf("%w: status %d, body: %s", cause, status, trimBody(body))
}

// classifyDoError maps a failed round trip onto ErrTimeout or ErrRemoteUnavailable.
func classifyDoError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}

// validateResult checks that the executor answered with a terminal snapshot of the submitted task.
func validateResult(sent, got *Task) error {
	switch {
	case got == nil:
		return fmt.Errorf("%w: missing task in response", ErrInvalidMessage)
	case got.ID != sent.ID:
		return fmt.Errorf("%w: task id mismatch: sent %s, got %s", ErrInvalidMessage, sent.ID, got.ID)
	case !got.Status.State.IsValid() || !got.IsTerminal():
		return fmt.Errorf("%w: task %s not terminal: %q", ErrInvalidMessage, got.ID, got.Status.State)
	case got.Status.State == TaskStateCompleted && got.LastAgentMessage() == nil:
		return fmt.Errorf("%w: completed task %s has no response", ErrInvalidMessage, got.ID)
	}
	return nil
}

func trimBody(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
