package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Builders(t *testing.T) {
	t.Parallel()

	root := errors.New("connection refused")
	err := NewError(ErrAgentUnavailable, "hotel agent unreachable").
		WithCause(root).
		WithHTTPStatus(503).
		WithRetryable(true).
		WithDomain("hotel")

	if err.Code != ErrAgentUnavailable || err.HTTPStatus != 503 || !err.Retryable || err.Domain != "hotel" {
		t.Fatalf("builder fields not set: %+v", err)
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
	if got, want := err.Error(), "AGENT_UNAVAILABLE: hotel agent unreachable: connection refused"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if got := NewInvalidRequestError("nights must be positive").Error(); got != "INVALID_REQUEST: nights must be positive" {
		t.Fatalf("Error() without cause = %q", got)
	}
}

func TestError_MatchByCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("booking failed: %w", NewError(ErrNoDomains, "no domains configured"))

	if !IsErrorCode(wrapped, ErrNoDomains) {
		t.Fatalf("expected NO_DOMAINS through wrapping")
	}
	if IsErrorCode(wrapped, ErrTimeout) {
		t.Fatalf("TIMEOUT must not match NO_DOMAINS")
	}
	if !errors.Is(wrapped, &Error{Code: ErrNoDomains}) {
		t.Fatalf("errors.Is should match by code")
	}
	if errors.Is(wrapped, errors.New("NO_DOMAINS")) {
		t.Fatalf("plain errors never match")
	}
	if IsErrorCode(nil, ErrNoDomains) || IsErrorCode(errors.New("plain"), ErrNoDomains) {
		t.Fatalf("nil and plain errors carry no code")
	}
}

func TestAsError(t *testing.T) {
	t.Parallel()

	joined := errors.Join(errors.New("context"), NewError(ErrUnknownDomain, "train").WithDomain("train"))
	e, ok := AsError(joined)
	if !ok || e.Domain != "train" {
		t.Fatalf("AsError(joined) = %v, %v", e, ok)
	}
	if e, ok := AsError(errors.New("plain")); ok || e != nil {
		t.Fatalf("AsError(plain) = %v, %v", e, ok)
	}
}
