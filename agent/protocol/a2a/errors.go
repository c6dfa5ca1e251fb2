package a2a

import (
	"errors"
	"fmt"
)

// Agent card validation errors.
var (
	// ErrMissingName indicates the agent card has no name.
	ErrMissingName = errors.New("agent card: missing name")
	// ErrMissingDescription indicates the agent card has no description.
	ErrMissingDescription = errors.New("agent card: missing description")
	// ErrMissingURL indicates the agent card has no url.
	ErrMissingURL = errors.New("agent card: missing url")
	// ErrMissingVersion indicates the agent card has no version.
	ErrMissingVersion = errors.New("agent card: missing version")
)

// A2A protocol errors.
var (
	// ErrRemoteUnavailable indicates the remote executor could not be reached.
	ErrRemoteUnavailable = errors.New("a2a: remote agent unavailable")
	// ErrTimeout indicates the remote executor did not answer in time.
	ErrTimeout = errors.New("a2a: request timed out")
	// ErrInvalidMessage indicates a malformed request or response.
	ErrInvalidMessage = errors.New("a2a: invalid message format")
)

// Task errors.
var (
	// ErrTaskNotFound indicates the task is unknown to the executor.
	ErrTaskNotFound = errors.New("a2a: task not found")
	// ErrTaskExists indicates a task with the same ID is already registered.
	ErrTaskExists = errors.New("a2a: task already exists")
	// ErrTaskTerminal indicates an attempt to mutate a finished task.
	ErrTaskTerminal = errors.New("a2a: task already in terminal state")
	// ErrTaskMissingID indicates the task has no ID.
	ErrTaskMissingID = errors.New("a2a task: missing id")
	// ErrTaskMissingMessages indicates the task carries no initiating message.
	ErrTaskMissingMessages = errors.New("a2a task: missing messages")
	// ErrTaskInvalidState indicates the task status is not a known state.
	ErrTaskInvalidState = errors.New("a2a task: invalid state")
)

// Message validation errors.
var (
	// ErrMessageMissingID indicates the message has no ID.
	ErrMessageMissingID = errors.New("a2a message: missing id")
	// ErrMessageInvalidRole indicates the message role is unknown.
	ErrMessageInvalidRole = errors.New("a2a message: invalid role")
)

// TransportError reports that an executor never produced a task outcome:
// it was unreachable, timed out or answered with something unusable.
// It is kept apart from failed/cancelled tasks, which are normal outcomes.
type TransportError struct {
	// Op is the client operation, e.g. "submit" or "discover".
	Op string
	// Endpoint is the executor base URL.
	Endpoint string
	// Err wraps one of ErrRemoteUnavailable, ErrTimeout or ErrInvalidMessage.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("a2a %s %s: %v", e.Op, e.Endpoint, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error was caused by a deadline.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// IsTransportError reports whether err is (or wraps) a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
