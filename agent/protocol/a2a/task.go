package a2a

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState is a task lifecycle state.
type TaskState string

const (
	// TaskStateSubmitted is set by the submitter when the task is created.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking is set by the executor when it starts processing.
	TaskStateWorking TaskState = "working"
	// TaskStateCompleted means the executor produced a response and fulfilled the task.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed means the executor could not produce a response.
	TaskStateFailed TaskState = "failed"
	// TaskStateCancelled means a cancellation request was honored.
	TaskStateCancelled TaskState = "cancelled"
)

// IsValid checks whether the state is one of the known lifecycle states.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed, failed and cancelled.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	default:
		return false
	}
}

// String returns the string form of the state.
func (s TaskState) String() string {
	return string(s)
}

// validTransitions lists the legal forward moves. Terminal states have no entry.
// submitted -> failed is reserved for up-front request validation.
var validTransitions = map[TaskState][]TaskState{
	TaskStateSubmitted: {TaskStateWorking, TaskStateFailed, TaskStateCancelled},
	TaskStateWorking:   {TaskStateCompleted, TaskStateFailed, TaskStateCancelled},
}

// CanTransition checks whether from -> to is a legal lifecycle move.
func CanTransition(from, to TaskState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a task is asked to move backwards or out of a terminal state.
type ErrInvalidTransition struct {
	From TaskState
	To   TaskState
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid task transition: %s -> %s", e.From, e.To)
}

// TaskStatus is the current lifecycle state plus optional detail.
type TaskStatus struct {
	State TaskState `json:"state"`
	// Reason carries the human readable failure or cancellation cause.
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is the unit of work exchanged between a submitter and an executor.
type Task struct {
	// ID is assigned by the submitter at creation.
	ID string `json:"id"`
	// ContextID groups the tasks of one orchestration call.
	ContextID string `json:"context_id,omitempty"`
	// Messages is append-only. Index 0 is the initiating request.
	Messages []Message `json:"messages"`
	// Status is the current lifecycle status.
	Status TaskStatus `json:"status"`
	// History records every state the task has passed through, in order.
	History []TaskState `json:"history,omitempty"`
	// Metadata holds extra submitter-defined key/value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewTask creates a submitted task with a fresh ID around the initiating message.
func NewTask(request Message) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:       uuid.New().String(),
		Messages: []Message{request},
		Status:   TaskStatus{State: TaskStateSubmitted, Timestamp: now},
		History:  []TaskState{TaskStateSubmitted},
	}
}

// WithContextID sets the correlation ID and returns the task for chaining.
func (t *Task) WithContextID(id string) *Task {
	t.ContextID = id
	return t
}

// SetMetadata sets a metadata key/value pair.
func (t *Task) SetMetadata(key, value string) *Task {
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
	return t
}

// Validate checks the structural invariants a submitted task must satisfy.
func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrTaskMissingID
	}
	if len(t.Messages) == 0 {
		return ErrTaskMissingMessages
	}
	if !t.Status.State.IsValid() {
		return ErrTaskInvalidState
	}
	for _, m := range t.Messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if t.Messages[0].Role != RoleUser {
		return fmt.Errorf("%w: initiating message must come from the submitter", ErrInvalidMessage)
	}
	return nil
}

// Request returns the initiating message, or nil for an empty task.
func (t *Task) Request() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[0]
}

// LastAgentMessage returns the most recent executor-authored message, or nil.
func (t *Task) LastAgentMessage() *Message {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAgent {
			return &t.Messages[i]
		}
	}
	return nil
}

// ResponseText returns the text of the last executor message.
func (t *Task) ResponseText() string {
	if m := t.LastAgentMessage(); m != nil {
		return m.Text()
	}
	return ""
}

// IsTerminal reports whether the task reached a terminal state.
func (t *Task) IsTerminal() bool {
	return t.Status.State.IsTerminal()
}

// appendMessage adds an executor message. Terminal tasks are immutable.
func (t *Task) appendMessage(m Message) error {
	if t.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTaskTerminal, t.ID)
	}
	t.Messages = append(t.Messages, m)
	return nil
}

// transition moves the task to the next state.
func (t *Task) transition(to TaskState, reason string) error {
	from := t.Status.State
	if !CanTransition(from, to) {
		return ErrInvalidTransition{From: from, To: to}
	}
	if to == TaskStateCompleted && t.LastAgentMessage() == nil {
		return fmt.Errorf("%w: completed task needs an agent message", ErrInvalidTransition{From: from, To: to})
	}
	t.Status = TaskStatus{State: to, Reason: reason, Timestamp: time.Now().UTC()}
	t.History = append(t.History, to)
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Messages = make([]Message, len(t.Messages))
	for i, m := range t.Messages {
		c.Messages[i] = m.clone()
	}
	if t.History != nil {
		c.History = make([]TaskState, len(t.History))
		copy(c.History, t.History)
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
