package a2a

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReasonMissingContent is the failure reason for tasks without request text.
const ReasonMissingContent = "missing request content"

// Synthesizer turns the request text of a task into response content.
// It must be deterministic for a given request.
type Synthesizer func(ctx context.Context, request string) (string, error)

// TaskUpdate is emitted for every state change, in the order the changes happen.
type TaskUpdate struct {
	TaskID string     `json:"task_id"`
	From   TaskState  `json:"from"`
	Status TaskStatus `json:"status"`
}

// UpdateHook observes task updates. Hooks run while the task is locked and
// must return quickly.
type UpdateHook func(TaskUpdate)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTaskStore shares a task store with the executor.
func WithTaskStore(store *TaskStore) ExecutorOption {
	return func(e *Executor) {
		if store != nil {
			e.store = store
		}
	}
}

// WithUpdateHook registers a hook that sees every task update.
func WithUpdateHook(hook UpdateHook) ExecutorOption {
	return func(e *Executor) {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
}

// Executor drives tasks through submitted -> working -> terminal.
// The lifecycle is the same for every domain; only the Synthesizer differs.
type Executor struct {
	name   string
	synth  Synthesizer
	store  *TaskStore
	logger *zap.Logger
	hooks  []UpdateHook
}

// NewExecutor creates an executor around a response synthesizer.
func NewExecutor(name string, synth Synthesizer, opts ...ExecutorOption) *Executor {
	e := &Executor{
		name:   name,
		synth:  synth,
		store:  NewTaskStore(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "executor"), zap.String("agent", name))
	return e
}

// Name returns the executor name.
func (e *Executor) Name() string {
	return e.name
}

// Store returns the task store backing this executor.
func (e *Executor) Store() *TaskStore {
	return e.store
}

// Execute processes a submitted task and returns its terminal snapshot.
// An error is returned only when the task cannot be accepted at all
// (structurally invalid, not in submitted state, or a duplicate ID);
// failures while producing a response end in the failed state instead.
func (e *Executor) Execute(ctx context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: nil task", ErrInvalidMessage)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if task.Status.State != TaskStateSubmitted {
		return nil, fmt.Errorf("%w: task %s is %s, expected %s",
			ErrInvalidMessage, task.ID, task.Status.State, TaskStateSubmitted)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &taskRun{
		task:      task.Clone(),
		cancel:    cancel,
		startedAt: time.Now(),
	}
	if err := e.store.add(run); err != nil {
		return nil, fmt.Errorf("%w: %s", err, task.ID)
	}

	request := run.task.Request().Text()
	e.logger.Debug("task received", zap.String("task_id", task.ID))

	if strings.TrimSpace(request) == "" {
		e.advance(run, TaskStateFailed, ReasonMissingContent)
		return run.snapshot(), nil
	}

	if !e.advance(run, TaskStateWorking, "") {
		// cancelled before work started
		return run.snapshot(), nil
	}

	type result struct {
		text string
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- result{err: fmt.Errorf("synthesizer panic: %v", r)}
			}
		}()
		text, err := e.synth(runCtx, request)
		resultCh <- result{text: text, err: err}
	}()

	select {
	case <-runCtx.Done():
		e.advance(run, TaskStateCancelled, cancelReason(ctx))
	case res := <-resultCh:
		if runCtx.Err() != nil {
			e.advance(run, TaskStateCancelled, cancelReason(ctx))
			break
		}
		e.finish(run, res.text, res.err)
	}

	final := run.snapshot()
	e.logger.Info("task finished",
		zap.String("task_id", final.ID),
		zap.String("state", final.Status.State.String()),
		zap.Duration("duration", time.Since(run.startedAt)),
	)
	return final, nil
}

// Cancel honors a cancellation request. It returns false when the task had
// already reached a terminal state, in which case nothing changes.
func (e *Executor) Cancel(taskID string) (bool, error) {
	run, ok := e.store.get(taskID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if !e.advance(run, TaskStateCancelled, "cancelled by request") {
		return false, nil
	}
	// stop any in-flight synthesis; its result is discarded
	run.cancel()
	return true, nil
}

// advance applies one transition unless the task is already terminal.
func (e *Executor) advance(run *taskRun, to TaskState, reason string) bool {
	run.mu.Lock()
	defer run.mu.Unlock()
	return e.advanceLocked(run, to, reason)
}

func (e *Executor) advanceLocked(run *taskRun, to TaskState, reason string) bool {
	if run.task.IsTerminal() {
		return false
	}
	from := run.task.Status.State
	if err := run.task.transition(to, reason); err != nil {
		e.logger.Error("rejected task transition",
			zap.String("task_id", run.task.ID),
			zap.Error(err),
		)
		return false
	}
	if to.IsTerminal() {
		run.finishedAt = time.Now()
	}

	update := TaskUpdate{TaskID: run.task.ID, From: from, Status: run.task.Status}
	for _, hook := range e.hooks {
		hook(update)
	}
	return true
}

// finish records the synthesizer outcome. A task cancelled meanwhile stays cancelled.
func (e *Executor) finish(run *taskRun, text string, err error) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.task.IsTerminal() {
		return
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response content")
	}
	if err != nil {
		msg := NewAgentMessage(fmt.Sprintf("Sorry, there was an error processing your %s request: %v", e.name, err))
		if appendErr := run.task.appendMessage(msg); appendErr != nil {
			e.logger.Error("append failure message", zap.Error(appendErr))
		}
		e.advanceLocked(run, TaskStateFailed, err.Error())
		return
	}

	if appendErr := run.task.appendMessage(NewAgentMessage(text)); appendErr != nil {
		e.logger.Error("append response message", zap.Error(appendErr))
		return
	}
	e.advanceLocked(run, TaskStateCompleted, "")
}

func cancelReason(ctx context.Context) string {
	if err := ctx.Err(); err != nil {
		return err.Error()
	}
	return "cancelled by request"
}
