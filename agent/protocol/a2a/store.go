package a2a

import (
	"context"
	"sync"
	"time"
)

// taskRun is the executor-side record of one task. mu serializes every
// transition and message append for that task.
type taskRun struct {
	mu         sync.Mutex
	task       *Task
	cancel     context.CancelFunc
	startedAt  time.Time
	finishedAt time.Time
}

// snapshot returns a copy of the task that callers may keep.
func (r *taskRun) snapshot() *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.task.Clone()
}

// TaskStore tracks in-flight and recently finished tasks of one executor.
// It lives in memory only; nothing survives a restart.
type TaskStore struct {
	runs map[string]*taskRun
	mu   sync.RWMutex
}

// TaskStoreStats summarizes the store content.
type TaskStoreStats struct {
	Total   int               `json:"total"`
	ByState map[TaskState]int `json:"by_state"`
}

// NewTaskStore creates an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		runs: make(map[string]*taskRun),
	}
}

// add registers a run. A task ID may be registered only once.
func (s *TaskStore) add(run *taskRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.task.ID]; ok {
		return ErrTaskExists
	}
	s.runs[run.task.ID] = run
	return nil
}

func (s *TaskStore) get(taskID string) (*taskRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[taskID]
	return run, ok
}

// Get returns a snapshot of the task.
func (s *TaskStore) Get(taskID string) (*Task, error) {
	run, ok := s.get(taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return run.snapshot(), nil
}

// Len returns the number of tracked tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Stats counts tracked tasks by state.
func (s *TaskStore) Stats() TaskStoreStats {
	s.mu.RLock()
	runs := make([]*taskRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	stats := TaskStoreStats{ByState: make(map[TaskState]int)}
	for _, run := range runs {
		run.mu.Lock()
		stats.ByState[run.task.Status.State]++
		run.mu.Unlock()
		stats.Total++
	}
	return stats
}

// Cleanup removes terminal tasks that finished more than maxAge ago.
func (s *TaskStore) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, run := range s.runs {
		run.mu.Lock()
		expired := run.task.IsTerminal() && run.finishedAt.Before(cutoff)
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
			count++
		}
	}
	return count
}

// StartCleanupLoop periodically drops expired tasks until ctx is done.
func (s *TaskStore) StartCleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(maxAge)
			}
		}
	}()
}
