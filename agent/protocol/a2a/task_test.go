package a2a

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to TaskState
		want     bool
	}{
		{TaskStateSubmitted, TaskStateWorking, true},
		{TaskStateSubmitted, TaskStateFailed, true},
		{TaskStateSubmitted, TaskStateCancelled, true},
		{TaskStateSubmitted, TaskStateCompleted, false},
		{TaskStateWorking, TaskStateCompleted, true},
		{TaskStateWorking, TaskStateFailed, true},
		{TaskStateWorking, TaskStateCancelled, true},
		{TaskStateWorking, TaskStateSubmitted, false},
		{TaskStateCompleted, TaskStateWorking, false},
		{TaskStateFailed, TaskStateCompleted, false},
		{TaskStateCancelled, TaskStateCompleted, false},
		{TaskStateCancelled, TaskStateCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTaskState_IsTerminal(t *testing.T) {
	assert.False(t, TaskStateSubmitted.IsTerminal())
	assert.False(t, TaskStateWorking.IsTerminal())
	assert.True(t, TaskStateCompleted.IsTerminal())
	assert.True(t, TaskStateFailed.IsTerminal())
	assert.True(t, TaskStateCancelled.IsTerminal())
	assert.False(t, TaskState("unknown").IsValid())
}

func TestNewTask(t *testing.T) {
	task := NewTask(NewUserMessage("Book a flight")).WithContextID("booking-1")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "booking-1", task.ContextID)
	assert.Equal(t, TaskStateSubmitted, task.Status.State)
	assert.Equal(t, []TaskState{TaskStateSubmitted}, task.History)
	assert.Equal(t, "Book a flight", task.Request().Text())
	assert.Nil(t, task.LastAgentMessage())
	require.NoError(t, task.Validate())
}

func TestTask_Validate(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		task := NewTask(NewUserMessage("x"))
		task.ID = ""
		assert.ErrorIs(t, task.Validate(), ErrTaskMissingID)
	})

	t.Run("no messages", func(t *testing.T) {
		task := NewTask(NewUserMessage("x"))
		task.Messages = nil
		assert.ErrorIs(t, task.Validate(), ErrTaskMissingMessages)
	})

	t.Run("unknown state", func(t *testing.T) {
		task := NewTask(NewUserMessage("x"))
		task.Status.State = "paused"
		assert.ErrorIs(t, task.Validate(), ErrTaskInvalidState)
	})

	t.Run("bad role", func(t *testing.T) {
		task := NewTask(NewMessage("robot", "x"))
		assert.ErrorIs(t, task.Validate(), ErrMessageInvalidRole)
	})

	t.Run("agent authored request", func(t *testing.T) {
		task := NewTask(NewAgentMessage("x"))
		assert.ErrorIs(t, task.Validate(), ErrInvalidMessage)
	})
}

func TestTask_Transition(t *testing.T) {
	t.Run("completed requires agent message", func(t *testing.T) {
		task := NewTask(NewUserMessage("x"))
		require.NoError(t, task.transition(TaskStateWorking, ""))

		err := task.transition(TaskStateCompleted, "")
		var invalid ErrInvalidTransition
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, TaskStateWorking, task.Status.State)

		require.NoError(t, task.appendMessage(NewAgentMessage("done")))
		require.NoError(t, task.transition(TaskStateCompleted, ""))
		assert.Equal(t, "done", task.ResponseText())
	})

	t.Run("terminal task is immutable", func(t *testing.T) {
		task := NewTask(NewUserMessage("x"))
		require.NoError(t, task.transition(TaskStateCancelled, "stop"))

		assert.Error(t, task.transition(TaskStateWorking, ""))
		assert.ErrorIs(t, task.appendMessage(NewAgentMessage("late")), ErrTaskTerminal)
		assert.Len(t, task.Messages, 1)
		assert.Equal(t, "stop", task.Status.Reason)
		assert.Equal(t, []TaskState{TaskStateSubmitted, TaskStateCancelled}, task.History)
	})
}

func TestTask_CloneIsDeep(t *testing.T) {
	task := NewTask(NewUserMessage("x")).SetMetadata("domain", "flight")
	clone := task.Clone()

	clone.Messages[0].Parts[0].Text = "changed"
	clone.Metadata["domain"] = "hotel"
	clone.History[0] = TaskStateFailed

	assert.Equal(t, "x", task.Request().Text())
	assert.Equal(t, "flight", task.Metadata["domain"])
	assert.Equal(t, TaskStateSubmitted, task.History[0])
	assert.Nil(t, (*Task)(nil).Clone())
}

func TestTask_JSON(t *testing.T) {
	task := NewTask(NewUserMessage("Book a hotel"))
	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"submitted"`)
	assert.Contains(t, string(data), `"role":"user"`)
	assert.Contains(t, string(data), `"message_id"`)

	var decoded Task
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, "Book a hotel", decoded.Request().Text())
}

// Any sequence of transition attempts keeps the history on legal edges
// and never moves a task out of a terminal state.
func TestProperty_TaskLifecycleMonotonic(t *testing.T) {
	states := []TaskState{
		TaskStateSubmitted, TaskStateWorking, TaskStateCompleted,
		TaskStateFailed, TaskStateCancelled,
	}

	rapid.Check(t, func(rt *rapid.T) {
		task := NewTask(NewUserMessage("request"))
		steps := rapid.IntRange(1, 12).Draw(rt, "steps")

		for i := 0; i < steps; i++ {
			to := rapid.SampledFrom(states).Draw(rt, "to")
			if rapid.Bool().Draw(rt, "reply") && !task.IsTerminal() {
				_ = task.appendMessage(NewAgentMessage("reply"))
			}

			before := task.Status.State
			err := task.transition(to, "")

			if before.IsTerminal() {
				if err == nil {
					rt.Fatalf("transition out of terminal state %s to %s", before, to)
				}
				continue
			}
			if err == nil && !CanTransition(before, to) {
				rt.Fatalf("illegal transition %s -> %s accepted", before, to)
			}
		}

		if task.History[0] != TaskStateSubmitted {
			rt.Fatalf("history must start at submitted, got %v", task.History)
		}
		for i := 1; i < len(task.History); i++ {
			if !CanTransition(task.History[i-1], task.History[i]) {
				rt.Fatalf("history has illegal edge %s -> %s", task.History[i-1], task.History[i])
			}
		}
		if task.History[len(task.History)-1] != task.Status.State {
			rt.Fatalf("history tail %s != status %s", task.History[len(task.History)-1], task.Status.State)
		}
		if task.Status.State == TaskStateCompleted && task.LastAgentMessage() == nil {
			rt.Fatalf("completed task without agent message")
		}
	})
}
