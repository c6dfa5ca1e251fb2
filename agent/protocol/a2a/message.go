package a2a

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message written by the submitter.
	RoleUser Role = "user"
	// RoleAgent marks a message written by the executor.
	RoleAgent Role = "agent"
)

// IsValid checks whether the role is a known A2A role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAgent
}

// PartKind is the content type of a message part.
type PartKind string

// PartKindText is the only part kind carried by booking agents.
const PartKindText PartKind = "text"

// Part is one typed piece of message content.
type Part struct {
	Kind PartKind `json:"kind"`
	Text string   `json:"text,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// Message is a single entry in a task's message history.
// Messages are treated as immutable once they are appended to a task.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"message_id"`
	// Role indicates whether the submitter or the executor wrote the message.
	Role Role `json:"role"`
	// Parts holds the ordered message content.
	Parts []Part `json:"parts"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a generated ID and a single text part.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Parts:     []Part{TextPart(text)},
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a submitter-authored text message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, text)
}

// NewAgentMessage creates an executor-authored text message.
func NewAgentMessage(text string) Message {
	return NewMessage(RoleAgent, text)
}

// Text returns the first non-blank text part, or "" when the message has none.
func (m Message) Text() string {
	for _, p := range m.Parts {
		if p.Kind == PartKindText && strings.TrimSpace(p.Text) != "" {
			return p.Text
		}
	}
	return ""
}

// HasText reports whether the message carries a non-blank text part.
func (m Message) HasText() bool {
	return m.Text() != ""
}

// Validate checks the message envelope. Content is validated by the executor.
func (m Message) Validate() error {
	if m.ID == "" {
		return ErrMessageMissingID
	}
	if !m.Role.IsValid() {
		return ErrMessageInvalidRole
	}
	return nil
}

// clone copies the parts slice so the copy can be handed out safely.
func (m Message) clone() Message {
	c := m
	if m.Parts != nil {
		c.Parts = make([]Part, len(m.Parts))
		copy(c.Parts, m.Parts)
	}
	return c
}
