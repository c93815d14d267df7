package plan

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyUndone is returned when a reversal is requested for a
	// message whose undo has already been applied.
	ErrAlreadyUndone = errors.New("message has already been undone")

	// ErrUndoUnavailable is returned when a message has no reversible
	// effects: no step reached done, or the plan only performed
	// non-mutating actions.
	ErrUndoUnavailable = errors.New("no undoable effects recorded for message")
)

// Message is one assistant response: its text, at most one plan, at most
// one undo log, and the latch that makes the reversal single-shot.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	Plan           *Plan
	Undo           *UndoInfo
	CreatedAt      time.Time

	mu     sync.Mutex
	undone bool
}

// NewAssistantMessage creates a message owning the given plan.
func NewAssistantMessage(conversationID uuid.UUID, content string, p *Plan) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        content,
		Plan:           p,
		CreatedAt:      time.Now().UTC(),
	}
}

// Undone reports whether the message's reversal has been applied.
func (m *Message) Undone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.undone
}

// RestoreUndone marks a message loaded from storage as already undone.
func (m *Message) RestoreUndone() {
	m.mu.Lock()
	m.undone = true
	m.mu.Unlock()
}

// UndoOnce runs apply under the message's undo latch. The latch flips only
// after apply reports success, so a failed reversal may be retried, but a
// successful one can never be issued twice no matter how many times the
// user triggers the control.
func (m *Message) UndoOnce(apply func(UndoInfo) (string, error)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.undone {
		return "", ErrAlreadyUndone
	}
	if m.Undo == nil || m.Undo.Empty() {
		return "", ErrUndoUnavailable
	}

	result, err := apply(*m.Undo)
	if err != nil {
		return result, err
	}
	m.undone = true
	return result, nil
}
