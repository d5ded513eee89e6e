package session

import (
	"sync"

	"wardroom/internal/logging"
)

// WorkflowSelection records the workflow a user (or tour) picked.
// Read-only after creation; cleared on reset.
type WorkflowSelection struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	InitialPrompt string `json:"initialPrompt,omitempty"`
}

// Session aggregates the state machine, the message list, and the
// workflow selection.
type Session struct {
	States   *Machine
	Messages *MessageLog

	mu       sync.Mutex
	workflow *WorkflowSelection
}

// New returns a fresh session in the welcome state.
func New() *Session {
	return &Session{
		States:   NewMachine(),
		Messages: NewMessageLog(),
	}
}

// Workflow returns the current selection, or nil.
func (s *Session) Workflow() *WorkflowSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflow
}

// SetWorkflow records a selection.
func (s *Session) SetWorkflow(w *WorkflowSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflow = w
}

// Reset clears messages and the workflow selection and returns to
// welcome. The caller is responsible for emitting the accompanying
// clear map command (exactly once).
func (s *Session) Reset() {
	s.Messages.Clear()
	s.SetWorkflow(nil)
	s.States.Set(StateWelcome)
	logging.Session("session reset")
}
