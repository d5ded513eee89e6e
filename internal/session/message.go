// Package session owns the conversation: the message list, the
// welcome/active/loading state machine, and the current workflow
// selection. Everything here is presentation-agnostic; rendering is
// the dashboard's problem.
package session

import (
	"time"

	"github.com/google/uuid"

	"wardroom/internal/mapcmd"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SuggestedAction is a follow-up the user can click. Action strings of
// the form "category:operation" route through the action dispatcher;
// anything else is resubmitted as a fresh user turn. Params carry
// operation-specific values for the target handler.
type SuggestedAction struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Action string            `json:"action"`
	Icon   string            `json:"icon,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// NewSuggestedAction assigns a stable identifier to a label/action pair.
func NewSuggestedAction(label, action string) SuggestedAction {
	return SuggestedAction{ID: uuid.NewString(), Label: label, Action: action}
}

// FeatureCard is the structured payload shown when a precinct is
// selected on the map. A message carries either a card or free text,
// never both.
type FeatureCard struct {
	PrecinctID       string  `json:"precinctId"`
	Name             string  `json:"name"`
	Jurisdiction     string  `json:"jurisdiction"`
	Year             int     `json:"year"`
	RegisteredVoters int     `json:"registeredVoters"`
	Turnout          float64 `json:"turnout"`
	PartisanLean     float64 `json:"partisanLean"`
	SwingScore       float64 `json:"swingScore"`
}

// Chart is an optional graph-visualization payload attached to a
// message (turnout trends, margin history).
type Chart struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Meta is the additive metadata bag on a message. It never replaces
// the primary renderable.
type Meta struct {
	Workflow    string           `json:"workflow,omitempty"`
	MapCommands []mapcmd.Command `json:"mapCommands,omitempty"`
	Chart       *Chart           `json:"chart,omitempty"`
	Proactive   bool             `json:"proactive,omitempty"`
	Escalated   bool             `json:"escalated,omitempty"`
	Error       bool             `json:"error,omitempty"`
}

// Message is one entry in the conversation. Messages are immutable
// once appended; the list itself is append-mostly (reset replaces it,
// feature-card removal filters it).
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Actions   []SuggestedAction `json:"actions,omitempty"`
	Citations []string          `json:"citations,omitempty"`
	Card      *FeatureCard      `json:"card,omitempty"`
	Meta      Meta              `json:"meta,omitempty"`
}

// IsFeatureCard reports whether the card payload is the primary
// renderable.
func (m Message) IsFeatureCard() bool {
	return m.Card != nil
}

// NewUserMessage builds a user turn.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage builds an assistant reply.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewFeatureCardMessage builds the assistant-side card message for a
// selected precinct. Content stays empty: the card is the renderable.
func NewFeatureCardMessage(card FeatureCard) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Card:      &card,
	}
}
