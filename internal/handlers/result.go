// Package handlers hosts the local deterministic domain handlers and
// the dispatch that routes a generic user turn to one of them.
//
// Handlers are pure: they take the input text and a read-only context
// snapshot and return a Result describing every effect they want
// (response text, suggested actions, map commands, navigation, export).
// The orchestrator interprets the effects; handlers never touch the
// session, the map surface, or the network.
package handlers

import (
	"wardroom/internal/appstate"
	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// Turn is one conversation turn as handlers see it: role plus content
// truncated to the configured character budget.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Snapshot is the read-only context a handler dispatch receives.
type Snapshot struct {
	App appstate.Snapshot

	// Turns holds the most recent conversation turns, oldest first.
	Turns []Turn
}

// Navigation asks the host to open another dashboard tool.
type Navigation struct {
	Target string            `json:"target"`
	Params map[string]string `json:"params,omitempty"`
}

// ExportRequest asks the host to build and download a file from the
// named dataset.
type ExportRequest struct {
	Dataset string `json:"dataset"`
	Format  string `json:"format"`
}

// Result is the structured effect list a handler returns.
type Result struct {
	Response    string
	Actions     []session.SuggestedAction
	MapCommands []mapcmd.Command
	Chart       *session.Chart
	Metadata    map[string]interface{}
	Navigation  *Navigation
	Export      *ExportRequest

	// Unknown marks that no sub-intent matched; the escalation
	// decision treats it as the primary escalate signal.
	Unknown bool

	// Failed marks a handler fault converted at the dispatch boundary.
	Failed bool
}

// Trustworthy reports whether local dispatch produced a real answer.
func (r Result) Trustworthy() bool {
	return !r.Unknown && !r.Failed
}

// SetMeta sets a metadata key, allocating the bag lazily.
func (r *Result) SetMeta(key string, value interface{}) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
}
