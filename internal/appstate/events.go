// Package appstate models the dashboard's cross-tool application
// state at its interface boundary: the context snapshot the assistant
// reads, the events other tools dispatch into it, and the exploration
// counters the proactive engine gates on.
//
// The assistant never mutates this state directly; it reads snapshots
// and dispatches events like every other tool.
package appstate

import "wardroom/internal/mapcmd"

// EventType names a cross-tool event.
type EventType string

const (
	EventFeatureSelected   EventType = "FEATURE_SELECTED"
	EventFeatureDeselected EventType = "FEATURE_DESELECTED"
	EventFiltersChanged    EventType = "FILTERS_CHANGED"
	EventViewportChanged   EventType = "VIEWPORT_CHANGED"
	EventToolVisited       EventType = "TOOL_VISITED"
	EventIQAction          EventType = "IQ_ACTION"
)

// Event is a discriminated cross-tool notification. Only the fields
// relevant to Type are populated.
type Event struct {
	Type EventType `json:"type"`

	// FEATURE_SELECTED
	Feature *Feature `json:"feature,omitempty"`

	// FILTERS_CHANGED
	Filters *Filters `json:"filters,omitempty"`

	// VIEWPORT_CHANGED
	Viewport *Viewport `json:"viewport,omitempty"`

	// TOOL_VISITED
	Tool string `json:"tool,omitempty"`

	// IQ_ACTION
	Action string `json:"action,omitempty"`
}

// Feature is a selected map entity with its analytics payload.
type Feature struct {
	Type             string  `json:"type"`
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Jurisdiction     string  `json:"jurisdiction,omitempty"`
	Year             int     `json:"year,omitempty"`
	RegisteredVoters int     `json:"registeredVoters,omitempty"`
	Turnout          float64 `json:"turnout,omitempty"`
	PartisanLean     float64 `json:"partisanLean,omitempty"`
	SwingScore       float64 `json:"swingScore,omitempty"`
}

// Viewport is the current camera and layer state of the map surface.
type Viewport struct {
	Center         mapcmd.LngLat `json:"center"`
	Zoom           float64       `json:"zoom"`
	Layer          string        `json:"layer,omitempty"`
	Metric         string        `json:"metric,omitempty"`
	VisibleIDs     []string      `json:"visibleIds,omitempty"`
	HighlightedIDs []string      `json:"highlightedIds,omitempty"`
}

// Selection is the current map selection (type, ids, display name).
type Selection struct {
	Type string   `json:"type,omitempty"`
	IDs  []string `json:"ids,omitempty"`
	Name string   `json:"name,omitempty"`
}

// Active reports whether anything is selected.
func (s Selection) Active() bool {
	return len(s.IDs) > 0
}

// Filters is the active segmentation filter set and the precincts it
// matches.
type Filters struct {
	Segments    []string `json:"segments,omitempty"`
	MatchingIDs []string `json:"matchingIds,omitempty"`
}

// Temporal is the time-travel mode flag and selected year.
type Temporal struct {
	Enabled bool `json:"enabled"`
	Year    int  `json:"year"`
}

// Exploration tracks how deeply the user has explored this session.
type Exploration struct {
	PrecinctsViewed int `json:"precinctsViewed"`
	FiltersApplied  int `json:"filtersApplied"`
	ToolsVisited    int `json:"toolsVisited"`
}

// DepthScore collapses the counters into the single gate metric the
// proactive engine compares against its threshold. Filter use weighs
// double: narrowing a segment signals analytical intent more than
// clicking around does.
func (e Exploration) DepthScore() int {
	return e.PrecinctsViewed + 2*e.FiltersApplied + e.ToolsVisited
}

// Snapshot is the read-only context handed to local handlers and the
// escalation channel.
type Snapshot struct {
	Viewport    Viewport    `json:"viewport"`
	Selection   Selection   `json:"selection"`
	Filters     Filters     `json:"filters"`
	Temporal    Temporal    `json:"temporal"`
	Exploration Exploration `json:"exploration"`
}
