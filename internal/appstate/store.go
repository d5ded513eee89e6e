package appstate

import (
	"fmt"
	"strings"
	"sync"

	"wardroom/internal/logging"
)

// Store is the boundary to the cross-tool application state.
type Store interface {
	// Snapshot returns the current read-only context.
	Snapshot() Snapshot

	// ContextSummary renders an opaque one-line summary for the
	// escalation channel.
	ContextSummary() string

	// Dispatch applies an event and notifies subscribers.
	Dispatch(Event)

	// Subscribe registers a synchronous listener. The returned
	// function unsubscribes it.
	Subscribe(func(Event)) (unsubscribe func())
}

// Memory is the in-process Store implementation.
type Memory struct {
	mu          sync.RWMutex
	state       Snapshot
	subscribers map[int]func(Event)
	nextID      int
}

// NewMemory returns an empty store with the given default year.
func NewMemory(defaultYear int) *Memory {
	return &Memory{
		state: Snapshot{
			Temporal: Temporal{Year: defaultYear},
		},
		subscribers: make(map[int]func(Event)),
	}
}

// Snapshot returns a copy of the current state.
func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.state)
}

// Dispatch applies the event to the state, updates exploration
// counters, and notifies subscribers outside the lock.
func (m *Memory) Dispatch(ev Event) {
	m.mu.Lock()
	switch ev.Type {
	case EventFeatureSelected:
		if ev.Feature != nil {
			m.state.Selection = Selection{
				Type: ev.Feature.Type,
				IDs:  []string{ev.Feature.ID},
				Name: ev.Feature.Name,
			}
			m.state.Exploration.PrecinctsViewed++
		}

	case EventFeatureDeselected:
		m.state.Selection = Selection{}

	case EventFiltersChanged:
		if ev.Filters != nil {
			m.state.Filters = *ev.Filters
			m.state.Exploration.FiltersApplied++
		}

	case EventViewportChanged:
		if ev.Viewport != nil {
			m.state.Viewport = *ev.Viewport
		}

	case EventToolVisited:
		m.state.Exploration.ToolsVisited++

	case EventIQAction:
		// No state change; subscribers act on it.
	}

	subscribers := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.mu.Unlock()

	logging.SessionDebug("appstate dispatch %s", ev.Type)
	for _, fn := range subscribers {
		fn(ev)
	}
}

// Subscribe registers a listener; the returned func removes it.
func (m *Memory) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// SetTemporal flips the time-travel mode directly (the temporal
// handler drives this through the store rather than an event because
// the assistant owns the temporal controls).
func (m *Memory) SetTemporal(t Temporal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Temporal = t
}

// ContextSummary renders the state as the short opaque line shipped
// with escalations.
func (m *Memory) ContextSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var parts []string
	if m.state.Viewport.Metric != "" {
		parts = append(parts, fmt.Sprintf("viewing %s", m.state.Viewport.Metric))
	}
	if m.state.Temporal.Year != 0 {
		parts = append(parts, fmt.Sprintf("year %d", m.state.Temporal.Year))
	}
	if m.state.Selection.Active() {
		parts = append(parts, fmt.Sprintf("selected %s (%s)",
			strings.Join(m.state.Selection.IDs, ","), m.state.Selection.Name))
	}
	if len(m.state.Filters.Segments) > 0 {
		parts = append(parts, fmt.Sprintf("filters: %s", strings.Join(m.state.Filters.Segments, ",")))
	}
	if depth := m.state.Exploration.DepthScore(); depth > 0 {
		parts = append(parts, fmt.Sprintf("exploration depth %d", depth))
	}
	if len(parts) == 0 {
		return "fresh session, nothing explored yet"
	}
	return strings.Join(parts, "; ")
}

func copySnapshot(s Snapshot) Snapshot {
	out := s
	out.Viewport.VisibleIDs = append([]string(nil), s.Viewport.VisibleIDs...)
	out.Viewport.HighlightedIDs = append([]string(nil), s.Viewport.HighlightedIDs...)
	out.Selection.IDs = append([]string(nil), s.Selection.IDs...)
	out.Filters.Segments = append([]string(nil), s.Filters.Segments...)
	out.Filters.MatchingIDs = append([]string(nil), s.Filters.MatchingIDs...)
	return out
}
