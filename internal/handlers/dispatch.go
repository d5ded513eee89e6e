package handlers

import (
	"wardroom/internal/logging"
)

// Orchestrator routes generic turns to the domain handlers. It holds
// no session state; construct one per assistant.
type Orchestrator struct{}

// NewOrchestrator returns a dispatch façade over the domain handlers.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// Dispatch routes the input to its matched domain handler and returns
// the handler's effect list. A handler panic is converted into a
// generic failure Result at this boundary; it never escapes. No
// matching sub-intent yields a Result marked Unknown, which the
// escalation decision consumes.
func (o *Orchestrator) Dispatch(input string, snap Snapshot) Result {
	return o.dispatch(input, snap, route)
}

// dispatch is the recovery boundary. The route parameter exists so
// tests can exercise the boundary with a faulting handler.
func (o *Orchestrator) dispatch(input string, snap Snapshot, route func(SubIntent, string, Snapshot) Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryRouting).Error("handler panic: %v", r)
			res = failureResult(snap)
		}
	}()

	sub := matchSubIntent(input)
	logging.Routing("dispatch sub-intent=%s input_len=%d", sub, len(input))

	return route(sub, input, snap)
}

// route is the enum dispatch over the domain handlers; every
// SubIntent value is cased.
func route(sub SubIntent, input string, snap Snapshot) Result {
	switch sub {
	case SubMap:
		return handleMap(input, snap)
	case SubFilter:
		return handleFilter(input, snap)
	case SubAnalysis:
		return handleAnalysis(input, snap)
	case SubCanvassing:
		return handleCanvassing(input, snap)
	case SubExport:
		return handleExport(input, snap)
	case SubNavigation:
		return handleNavigation(input, snap)
	case SubReport:
		return handleReport(input, snap)
	case SubQuery:
		return handleQuery(input, snap)
	case SubTemporal:
		return handleTemporal(input, snap)
	case SubWorkflow:
		return handleWorkflow(input, snap)
	case SubInput:
		return handleInput(input, snap)
	case SubUnknown:
		return unknownResult(snap)
	}
	return unknownResult(snap)
}
