package handlers

import (
	"fmt"

	"wardroom/internal/session"
)

// ContextualSuggestions derives the most relevant next steps from the
// snapshot. Used for unknown/degraded turns and as the fallback action
// set on escalated replies.
func ContextualSuggestions(snap Snapshot, max int) []session.SuggestedAction {
	var out []session.SuggestedAction

	if snap.App.Selection.Active() {
		out = append(out, session.SuggestedAction{
			ID:     "ctx-explain",
			Label:  fmt.Sprintf("Explain %s's score", snap.App.Selection.Name),
			Action: "analyze:explain-score",
		})
	}
	if len(snap.App.Filters.Segments) > 0 {
		out = append(out, session.SuggestedAction{
			ID:     "ctx-canvass",
			Label:  "Plan canvassing for this segment",
			Action: "canvassing:plan",
		})
	}
	if snap.App.Viewport.Metric == "" {
		out = append(out, session.SuggestedAction{
			ID:     "ctx-swing",
			Label:  "Show swing precincts",
			Action: "map:heatmap-swing",
		})
	}

	out = append(out,
		session.SuggestedAction{
			ID:     "ctx-turnout",
			Label:  "Compare turnout 2020 vs 2024",
			Action: "temporal:compare",
			Params: map[string]string{"from": "2020", "to": "2024"},
		},
		session.SuggestedAction{
			ID:     "ctx-report",
			Label:  "Generate a briefing report",
			Action: "report:generate",
		},
	)

	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// unknownResult marks the turn for escalation and still gives the
// user something to click.
func unknownResult(snap Snapshot) Result {
	return Result{
		Unknown:  true,
		Response: "I'm not sure how to answer that locally.",
		Actions:  ContextualSuggestions(snap, 3),
	}
}

// failureResult is the dispatch-boundary conversion of a handler
// fault: short, user-safe, with one or two recovery actions.
func failureResult(snap Snapshot) Result {
	actions := []session.SuggestedAction{
		{ID: "recover-rephrase", Label: "Try rephrasing", Action: "input:rephrase"},
	}
	if extra := ContextualSuggestions(snap, 1); len(extra) > 0 {
		actions = append(actions, extra[0])
	}
	return Result{
		Failed:   true,
		Response: "Something went wrong answering that. Try rephrasing, or pick a suggestion below.",
		Actions:  actions,
	}
}
