package handlers

import (
	"strings"

	"wardroom/internal/session"
)

// handleInput covers conversational chrome: greetings, thanks, and
// capability questions.
func handleInput(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)

	if strings.Contains(lower, "thank") {
		return Result{Response: "Anytime. Anything else about the county?"}
	}

	if strings.Contains(lower, "help") || strings.Contains(lower, "what can you do") {
		return Result{
			Response: "I work with Ingham County precinct results for 2020, 2022, and 2024. Ask me to map things (\"show swing precincts near East Lansing\"), filter segments, rank turnout, plan canvassing, compare years, or generate reports. Slash commands work too: /highlight EL-12, /heatmap turnout, /year 2022.",
			Actions: []session.SuggestedAction{
				{ID: "help-swing", Label: "Show swing precincts", Action: "map:heatmap-swing"},
				{ID: "help-workflow", Label: "Start a guided workflow", Action: "workflow:list"},
			},
		}
	}

	return Result{
		Response: "Hi - ready to dig into the precinct data. Where do you want to start?",
		Actions:  ContextualSuggestions(snap, 3),
	}
}
