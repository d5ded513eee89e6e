package handlers

import (
	"strings"

	"wardroom/internal/session"
)

// Workflow identifiers the orchestrator's registry knows. The handler
// only needs names; definitions live with the registry. Checked in
// order so mixed mentions resolve consistently.
var workflowMentions = []struct {
	needle string
	id     string
}{
	{"swing", "swing-detection"},
	{"persuasion", "persuasion-targeting"},
	{"canvass", "canvass-planning"},
	{"donor", "donor-outreach"},
	{"turnout", "turnout-surge"},
}

// handleWorkflow offers or starts a guided analysis workflow.
func handleWorkflow(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)

	for _, wm := range workflowMentions {
		needle, id := wm.needle, wm.id
		if strings.Contains(lower, needle) {
			return Result{
				Response: "Starting the " + strings.ReplaceAll(id, "-", " ") + " workflow.",
				Actions: []session.SuggestedAction{
					{ID: "wf-start-" + id, Label: "Start it", Action: "workflow:start", Params: map[string]string{"workflow": id}},
				},
			}
		}
	}

	return Result{
		Response: "Pick a starting point: swing detection, turnout surge, persuasion targeting, canvass planning, or donor outreach.",
		Actions: []session.SuggestedAction{
			{ID: "wf-swing", Label: "Swing detection", Action: "workflow:start", Params: map[string]string{"workflow": "swing-detection"}},
			{ID: "wf-turnout", Label: "Turnout surge", Action: "workflow:start", Params: map[string]string{"workflow": "turnout-surge"}},
			{ID: "wf-canvass", Label: "Canvass planning", Action: "workflow:start", Params: map[string]string{"workflow": "canvass-planning"}},
		},
	}
}
