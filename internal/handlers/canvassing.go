package handlers

import (
	"fmt"
	"strings"

	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// handleCanvassing proposes turf: swing-heavy precincts ordered into a
// walkable sequence with door counts estimated from registration.
func handleCanvassing(input string, snap Snapshot) Result {
	targets := canvassTargets(snap)

	var lines []string
	totalDoors := 0
	for i, p := range targets {
		doors := p.RegisteredVoters / 3 // rough household collapse
		totalDoors += doors
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - ~%d doors", i+1, p.Name, p.ID, doors))
	}

	res := Result{
		Response: fmt.Sprintf("Suggested canvass turf (~%d doors total):\n%s\nWant the walk list as a CSV?",
			totalDoors, strings.Join(lines, "\n")),
		MapCommands: []mapcmd.Command{
			{Kind: mapcmd.KindHighlight, PrecinctIDs: precinctIDs(targets)},
			{Kind: mapcmd.KindMarkers, Label: "canvass turf", Locations: nil},
		},
		Actions: []session.SuggestedAction{
			{ID: "canvass-export", Label: "Export walk list", Action: "output:export-csv", Params: map[string]string{"dataset": "walk-list"}},
			{ID: "canvass-open", Label: "Open the canvassing tool", Action: "navigate:canvassing"},
		},
	}
	res.SetMeta("doors", totalDoors)
	res.SetMeta("targets", precinctIDs(targets))
	return res
}

// canvassTargets prefers the filtered segment when one is active,
// otherwise the top swing precincts.
func canvassTargets(snap Snapshot) []precinctStats {
	if len(snap.App.Filters.MatchingIDs) > 0 {
		var out []precinctStats
		for _, id := range snap.App.Filters.MatchingIDs {
			if p, ok := findPrecinct(id); ok {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return topBySwing(3)
}
