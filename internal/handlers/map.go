package handlers

import (
	"fmt"
	"strings"

	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// handleMap turns camera/layer requests into map commands. The same
// lexical inference used on escalated replies does the heavy lifting;
// this handler adds precinct-name resolution and a readable response.
func handleMap(input string, snap Snapshot) Result {
	cmds := mapcmd.InferFromText(input)

	// "show me Okemos Precinct 3" names a precinct, not a gazetteer
	// place; resolve it to a highlight.
	if !hasKind(cmds, mapcmd.KindHighlight) {
		if p, ok := findPrecinctByName(strings.TrimSpace(input)); ok {
			cmds = append(cmds, mapcmd.Command{Kind: mapcmd.KindHighlight, PrecinctIDs: []string{p.ID}})
		}
	}

	if len(cmds) == 0 {
		res := Result{
			Response: "Tell me where to look: a city (East Lansing, Mason), a precinct ID like EL-12, or a metric like turnout.",
			Actions: []session.SuggestedAction{
				{ID: "map-swing", Label: "Show swing precincts", Action: "map:heatmap-swing"},
				{ID: "map-turnout", Label: "Show turnout", Action: "map:heatmap-turnout"},
			},
		}
		return res
	}

	res := Result{
		Response:    describeCommands(cmds),
		MapCommands: cmds,
	}
	res.SetMeta("source", "map-handler")
	return res
}

func hasKind(cmds []mapcmd.Command, kind mapcmd.Kind) bool {
	for _, c := range cmds {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

func describeCommands(cmds []mapcmd.Command) string {
	var parts []string
	for _, c := range cmds {
		switch c.Kind {
		case mapcmd.KindFlyTo:
			parts = append(parts, fmt.Sprintf("moving the map to %s", c.Place))
		case mapcmd.KindHeatmap:
			parts = append(parts, fmt.Sprintf("showing the %s heatmap", strings.ReplaceAll(c.Metric, "_", " ")))
		case mapcmd.KindChoropleth:
			parts = append(parts, fmt.Sprintf("shading precincts by %s", strings.ReplaceAll(c.Metric, "_", " ")))
		case mapcmd.KindHighlight:
			parts = append(parts, fmt.Sprintf("highlighting %s", strings.Join(c.PrecinctIDs, ", ")))
		case mapcmd.KindClear:
			parts = append(parts, "clearing the map")
		}
	}
	if len(parts) == 0 {
		return "Updating the map."
	}
	return "On it: " + strings.Join(parts, ", ") + "."
}
