package handlers

import (
	"fmt"
	"sort"
	"strings"

	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// handleFilter resolves segmentation vocabulary against the known
// segments and highlights the matching precincts. Applying the filter
// to the dashboard's own panels is the host's job; the handler only
// reports what matched.
func handleFilter(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)

	var matched []string
	for segment := range segmentPrecincts {
		if strings.Contains(lower, strings.TrimSuffix(segment, "s")) || strings.Contains(lower, segment) {
			matched = append(matched, segment)
		}
	}
	sort.Strings(matched)

	if len(matched) == 0 {
		known := make([]string, 0, len(segmentPrecincts))
		for s := range segmentPrecincts {
			known = append(known, s)
		}
		sort.Strings(known)
		return Result{
			Response: fmt.Sprintf("I can filter by: %s. Which segment do you want?", strings.Join(known, ", ")),
			Actions: []session.SuggestedAction{
				{ID: "filter-students", Label: "Student precincts", Action: "filter:apply", Params: map[string]string{"segment": "students"}},
				{ID: "filter-seniors", Label: "Senior precincts", Action: "filter:apply", Params: map[string]string{"segment": "seniors"}},
			},
		}
	}

	idSet := make(map[string]bool)
	var ids []string
	for _, segment := range matched {
		for _, id := range segmentPrecincts[segment] {
			if !idSet[id] {
				idSet[id] = true
				ids = append(ids, id)
			}
		}
	}

	res := Result{
		Response: fmt.Sprintf("Filtering to %s: %d precinct(s) match (%s).",
			strings.Join(matched, " + "), len(ids), strings.Join(ids, ", ")),
		MapCommands: []mapcmd.Command{
			{Kind: mapcmd.KindHighlight, PrecinctIDs: ids},
		},
		Actions: []session.SuggestedAction{
			{ID: "filter-canvass", Label: "Plan canvassing here", Action: "canvassing:plan"},
			{ID: "filter-clear", Label: "Clear filters", Action: "filter:clear"},
		},
	}
	res.SetMeta("segments", matched)
	res.SetMeta("matchingIds", ids)
	return res
}
