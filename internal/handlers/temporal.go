package handlers

import (
	"fmt"
	"strconv"

	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// handleTemporal drives the time-travel controls: switching the
// displayed year or comparing two elections.
func handleTemporal(input string, snap Snapshot) Result {
	years := yearPattern.FindAllString(input, -1)

	if len(years) >= 2 {
		from, _ := strconv.Atoi(years[0])
		to, _ := strconv.Atoi(years[1])
		droppers := turnoutDrop(from, to, 3)

		res := Result{
			Response: fmt.Sprintf("Comparing %d against %d. Biggest turnout movement: %s, %s, %s.",
				from, to, droppers[0].ID, droppers[1].ID, droppers[2].ID),
			MapCommands: []mapcmd.Command{
				{Kind: mapcmd.KindComparison, Years: []int{from, to}},
			},
			Actions: []session.SuggestedAction{
				{ID: "temporal-surge", Label: "Target the falloff precincts", Action: "workflow:start", Params: map[string]string{"workflow": "turnout-surge"}},
			},
		}
		res.SetMeta("compare", []int{from, to})
		return res
	}

	if len(years) == 1 {
		year, _ := strconv.Atoi(years[0])
		res := Result{
			Response: fmt.Sprintf("Switching the map to the %d general election.", year),
			MapCommands: []mapcmd.Command{
				{Kind: mapcmd.KindTemporal, Year: year},
			},
		}
		res.SetMeta("temporalYear", year)
		return res
	}

	// "over time" and friends: show the trend without a year change.
	res := trendOverview(snap)
	res.Actions = append(res.Actions, session.SuggestedAction{
		ID: "temporal-2022", Label: "Jump to 2022", Action: "temporal:year", Params: map[string]string{"year": "2022"},
	})
	return res
}
