package handlers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"wardroom/internal/mapcmd"
)

var yearPattern = regexp.MustCompile(`\b(2020|2022|2024)\b`)

// handleQuery answers direct data lookups from the precinct dataset.
func handleQuery(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)
	year := queryYear(input, snap)

	// Specific precinct lookup first.
	if id := precinctFromContext(input, snap); id != "" {
		if p, ok := findPrecinct(id); ok {
			return Result{
				Response: fmt.Sprintf("%s (%s): %d registered voters, %.0f%% turnout in %d.",
					p.Name, p.ID, p.RegisteredVoters, p.Turnout[year]*100, year),
				MapCommands: []mapcmd.Command{
					{Kind: mapcmd.KindHighlight, PrecinctIDs: []string{p.ID}},
				},
			}
		}
	}

	switch {
	case strings.Contains(lower, "highest") || strings.Contains(lower, "best"):
		top := topByTurnout(year, 3)
		return Result{
			Response: fmt.Sprintf("Highest %d turnout: %s (%.0f%%), %s (%.0f%%), %s (%.0f%%).",
				year,
				top[0].ID, top[0].Turnout[year]*100,
				top[1].ID, top[1].Turnout[year]*100,
				top[2].ID, top[2].Turnout[year]*100),
			MapCommands: []mapcmd.Command{
				{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricTurnout},
				{Kind: mapcmd.KindHighlight, PrecinctIDs: precinctIDs(top)},
			},
		}

	case strings.Contains(lower, "lowest") || strings.Contains(lower, "worst"):
		all := topByTurnout(year, len(precinctData))
		bottom := all[len(all)-3:]
		return Result{
			Response: fmt.Sprintf("Lowest %d turnout: %s (%.0f%%), %s (%.0f%%), %s (%.0f%%).",
				year,
				bottom[2].ID, bottom[2].Turnout[year]*100,
				bottom[1].ID, bottom[1].Turnout[year]*100,
				bottom[0].ID, bottom[0].Turnout[year]*100),
			MapCommands: []mapcmd.Command{
				{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricTurnout},
				{Kind: mapcmd.KindHighlight, PrecinctIDs: precinctIDs(bottom)},
			},
		}

	case strings.Contains(lower, "registered") || strings.Contains(lower, "how many voters"):
		total := 0
		for _, p := range precinctData {
			total += p.RegisteredVoters
		}
		return Result{
			Response: fmt.Sprintf("%d registered voters across the %d tracked precincts.", total, len(precinctData)),
		}

	case strings.Contains(lower, "turnout"):
		var sum float64
		for _, p := range precinctData {
			sum += p.Turnout[year]
		}
		avg := sum / float64(len(precinctData))
		return Result{
			Response: fmt.Sprintf("Average %d turnout across tracked precincts: %.0f%%.", year, avg*100),
			MapCommands: []mapcmd.Command{
				{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricTurnout},
			},
		}
	}

	return unknownResult(snap)
}

// queryYear picks the year named in the input, else the temporal
// selection, else the latest general.
func queryYear(input string, snap Snapshot) int {
	if m := yearPattern.FindString(input); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	if snap.App.Temporal.Year != 0 {
		return snap.App.Temporal.Year
	}
	return 2024
}
