package mapcmd

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSlash parses a slash command into map commands.
//
// Returns ok=false when the input is not a recognized slash verb; the
// caller should treat it as ordinary conversation. A recognized verb
// with bad arguments returns ok=true plus a usage error.
func ParseSlash(input string) (cmds []Command, ok bool, err error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return nil, false, nil
	}

	fields := strings.Fields(trimmed)
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "/highlight":
		if len(args) == 0 {
			return nil, true, fmt.Errorf("usage: /highlight <precinct-id> [more ids]")
		}
		ids := make([]string, 0, len(args))
		seen := make(map[string]bool, len(args))
		for _, a := range args {
			id := strings.ToUpper(a)
			if !precinctIDPattern.MatchString(id) {
				return nil, true, fmt.Errorf("%q does not look like a precinct ID (e.g. EL-12)", a)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		return []Command{{Kind: KindHighlight, PrecinctIDs: ids}}, true, nil

	case "/flyto":
		if len(args) == 0 {
			return nil, true, fmt.Errorf("usage: /flyto <place> (one of: %s)", strings.Join(PlaceNames(), ", "))
		}
		cmd, found := LookupPlace(strings.Join(args, " "))
		if !found {
			return nil, true, fmt.Errorf("unknown place %q (one of: %s)", strings.Join(args, " "), strings.Join(PlaceNames(), ", "))
		}
		return []Command{cmd}, true, nil

	case "/heatmap", "/choropleth":
		kind := KindHeatmap
		if verb == "/choropleth" {
			kind = KindChoropleth
		}
		if len(args) != 1 {
			return nil, true, fmt.Errorf("usage: %s <metric>", verb)
		}
		metric := strings.ToLower(args[0])
		if !KnownMetric(metric) {
			return nil, true, fmt.Errorf("unknown metric %q (try turnout, swing_potential, persuasion, partisan_lean, margin)", args[0])
		}
		return []Command{{Kind: kind, Metric: metric}}, true, nil

	case "/year":
		if len(args) != 1 {
			return nil, true, fmt.Errorf("usage: /year <2020|2022|2024>")
		}
		year, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return nil, true, fmt.Errorf("usage: /year <2020|2022|2024>")
		}
		return []Command{{Kind: KindTemporal, Year: year}}, true, nil

	case "/compare":
		if len(args) != 2 {
			return nil, true, fmt.Errorf("usage: /compare <year> <year>")
		}
		years := make([]int, 0, 2)
		for _, a := range args {
			year, convErr := strconv.Atoi(a)
			if convErr != nil {
				return nil, true, fmt.Errorf("usage: /compare <year> <year>")
			}
			years = append(years, year)
		}
		return []Command{{Kind: KindComparison, Years: years}}, true, nil

	case "/clear":
		return []Command{{Kind: KindClear}}, true, nil
	}

	// Unrecognized verbs fall through to normal conversation.
	return nil, false, nil
}
