package handlers

import (
	"sort"
	"strings"

	"wardroom/internal/appstate"
)

// precinctStats is the per-precinct slice of the Ingham County
// general-election dataset (2020/2022/2024) the local handlers answer
// from. Values are aggregates shipped with the dashboard build.
type precinctStats struct {
	ID               string
	Name             string
	Jurisdiction     string
	RegisteredVoters int
	Turnout          map[int]float64
	PartisanLean     float64 // positive leans Democratic
	SwingScore       float64 // 0..1, cross-election volatility
}

var precinctData = []precinctStats{
	{"EL-1", "East Lansing Precinct 1", "City of East Lansing", 2841,
		map[int]float64{2020: 0.74, 2022: 0.46, 2024: 0.71}, 0.42, 0.31},
	{"EL-8", "East Lansing Precinct 8", "City of East Lansing", 2303,
		map[int]float64{2020: 0.69, 2022: 0.39, 2024: 0.66}, 0.47, 0.38},
	{"EL-12", "East Lansing Precinct 12", "City of East Lansing", 1987,
		map[int]float64{2020: 0.61, 2022: 0.31, 2024: 0.58}, 0.51, 0.44},
	{"LAN-4", "Lansing Ward 1 Precinct 4", "City of Lansing", 2210,
		map[int]float64{2020: 0.63, 2022: 0.48, 2024: 0.60}, 0.33, 0.18},
	{"LAN-21", "Lansing Ward 3 Precinct 21", "City of Lansing", 1894,
		map[int]float64{2020: 0.58, 2022: 0.44, 2024: 0.55}, 0.29, 0.22},
	{"LAN-33", "Lansing Ward 4 Precinct 33", "City of Lansing", 2436,
		map[int]float64{2020: 0.66, 2022: 0.51, 2024: 0.62}, 0.21, 0.27},
	{"MER-3", "Meridian Township Precinct 3", "Meridian Charter Township", 2752,
		map[int]float64{2020: 0.81, 2022: 0.64, 2024: 0.78}, 0.18, 0.35},
	{"MER-9", "Meridian Township Precinct 9", "Meridian Charter Township", 2518,
		map[int]float64{2020: 0.79, 2022: 0.61, 2024: 0.76}, 0.12, 0.41},
	{"DEL-2", "Delhi Township Precinct 2", "Delhi Charter Township", 2647,
		map[int]float64{2020: 0.76, 2022: 0.58, 2024: 0.73}, 0.04, 0.47},
	{"DEL-6", "Delhi Township Precinct 6", "Delhi Charter Township", 2389,
		map[int]float64{2020: 0.73, 2022: 0.55, 2024: 0.70}, -0.02, 0.52},
	{"MAS-1", "Mason Precinct 1", "City of Mason", 2102,
		map[int]float64{2020: 0.77, 2022: 0.60, 2024: 0.74}, -0.11, 0.29},
	{"WIL-1", "Williamston Precinct 1", "City of Williamston", 1856,
		map[int]float64{2020: 0.78, 2022: 0.62, 2024: 0.75}, -0.08, 0.33},
}

// donorClusters is the giving-history aggregate the donor views and
// exports draw from.
type donorCluster struct {
	Area       string
	Households int
	AvgGift    float64
	Total2024  float64
}

var donorClusters = []donorCluster{
	{"Okemos", 412, 186.40, 76796.80},
	{"East Lansing", 531, 142.15, 75481.65},
	{"Meridian Township", 298, 205.90, 61358.20},
	{"Lansing", 644, 88.70, 57122.80},
	{"Mason", 157, 131.25, 20606.25},
	{"Williamston", 121, 148.60, 17980.60},
}

// segmentPrecincts maps segmentation filters onto the precincts that
// match them.
var segmentPrecincts = map[string][]string{
	"students":        {"EL-1", "EL-8", "EL-12"},
	"renters":         {"EL-12", "LAN-4", "LAN-21"},
	"seniors":         {"MAS-1", "WIL-1", "DEL-6"},
	"union":           {"LAN-4", "LAN-33", "DEL-2"},
	"suburban":        {"MER-3", "MER-9", "DEL-2", "DEL-6"},
	"rural":           {"MAS-1", "WIL-1"},
	"high-propensity": {"MER-3", "MER-9", "MAS-1", "WIL-1"},
	"low-propensity":  {"EL-12", "LAN-21"},
}

func findPrecinct(id string) (precinctStats, bool) {
	needle := strings.ToUpper(strings.TrimSpace(id))
	for _, p := range precinctData {
		if p.ID == needle {
			return p, true
		}
	}
	return precinctStats{}, false
}

func findPrecinctByName(name string) (precinctStats, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return precinctStats{}, false
	}
	for _, p := range precinctData {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return p, true
		}
	}
	return precinctStats{}, false
}

func topBySwing(n int) []precinctStats {
	out := make([]precinctStats, len(precinctData))
	copy(out, precinctData)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SwingScore > out[j].SwingScore
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func topByTurnout(year int, n int) []precinctStats {
	out := make([]precinctStats, len(precinctData))
	copy(out, precinctData)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Turnout[year] > out[j].Turnout[year]
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// turnoutDrop returns precincts ordered by presidential-to-midterm
// falloff between the two years.
func turnoutDrop(from, to int, n int) []precinctStats {
	out := make([]precinctStats, len(precinctData))
	copy(out, precinctData)
	sort.SliceStable(out, func(i, j int) bool {
		return (out[i].Turnout[from] - out[i].Turnout[to]) > (out[j].Turnout[from] - out[j].Turnout[to])
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func precinctIDs(ps []precinctStats) []string {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

// Segments lists the known segment names, sorted.
func Segments() []string {
	out := make([]string, 0, len(segmentPrecincts))
	for s := range segmentPrecincts {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SegmentIDs returns the precinct ids a named segment matches.
func SegmentIDs(segment string) ([]string, bool) {
	ids, ok := segmentPrecincts[strings.ToLower(strings.TrimSpace(segment))]
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

// PrecinctFeature resolves a precinct id to the selected-feature
// payload a host dispatches when that precinct is clicked.
func PrecinctFeature(id string, year int) (appstate.Feature, bool) {
	p, ok := findPrecinct(id)
	if !ok {
		return appstate.Feature{}, false
	}
	return appstate.Feature{
		Type:             "precinct",
		ID:               p.ID,
		Name:             p.Name,
		Jurisdiction:     p.Jurisdiction,
		Year:             year,
		RegisteredVoters: p.RegisteredVoters,
		Turnout:          p.Turnout[year],
		PartisanLean:     p.PartisanLean,
		SwingScore:       p.SwingScore,
	}, true
}
