package mapcmd

import (
	"regexp"
	"sort"
	"strings"
)

// place is a gazetteer entry with a fixed camera target.
type place struct {
	name   string
	center LngLat
	zoom   float64
}

// Ingham County gazetteer. Matching is case-insensitive and
// longest-name-first so "East Lansing" never also triggers "Lansing".
var gazetteer = []place{
	{"Meridian Township", LngLat{-84.4300, 42.7170}, 11.5},
	{"East Lansing", LngLat{-84.4839, 42.7370}, 12.5},
	{"Williamston", LngLat{-84.2830, 42.6889}, 13},
	{"MSU campus", LngLat{-84.4822, 42.7018}, 14},
	{"Lansing", LngLat{-84.5555, 42.7325}, 12},
	{"Okemos", LngLat{-84.4278, 42.7223}, 13},
	{"Haslett", LngLat{-84.4010, 42.7470}, 13},
	{"Mason", LngLat{-84.4435, 42.5795}, 13},
	{"Holt", LngLat{-84.5153, 42.6406}, 13},
}

// aliases maps alternate spellings onto gazetteer names.
var aliases = map[string]string{
	"michigan state": "MSU campus",
	"msu":            "MSU campus",
	"meridian twp":   "Meridian Township",
}

// topicRule maps reply vocabulary onto a metric layer. Rules are
// evaluated in order; the first match wins so a reply produces at
// most one metric command.
type topicRule struct {
	needles []string // all must appear
	kind    Kind
	metric  string
}

var topicRules = []topicRule{
	{[]string{"swing", "precinct"}, KindHeatmap, MetricSwingPotential},
	{[]string{"turnout"}, KindHeatmap, MetricTurnout},
	{[]string{"persuasion"}, KindHeatmap, MetricPersuasion},
	{[]string{"partisan lean"}, KindChoropleth, MetricPartisanLean},
}

// Precinct IDs look like EL-12, OK-3, LAN-042.
var precinctIDPattern = regexp.MustCompile(`\b[A-Z]{2,4}-\d+\b`)

// InferFromText derives map commands from assistant reply text.
//
// Output order is deterministic: flyto commands in mention order, then
// at most one metric command, then at most one highlight carrying every
// distinct precinct ID mentioned.
func InferFromText(text string) []Command {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var cmds []Command
	cmds = append(cmds, inferPlaces(text)...)
	if metric := inferTopic(text); metric != nil {
		cmds = append(cmds, *metric)
	}
	if hl := inferPrecincts(text); hl != nil {
		cmds = append(cmds, *hl)
	}
	return cmds
}

// placeNeedle pairs a match pattern with its gazetteer entry. Needles
// cover canonical names and aliases, matched longest-first with word
// boundaries.
type placeNeedle struct {
	pattern *regexp.Regexp
	length  int
	place   place
}

var placeNeedles = buildPlaceNeedles()

func buildPlaceNeedles() []placeNeedle {
	byName := make(map[string]place, len(gazetteer))
	for _, p := range gazetteer {
		byName[p.name] = p
	}

	var needles []placeNeedle
	add := func(text string, p place) {
		needles = append(needles, placeNeedle{
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(text)) + `\b`),
			length:  len(text),
			place:   p,
		})
	}
	for _, p := range gazetteer {
		add(p.name, p)
	}
	for alias, canonical := range aliases {
		add(alias, byName[canonical])
	}

	sort.SliceStable(needles, func(i, j int) bool {
		return needles[i].length > needles[j].length
	})
	return needles
}

// inferPlaces finds gazetteer mentions. Longer needles are matched
// first and their spans masked, so nested names ("East Lansing"
// containing "Lansing") yield a single command. Distinct places
// compose in the order they are mentioned; repeat mentions of one
// place keep only the earliest.
func inferPlaces(text string) []Command {
	masked := []byte(strings.ToLower(text))

	type mention struct {
		place place
		index int
	}
	earliest := make(map[string]int)
	var mentions []mention

	for _, n := range placeNeedles {
		for {
			loc := n.pattern.FindIndex(masked)
			if loc == nil {
				break
			}
			for i := loc[0]; i < loc[1]; i++ {
				masked[i] = 0
			}
			if prev, ok := earliest[n.place.name]; !ok || loc[0] < prev {
				earliest[n.place.name] = loc[0]
			}
		}
	}

	for name, idx := range earliest {
		for _, p := range gazetteer {
			if p.name == name {
				mentions = append(mentions, mention{place: p, index: idx})
			}
		}
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].index < mentions[j].index
	})

	var cmds []Command
	for _, m := range mentions {
		center := m.place.center
		cmds = append(cmds, Command{
			Kind:   KindFlyTo,
			Center: &center,
			Zoom:   m.place.zoom,
			Place:  m.place.name,
		})
	}
	return cmds
}

func inferTopic(text string) *Command {
	lower := strings.ToLower(text)
	for _, rule := range topicRules {
		matched := true
		for _, needle := range rule.needles {
			if !strings.Contains(lower, needle) {
				matched = false
				break
			}
		}
		if matched {
			return &Command{Kind: rule.kind, Metric: rule.metric}
		}
	}
	return nil
}

func inferPrecincts(text string) *Command {
	matches := precinctIDPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, id := range matches {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return &Command{Kind: KindHighlight, PrecinctIDs: ids}
}

// LookupPlace resolves a place name (or alias) against the gazetteer.
func LookupPlace(name string) (Command, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[needle]; ok {
		needle = strings.ToLower(canonical)
	}
	for _, p := range gazetteer {
		if strings.ToLower(p.name) == needle {
			center := p.center
			return Command{Kind: KindFlyTo, Center: &center, Zoom: p.zoom, Place: p.name}, true
		}
	}
	return Command{}, false
}

// PlaceNames returns the gazetteer names in declaration order,
// for usage strings and completions.
func PlaceNames() []string {
	names := make([]string, 0, len(gazetteer))
	for _, p := range gazetteer {
		names = append(names, p.name)
	}
	return names
}
