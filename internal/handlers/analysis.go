package handlers

import (
	"fmt"
	"strings"

	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// handleAnalysis answers scoring questions: swing ranking, score
// explanations for a precinct, partisan lean.
func handleAnalysis(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "swing"):
		return swingRanking(snap)
	case strings.Contains(lower, "score") || strings.Contains(lower, "explain"):
		return ExplainScore(precinctFromContext(input, snap), snap)
	case strings.Contains(lower, "lean") || strings.Contains(lower, "margin"):
		return leanOverview()
	case strings.Contains(lower, "trend") || strings.Contains(lower, "flip"):
		return trendOverview(snap)
	default:
		return swingRanking(snap)
	}
}

// precinctFromContext resolves a precinct mention in the input, else
// falls back to the current selection.
func precinctFromContext(input string, snap Snapshot) string {
	if p, ok := findPrecinctByName(input); ok {
		return p.ID
	}
	if ids := mapcmd.InferFromText(input); len(ids) > 0 {
		for _, c := range ids {
			if c.Kind == mapcmd.KindHighlight && len(c.PrecinctIDs) > 0 {
				return c.PrecinctIDs[0]
			}
		}
	}
	if snap.App.Selection.Active() {
		return snap.App.Selection.IDs[0]
	}
	return ""
}

// ExplainScore renders the swing-score explanation for a precinct. A
// blank id with no selection asks the user to pick one, with exactly
// one suggested action. The action dispatcher reuses this for
// analyze:explain-score.
func ExplainScore(id string, snap Snapshot) Result {
	if id == "" {
		return Result{
			Response: "Select a precinct on the map first, and I'll break down its score.",
			Actions: []session.SuggestedAction{
				{ID: "analysis-pick", Label: "Show swing precincts to pick from", Action: "map:heatmap-swing"},
			},
		}
	}

	p, ok := findPrecinct(id)
	if !ok {
		return Result{
			Response: fmt.Sprintf("I don't have score data for %s.", id),
			Actions: []session.SuggestedAction{
				{ID: "analysis-pick", Label: "Show swing precincts to pick from", Action: "map:heatmap-swing"},
			},
		}
	}

	drop := p.Turnout[2020] - p.Turnout[2022]
	res := Result{
		Response: fmt.Sprintf(
			"%s (%s) scores %.2f on swing potential. Turnout ran %.0f%% in 2020, %.0f%% in 2022, %.0f%% in 2024 - a %.0f-point midterm falloff - and partisan lean sits at %+.2f. Volatile turnout plus a thin lean is what drives the score.",
			p.Name, p.ID, p.SwingScore,
			p.Turnout[2020]*100, p.Turnout[2022]*100, p.Turnout[2024]*100,
			drop*100, p.PartisanLean),
		MapCommands: []mapcmd.Command{
			{Kind: mapcmd.KindHighlight, PrecinctIDs: []string{p.ID}},
		},
		Chart: &session.Chart{
			Kind:   "line",
			Title:  fmt.Sprintf("%s turnout", p.ID),
			Labels: []string{"2020", "2022", "2024"},
			Values: []float64{p.Turnout[2020], p.Turnout[2022], p.Turnout[2024]},
		},
		Actions: []session.SuggestedAction{
			{ID: "analysis-canvass", Label: "Plan canvassing here", Action: "canvassing:plan", Params: map[string]string{"precinct": p.ID}},
			{ID: "analysis-compare", Label: "Compare 2020 vs 2024", Action: "temporal:compare", Params: map[string]string{"from": "2020", "to": "2024"}},
		},
	}
	res.SetMeta("precinct", p.ID)
	return res
}

func swingRanking(snap Snapshot) Result {
	top := topBySwing(3)
	var lines []string
	for i, p := range top {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - swing %.2f, lean %+.2f", i+1, p.Name, p.ID, p.SwingScore, p.PartisanLean))
	}

	return Result{
		Response: "Top swing precincts right now:\n" + strings.Join(lines, "\n"),
		MapCommands: []mapcmd.Command{
			{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricSwingPotential},
			{Kind: mapcmd.KindHighlight, PrecinctIDs: precinctIDs(top)},
		},
		Actions: []session.SuggestedAction{
			{ID: "analysis-explain-top", Label: fmt.Sprintf("Why does %s score highest?", top[0].ID), Action: "analyze:explain-score", Params: map[string]string{"precinctName": top[0].ID}},
			{ID: "analysis-canvass-top", Label: "Build a canvassing plan", Action: "canvassing:plan"},
		},
	}
}

func leanOverview() Result {
	var demLean, repLean []string
	for _, p := range precinctData {
		if p.PartisanLean >= 0.1 {
			demLean = append(demLean, p.ID)
		} else if p.PartisanLean <= -0.05 {
			repLean = append(repLean, p.ID)
		}
	}

	return Result{
		Response: fmt.Sprintf("Partisan lean across the county: %s lean Democratic; %s lean Republican; the rest sit within five points of even.",
			strings.Join(demLean, ", "), strings.Join(repLean, ", ")),
		MapCommands: []mapcmd.Command{
			{Kind: mapcmd.KindChoropleth, Metric: mapcmd.MetricPartisanLean},
		},
	}
}

func trendOverview(snap Snapshot) Result {
	droppers := turnoutDrop(2020, 2022, 3)
	var lines []string
	for _, p := range droppers {
		lines = append(lines, fmt.Sprintf("%s fell %.0f points", p.ID, (p.Turnout[2020]-p.Turnout[2022])*100))
	}

	return Result{
		Response: "The steepest midterm falloff from 2020 to 2022: " + strings.Join(lines, "; ") +
			". Those are the precincts to watch for 2026 turnout programs.",
		MapCommands: []mapcmd.Command{
			{Kind: mapcmd.KindHighlight, PrecinctIDs: precinctIDs(droppers)},
		},
		Actions: []session.SuggestedAction{
			{ID: "analysis-surge", Label: "Start the turnout surge workflow", Action: "workflow:start", Params: map[string]string{"workflow": "turnout-surge"}},
		},
	}
}
