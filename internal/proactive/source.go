package proactive

import (
	"context"

	"wardroom/internal/handlers"
	"wardroom/internal/session"
)

// InsightSource is the stock trigger source: a small rule table over
// the exploration counters. Rules are checked in order and the first
// match wins; no match means stay quiet.
type InsightSource struct{}

func (InsightSource) Check(_ context.Context, snap handlers.Snapshot) (*Trigger, error) {
	exp := snap.App.Exploration

	if exp.PrecinctsViewed >= 3 && exp.FiltersApplied == 0 {
		return &Trigger{
			Message: "You've looked at several precincts one by one. Want to pull them together? I can filter by a segment or rank everything by swing score.",
			Actions: []session.SuggestedAction{
				{ID: "pro-segment", Label: "Filter by segment", Action: "filter:apply"},
				{ID: "pro-swing", Label: "Rank by swing score", Action: "map:heatmap-swing"},
			},
		}, nil
	}

	if exp.FiltersApplied >= 2 && !snap.App.Temporal.Enabled {
		return &Trigger{
			Message: "You've narrowed the view a few times. Comparing 2020 against 2024 for this slice usually surfaces the story. Want to see it?",
			Actions: []session.SuggestedAction{
				{ID: "pro-compare", Label: "Compare 2020 vs 2024", Action: "temporal:compare", Params: map[string]string{"from": "2020", "to": "2024"}},
			},
		}, nil
	}

	if exp.ToolsVisited >= 3 {
		return &Trigger{
			Message: "You've covered a lot of ground this session. I can pull what you've explored into a briefing report.",
			Actions: []session.SuggestedAction{
				{ID: "pro-report", Label: "Generate a briefing", Action: "report:generate"},
			},
		}, nil
	}

	return nil, nil
}
