package handlers

import (
	"fmt"
	"strings"

	"wardroom/internal/session"
)

// handleReport produces the quick in-chat summary. Full document
// generation goes through the report_request intent; this handler
// covers "summarize what I'm looking at".
func handleReport(input string, snap Snapshot) Result {
	var subject string
	var body string

	switch {
	case snap.App.Selection.Active():
		id := snap.App.Selection.IDs[0]
		p, ok := findPrecinct(id)
		if !ok {
			subject = snap.App.Selection.Name
			body = fmt.Sprintf("%s is selected, but I don't have analytics for it.", subject)
			break
		}
		subject = p.Name
		body = fmt.Sprintf("%s (%s, %s): %d registered voters, turnout %.0f%% in 2024 against %.0f%% in 2020, lean %+.2f, swing score %.2f.",
			p.Name, p.ID, p.Jurisdiction, p.RegisteredVoters,
			p.Turnout[2024]*100, p.Turnout[2020]*100, p.PartisanLean, p.SwingScore)

	case len(snap.App.Filters.Segments) > 0:
		subject = strings.Join(snap.App.Filters.Segments, " + ")
		body = fmt.Sprintf("Current segment (%s) matches %d precincts: %s.",
			subject, len(snap.App.Filters.MatchingIDs), strings.Join(snap.App.Filters.MatchingIDs, ", "))

	default:
		subject = "county overview"
		top := topBySwing(3)
		body = fmt.Sprintf("County at a glance: %d precincts tracked across 2020/2022/2024. Highest swing: %s, %s, %s.",
			len(precinctData), top[0].ID, top[1].ID, top[2].ID)
	}

	return Result{
		Response: body,
		Actions: []session.SuggestedAction{
			{ID: "report-full", Label: fmt.Sprintf("Generate a full report on %s", subject), Action: "report:generate"},
			{ID: "report-history", Label: "Show past reports", Action: "report:history"},
		},
	}
}
