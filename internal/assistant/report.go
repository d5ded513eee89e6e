package assistant

import (
	"fmt"
	"strings"
	"time"

	"wardroom/internal/config"
	"wardroom/internal/handlers"
	"wardroom/internal/intent"
	"wardroom/internal/logging"
	"wardroom/internal/session"
	"wardroom/internal/store"
)

// reportResult handles the report_request intent. Generate composes
// the briefing, saves it, and replies with the document; customize
// asks what to shape it around.
func (o *Orchestrator) reportResult(snap handlers.Snapshot, subtype intent.ReportSubtype) handlers.Result {
	if subtype == intent.ReportCustomize {
		return handlers.Result{
			Response: "Tell me what the report should focus on: a precinct, a segment, or the county overview. I'll shape it around that.",
			Actions: []session.SuggestedAction{
				{ID: "report-default", Label: "Generate the standard briefing", Action: "report:generate"},
				{ID: "report-past", Label: "Show past reports", Action: "report:history"},
			},
		}
	}

	title, subject, body := composeBriefing(snap, o.cfg.Campaign, o.state.ContextSummary(), o.now())
	rep := &store.Report{Title: title, Subject: subject, Format: "markdown", Body: body}

	saved := false
	if o.reports != nil {
		if err := o.reports.Save(rep); err != nil {
			logging.StoreError("report save failed: %v", err)
			return handlers.Result{
				Response: "I drafted the briefing but couldn't save it to history. Here it is anyway:\n\n" + body,
				Actions: []session.SuggestedAction{
					{ID: "report-retry", Label: "Try saving again", Action: "report:generate"},
				},
				Metadata: map[string]interface{}{"degraded": true},
			}
		}
		saved = true
	}

	resp := body
	if saved {
		resp += fmt.Sprintf("\n\n_Saved to report history as %q._", title)
	}

	res := handlers.Result{
		Response: resp,
		Actions: []session.SuggestedAction{
			{ID: "report-export", Label: "Export the swing data", Action: "output:export-csv",
				Params: map[string]string{"dataset": handlers.DatasetSwingPrecincts}},
			{ID: "report-past", Label: "Show past reports", Action: "report:history"},
		},
	}
	if saved {
		res.SetMeta("reportId", rep.ID)
	}
	return res
}

// historyResult handles the report_history intent.
func (o *Orchestrator) historyResult() handlers.Result {
	generate := session.SuggestedAction{
		ID: "history-generate", Label: "Generate a briefing", Action: "report:generate",
	}

	if o.reports == nil {
		return handlers.Result{
			Response: "Report history isn't available in this session.",
			Actions:  []session.SuggestedAction{generate},
		}
	}

	reports, err := o.reports.List(5)
	if err != nil {
		logging.StoreError("report list failed: %v", err)
		return handlers.Result{
			Response: "I couldn't read the report history. Try again in a moment.",
			Actions: []session.SuggestedAction{
				{ID: "history-retry", Label: "Retry", Action: "report:history"},
			},
			Metadata: map[string]interface{}{"degraded": true},
		}
	}
	if len(reports) == 0 {
		return handlers.Result{
			Response: "No reports yet. Generate one and it will show up here.",
			Actions:  []session.SuggestedAction{generate},
		}
	}

	var b strings.Builder
	b.WriteString("Recent reports:\n")
	for i, r := range reports {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, r.Title, r.CreatedAt.Format("Jan 2, 3:04 PM"))
	}
	return handlers.Result{
		Response: b.String(),
		Actions:  []session.SuggestedAction{generate},
	}
}

// composeBriefing renders the markdown briefing for the current
// context. The subject follows the selection, then the active filter,
// then the county overview.
func composeBriefing(snap handlers.Snapshot, campaign config.CampaignConfig, contextLine string, now time.Time) (title, subject, body string) {
	switch {
	case snap.App.Selection.Active():
		subject = snap.App.Selection.Name
		if subject == "" {
			subject = snap.App.Selection.IDs[0]
		}
	case len(snap.App.Filters.Segments) > 0:
		subject = strings.Join(snap.App.Filters.Segments, " + ")
	default:
		subject = "county overview"
	}
	title = fmt.Sprintf("%s briefing (%s)", subject, now.Format("Jan 2, 2006"))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Prepared for %s on %s.\n\n", campaign.Name, now.Format("January 2, 2006"))
	if contextLine != "" {
		fmt.Fprintf(&b, "**Context:** %s\n\n", contextLine)
	}

	b.WriteString("## Where the race moves\n\n")
	header, rows, err := handlers.DatasetTable(handlers.DatasetSwingPrecincts, snap)
	if err == nil {
		limit := 5
		if len(rows) < limit {
			limit = len(rows)
		}
		b.WriteString(markdownTable(header, rows[:limit]))

		b.WriteString("\n## Recommended next steps\n\n")
		for i := 0; i < 3 && i < len(rows); i++ {
			fmt.Fprintf(&b, "- Put canvass shifts into %s (%s); swing score %s.\n",
				rows[i][1], rows[i][0], rows[i][3])
		}
		fmt.Fprintf(&b, "- Re-run this briefing after the next voter-file refresh.\n")
	}

	return title, subject, b.String()
}

func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}
