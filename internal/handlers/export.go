package handlers

import (
	"strings"

	"wardroom/internal/session"
)

// ExportResult is the output_request fast path: the intent classifier
// already decided this turn is an export, so the orchestrator skips
// sub-intent matching and comes straight here.
func ExportResult(input string, snap Snapshot) Result {
	return handleExport(input, snap)
}

// handleExport emits an export effect for the orchestrator's export
// sink. Dataset selection follows the request wording; the current
// view is the default.
func handleExport(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)

	dataset := DatasetCurrentView
	switch {
	case strings.Contains(lower, "walk") || strings.Contains(lower, "canvass"):
		dataset = DatasetWalkList
	case strings.Contains(lower, "donor"):
		dataset = DatasetDonors
	case strings.Contains(lower, "swing"):
		dataset = DatasetSwingPrecincts
	}

	return Result{
		Response: "Building the " + dataset + " CSV now; the download will start shortly.",
		Export:   &ExportRequest{Dataset: dataset, Format: "csv"},
		Actions: []session.SuggestedAction{
			{ID: "export-report", Label: "Turn this into a report instead", Action: "report:generate"},
		},
	}
}
