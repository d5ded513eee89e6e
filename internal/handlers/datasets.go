package handlers

import (
	"fmt"
	"strconv"
)

// Export dataset names understood by DatasetTable and the export
// handler.
const (
	DatasetCurrentView    = "current-view"
	DatasetWalkList       = "walk-list"
	DatasetSwingPrecincts = "swing-precincts"
	DatasetDonors         = "donors"
)

// DatasetTable builds the header and rows for a named export dataset
// from the local analytics slice. The current-view dataset respects
// the snapshot: highlighted precincts win over visible ones, and an
// empty viewport exports the whole county.
func DatasetTable(dataset string, snap Snapshot) ([]string, [][]string, error) {
	switch dataset {
	case DatasetCurrentView:
		header := []string{
			"precinct_id", "precinct", "jurisdiction", "registered",
			"turnout_2020", "turnout_2022", "turnout_2024",
			"partisan_lean", "swing_score",
		}
		return header, currentViewRows(snap), nil

	case DatasetWalkList:
		header := []string{"order", "precinct_id", "precinct", "jurisdiction", "est_doors"}
		var rows [][]string
		for i, p := range canvassTargets(snap) {
			rows = append(rows, []string{
				strconv.Itoa(i + 1), p.ID, p.Name, p.Jurisdiction, strconv.Itoa(p.RegisteredVoters / 3),
			})
		}
		return header, rows, nil

	case DatasetSwingPrecincts:
		header := []string{"precinct_id", "precinct", "jurisdiction", "swing_score", "partisan_lean"}
		var rows [][]string
		for _, p := range topBySwing(len(precinctData)) {
			rows = append(rows, []string{
				p.ID, p.Name, p.Jurisdiction,
				strconv.FormatFloat(p.SwingScore, 'f', 2, 64),
				strconv.FormatFloat(p.PartisanLean, 'f', 2, 64),
			})
		}
		return header, rows, nil

	case DatasetDonors:
		header := []string{"area", "households", "avg_gift", "total_2024"}
		var rows [][]string
		for _, d := range donorClusters {
			rows = append(rows, []string{
				d.Area, strconv.Itoa(d.Households),
				strconv.FormatFloat(d.AvgGift, 'f', 2, 64),
				strconv.FormatFloat(d.Total2024, 'f', 2, 64),
			})
		}
		return header, rows, nil
	}

	return nil, nil, fmt.Errorf("unknown dataset %q", dataset)
}

func currentViewRows(snap Snapshot) [][]string {
	ids := snap.App.Viewport.HighlightedIDs
	if len(ids) == 0 {
		ids = snap.App.Viewport.VisibleIDs
	}

	selected := precinctData
	if len(ids) > 0 {
		selected = nil
		for _, id := range ids {
			if p, ok := findPrecinct(id); ok {
				selected = append(selected, p)
			}
		}
	}

	var rows [][]string
	for _, p := range selected {
		rows = append(rows, []string{
			p.ID, p.Name, p.Jurisdiction, strconv.Itoa(p.RegisteredVoters),
			strconv.FormatFloat(p.Turnout[2020], 'f', 2, 64),
			strconv.FormatFloat(p.Turnout[2022], 'f', 2, 64),
			strconv.FormatFloat(p.Turnout[2024], 'f', 2, 64),
			strconv.FormatFloat(p.PartisanLean, 'f', 2, 64),
			strconv.FormatFloat(p.SwingScore, 'f', 2, 64),
		})
	}
	return rows
}
