package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardroom/internal/appstate"
	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name       string
		action     string
		cat        ActionCategory
		op         string
		namespaced bool
		wantErr    bool
	}{
		{"namespaced", "analyze:explain-score", ActionAnalyze, "explain-score", true, false},
		{"case folded", "MAP:Heatmap-Swing", ActionMap, "heatmap-swing", true, false},
		{"free text", "top swing precincts", "", "", false, false},
		{"unknown category", "launch:nukes", "", "", true, true},
		{"empty operation", "map:", "", "", true, true},
		{"free text with spaces only", "what about turnout", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, op, namespaced, err := ParseAction(tt.action)
			assert.Equal(t, tt.namespaced, namespaced)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cat, cat)
			assert.Equal(t, tt.op, op)
		})
	}
}

func TestFreeTextActionResubmits(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "top swing precincts", nil)

	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "top swing precincts", msgs[0].Content)
	assert.Contains(t, msg.Content, "DEL-6")
}

func TestUnknownCategoryRejectedAtParse(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "launch:nukes", nil)

	assert.True(t, msg.Meta.Error)
	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 1) // rejected actions never become user turns
	assert.Equal(t, session.RoleAssistant, msgs[0].Role)
	assert.Empty(t, s.kinds())
}

func TestUnknownOperationWithinCategory(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "map:teleport", nil)

	assert.True(t, msg.Meta.Error)
	assert.Contains(t, msg.Content, "teleport")
}

func TestMapActionEmitsHeatmap(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "map:heatmap-persuasion", nil)

	require.Len(t, msg.Meta.MapCommands, 1)
	assert.Equal(t, mapcmd.KindHeatmap, msg.Meta.MapCommands[0].Kind)
	assert.Equal(t, mapcmd.MetricPersuasion, msg.Meta.MapCommands[0].Metric)
	assert.Equal(t, []mapcmd.Kind{mapcmd.KindHeatmap}, s.kinds())
}

func TestExplainScoreWithoutSelectionAsksOnce(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "analyze:explain-score", nil)

	assert.Contains(t, msg.Content, "Select a precinct")
	require.Len(t, msg.Actions, 1)
}

func TestExplainScoreUsesParam(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "analyze:explain-score",
		map[string]string{"precinctName": "MER-3"})

	assert.Contains(t, msg.Content, "MER-3")
	assert.NotEmpty(t, msg.Meta.MapCommands)
	assert.NotNil(t, msg.Meta.Chart)
}

func TestExplainScoreFallsBackToSelection(t *testing.T) {
	o, _, st := newTestOrchestrator(t, nil)
	st.Dispatch(appstate.Event{Type: appstate.EventFeatureSelected, Feature: &appstate.Feature{
		Type: "precinct", ID: "DEL-6", Name: "Delhi Charter Township Precinct 6",
	}})

	msg := o.HandleAction(context.Background(), "analyze:explain-score", nil)

	assert.Contains(t, msg.Content, "DEL-6")
}

func TestFilterApplyWritesThroughStore(t *testing.T) {
	o, s, st := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "filter:apply",
		map[string]string{"segment": "students"})

	snap := st.Snapshot()
	assert.Equal(t, []string{"students"}, snap.Filters.Segments)
	assert.Equal(t, []string{"EL-1", "EL-8", "EL-12"}, snap.Filters.MatchingIDs)
	assert.Equal(t, 1, snap.Exploration.FiltersApplied)
	assert.Equal(t, []mapcmd.Kind{mapcmd.KindHighlight}, s.kinds())
	assert.Contains(t, msg.Content, "EL-1")
}

func TestFilterApplyWithoutSegmentAsks(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "filter:apply", nil)

	assert.Contains(t, msg.Content, "Which segment")
	require.Len(t, msg.Actions, 4)
	for _, a := range msg.Actions {
		assert.Equal(t, "filter:apply", a.Action)
		assert.NotEmpty(t, a.Params["segment"])
	}
}

func TestFilterApplyUnknownSegment(t *testing.T) {
	o, _, st := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "filter:apply",
		map[string]string{"segment": "martians"})

	assert.True(t, msg.Meta.Error)
	assert.Contains(t, msg.Content, "students") // lists what it can do
	assert.Empty(t, st.Snapshot().Filters.Segments)
}

func TestFilterClearResetsStore(t *testing.T) {
	o, _, st := newTestOrchestrator(t, nil)
	o.HandleAction(context.Background(), "filter:apply", map[string]string{"segment": "seniors"})
	require.NotEmpty(t, st.Snapshot().Filters.Segments)

	o.HandleAction(context.Background(), "filter:clear", nil)

	assert.Empty(t, st.Snapshot().Filters.Segments)
	assert.Empty(t, st.Snapshot().Filters.MatchingIDs)
}

func TestCanvassingPlanReentersPipeline(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "canvassing:plan", nil)

	assert.Contains(t, msg.Content, "turf")
	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role) // synthesized query became a real turn
}

func TestOutputExportActionBuildsNamedDataset(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "output:export-csv",
		map[string]string{"dataset": "walk-list"})

	files := s.artifacts()
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Filename, "walk-list-"))
	assert.Contains(t, string(files[0].Data), "est_doors")
	assert.False(t, msg.Meta.Error)
}

func TestOutputExportUnknownDatasetRecovers(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "output:export-csv",
		map[string]string{"dataset": "yard-signs"})

	assert.Empty(t, s.artifacts())
	assert.True(t, msg.Meta.Error)
	require.NotEmpty(t, msg.Actions)
	assert.Equal(t, "output:export-csv", msg.Actions[0].Action)
}

func TestNavigateActionCallsHost(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "navigate:donors", nil)

	navs := s.navigations()
	require.Len(t, navs, 1)
	assert.Equal(t, "donors", navs[0].Target)
	assert.Contains(t, msg.Content, "donors")
}

func TestTemporalCompareEmitsComparison(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "temporal:compare",
		map[string]string{"from": "2020", "to": "2024"})

	require.Len(t, msg.Meta.MapCommands, 1)
	cmd := msg.Meta.MapCommands[0]
	assert.Equal(t, mapcmd.KindComparison, cmd.Kind)
	assert.Equal(t, []int{2020, 2024}, cmd.Years)
	assert.Equal(t, []mapcmd.Kind{mapcmd.KindComparison}, s.kinds())
}

func TestTemporalYearRejectsUntrackedYear(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "temporal:year",
		map[string]string{"year": "2018"})

	assert.Contains(t, msg.Content, "Which election year")
	require.Len(t, msg.Actions, 3)
	assert.Empty(t, s.kinds())
}

func TestTemporalYearEmitsCommand(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "temporal:year",
		map[string]string{"year": "2022"})

	assert.Contains(t, msg.Content, "2022")
	require.Equal(t, []mapcmd.Kind{mapcmd.KindTemporal}, s.kinds())
}

func TestWorkflowListOffersEveryStartingPoint(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "workflow:list", nil)

	require.Len(t, msg.Actions, 5)
	assert.Contains(t, msg.Content, "Swing Detection")
	for _, a := range msg.Actions {
		assert.Equal(t, "workflow:start", a.Action)
	}
}

func TestWorkflowStartFromAction(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	o.HandleAction(context.Background(), "workflow:start",
		map[string]string{"workflow": "donor-outreach"})

	require.NotNil(t, o.Session().Workflow())
	assert.Equal(t, "donor-outreach", o.Session().Workflow().ID)
}

func TestSystemRetryResubmitsQuery(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	o.HandleAction(context.Background(), "system:retry",
		map[string]string{"query": "hello"})

	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestSystemRetryWithoutQuery(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "system:retry", nil)

	assert.Contains(t, msg.Content, "nothing to retry")
	assert.Equal(t, 1, o.Session().Messages.Len())
}

func TestInputRephraseGivesGuidance(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.HandleAction(context.Background(), "input:rephrase", nil)

	assert.Contains(t, msg.Content, "DEL-6")
	assert.NotEmpty(t, msg.Actions)
}
