package assistant

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardroom/internal/appstate"
	"wardroom/internal/escalate"
	"wardroom/internal/export"
	"wardroom/internal/handlers"
	"wardroom/internal/mapcmd"
	"wardroom/internal/proactive"
	"wardroom/internal/session"
	"wardroom/internal/store"
)

// hostSinks captures everything the orchestrator pushes at the host.
type hostSinks struct {
	mu       sync.Mutex
	commands []mapcmd.Command
	navs     []handlers.Navigation
	files    []export.Artifact
}

func (s *hostSinks) mapSink(c mapcmd.Command) {
	s.mu.Lock()
	s.commands = append(s.commands, c)
	s.mu.Unlock()
}

func (s *hostSinks) navSink(n handlers.Navigation) {
	s.mu.Lock()
	s.navs = append(s.navs, n)
	s.mu.Unlock()
}

func (s *hostSinks) fileSink(a export.Artifact) {
	s.mu.Lock()
	s.files = append(s.files, a)
	s.mu.Unlock()
}

func (s *hostSinks) kinds() []mapcmd.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mapcmd.Kind, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c.Kind)
	}
	return out
}

func (s *hostSinks) artifacts() []export.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Artifact(nil), s.files...)
}

func (s *hostSinks) navigations() []handlers.Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]handlers.Navigation(nil), s.navs...)
}

func (s *hostSinks) reset() {
	s.mu.Lock()
	s.commands, s.navs, s.files = nil, nil, nil
	s.mu.Unlock()
}

// stubChannel records the escalation request and replies with a fixed
// result.
type stubChannel struct {
	calls   int
	lastReq escalate.Request
	result  handlers.Result
}

func (c *stubChannel) Ask(_ context.Context, req escalate.Request) handlers.Result {
	c.calls++
	c.lastReq = req
	return c.result
}

func newTestOrchestrator(t *testing.T, ch Escalator) (*Orchestrator, *hostSinks, appstate.Store) {
	t.Helper()
	s := &hostSinks{}
	st := appstate.NewMemory(2024)
	o := New(Deps{
		State:     st,
		Channel:   ch,
		Exporter:  export.NewBuilder(export.LocalProvider{}),
		MapSink:   s.mapSink,
		Navigate:  s.navSink,
		Downloads: s.fileSink,
	})
	return o, s, st
}

func withReports(t *testing.T, o *Orchestrator) {
	t.Helper()
	rs, err := store.NewReportStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	o.reports = rs
}

func TestProcessInputAnswersLocally(t *testing.T) {
	ch := &stubChannel{result: handlers.Result{Response: "remote"}}
	o, s, _ := newTestOrchestrator(t, ch)

	msg := o.ProcessInput(context.Background(), "Which precinct had the highest turnout in 2024?")

	require.Equal(t, session.RoleAssistant, msg.Role)
	assert.Contains(t, msg.Content, "MER-3")
	assert.False(t, msg.Meta.Escalated)
	assert.Equal(t, 0, ch.calls)
	assert.Equal(t, session.StateActive, o.Session().States.Current())

	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleUser, msgs[0].Role)
	assert.Equal(t, []mapcmd.Kind{mapcmd.KindHeatmap, mapcmd.KindHighlight}, s.kinds())
}

func TestProcessInputEscalatesAnalytical(t *testing.T) {
	ch := &stubChannel{result: handlers.Result{Response: "Turnout collapsed because the student wards sat out."}}
	o, _, _ := newTestOrchestrator(t, ch)

	q := "Why did turnout collapse in the student precincts?"
	msg := o.ProcessInput(context.Background(), q)

	require.Equal(t, 1, ch.calls)
	assert.Equal(t, q, ch.lastReq.Query)
	assert.Empty(t, ch.lastReq.Turns) // history excludes the in-flight turn
	assert.True(t, msg.Meta.Escalated)
	assert.Contains(t, msg.Content, "student wards")
}

func TestEscalationCarriesPriorTurns(t *testing.T) {
	ch := &stubChannel{result: handlers.Result{Response: "ok"}}
	o, _, _ := newTestOrchestrator(t, ch)

	o.ProcessInput(context.Background(), "hello")
	o.ProcessInput(context.Background(), "Why is the east side trending blue?")

	require.Equal(t, 1, ch.calls)
	require.Len(t, ch.lastReq.Turns, 2) // greeting turn and its reply
	assert.Equal(t, "user", ch.lastReq.Turns[0].Role)
	assert.Equal(t, "hello", ch.lastReq.Turns[0].Content)
}

func TestEscalationWindowCarriesFullHistory(t *testing.T) {
	ch := &stubChannel{result: handlers.Result{Response: "ok"}}
	o, _, _ := newTestOrchestrator(t, ch)

	long := func(i int) string {
		return fmt.Sprintf("turn %02d: %s", i, strings.Repeat("the east side keeps drifting ", 25))
	}
	require.Greater(t, utf8.RuneCountInString(long(0)), o.cfg.Assistant.HistoryTruncation)

	for i := 0; i < 12; i++ {
		o.ProcessInput(context.Background(), long(i))
	}
	q := "Why does the east side keep drifting?"
	o.ProcessInput(context.Background(), q)

	// The channel receives the full escalation window, not the tighter
	// handler history: 15 turns out of the 24 on record, every one with
	// its complete content. Compression is the channel's job.
	require.Len(t, ch.lastReq.Turns, o.cfg.Escalation.MaxTurns)
	assert.Equal(t, "assistant", ch.lastReq.Turns[0].Role)
	assert.Equal(t, q, ch.lastReq.Query)
	assert.NotEqual(t, q, ch.lastReq.Turns[len(ch.lastReq.Turns)-1].Content) // query travels separately

	var gotUsers []string
	for _, turn := range ch.lastReq.Turns {
		if turn.Role == "user" {
			gotUsers = append(gotUsers, turn.Content)
		}
	}
	wantUsers := []string{long(5), long(6), long(7), long(8), long(9), long(10), long(11)}
	if diff := cmp.Diff(wantUsers, gotUsers); diff != "" {
		t.Fatalf("user turns in escalation window (-want +got):\n%s", diff)
	}
}

func TestAnnotationPrefixDoesNotTipLengthThreshold(t *testing.T) {
	ch := &stubChannel{result: handlers.Result{Response: "remote"}}
	o, _, _ := newTestOrchestrator(t, ch)

	annotation := "[viewing: turnout heatmap, 2024 general, east side wards with student housing and the two Lansing annex corners still flagged for review]"
	query := "Which precinct had the highest turnout in 2024?"
	require.Greater(t, utf8.RuneCountInString(annotation+" "+query), o.cfg.Escalation.LongQueryThreshold)

	msg := o.ProcessInput(context.Background(), annotation+" "+query)

	assert.Equal(t, 0, ch.calls)
	assert.False(t, msg.Meta.Escalated)
	assert.Contains(t, msg.Content, "MER-3")
}

func TestDegradedEscalationMarksError(t *testing.T) {
	res := handlers.Result{Response: "I couldn't reach the analysis service."}
	res.SetMeta("degraded", true)
	ch := &stubChannel{result: res}
	o, _, _ := newTestOrchestrator(t, ch)

	msg := o.ProcessInput(context.Background(), "Recommend a strategy for Mason")

	assert.True(t, msg.Meta.Escalated)
	assert.True(t, msg.Meta.Error)
}

func TestNoChannelKeepsLocalResult(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.ProcessInput(context.Background(), "Why does DEL-6 swing so hard?")

	assert.False(t, msg.Meta.Escalated)
	assert.NotEmpty(t, msg.Content)
}

// racingChannel simulates a newer turn landing while an escalation is
// still in flight by submitting one re-entrantly from inside Ask.
type racingChannel struct {
	o *Orchestrator
}

func (c *racingChannel) Ask(ctx context.Context, _ escalate.Request) handlers.Result {
	c.o.ProcessInput(ctx, "hello there")
	return handlers.Result{Response: "slow escalated answer"}
}

func TestSupersededEscalationIsDiscarded(t *testing.T) {
	ch := &racingChannel{}
	o, _, _ := newTestOrchestrator(t, ch)
	ch.o = o

	msg := o.ProcessInput(context.Background(), "Why is MER-3 trending blue?")

	// The superseded turn still gets its reply back, but the message
	// list belongs to the newer turn.
	assert.Equal(t, "slow escalated answer", msg.Content)

	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Why is MER-3 trending blue?", msgs[0].Content)
	assert.Equal(t, "hello there", msgs[1].Content)
	assert.Equal(t, session.RoleAssistant, msgs[2].Role)
	for _, m := range msgs {
		assert.NotEqual(t, "slow escalated answer", m.Content)
	}
}

func TestResetEmitsExactlyOneClear(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)
	o.ProcessInput(context.Background(), "hello")
	o.StartWorkflow("swing-detection")

	s.reset()
	o.Reset()

	assert.Equal(t, 0, o.Session().Messages.Len())
	assert.Nil(t, o.Session().Workflow())
	assert.Equal(t, session.StateWelcome, o.Session().States.Current())
	require.Equal(t, []mapcmd.Kind{mapcmd.KindClear}, s.kinds())
}

func TestFeatureDeselectionPreservesOrder(t *testing.T) {
	o, _, st := newTestOrchestrator(t, nil)
	unbind := o.BindState(context.Background())
	defer unbind()

	st.Dispatch(appstate.Event{Type: appstate.EventFeatureSelected, Feature: &appstate.Feature{
		Type: "precinct", ID: "DEL-6", Name: "Delhi Charter Township Precinct 6",
	}})
	o.ProcessInput(context.Background(), "hello")
	st.Dispatch(appstate.Event{Type: appstate.EventFeatureSelected, Feature: &appstate.Feature{
		Type: "precinct", ID: "MAS-1", Name: "Mason Precinct 1",
	}})

	require.Equal(t, session.StateActive, o.Session().States.Current())
	require.Equal(t, 4, o.Session().Messages.Len())

	st.Dispatch(appstate.Event{Type: appstate.EventFeatureDeselected})

	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 2)
	var roles []session.Role
	for _, m := range msgs {
		require.False(t, m.IsFeatureCard())
		roles = append(roles, m.Role)
	}
	if diff := cmp.Diff([]session.Role{session.RoleUser, session.RoleAssistant}, roles); diff != "" {
		t.Fatalf("message order after deselection (-want +got):\n%s", diff)
	}
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestFeatureSelectionAppendsCard(t *testing.T) {
	o, _, st := newTestOrchestrator(t, nil)
	unbind := o.BindState(context.Background())
	defer unbind()

	st.Dispatch(appstate.Event{Type: appstate.EventFeatureSelected, Feature: &appstate.Feature{
		Type: "precinct", ID: "EL-12", Name: "East Lansing Precinct 12",
		RegisteredVoters: 2100, Turnout: 0.44, SwingScore: 0.41,
	}})

	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsFeatureCard())
	assert.Equal(t, "EL-12", msgs[0].Card.PrecinctID)
	assert.Equal(t, 2024, msgs[0].Card.Year) // temporal default fills the gap
	assert.Equal(t, session.StateActive, o.Session().States.Current())
}

func TestIQActionEventRoutesThroughTable(t *testing.T) {
	o, s, st := newTestOrchestrator(t, nil)
	unbind := o.BindState(context.Background())
	defer unbind()

	st.Dispatch(appstate.Event{Type: appstate.EventIQAction, Action: "map:heatmap-turnout"})

	assert.Equal(t, session.StateActive, o.Session().States.Current())
	require.Equal(t, []mapcmd.Kind{mapcmd.KindHeatmap}, s.kinds())
	msgs := o.Session().Messages.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Turnout heatmap")
}

func TestStartWorkflowRunsLoadingThenActive(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	var transitions []session.State
	o.Session().States.Subscribe(func(next session.State, _ func(session.State)) {
		transitions = append(transitions, next)
	})

	msg := o.StartWorkflow("swing-detection")

	assert.Equal(t, []session.State{session.StateLoading, session.StateActive}, transitions)
	require.NotNil(t, o.Session().Workflow())
	assert.Equal(t, "swing-detection", o.Session().Workflow().ID)
	assert.Equal(t, "swing-detection", msg.Meta.Workflow)
	assert.NotEmpty(t, msg.Content)
	assert.Equal(t, []mapcmd.Kind{mapcmd.KindHeatmap, mapcmd.KindHighlight}, s.kinds())

	// The canned prompt has no colon, so clicking it resubmits the
	// text as a fresh user turn.
	require.Len(t, msg.Actions, 1)
	assert.NotContains(t, msg.Actions[0].Action, ":")
}

func TestStartWorkflowUnknownOffersList(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.StartWorkflow("door-to-door-bake-sale")

	assert.Contains(t, msg.Content, "don't have a workflow")
	require.NotEmpty(t, msg.Actions)
	for _, a := range msg.Actions {
		assert.Equal(t, "workflow:start", a.Action)
	}
}

func TestSlashCommandBypassesClassifier(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.ProcessInput(context.Background(), "/highlight del-6 mas-1")

	require.Len(t, msg.Meta.MapCommands, 1)
	assert.Equal(t, []string{"DEL-6", "MAS-1"}, msg.Meta.MapCommands[0].PrecinctIDs)
	assert.Equal(t, []mapcmd.Kind{mapcmd.KindHighlight}, s.kinds())
}

func TestSlashUsageErrorIsRecoverable(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.ProcessInput(context.Background(), "/flyto atlantis")

	assert.True(t, msg.Meta.Error)
	assert.Contains(t, msg.Content, "unknown place")
	require.Len(t, msg.Actions, 1)
	assert.Empty(t, s.kinds())
}

func TestEmptyInputAsksForSomething(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.ProcessInput(context.Background(), "   ")

	assert.NotEmpty(t, msg.Content)
	assert.NotEmpty(t, msg.Actions)
	assert.Equal(t, 1, o.Session().Messages.Len()) // no user turn recorded
}

func TestOutputIntentBuildsArtifact(t *testing.T) {
	o, s, _ := newTestOrchestrator(t, nil)

	msg := o.ProcessInput(context.Background(), "export the walk list as csv")

	files := s.artifacts()
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Filename, "walk-list")
	assert.Contains(t, string(files[0].Data), "est_doors")
	assert.False(t, msg.Meta.Error)
}

func TestReportRequestSavesAndReplies(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)
	withReports(t, o)

	msg := o.ProcessInput(context.Background(), "generate a report on the county")

	assert.Contains(t, msg.Content, "briefing")
	assert.Contains(t, msg.Content, "Saved to report history")
	count, err := o.reports.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReportHistoryListsRecent(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)
	withReports(t, o)
	o.ProcessInput(context.Background(), "generate a report")
	o.ProcessInput(context.Background(), "create a briefing for the team")

	msg := o.ProcessInput(context.Background(), "show me past reports")

	assert.Contains(t, msg.Content, "Recent reports:")
	assert.Contains(t, msg.Content, "1. ")
	assert.Contains(t, msg.Content, "2. ")
}

func TestReportHistoryWithoutStore(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	msg := o.ProcessInput(context.Background(), "show me past reports")

	assert.Contains(t, msg.Content, "isn't available")
	require.NotEmpty(t, msg.Actions)
}

func TestOrchestratorImplementsProactiveHost(t *testing.T) {
	var _ proactive.Host = (*Orchestrator)(nil)

	o, _, _ := newTestOrchestrator(t, nil)
	o.ProcessInput(context.Background(), "hello")

	assert.Equal(t, 1, o.UserTurns())
	assert.False(t, o.Processing())

	o.EmitProactive(proactive.Trigger{
		Message: "You've looked at three precincts. Want a side-by-side?",
		Actions: []session.SuggestedAction{{ID: "p1", Label: "Compare", Action: "temporal:compare"}},
	})

	msgs := o.Session().Messages.Messages()
	last := msgs[len(msgs)-1]
	assert.True(t, last.Meta.Proactive)
	assert.Equal(t, session.RoleAssistant, last.Role)
	require.Len(t, last.Actions, 1)
}
