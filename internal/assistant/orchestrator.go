// Package assistant owns the turn pipeline: classify the input,
// answer locally or escalate, append the reply, and interpret the
// effect list (map commands, navigation, exports). One Orchestrator
// serves one session, and every collaborator is injected; the package
// holds no globals.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"wardroom/internal/appstate"
	"wardroom/internal/config"
	"wardroom/internal/escalate"
	"wardroom/internal/export"
	"wardroom/internal/handlers"
	"wardroom/internal/intent"
	"wardroom/internal/logging"
	"wardroom/internal/mapcmd"
	"wardroom/internal/proactive"
	"wardroom/internal/session"
	"wardroom/internal/store"
	"wardroom/internal/workflow"
)

// Escalator is the remote-channel surface the orchestrator consumes.
// *escalate.Channel satisfies it; tests stub it.
type Escalator interface {
	Ask(ctx context.Context, req escalate.Request) handlers.Result
}

var _ Escalator = (*escalate.Channel)(nil)

// Deps are the collaborators an Orchestrator is built over. Nil sinks
// are no-ops, a nil Channel disables escalation (local answers only),
// a nil Reports store disables report persistence.
type Deps struct {
	Config   *config.Config
	State    appstate.Store
	Session  *session.Session
	Registry *workflow.Registry
	Reports  *store.ReportStore
	Exporter *export.Builder
	Channel  Escalator

	// MapSink receives every emitted map command, fire-and-forget.
	MapSink mapcmd.Sink

	// Navigate receives tool-navigation requests.
	Navigate func(handlers.Navigation)

	// Downloads receives built export artifacts.
	Downloads func(export.Artifact)
}

// Orchestrator drives one conversational session: it owns the turn
// pipeline, implements proactive.Host for the suggestion engine, and
// bridges cross-tool events into the message list.
type Orchestrator struct {
	cfg      *config.Config
	state    appstate.Store
	session  *session.Session
	registry *workflow.Registry
	reports  *store.ReportStore
	exporter *export.Builder
	channel  Escalator
	dispatch *handlers.Orchestrator

	mapSink   mapcmd.Sink
	navigate  func(handlers.Navigation)
	downloads func(export.Artifact)

	now func() time.Time

	// mu guards the turn bookkeeping. Turns run in the caller's
	// goroutine; the message list has its own lock, so a caller that
	// double-submits gets interleaved but internally consistent
	// appends.
	mu     sync.Mutex
	inTurn int
	gen    uint64
}

// New wires an orchestrator. Missing optional collaborators degrade
// to safe defaults so tests can build a minimal instance.
func New(d Deps) *Orchestrator {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	st := d.State
	if st == nil {
		st = appstate.NewMemory(cfg.Campaign.DefaultYear)
	}
	sess := d.Session
	if sess == nil {
		sess = session.New()
	}
	return &Orchestrator{
		cfg:       cfg,
		state:     st,
		session:   sess,
		registry:  d.Registry,
		reports:   d.Reports,
		exporter:  d.Exporter,
		channel:   d.Channel,
		dispatch:  handlers.NewOrchestrator(),
		mapSink:   d.MapSink,
		navigate:  d.Navigate,
		downloads: d.Downloads,
		now:       time.Now,
	}
}

// Session exposes the conversation for hosts that render it.
func (o *Orchestrator) Session() *session.Session {
	return o.session
}

// ProcessInput runs one user turn end to end and returns the appended
// assistant message. It never returns an error: every failure path
// ends in a user-visible reply carrying at least one recovery action.
//
// A turn whose escalation was superseded by a newer turn returns its
// reply without appending it; the message list belongs to the newest
// turn.
func (o *Orchestrator) ProcessInput(ctx context.Context, input string) session.Message {
	input = strings.TrimSpace(input)
	if input == "" {
		msg := session.NewAssistantMessage("Ask me about a precinct, a segment, or turnout, or pick a suggestion below.")
		msg.Actions = handlers.ContextualSuggestions(o.snapshot(), 3)
		return o.session.Messages.Append(msg)
	}

	gen := o.beginTurn()
	defer o.endTurn()

	o.session.States.Set(session.StateActive)

	// Both context windows are assembled before the append so handlers
	// and the escalation channel see prior turns only; the current
	// input travels separately. The escalation history is wider and
	// untruncated: the channel owns its own bounding and compression.
	snap := o.snapshot()
	hist := o.escalationTurns()
	o.session.Messages.Append(session.NewUserMessage(input))

	// Slash commands drive the map directly and skip classification.
	if cmds, ok, err := mapcmd.ParseSlash(input); ok {
		return o.finishSlash(cmds, err)
	}

	it := intent.Classify(input)
	logging.Intent("category=%s subtype=%s annotations=%d", it.Category, it.Subtype, len(it.Annotations))

	var res handlers.Result
	escalated := false

	switch it.Category {
	case intent.CategoryOutput:
		res = handlers.ExportResult(it.Query, snap)

	case intent.CategoryReportRequest:
		res = o.reportResult(snap, it.Subtype)

	case intent.CategoryReportHistory:
		res = o.historyResult()

	default:
		res = o.dispatch.Dispatch(it.Query, snap)
		pol := escalate.Policy{LongQueryThreshold: o.cfg.Escalation.LongQueryThreshold}
		// Signals run on the stripped query so the dashboard's bracketed
		// context prefix never tips the length threshold.
		if dec := escalate.Decide(it.Query, res, pol); dec.Escalate {
			logging.Escalate("escalating: %s", strings.Join(dec.Reasons, ","))
			res, escalated = o.escalate(ctx, input, hist, snap, res)
		}
	}

	if escalated && o.currentGen() != gen {
		logging.Escalate("discarding superseded escalation (gen %d)", gen)
		return o.resultMessage(res, escalated)
	}

	res = o.interpretExport(ctx, res, snap)
	msg := o.session.Messages.Append(o.resultMessage(res, escalated))
	o.applyEffects(res)
	return msg
}

// Reset clears the conversation and returns to the welcome screen,
// emitting the accompanying clear command exactly once.
func (o *Orchestrator) Reset() {
	o.session.Reset()
	o.emit(mapcmd.Command{Kind: mapcmd.KindClear})
}

// StartWorkflow seeds a session from a named starting point: loading
// state, seed map commands, intro message, then active. Unknown ids
// get the workflow list instead; nothing errors.
func (o *Orchestrator) StartWorkflow(id string) session.Message {
	def, ok := o.lookupWorkflow(id)
	if !ok {
		logging.Workflow("unknown workflow %q requested", id)
		o.session.States.Set(session.StateActive)
		msg := session.NewAssistantMessage(fmt.Sprintf("I don't have a workflow called %q. Here's what I can start:", id))
		msg.Actions = o.workflowActions(3)
		return o.session.Messages.Append(msg)
	}

	sel := def.Selection()
	o.session.SetWorkflow(&sel)
	o.session.States.Set(session.StateLoading)
	logging.Workflow("starting %s", def.ID)

	seeds := def.SeedCommands()
	for _, cmd := range seeds {
		o.emit(cmd)
	}

	msg := session.NewAssistantMessage(def.Intro)
	msg.Meta.Workflow = def.ID
	msg.Meta.MapCommands = seeds
	if def.InitialPrompt != "" {
		// The prompt has no colon, so clicking it resubmits the text
		// as a fresh user turn.
		msg.Actions = []session.SuggestedAction{
			{ID: "wf-prompt-" + def.ID, Label: def.InitialPrompt, Action: def.InitialPrompt},
		}
	}
	msg = o.session.Messages.Append(msg)
	o.session.States.Set(session.StateActive)
	return msg
}

// State implements proactive.Host.
func (o *Orchestrator) State() session.State {
	return o.session.States.Current()
}

// Processing implements proactive.Host: true while any turn or action
// is in flight.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inTurn > 0
}

// UserTurns implements proactive.Host.
func (o *Orchestrator) UserTurns() int {
	return o.session.Messages.UserTurns()
}

// ContextSnapshot implements proactive.Host.
func (o *Orchestrator) ContextSnapshot() handlers.Snapshot {
	return o.snapshot()
}

// EmitProactive implements proactive.Host: the trigger lands as a
// visually distinguished assistant message.
func (o *Orchestrator) EmitProactive(t proactive.Trigger) {
	msg := session.NewAssistantMessage(t.Message)
	msg.Actions = t.Actions
	msg.Meta.Proactive = true
	o.session.Messages.Append(msg)
	logging.Proactive("injected suggestion: %s", t.Message)
}

// escalate forwards the turn to the remote channel. With no channel
// configured the local result stands.
func (o *Orchestrator) escalate(ctx context.Context, input string, hist []handlers.Turn, snap handlers.Snapshot, local handlers.Result) (handlers.Result, bool) {
	if o.channel == nil {
		logging.EscalateDebug("no channel configured; keeping local result")
		return local, false
	}
	res := o.channel.Ask(ctx, escalate.Request{
		Query:          input,
		Turns:          hist,
		ContextSummary: o.state.ContextSummary(),
		Snapshot:       snap,
		Workflow:       o.session.Workflow(),
	})
	return res, true
}

// finishSlash converts a parsed slash command into a reply. Usage
// errors arrive as err with ok=true from the parser.
func (o *Orchestrator) finishSlash(cmds []mapcmd.Command, err error) session.Message {
	if err != nil {
		msg := session.NewAssistantMessage(err.Error())
		msg.Actions = []session.SuggestedAction{
			{ID: "slash-rephrase", Label: "Try rephrasing", Action: "input:rephrase"},
		}
		msg.Meta.Error = true
		return o.session.Messages.Append(msg)
	}

	msg := session.NewAssistantMessage(slashConfirmation(cmds))
	msg.Meta.MapCommands = cmds
	msg = o.session.Messages.Append(msg)
	for _, cmd := range cmds {
		o.emit(cmd)
	}
	return msg
}

func slashConfirmation(cmds []mapcmd.Command) string {
	if len(cmds) == 1 && cmds[0].Kind == mapcmd.KindClear {
		return "Cleared the map."
	}
	return "Done. The map is updating."
}

// resultMessage converts a handler result into the assistant reply.
// The caller appends it.
func (o *Orchestrator) resultMessage(res handlers.Result, escalated bool) session.Message {
	msg := session.NewAssistantMessage(res.Response)
	msg.Actions = res.Actions
	msg.Meta.MapCommands = res.MapCommands
	msg.Meta.Chart = res.Chart
	msg.Meta.Escalated = escalated
	msg.Meta.Error = res.Failed || isDegraded(res)
	if wf := o.session.Workflow(); wf != nil {
		msg.Meta.Workflow = wf.ID
	}
	return msg
}

func isDegraded(res handlers.Result) bool {
	v, ok := res.Metadata["degraded"].(bool)
	return ok && v
}

// interpretExport builds the artifact for an export effect before the
// reply is appended, so a failed build can rewrite it.
func (o *Orchestrator) interpretExport(ctx context.Context, res handlers.Result, snap handlers.Snapshot) handlers.Result {
	if res.Export == nil {
		return res
	}
	if o.exporter == nil {
		res.Response = "Exports aren't available in this session."
		res.Actions = handlers.ContextualSuggestions(snap, 2)
		res.Export = nil
		return res
	}

	art, err := o.exporter.BuildCSV(ctx, res.Export.Dataset, snap)
	if err != nil {
		logging.Actions("export failed dataset=%s: %v", res.Export.Dataset, err)
		res.Response = fmt.Sprintf("The %s export didn't build. Try again in a moment.", res.Export.Dataset)
		res.Actions = []session.SuggestedAction{
			{ID: "export-retry", Label: "Retry the export", Action: "output:export-csv",
				Params: map[string]string{"dataset": res.Export.Dataset}},
		}
		res.SetMeta("degraded", true)
		return res
	}

	res.SetMeta("export", art.Filename)
	if o.downloads != nil {
		o.downloads(art)
	}
	return res
}

// applyEffects plays the remaining side effects into the host sinks.
// Exports ran earlier; a failed build has already rewritten the reply.
func (o *Orchestrator) applyEffects(res handlers.Result) {
	for _, cmd := range res.MapCommands {
		o.emit(cmd)
	}
	if res.Navigation != nil && o.navigate != nil {
		logging.Actions("navigate target=%s", res.Navigation.Target)
		o.navigate(*res.Navigation)
	}
}

func (o *Orchestrator) emit(cmd mapcmd.Command) {
	logging.MapCmd("emit kind=%s", cmd.Kind)
	if o.mapSink != nil {
		o.mapSink(cmd)
	}
}

// snapshot assembles the read-only context handlers receive: app state
// plus the recent conversation bounded by the history window and the
// per-turn truncation budget.
func (o *Orchestrator) snapshot() handlers.Snapshot {
	msgs := o.session.Messages.LastN(o.cfg.Assistant.HistoryWindow)
	turns := make([]handlers.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.IsFeatureCard() {
			continue
		}
		turns = append(turns, handlers.Turn{
			Role:    string(m.Role),
			Content: truncateRunes(m.Content, o.cfg.Assistant.HistoryTruncation),
		})
	}
	return handlers.Snapshot{App: o.state.Snapshot(), Turns: turns}
}

// escalationTurns assembles the history handed to the remote channel:
// the last Escalation.MaxTurns messages with their full content. The
// channel compresses the head of this window itself, so truncating
// here would break its verbatim tail.
func (o *Orchestrator) escalationTurns() []handlers.Turn {
	msgs := o.session.Messages.LastN(o.cfg.Escalation.MaxTurns)
	turns := make([]handlers.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.IsFeatureCard() {
			continue
		}
		turns = append(turns, handlers.Turn{Role: string(m.Role), Content: m.Content})
	}
	return turns
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func (o *Orchestrator) lookupWorkflow(id string) (workflow.Definition, bool) {
	if o.registry != nil {
		return o.registry.Get(id)
	}
	for _, def := range workflow.Defaults() {
		if def.ID == id {
			return def, true
		}
	}
	return workflow.Definition{}, false
}

// workflowActions builds one start action per known workflow, capped.
func (o *Orchestrator) workflowActions(max int) []session.SuggestedAction {
	defs := workflow.Defaults()
	if o.registry != nil {
		defs = o.registry.List()
	}
	var out []session.SuggestedAction
	for _, def := range defs {
		out = append(out, session.SuggestedAction{
			ID:     "wf-" + def.ID,
			Label:  def.Name,
			Action: "workflow:start",
			Params: map[string]string{"workflow": def.ID},
		})
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// beginTurn marks a turn in flight and allocates its generation. Any
// newer turn supersedes escalations still in flight under older ones.
func (o *Orchestrator) beginTurn() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inTurn++
	o.gen++
	return o.gen
}

func (o *Orchestrator) endTurn() {
	o.mu.Lock()
	o.inTurn--
	o.mu.Unlock()
}

func (o *Orchestrator) currentGen() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}
