package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"wardroom/internal/appstate"
	"wardroom/internal/handlers"
	"wardroom/internal/intent"
	"wardroom/internal/logging"
	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
	"wardroom/internal/workflow"
)

// ActionCategory is the namespace half of a category:operation action
// string. The set is closed: dispatch is an exhaustive switch, and an
// unknown category is rejected when the action is parsed rather than
// falling through to a default.
type ActionCategory string

const (
	ActionMap        ActionCategory = "map"
	ActionFilter     ActionCategory = "filter"
	ActionAnalyze    ActionCategory = "analyze"
	ActionCanvassing ActionCategory = "canvassing"
	ActionOutput     ActionCategory = "output"
	ActionNavigate   ActionCategory = "navigate"
	ActionReport     ActionCategory = "report"
	ActionQuery      ActionCategory = "query"
	ActionTemporal   ActionCategory = "temporal"
	ActionWorkflow   ActionCategory = "workflow"
	ActionInput      ActionCategory = "input"
	ActionSystem     ActionCategory = "system"
)

// ParseAction splits an action string into category and operation.
// ok=false means the string carries no colon and should be resubmitted
// as a user turn.
func ParseAction(action string) (cat ActionCategory, op string, ok bool, err error) {
	idx := strings.Index(action, ":")
	if idx < 0 {
		return "", "", false, nil
	}

	cat = ActionCategory(strings.ToLower(strings.TrimSpace(action[:idx])))
	op = strings.ToLower(strings.TrimSpace(action[idx+1:]))

	switch cat {
	case ActionMap, ActionFilter, ActionAnalyze, ActionCanvassing, ActionOutput,
		ActionNavigate, ActionReport, ActionQuery, ActionTemporal, ActionWorkflow,
		ActionInput, ActionSystem:
	default:
		return "", "", true, fmt.Errorf("unknown action category %q", string(cat))
	}
	if op == "" {
		return "", "", true, fmt.Errorf("action %q names no operation", action)
	}
	return cat, op, true, nil
}

// HandleAction routes a suggested-action click. Plain text resubmits
// through the input pipeline; namespaced actions route through the
// category table. Like ProcessInput it always ends in an appended
// assistant message and never returns an error.
func (o *Orchestrator) HandleAction(ctx context.Context, action string, params map[string]string) session.Message {
	cat, op, namespaced, err := ParseAction(action)
	if !namespaced {
		return o.ProcessInput(ctx, action)
	}
	if err != nil {
		logging.Actions("rejected action %q: %v", action, err)
		msg := session.NewAssistantMessage("I can't run that action. Pick a suggestion instead.")
		msg.Actions = handlers.ContextualSuggestions(o.snapshot(), 2)
		msg.Meta.Error = true
		return o.session.Messages.Append(msg)
	}

	logging.Actions("action %s:%s params=%d", cat, op, len(params))
	o.beginTurn()
	defer o.endTurn()
	o.session.States.Set(session.StateActive)

	switch cat {
	case ActionMap:
		return o.actionMap(op)
	case ActionFilter:
		return o.actionFilter(op, params)
	case ActionAnalyze:
		return o.actionAnalyze(op, params)
	case ActionCanvassing:
		return o.actionCanvassing(ctx, op)
	case ActionOutput:
		return o.actionOutput(ctx, op, params)
	case ActionNavigate:
		return o.actionNavigate(op, params)
	case ActionReport:
		return o.actionReport(op)
	case ActionQuery:
		return o.actionQuery(ctx, op, params)
	case ActionTemporal:
		return o.actionTemporal(op, params)
	case ActionWorkflow:
		return o.actionWorkflow(op, params)
	case ActionInput:
		return o.actionInput(op)
	case ActionSystem:
		return o.actionSystem(ctx, op, params)
	}

	// Unreachable: ParseAction rejected unknown categories above.
	return o.ProcessInput(ctx, action)
}

// actionMap drives the map layers directly; no pipeline re-entry.
func (o *Orchestrator) actionMap(op string) session.Message {
	var cmd mapcmd.Command
	var reply string

	switch op {
	case "heatmap-swing":
		cmd = mapcmd.Command{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricSwingPotential}
		reply = "Swing-potential heatmap is up. Darker precincts moved more between 2020 and 2024."
	case "heatmap-turnout":
		cmd = mapcmd.Command{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricTurnout}
		reply = "Turnout heatmap is up for the selected year."
	case "heatmap-persuasion":
		cmd = mapcmd.Command{Kind: mapcmd.KindHeatmap, Metric: mapcmd.MetricPersuasion}
		reply = "Persuasion heatmap is up. These are the split-ticket neighborhoods."
	case "clear":
		cmd = mapcmd.Command{Kind: mapcmd.KindClear}
		reply = "Cleared the map."
	default:
		return o.unknownOp(ActionMap, op)
	}

	o.emit(cmd)
	msg := session.NewAssistantMessage(reply)
	msg.Meta.MapCommands = []mapcmd.Command{cmd}
	if cmd.Kind == mapcmd.KindHeatmap {
		msg.Actions = []session.SuggestedAction{
			{ID: "map-canvass", Label: "Plan canvassing here", Action: "canvassing:plan"},
		}
	}
	return o.session.Messages.Append(msg)
}

// actionFilter applies or clears a segment filter. This is the one
// action that writes back to the cross-tool store: segment selection
// belongs to every panel, not just the chat.
func (o *Orchestrator) actionFilter(op string, params map[string]string) session.Message {
	switch op {
	case "clear":
		o.state.Dispatch(appstate.Event{
			Type:    appstate.EventFiltersChanged,
			Filters: &appstate.Filters{},
		})
		return o.appendSimple("Filters cleared.", nil, false)

	case "apply":
		segment := strings.ToLower(strings.TrimSpace(params["segment"]))
		if segment == "" {
			var acts []session.SuggestedAction
			for _, s := range handlers.Segments() {
				acts = append(acts, session.SuggestedAction{
					ID:     "filter-" + s,
					Label:  s,
					Action: "filter:apply",
					Params: map[string]string{"segment": s},
				})
				if len(acts) == 4 {
					break
				}
			}
			return o.appendSimple("Which segment should I filter to?", acts, false)
		}

		ids, ok := handlers.SegmentIDs(segment)
		if !ok {
			return o.appendSimple(
				fmt.Sprintf("I don't know a %q segment. I can filter by: %s.",
					segment, strings.Join(handlers.Segments(), ", ")),
				nil, true)
		}

		o.state.Dispatch(appstate.Event{
			Type:    appstate.EventFiltersChanged,
			Filters: &appstate.Filters{Segments: []string{segment}, MatchingIDs: ids},
		})
		cmd := mapcmd.Command{Kind: mapcmd.KindHighlight, PrecinctIDs: ids}
		o.emit(cmd)

		msg := session.NewAssistantMessage(
			fmt.Sprintf("Filtered to %s precincts: %s.", segment, strings.Join(ids, ", ")))
		msg.Meta.MapCommands = []mapcmd.Command{cmd}
		msg.Actions = []session.SuggestedAction{
			{ID: "filter-canvass", Label: "Plan canvassing here", Action: "canvassing:plan"},
			{ID: "filter-clear", Label: "Clear the filter", Action: "filter:clear"},
		}
		return o.session.Messages.Append(msg)

	default:
		return o.unknownOp(ActionFilter, op)
	}
}

// actionAnalyze explains a precinct's swing score. It falls back to
// the current selection when the button carried no precinct;
// handlers.ExplainScore supplies the ask-to-select reply when there
// is neither.
func (o *Orchestrator) actionAnalyze(op string, params map[string]string) session.Message {
	if op != "explain-score" {
		return o.unknownOp(ActionAnalyze, op)
	}

	id := params["precinctName"]
	if id == "" {
		id = params["precinct"]
	}
	snap := o.snapshot()
	if id == "" && snap.App.Selection.Active() {
		id = snap.App.Selection.IDs[0]
	}

	res := handlers.ExplainScore(id, snap)
	msg := o.session.Messages.Append(o.resultMessage(res, false))
	o.applyEffects(res)
	return msg
}

func (o *Orchestrator) actionCanvassing(ctx context.Context, op string) session.Message {
	if op != "plan" {
		return o.unknownOp(ActionCanvassing, op)
	}
	return o.ProcessInput(ctx, "plan a canvass for the current view")
}

// actionOutput builds and hands off a CSV without re-entering the
// pipeline; the button already names the dataset.
func (o *Orchestrator) actionOutput(ctx context.Context, op string, params map[string]string) session.Message {
	if op != "export-csv" {
		return o.unknownOp(ActionOutput, op)
	}

	dataset := params["dataset"]
	if dataset == "" {
		dataset = handlers.DatasetCurrentView
	}

	snap := o.snapshot()
	res := handlers.Result{
		Response: "Building the " + dataset + " CSV now; the download will start shortly.",
		Export:   &handlers.ExportRequest{Dataset: dataset, Format: "csv"},
	}
	res = o.interpretExport(ctx, res, snap)
	return o.session.Messages.Append(o.resultMessage(res, false))
}

// actionNavigate requests a tool switch; the dashboard owns routing
// and dispatches TOOL_VISITED itself once the tool opens.
func (o *Orchestrator) actionNavigate(op string, params map[string]string) session.Message {
	nav := handlers.Navigation{Target: op, Params: params}
	if o.navigate != nil {
		o.navigate(nav)
	}
	logging.Actions("navigate target=%s", op)
	return o.appendSimple(fmt.Sprintf("Opening the %s tool.", op), nil, false)
}

func (o *Orchestrator) actionReport(op string) session.Message {
	switch op {
	case "generate":
		res := o.reportResult(o.snapshot(), intent.ReportGenerate)
		return o.session.Messages.Append(o.resultMessage(res, false))
	case "history":
		res := o.historyResult()
		return o.session.Messages.Append(o.resultMessage(res, false))
	default:
		return o.unknownOp(ActionReport, op)
	}
}

// actionQuery re-enters the pipeline with the button's canned
// question; a missing q param falls back to the operation name.
func (o *Orchestrator) actionQuery(ctx context.Context, op string, params map[string]string) session.Message {
	q := params["q"]
	if q == "" {
		q = strings.ReplaceAll(op, "-", " ")
	}
	return o.ProcessInput(ctx, q)
}

// actionTemporal drives the time axis. The temporal mode itself lives
// in the dashboard's store; the assistant only emits the command.
func (o *Orchestrator) actionTemporal(op string, params map[string]string) session.Message {
	switch op {
	case "compare":
		from := atoiDefault(params["from"], 2020)
		to := atoiDefault(params["to"], o.cfg.Campaign.DefaultYear)
		cmd := mapcmd.Command{Kind: mapcmd.KindComparison, Years: []int{from, to}}
		o.emit(cmd)

		msg := session.NewAssistantMessage(fmt.Sprintf("Comparing %d against %d side by side.", from, to))
		msg.Meta.MapCommands = []mapcmd.Command{cmd}
		msg.Actions = []session.SuggestedAction{
			{ID: "temporal-report", Label: "Generate a briefing", Action: "report:generate"},
		}
		return o.session.Messages.Append(msg)

	case "year":
		year, err := strconv.Atoi(params["year"])
		if err != nil || !o.knownYear(year) {
			var acts []session.SuggestedAction
			for _, y := range o.cfg.Campaign.Years {
				ys := strconv.Itoa(y)
				acts = append(acts, session.SuggestedAction{
					ID:     "year-" + ys,
					Label:  ys,
					Action: "temporal:year",
					Params: map[string]string{"year": ys},
				})
			}
			return o.appendSimple("Which election year?", acts, false)
		}

		cmd := mapcmd.Command{Kind: mapcmd.KindTemporal, Year: year}
		o.emit(cmd)
		msg := session.NewAssistantMessage(fmt.Sprintf("Showing the %d general election.", year))
		msg.Meta.MapCommands = []mapcmd.Command{cmd}
		return o.session.Messages.Append(msg)

	default:
		return o.unknownOp(ActionTemporal, op)
	}
}

func (o *Orchestrator) actionWorkflow(op string, params map[string]string) session.Message {
	switch op {
	case "start":
		id := params["workflow"]
		if id == "" {
			return o.workflowList()
		}
		return o.StartWorkflow(id)
	case "list":
		return o.workflowList()
	default:
		return o.unknownOp(ActionWorkflow, op)
	}
}

// workflowList offers every registered starting point as a click.
func (o *Orchestrator) workflowList() session.Message {
	defs := workflow.Defaults()
	if o.registry != nil {
		defs = o.registry.List()
	}

	var b strings.Builder
	b.WriteString("Here's where we can start:\n")
	var acts []session.SuggestedAction
	for _, def := range defs {
		fmt.Fprintf(&b, "- **%s**: %s\n", def.Name, def.Description)
		acts = append(acts, session.SuggestedAction{
			ID:     "wf-" + def.ID,
			Label:  def.Name,
			Action: "workflow:start",
			Params: map[string]string{"workflow": def.ID},
		})
	}
	return o.appendSimple(b.String(), acts, false)
}

func (o *Orchestrator) actionInput(op string) session.Message {
	if op != "rephrase" {
		return o.unknownOp(ActionInput, op)
	}
	return o.appendSimple(
		`Try naming a precinct (DEL-6), a place (East Lansing), or a question like "compare turnout 2020 vs 2024".`,
		handlers.ContextualSuggestions(o.snapshot(), 2), false)
}

// actionSystem hosts the retry path for degraded escalations: the
// original query rides in the action params and resubmits verbatim.
func (o *Orchestrator) actionSystem(ctx context.Context, op string, params map[string]string) session.Message {
	if op != "retry" {
		return o.unknownOp(ActionSystem, op)
	}
	q := params["query"]
	if q == "" {
		return o.appendSimple("There's nothing to retry. Ask me something new or pick a suggestion.",
			handlers.ContextualSuggestions(o.snapshot(), 2), false)
	}
	return o.ProcessInput(ctx, q)
}

// unknownOp rejects an unrecognized operation within a known category.
func (o *Orchestrator) unknownOp(cat ActionCategory, op string) session.Message {
	logging.Actions("unknown operation %s:%s", cat, op)
	return o.appendSimple(fmt.Sprintf("I don't have a %s action called %q.", cat, op),
		handlers.ContextualSuggestions(o.snapshot(), 2), true)
}

// appendSimple appends a plain assistant reply.
func (o *Orchestrator) appendSimple(text string, actions []session.SuggestedAction, isErr bool) session.Message {
	msg := session.NewAssistantMessage(text)
	msg.Actions = actions
	msg.Meta.Error = isErr
	return o.session.Messages.Append(msg)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return def
	}
	return n
}

func (o *Orchestrator) knownYear(year int) bool {
	for _, y := range o.cfg.Campaign.Years {
		if y == year {
			return true
		}
	}
	return false
}
