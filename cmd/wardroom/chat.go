package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"wardroom/cmd/wardroom/ui"
	"wardroom/internal/appstate"
	"wardroom/internal/assistant"
	"wardroom/internal/escalate"
	"wardroom/internal/export"
	"wardroom/internal/handlers"
	"wardroom/internal/httpx"
	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
	"wardroom/internal/store"
	"wardroom/internal/workflow"
)

// chatShell is the line-oriented terminal surface. It drives the same
// orchestrator the HTTP host serves; map commands, navigation, and
// export downloads print inline instead of streaming to the dashboard.
type chatShell struct {
	styles   ui.Styles
	renderer *glamour.TermRenderer
	orch     *assistant.Orchestrator
	app      appstate.Store
	out      io.Writer

	// rendered counts the messages already printed, so replies appended
	// by events (selection cards, resubmits) surface exactly once.
	rendered int

	// numbered suggestions from the latest reply
	actions []session.SuggestedAction
}

func runChat(ctx context.Context) error {
	styles := ui.DefaultStyles()

	// Initialize markdown renderer
	var renderer *glamour.TermRenderer
	if styles.Theme.IsDark {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
	} else {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(80),
		)
	}

	registry, err := workflow.NewRegistry(resolvePath(cfg.Workflows.DefinitionsPath))
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	reports, err := store.NewReportStore(resolvePath(cfg.Store.DatabasePath))
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer reports.Close()

	policy := httpx.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.BaseDelay()}
	channel := escalate.NewChannel(cfg.Escalation, policy, &http.Client{Timeout: cfg.EscalationTimeout()})

	var provider export.DataProvider = export.LocalProvider{}
	if cfg.Export.DataEndpoint != "" {
		provider = &export.RESTProvider{Endpoint: cfg.Export.DataEndpoint, Policy: policy}
	}

	app := appstate.NewMemory(cfg.Campaign.DefaultYear)

	sh := &chatShell{
		styles:   styles,
		renderer: renderer,
		app:      app,
		out:      os.Stdout,
	}

	sh.orch = assistant.New(assistant.Deps{
		Config:    cfg,
		State:     app,
		Registry:  registry,
		Reports:   reports,
		Exporter:  export.NewBuilder(provider),
		Channel:   channel,
		MapSink:   sh.printMapCommand,
		Navigate:  sh.printNavigation,
		Downloads: sh.saveArtifact,
	})

	unbind := sh.orch.BindState(ctx)
	defer unbind()

	sh.banner()
	return sh.loop(ctx)
}

func (sh *chatShell) banner() {
	fmt.Fprintln(sh.out, sh.styles.Title.Render("wardroom"))
	fmt.Fprintln(sh.out, sh.styles.Subtitle.Render(fmt.Sprintf("%s · %s County, %s",
		cfg.Campaign.Name, cfg.Campaign.County, cfg.Campaign.State)))
	fmt.Fprintln(sh.out, sh.styles.Muted.Render("Ask a question, type a number to pick a suggestion, or :help for commands."))
	fmt.Fprintln(sh.out)
}

func (sh *chatShell) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(sh.out, sh.styles.Prompt.Render("you ▸")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(sh.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
			if quit := sh.command(ctx, line); quit {
				return nil
			}
			sh.renderNew("")

		case isNumber(line):
			sh.pickAction(ctx, line)
			sh.renderNew("")

		default:
			sh.orch.ProcessInput(ctx, line)
			sh.renderNew(line)
		}
	}
}

// command runs a colon command; true means leave the loop.
func (sh *chatShell) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":q", ":quit", ":exit":
		fmt.Fprintln(sh.out, sh.styles.Muted.Render("bye"))
		return true

	case ":help":
		sh.help()

	case ":reset":
		sh.orch.Reset()
		sh.actions = nil
		fmt.Fprintln(sh.out, sh.styles.Success.Render("session cleared"))

	case ":workflows":
		sh.orch.HandleAction(ctx, "workflow:list", nil)

	case ":start":
		if len(fields) < 2 {
			fmt.Fprintln(sh.out, sh.styles.Warning.Render("usage: :start <workflow-id>"))
			return false
		}
		sh.orch.StartWorkflow(fields[1])

	case ":select":
		if len(fields) < 2 {
			fmt.Fprintln(sh.out, sh.styles.Warning.Render("usage: :select <precinct-id>"))
			return false
		}
		sh.selectPrecinct(fields[1])

	case ":state":
		sh.printState()

	default:
		fmt.Fprintln(sh.out, sh.styles.Warning.Render("unknown command "+fields[0]+" (:help lists commands)"))
	}
	return false
}

func (sh *chatShell) help() {
	rows := [][2]string{
		{"<question>", "ask about precincts, segments, turnout, swing"},
		{"<number>", "pick a numbered suggestion from the last reply"},
		{"/highlight, /heatmap ...", "drive the map directly"},
		{":workflows", "list guided starting points"},
		{":start <id>", "start a workflow"},
		{":select <precinct-id>", "select a precinct as a map click would"},
		{":state", "show session state and explored context"},
		{":reset", "clear the conversation"},
		{":quit", "leave"},
	}
	for _, r := range rows {
		fmt.Fprintf(sh.out, "  %-34s %s\n", sh.styles.ActionKey.Render(r[0]), sh.styles.Muted.Render(r[1]))
	}
}

// pickAction dispatches a numbered suggestion from the latest reply.
func (sh *chatShell) pickAction(ctx context.Context, line string) {
	n, _ := strconv.Atoi(line)
	if n < 1 || n > len(sh.actions) {
		fmt.Fprintln(sh.out, sh.styles.Warning.Render(fmt.Sprintf("no suggestion #%d", n)))
		return
	}
	a := sh.actions[n-1]
	sh.orch.HandleAction(ctx, a.Action, a.Params)
}

// selectPrecinct dispatches the same event a map click on the
// dashboard would, so the feature card and selection-aware handlers
// behave identically here.
func (sh *chatShell) selectPrecinct(id string) {
	snap := sh.app.Snapshot()
	year := snap.Temporal.Year
	if year == 0 {
		year = cfg.Campaign.DefaultYear
	}
	feature, ok := handlers.PrecinctFeature(id, year)
	if !ok {
		fmt.Fprintln(sh.out, sh.styles.Warning.Render("no precinct "+strings.ToUpper(id)))
		return
	}
	sh.app.Dispatch(appstate.Event{Type: appstate.EventFeatureSelected, Feature: &feature})
}

func (sh *chatShell) printState() {
	wf := "none"
	if w := sh.orch.Session().Workflow(); w != nil {
		wf = w.ID
	}
	fmt.Fprintf(sh.out, "  %s %s\n", sh.styles.CardLabel.Render("state"), sh.orch.State())
	fmt.Fprintf(sh.out, "  %s %s\n", sh.styles.CardLabel.Render("workflow"), wf)
	fmt.Fprintf(sh.out, "  %s %s\n", sh.styles.CardLabel.Render("context"), sh.app.ContextSummary())
}

// renderNew prints every message appended since the last render.
// skipEcho swallows one user message matching the line just typed so
// the terminal doesn't echo it twice; resubmitted turns still show.
func (sh *chatShell) renderNew(skipEcho string) {
	msgs := sh.orch.Session().Messages.Messages()
	if len(msgs) < sh.rendered {
		sh.rendered = len(msgs)
	}
	for ; sh.rendered < len(msgs); sh.rendered++ {
		m := msgs[sh.rendered]
		if m.Role == session.RoleUser {
			if m.Content == skipEcho {
				skipEcho = ""
				continue
			}
			fmt.Fprintln(sh.out, sh.styles.Muted.Render("you ▸ "+m.Content))
			continue
		}
		sh.renderAssistant(m)
	}
}

func (sh *chatShell) renderAssistant(m session.Message) {
	if m.Card != nil {
		sh.renderCard(m.Card)
	} else if m.Content != "" {
		sh.printMarkdown(m.Content, m.Meta.Error)
	}

	if m.Meta.Chart != nil {
		sh.renderChart(m.Meta.Chart)
	}

	if tags := metaTags(m.Meta); len(tags) > 0 {
		fmt.Fprintln(sh.out, "  "+sh.styles.Muted.Render(strings.Join(tags, " · ")))
	}

	if len(m.Actions) > 0 {
		sh.actions = m.Actions
		for i, a := range m.Actions {
			fmt.Fprintf(sh.out, "  %s %s\n",
				sh.styles.ActionKey.Render(fmt.Sprintf("[%d]", i+1)),
				sh.styles.Action.Render(a.Label))
		}
	}
	fmt.Fprintln(sh.out)
}

func (sh *chatShell) printMarkdown(content string, isErr bool) {
	rendered := content
	if sh.renderer != nil {
		if out, err := sh.renderer.Render(content); err == nil {
			rendered = out
		}
	}
	rendered = strings.TrimRight(rendered, "\n")

	style := sh.styles.Assistant
	if isErr {
		style = style.BorderForeground(ui.Destructive)
	}
	fmt.Fprintln(sh.out, style.Render(rendered))
}

func (sh *chatShell) renderCard(c *session.FeatureCard) {
	lines := []string{
		sh.styles.Title.Render(c.Name),
		sh.styles.CardLabel.Render(fmt.Sprintf("%s · %s", c.PrecinctID, c.Jurisdiction)),
		fmt.Sprintf("%s %d   %s %.0f%%   %s %s   %s %.2f",
			sh.styles.CardLabel.Render("registered"), c.RegisteredVoters,
			sh.styles.CardLabel.Render(fmt.Sprintf("turnout %d", c.Year)), c.Turnout*100,
			sh.styles.CardLabel.Render("lean"), formatLean(c.PartisanLean),
			sh.styles.CardLabel.Render("swing"), c.SwingScore),
	}
	fmt.Fprintln(sh.out, sh.styles.Card.Render(strings.Join(lines, "\n")))
}

func (sh *chatShell) renderChart(c *session.Chart) {
	fmt.Fprintln(sh.out, "  "+sh.styles.Title.Render(c.Title))
	max := 0.0
	for _, v := range c.Values {
		if v > max {
			max = v
		}
	}
	for i, label := range c.Labels {
		if i >= len(c.Values) {
			break
		}
		v := c.Values[i]
		width := 0
		if max > 0 {
			width = int(v / max * 24)
		}
		fmt.Fprintf(sh.out, "  %-12s %s %.2f\n", label, sh.styles.Info.Render(strings.Repeat("▇", width)), v)
	}
}

// printMapCommand is the chat MapSink: what the dashboard map would do
// prints as a one-liner.
func (sh *chatShell) printMapCommand(cmd mapcmd.Command) {
	fmt.Fprintln(sh.out, sh.styles.MapEvent.Render("[map] "+describeCommand(cmd)))
}

func (sh *chatShell) printNavigation(n handlers.Navigation) {
	line := "[open] " + n.Target
	for k, v := range n.Params {
		line += fmt.Sprintf(" %s=%s", k, v)
	}
	fmt.Fprintln(sh.out, sh.styles.MapEvent.Render(line))
}

// saveArtifact is the chat download sink: built exports land under
// the workspace instead of the browser's download folder.
func (sh *chatShell) saveArtifact(a export.Artifact) {
	dir := filepath.Join(workspace, ".wardroom", "exports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintln(sh.out, sh.styles.Error.Render("export failed: "+err.Error()))
		return
	}
	path := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		fmt.Fprintln(sh.out, sh.styles.Error.Render("export failed: "+err.Error()))
		return
	}
	fmt.Fprintln(sh.out, sh.styles.Success.Render("saved "+path))
}

func describeCommand(c mapcmd.Command) string {
	switch c.Kind {
	case mapcmd.KindHighlight:
		return "highlight " + strings.Join(c.PrecinctIDs, ", ")

	case mapcmd.KindFlyTo:
		if c.Place != "" {
			return "flyto " + c.Place
		}
		if c.Center != nil {
			return fmt.Sprintf("flyto %.4f,%.4f zoom=%.1f", c.Center.Lng, c.Center.Lat, c.Zoom)
		}
		return "flyto"

	case mapcmd.KindHeatmap, mapcmd.KindChoropleth:
		s := string(c.Kind)
		if c.Metric != "" {
			s += " metric=" + c.Metric
		}
		if c.Year != 0 {
			s += fmt.Sprintf(" year=%d", c.Year)
		}
		return s

	case mapcmd.KindTemporal:
		return fmt.Sprintf("temporal year=%d", c.Year)

	case mapcmd.KindComparison:
		parts := make([]string, len(c.Years))
		for i, y := range c.Years {
			parts[i] = strconv.Itoa(y)
		}
		return "comparison years=" + strings.Join(parts, "/")

	case mapcmd.KindBuffer:
		return fmt.Sprintf("buffer %.0fm", c.RadiusMeters)

	case mapcmd.KindRoute, mapcmd.KindMarkers, mapcmd.KindClusters:
		s := string(c.Kind)
		if c.Label != "" {
			s += " " + c.Label
		}
		if len(c.Locations) > 0 {
			s += fmt.Sprintf(" (%d points)", len(c.Locations))
		}
		return s

	default:
		return string(c.Kind)
	}
}

func metaTags(meta session.Meta) []string {
	var tags []string
	if meta.Workflow != "" {
		tags = append(tags, "workflow "+meta.Workflow)
	}
	if meta.Escalated {
		tags = append(tags, "escalated")
	}
	if meta.Proactive {
		tags = append(tags, "suggestion")
	}
	if meta.Error {
		tags = append(tags, "error")
	}
	return tags
}

func formatLean(lean float64) string {
	pts := lean * 100
	switch {
	case pts >= 0.5:
		return fmt.Sprintf("D+%.0f", pts)
	case pts <= -0.5:
		return fmt.Sprintf("R+%.0f", -pts)
	default:
		return "even"
	}
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
