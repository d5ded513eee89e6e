package escalate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"wardroom/internal/config"
	"wardroom/internal/handlers"
	"wardroom/internal/httpx"
	"wardroom/internal/logging"
	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// compressedPrefix marks window turns older than the verbatim tail.
const compressedPrefix = "[earlier] "

// chatTurn is the wire shape of one conversation window entry.
type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completion request body.
type chatRequest struct {
	Messages     []chatTurn `json:"messages"`
	Context      string     `json:"context"`
	CurrentQuery string     `json:"currentQuery"`
	IncludeData  bool       `json:"includeData"`
}

// chatResponse is the chat-completion response body.
type chatResponse struct {
	Content string `json:"content"`
}

// Request is everything one escalated turn carries to the channel.
type Request struct {
	// Query is the raw user text, appended as the window's final turn.
	Query string

	// Turns is the session history, oldest first. The channel bounds
	// and compresses it; callers pass what they have.
	Turns []handlers.Turn

	// ContextSummary is the opaque session-context line from the
	// application-state store.
	ContextSummary string

	// Snapshot feeds the degraded-path suggestions.
	Snapshot handlers.Snapshot

	// Workflow, when set, picks the follow-up actions attached to the
	// escalated answer.
	Workflow *session.WorkflowSelection
}

// Channel submits escalated turns to the remote model and converts the
// reply, or its absence, into a complete turn result.
type Channel struct {
	endpoint    string
	apiKey      string
	includeData bool

	client *http.Client
	retry  httpx.Policy

	maxTurns        int
	verbatimTurns   int
	compressedLimit int
}

// NewChannel builds a channel from the escalation config section. A
// nil client falls back to http.DefaultClient inside the retry wrapper.
func NewChannel(cfg config.EscalationConfig, retry httpx.Policy, client *http.Client) *Channel {
	return &Channel{
		endpoint:        cfg.Endpoint,
		apiKey:          cfg.APIKey,
		includeData:     cfg.IncludeData,
		client:          client,
		retry:           retry,
		maxTurns:        cfg.MaxTurns,
		verbatimTurns:   cfg.VerbatimTurns,
		compressedLimit: cfg.CompressedLimit,
	}
}

// Ask submits the turn to the remote model. It never returns an error:
// a channel failure degrades to a reply that offers a retry and keeps
// the conversation moving.
func (c *Channel) Ask(ctx context.Context, req Request) handlers.Result {
	body := chatRequest{
		Messages:     c.window(req.Turns, req.Query),
		Context:      req.ContextSummary,
		CurrentQuery: req.Query,
		IncludeData:  c.includeData,
	}

	data, err := json.Marshal(body)
	if err != nil {
		logging.EscalateError("failed to encode request: %v", err)
		return c.degraded(req)
	}

	logging.EscalateDebug("escalating %d-message window to %s", len(body.Messages), c.endpoint)

	resp, err := httpx.Do(ctx, c.client, func() (*http.Request, error) {
		r, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return r, nil
	}, c.retry)
	if err != nil {
		logging.EscalateError("escalation failed after retries: %v", err)
		return c.degraded(req)
	}

	var out chatResponse
	if err := httpx.DecodeJSON(resp, &out); err != nil {
		logging.EscalateError("escalation reply unusable: %v", err)
		return c.degraded(req)
	}

	content := strings.TrimSpace(out.Content)
	if content == "" {
		logging.EscalateError("escalation reply was empty")
		return c.degraded(req)
	}

	cmds := mapcmd.InferFromText(content)
	logging.Escalate("reply received (%d chars, %d inferred commands)", len(content), len(cmds))

	return handlers.Result{
		Response:    content,
		MapCommands: cmds,
		Actions:     defaultActions(req.Workflow, req.Snapshot),
	}
}

// window returns the bounded conversation window: the most recent
// maxTurns turns, everything older than the verbatim tail compressed
// to a prefixed short form, and the current query as the final turn.
func (c *Channel) window(turns []handlers.Turn, query string) []chatTurn {
	if c.maxTurns > 0 && len(turns) > c.maxTurns {
		turns = turns[len(turns)-c.maxTurns:]
	}

	verbatimFrom := len(turns) - c.verbatimTurns
	if verbatimFrom < 0 {
		verbatimFrom = 0
	}

	out := make([]chatTurn, 0, len(turns)+1)
	for i, t := range turns {
		content := t.Content
		if i < verbatimFrom {
			content = compressedPrefix + truncate(content, c.compressedLimit)
		}
		out = append(out, chatTurn{Role: t.Role, Content: content})
	}

	return append(out, chatTurn{Role: "user", Content: query})
}

// truncate bounds s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// degraded is the reply when the channel could not produce an answer:
// a retry carrying the original query, plus the top contextual
// suggestions so the turn still ends actionable.
func (c *Channel) degraded(req Request) handlers.Result {
	actions := []session.SuggestedAction{
		{
			ID:     "escalate-retry",
			Label:  "Try that again",
			Action: "system:retry",
			Params: map[string]string{"query": req.Query},
		},
	}
	actions = append(actions, handlers.ContextualSuggestions(req.Snapshot, 2)...)

	res := handlers.Result{
		Response: "I couldn't reach the analysis model just now. You can retry, or keep going with one of the suggestions below.",
		Actions:  actions,
	}
	res.SetMeta("degraded", true)
	return res
}

// defaultActions supplies the suggested actions for an escalated
// answer, which never carries its own: the active workflow decides the
// follow-ups, with snapshot-derived suggestions as the fallback.
func defaultActions(wf *session.WorkflowSelection, snap handlers.Snapshot) []session.SuggestedAction {
	if wf == nil {
		return handlers.ContextualSuggestions(snap, 3)
	}

	switch wf.ID {
	case "swing-detection":
		return []session.SuggestedAction{
			{ID: "esc-swing-map", Label: "Show the swing heatmap", Action: "map:heatmap-swing"},
			{ID: "esc-swing-canvass", Label: "Plan canvassing in swing turf", Action: "canvassing:plan"},
		}
	case "turnout-surge":
		return []session.SuggestedAction{
			{ID: "esc-turnout-compare", Label: "Compare 2020 vs 2022 falloff", Action: "temporal:compare", Params: map[string]string{"from": "2020", "to": "2022"}},
			{ID: "esc-turnout-map", Label: "Show turnout", Action: "map:heatmap-turnout"},
		}
	case "persuasion-targeting":
		return []session.SuggestedAction{
			{ID: "esc-persuasion-map", Label: "Map persuasion targets", Action: "map:heatmap-persuasion"},
			{ID: "esc-persuasion-report", Label: "Generate a targeting brief", Action: "report:generate"},
		}
	case "canvass-planning":
		return []session.SuggestedAction{
			{ID: "esc-canvass-plan", Label: "Build the walk list", Action: "canvassing:plan"},
			{ID: "esc-canvass-export", Label: "Export walk list", Action: "output:export-csv", Params: map[string]string{"dataset": "walk-list"}},
		}
	case "donor-outreach":
		return []session.SuggestedAction{
			{ID: "esc-donor-tool", Label: "Open the donors tool", Action: "navigate:donors"},
			{ID: "esc-donor-report", Label: "Generate an outreach brief", Action: "report:generate"},
		}
	}

	return handlers.ContextualSuggestions(snap, 3)
}
