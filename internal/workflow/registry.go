// Package workflow holds the guided-analysis starting points: named
// definitions that seed a session's first map command and message. The
// built-ins cover the campaign's stock plays; a YAML overlay file can
// adjust them or add new ones, hot-reloaded while the app runs.
package workflow

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"wardroom/internal/logging"
	"wardroom/internal/mapcmd"
	"wardroom/internal/session"
)

// Definition is one guided workflow. Seed fields are plain strings so
// the overlay file stays writable by campaign staff; SeedCommands
// turns them into map commands.
type Definition struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	InitialPrompt string `yaml:"initial_prompt,omitempty"`

	// Intro is the assistant message that opens the workflow.
	Intro string `yaml:"intro"`

	// Seed state applied when the workflow starts.
	SeedMetric string   `yaml:"seed_metric,omitempty"`
	SeedPlace  string   `yaml:"seed_place,omitempty"`
	SeedYears  []int    `yaml:"seed_years,omitempty"`
	Highlight  []string `yaml:"highlight,omitempty"`
}

// Selection converts the definition into the session-facing record.
func (d Definition) Selection() session.WorkflowSelection {
	return session.WorkflowSelection{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		InitialPrompt: d.InitialPrompt,
	}
}

// SeedCommands derives the map commands that set the workflow's
// opening scene: camera move first, then the metric layer, then any
// comparison or highlight.
func (d Definition) SeedCommands() []mapcmd.Command {
	var cmds []mapcmd.Command

	if d.SeedPlace != "" {
		if fly, ok := mapcmd.LookupPlace(d.SeedPlace); ok {
			cmds = append(cmds, fly)
		}
	}
	if d.SeedMetric != "" && mapcmd.KnownMetric(d.SeedMetric) {
		kind := mapcmd.KindHeatmap
		if d.SeedMetric == mapcmd.MetricPartisanLean {
			kind = mapcmd.KindChoropleth
		}
		cmds = append(cmds, mapcmd.Command{Kind: kind, Metric: d.SeedMetric})
	}
	if len(d.SeedYears) == 2 {
		cmds = append(cmds, mapcmd.Command{Kind: mapcmd.KindComparison, Years: append([]int(nil), d.SeedYears...)})
	}
	if len(d.Highlight) > 0 {
		cmds = append(cmds, mapcmd.Command{Kind: mapcmd.KindHighlight, PrecinctIDs: append([]string(nil), d.Highlight...)})
	}
	return cmds
}

// Defaults returns the built-in workflow set, in display order.
func Defaults() []Definition {
	return []Definition{
		{
			ID:            "swing-detection",
			Name:          "Swing Detection",
			Description:   "Find the precincts most likely to move between elections.",
			InitialPrompt: "Show me the precincts with the highest swing potential",
			Intro:         "Swing potential is shaded across the county. The Delhi Township precincts stand out this cycle; select one and I'll unpack its score.",
			SeedMetric:    mapcmd.MetricSwingPotential,
			Highlight:     []string{"DEL-6", "DEL-2", "MER-9"},
		},
		{
			ID:            "turnout-surge",
			Name:          "Turnout Surge",
			Description:   "Spot presidential-to-midterm falloff worth chasing.",
			InitialPrompt: "Where did turnout fall off between 2020 and 2022?",
			Intro:         "Comparing 2020 against 2022 turnout. The student precincts drop hardest off-cycle; those doors are the surge opportunity.",
			SeedMetric:    mapcmd.MetricTurnout,
			SeedYears:     []int{2020, 2022},
		},
		{
			ID:            "persuasion-targeting",
			Name:          "Persuasion Targeting",
			Description:   "Rank precincts by persuadable-voter density.",
			InitialPrompt: "Which precincts have the most persuadable voters?",
			Intro:         "Persuasion scores are on the map. Tight-margin precincts with volatile history rank highest; ask me to explain any score.",
			SeedMetric:    mapcmd.MetricPersuasion,
		},
		{
			ID:            "canvass-planning",
			Name:          "Canvass Planning",
			Description:   "Turn target precincts into walkable turf with door counts.",
			InitialPrompt: "Plan a canvass for the top swing precincts",
			Intro:         "Here's suggested turf built from the top swing precincts. I can re-cut it around a segment filter or export the walk list.",
			Highlight:     []string{"DEL-6", "DEL-2", "MER-9"},
		},
		{
			ID:            "donor-outreach",
			Name:          "Donor Outreach",
			Description:   "Map giving history against the precinct grid.",
			InitialPrompt: "Show me where our donor base is concentrated",
			Intro:         "Donor density clusters around Okemos and East Lansing. Open the donors tool for household detail, or ask for an outreach brief.",
			SeedPlace:     "Okemos",
		},
	}
}

// definitionsFile is the overlay file shape.
type definitionsFile struct {
	Workflows []Definition `yaml:"workflows"`
}

// Registry is the workflow lookup the orchestrator and server share.
// Reload is safe against concurrent readers.
type Registry struct {
	mu   sync.RWMutex
	path string
	defs []Definition
	byID map[string]Definition
}

// NewRegistry builds a registry of the defaults overlaid with the
// definitions file at path, when one exists. A missing file is fine; a
// malformed one is an error so a bad deploy fails loudly.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the overlay file and rebuilds the definition set.
func (r *Registry) Reload() error {
	defs := Defaults()

	overlay, err := readOverlay(r.path)
	if err != nil {
		return err
	}
	defs = merge(defs, overlay)

	byID := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	r.mu.Lock()
	r.defs = defs
	r.byID = byID
	r.mu.Unlock()

	logging.Workflow("registry loaded: %d definitions (%d from overlay)", len(defs), len(overlay))
	return nil
}

func readOverlay(path string) ([]Definition, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read workflow definitions: %w", err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definitions: %w", err)
	}

	for i, d := range file.Workflows {
		if d.ID == "" {
			return nil, fmt.Errorf("workflow definition %d has no id", i)
		}
	}
	return file.Workflows, nil
}

// merge overlays file definitions onto the defaults: same ID replaces,
// new IDs append in file order.
func merge(defaults, overlay []Definition) []Definition {
	out := append([]Definition(nil), defaults...)
	for _, od := range overlay {
		replaced := false
		for i, d := range out {
			if d.ID == od.ID {
				out[i] = od
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, od)
		}
	}
	return out
}

// Get looks up a definition by ID.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// List returns the definitions in display order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Definition(nil), r.defs...)
}

// Path returns the overlay file path the registry reloads from.
func (r *Registry) Path() string {
	return r.path
}
