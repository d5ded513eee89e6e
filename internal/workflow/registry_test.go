package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardroom/internal/mapcmd"
)

func TestDefaultsCoverTheStockPlays(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	require.Len(t, reg.List(), 5)

	for _, id := range []string{
		"swing-detection",
		"turnout-surge",
		"persuasion-targeting",
		"canvass-planning",
		"donor-outreach",
	} {
		d, ok := reg.Get(id)
		require.True(t, ok, "missing %s", id)
		assert.NotEmpty(t, d.Name, id)
		assert.NotEmpty(t, d.Description, id)
		assert.NotEmpty(t, d.Intro, id)
	}
}

func TestSeedCommands(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	d, _ := reg.Get("swing-detection")
	cmds := d.SeedCommands()
	require.Len(t, cmds, 2)
	assert.Equal(t, mapcmd.KindHeatmap, cmds[0].Kind)
	assert.Equal(t, mapcmd.MetricSwingPotential, cmds[0].Metric)
	assert.Equal(t, mapcmd.KindHighlight, cmds[1].Kind)
	assert.Contains(t, cmds[1].PrecinctIDs, "DEL-6")

	d, _ = reg.Get("turnout-surge")
	cmds = d.SeedCommands()
	require.Len(t, cmds, 2)
	assert.Equal(t, mapcmd.KindHeatmap, cmds[0].Kind)
	assert.Equal(t, mapcmd.KindComparison, cmds[1].Kind)
	assert.Equal(t, []int{2020, 2022}, cmds[1].Years)

	d, _ = reg.Get("donor-outreach")
	cmds = d.SeedCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, mapcmd.KindFlyTo, cmds[0].Kind)
	assert.Equal(t, "Okemos", cmds[0].Place)
}

func TestSelectionCarriesPrompt(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	d, _ := reg.Get("turnout-surge")
	sel := d.Selection()
	assert.Equal(t, "turnout-surge", sel.ID)
	assert.Equal(t, d.Name, sel.Name)
	assert.Equal(t, d.InitialPrompt, sel.InitialPrompt)
}

func TestOverlayReplacesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workflows:
  - id: swing-detection
    name: Flip Watch
    description: Renamed by the field director.
    intro: Custom intro.
    seed_metric: swing_potential
  - id: gotv-sprint
    name: GOTV Sprint
    description: Final-week door program.
    intro: Five days out.
    highlight: [EL-1, EL-8]
`), 0644))

	reg, err := NewRegistry(path)
	require.NoError(t, err)

	d, ok := reg.Get("swing-detection")
	require.True(t, ok)
	assert.Equal(t, "Flip Watch", d.Name)

	d, ok = reg.Get("gotv-sprint")
	require.True(t, ok)
	assert.Equal(t, []string{"EL-1", "EL-8"}, d.Highlight)

	assert.Len(t, reg.List(), 6)
}

func TestMissingOverlayUsesDefaults(t *testing.T) {
	reg, err := NewRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Len(t, reg.List(), 5)
}

func TestMalformedOverlayFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflows: {not: a list}"), 0644))

	_, err := NewRegistry(path)
	require.Error(t, err)
}

func TestOverlayWithoutIDRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workflows:
  - name: No ID Here
    intro: oops
`), 0644))

	_, err := NewRegistry(path)
	require.Error(t, err)
}
