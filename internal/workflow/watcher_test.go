package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHotReloadPicksUpEditedDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")

	reg, err := NewRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.List(), 5)

	w, err := NewWatcher(reg)
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`
workflows:
  - id: gotv-sprint
    name: GOTV Sprint
    description: Final-week door program.
    intro: Five days out.
`), 0644))

	require.Eventually(t, func() bool {
		_, ok := reg.Get("gotv-sprint")
		return ok
	}, 3*time.Second, 25*time.Millisecond, "hot reload never picked up the new definition")
}

func TestHotReloadKeepsPreviousOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workflows:
  - id: gotv-sprint
    name: GOTV Sprint
    description: Final-week door program.
    intro: Five days out.
`), 0644))

	reg, err := NewRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.List(), 6)

	w, err := NewWatcher(reg)
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("workflows: {broken"), 0644))

	// The bad write must not wipe the registry.
	time.Sleep(400 * time.Millisecond)
	require.Len(t, reg.List(), 6)
	_, ok := reg.Get("gotv-sprint")
	require.True(t, ok)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)

	w, err := NewWatcher(reg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
