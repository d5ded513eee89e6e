package proactive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"wardroom/internal/appstate"
	"wardroom/internal/handlers"
	"wardroom/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeHost struct {
	mu         sync.Mutex
	state      session.State
	processing bool
	userTurns  int
	snap       handlers.Snapshot
	emitted    []Trigger
}

func (h *fakeHost) State() session.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *fakeHost) Processing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.processing
}

func (h *fakeHost) UserTurns() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userTurns
}

func (h *fakeHost) ContextSnapshot() handlers.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

func (h *fakeHost) EmitProactive(t Trigger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitted = append(h.emitted, t)
}

func (h *fakeHost) emittedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.emitted)
}

// deepHost passes every gate: active, idle, explored, chatty.
func deepHost() *fakeHost {
	return &fakeHost{
		state:     session.StateActive,
		userTurns: 3,
		snap: handlers.Snapshot{App: appstate.Snapshot{
			Exploration: appstate.Exploration{PrecinctsViewed: 2, FiltersApplied: 1, ToolsVisited: 1},
		}},
	}
}

type fakeSource struct {
	mu      sync.Mutex
	trigger *Trigger
	err     error
	panics  bool
	calls   int
}

func (s *fakeSource) Check(_ context.Context, _ handlers.Snapshot) (*Trigger, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("source blew up")
	}
	return s.trigger, s.err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func suggestion() *Trigger {
	return &Trigger{Message: "try comparing years"}
}

func TestPollEmitsWhenGatesPass(t *testing.T) {
	host := deepHost()
	src := &fakeSource{trigger: suggestion()}
	e := NewEngine(DefaultOptions(), src, host)

	e.poll(context.Background())

	if host.emittedCount() != 1 {
		t.Fatalf("emitted = %d, want 1", host.emittedCount())
	}
	if host.emitted[0].Message != "try comparing years" {
		t.Errorf("message = %q", host.emitted[0].Message)
	}
}

func TestPollHonorsCooldown(t *testing.T) {
	host := deepHost()
	src := &fakeSource{trigger: suggestion()}
	e := NewEngine(DefaultOptions(), src, host)

	clock := time.Now()
	e.now = func() time.Time { return clock }

	e.poll(context.Background())
	e.poll(context.Background())
	if host.emittedCount() != 1 {
		t.Fatalf("cooldown ignored: emitted = %d", host.emittedCount())
	}

	clock = clock.Add(61 * time.Second)
	e.poll(context.Background())
	if host.emittedCount() != 2 {
		t.Errorf("cooldown never re-armed: emitted = %d", host.emittedCount())
	}
}

func TestPollGates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *fakeHost)
	}{
		{"welcome state", func(h *fakeHost) { h.state = session.StateWelcome }},
		{"loading state", func(h *fakeHost) { h.state = session.StateLoading }},
		{"processing a turn", func(h *fakeHost) { h.processing = true }},
		{"shallow exploration", func(h *fakeHost) {
			h.snap.App.Exploration = appstate.Exploration{PrecinctsViewed: 3}
		}},
		{"too few user turns", func(h *fakeHost) { h.userTurns = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := deepHost()
			tt.setup(host)
			src := &fakeSource{trigger: suggestion()}
			e := NewEngine(DefaultOptions(), src, host)

			e.poll(context.Background())

			if host.emittedCount() != 0 {
				t.Errorf("gate did not hold: emitted %d", host.emittedCount())
			}
		})
	}
}

func TestDepthThresholdIsStrict(t *testing.T) {
	// Depth equal to the threshold stays quiet; one past it speaks.
	host := deepHost()
	host.snap.App.Exploration = appstate.Exploration{PrecinctsViewed: 3} // depth 3
	src := &fakeSource{trigger: suggestion()}
	e := NewEngine(DefaultOptions(), src, host)

	e.poll(context.Background())
	if src.callCount() != 0 {
		t.Error("source consulted at threshold depth")
	}

	host.mu.Lock()
	host.snap.App.Exploration.PrecinctsViewed = 4
	host.mu.Unlock()

	e.poll(context.Background())
	if src.callCount() != 1 {
		t.Errorf("source calls = %d, want 1", src.callCount())
	}
}

func TestSourceErrorIsSwallowed(t *testing.T) {
	host := deepHost()
	src := &fakeSource{err: errors.New("collaborator offline")}
	e := NewEngine(DefaultOptions(), src, host)

	e.poll(context.Background())

	if host.emittedCount() != 0 {
		t.Error("error path must not emit")
	}
}

func TestSourcePanicIsSwallowed(t *testing.T) {
	host := deepHost()
	src := &fakeSource{panics: true}
	e := NewEngine(DefaultOptions(), src, host)

	e.poll(context.Background()) // must not propagate

	if host.emittedCount() != 0 {
		t.Error("panic path must not emit")
	}
}

func TestNilTriggerStaysQuiet(t *testing.T) {
	host := deepHost()
	src := &fakeSource{}
	e := NewEngine(DefaultOptions(), src, host)

	e.poll(context.Background())

	if host.emittedCount() != 0 {
		t.Error("nil trigger emitted")
	}
	if src.callCount() != 1 {
		t.Errorf("source calls = %d, want 1", src.callCount())
	}
}

func TestStartStopLeavesNoGoroutine(t *testing.T) {
	opts := DefaultOptions()
	opts.PollInterval = 2 * time.Millisecond

	host := deepHost()
	e := NewEngine(opts, &fakeSource{trigger: suggestion()}, host)

	e.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	e.Stop()

	if host.emittedCount() != 1 {
		t.Errorf("ticker never fired or cooldown broke: emitted = %d", host.emittedCount())
	}
	// TestMain's goleak check catches a leaked loop goroutine.
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	e := NewEngine(DefaultOptions(), &fakeSource{}, deepHost())
	e.Stop()
	e.Stop()
}

func TestDisabledEngineNeverStarts(t *testing.T) {
	opts := DefaultOptions()
	opts.Enabled = false
	opts.PollInterval = time.Millisecond

	host := deepHost()
	e := NewEngine(opts, &fakeSource{trigger: suggestion()}, host)

	e.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	e.Stop()

	if host.emittedCount() != 0 {
		t.Errorf("disabled engine emitted %d", host.emittedCount())
	}
}

func TestInsightSourceRules(t *testing.T) {
	src := InsightSource{}

	snap := handlers.Snapshot{App: appstate.Snapshot{
		Exploration: appstate.Exploration{PrecinctsViewed: 4},
	}}
	trig, err := src.Check(context.Background(), snap)
	if err != nil || trig == nil {
		t.Fatalf("precinct-hopping rule: trig=%v err=%v", trig, err)
	}
	if len(trig.Actions) == 0 {
		t.Error("trigger should carry actions")
	}

	snap = handlers.Snapshot{App: appstate.Snapshot{
		Exploration: appstate.Exploration{FiltersApplied: 2},
	}}
	trig, _ = src.Check(context.Background(), snap)
	if trig == nil || trig.Actions[0].Action != "temporal:compare" {
		t.Errorf("filter rule: %+v", trig)
	}

	trig, _ = src.Check(context.Background(), handlers.Snapshot{})
	if trig != nil {
		t.Errorf("quiet snapshot produced %+v", trig)
	}
}
