// Package proactive runs the timer-driven suggestion side-channel: a
// rate-limited poller that may inject an unsolicited assistant message
// when the user has explored deeply enough to deserve one.
package proactive

import (
	"context"
	"sync"
	"time"

	"wardroom/internal/handlers"
	"wardroom/internal/logging"
	"wardroom/internal/session"
)

// Trigger is an unsolicited suggestion produced by a Source.
type Trigger struct {
	Message string
	Actions []session.SuggestedAction
}

// Source is the trigger-suggestion collaborator the engine polls once
// all gates pass. Returning (nil, nil) means nothing to say right now.
type Source interface {
	Check(ctx context.Context, snap handlers.Snapshot) (*Trigger, error)
}

// Host is the orchestrator surface the engine observes and emits into.
type Host interface {
	State() session.State
	Processing() bool
	UserTurns() int
	ContextSnapshot() handlers.Snapshot
	EmitProactive(t Trigger)
}

// Options bound the poller.
type Options struct {
	Enabled        bool
	PollInterval   time.Duration
	Cooldown       time.Duration
	MinUserTurns   int
	DepthThreshold int
}

// DefaultOptions matches the stock assistant: poll every 15s, one
// emission per minute, after two user turns and real exploration.
func DefaultOptions() Options {
	return Options{
		Enabled:        true,
		PollInterval:   15 * time.Second,
		Cooldown:       60 * time.Second,
		MinUserTurns:   2,
		DepthThreshold: 3,
	}
}

// Engine polls the gates on a fixed interval and emits at most one
// proactive message per cooldown window. Suggestions are non-critical:
// every fault in a poll is swallowed and logged.
type Engine struct {
	opts   Options
	source Source
	host   Host

	now func() time.Time

	mu       sync.Mutex
	lastEmit time.Time
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

// NewEngine wires a poller. It does not start it.
func NewEngine(opts Options, source Source, host Host) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultOptions().Cooldown
	}
	return &Engine{
		opts:   opts,
		source: source,
		host:   host,
		now:    time.Now,
	}
}

// Start launches the poll loop. Starting a running or disabled engine
// is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || !e.opts.Enabled {
		return
	}
	e.started = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	logging.Proactive("poller started (every %v, cooldown %v)", e.opts.PollInterval, e.opts.Cooldown)

	go e.loop(ctx, e.stop, e.done)
}

// Stop halts the poll loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
	logging.Proactive("poller stopped")
}

func (e *Engine) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll runs one gated check. Nothing here may take the turn down: a
// panicking source is recovered and logged like any other fault.
func (e *Engine) poll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logging.ProactiveWarn("suggestion check panicked: %v", r)
		}
	}()

	if e.host.State() != session.StateActive {
		return
	}
	if e.host.Processing() {
		return
	}

	e.mu.Lock()
	last := e.lastEmit
	e.mu.Unlock()
	if e.now().Sub(last) < e.opts.Cooldown {
		return
	}

	snap := e.host.ContextSnapshot()
	if snap.App.Exploration.DepthScore() <= e.opts.DepthThreshold {
		return
	}
	if e.host.UserTurns() < e.opts.MinUserTurns {
		return
	}

	trigger, err := e.source.Check(ctx, snap)
	if err != nil {
		logging.ProactiveWarn("suggestion check failed: %v", err)
		return
	}
	if trigger == nil {
		return
	}

	e.host.EmitProactive(*trigger)

	e.mu.Lock()
	e.lastEmit = e.now()
	e.mu.Unlock()

	logging.Proactive("emitted suggestion: %.60q", trigger.Message)
}
