// Package runner executes agent turns in response to triggers from the
// event log. A single dispatch loop drains the trigger channel, applies the
// cooldown and cascade-depth gates, and hands accepted triggers to worker
// goroutines bounded by a permit pool.
package runner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/eventlog"
	"github.com/mistakeknot/hivemind/internal/observer"
	"github.com/mistakeknot/hivemind/internal/swarm"
)

// Turn is everything an executor gets for one agent turn. Emit appends an
// event through the log mid-turn; emitted events inherit the turn's
// correlation id and run one cascade level deeper.
type Turn struct {
	State   core.AgentState
	Trigger core.Trigger
	History []core.Event
	Emit    func(ev core.Event) (core.Event, error)
}

// Result is what a completed turn hands back. State is persisted verbatim.
type Result struct {
	State   core.AgentState
	Summary string
}

// Executor runs one agent turn. Implementations decide what a turn actually
// does; the runner only cares about gating, lifecycle, and state.
type Executor interface {
	ExecuteTurn(ctx context.Context, turn *Turn) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, turn *Turn) (Result, error)

func (f ExecutorFunc) ExecuteTurn(ctx context.Context, turn *Turn) (Result, error) {
	return f(ctx, turn)
}

// Config holds the runner gates.
type Config struct {
	// MaxConcurrency bounds simultaneously executing turns.
	MaxConcurrency int
	// MaxTriggerDepth is the deepest cascade level allowed to execute.
	// 0 means only root triggers run.
	MaxTriggerDepth int
	// TriggerCooldown is the minimum gap between accepted triggers for one
	// agent. 0 disables the gate.
	TriggerCooldown time.Duration
	// HistoryLimit caps how many recent events a turn sees. 0 uses the
	// default of 100.
	HistoryLimit int
}

// Runner owns the dispatch loop.
type Runner struct {
	cfg      Config
	elog     *eventlog.Log
	states   *swarm.StateStore
	executor Executor
	bus      *observer.Bus

	nowFunc func() time.Time // for testing

	permits chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	turnCtx    context.Context
	turnCancel context.CancelFunc

	mu          sync.Mutex
	lastTrigger map[string]time.Time
}

// New creates a runner. bus may be nil.
func New(cfg Config, elog *eventlog.Log, states *swarm.StateStore, executor Executor, bus *observer.Bus) *Runner {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 4
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:         cfg,
		elog:        elog,
		states:      states,
		executor:    executor,
		bus:         bus,
		nowFunc:     time.Now,
		permits:     make(chan struct{}, cfg.MaxConcurrency),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		turnCtx:     ctx,
		turnCancel:  cancel,
		lastTrigger: make(map[string]time.Time),
	}
}

// Run starts the dispatch loop. It returns immediately; call Stop to shut
// down.
func (r *Runner) Run() {
	go r.dispatch()
}

// Stop cancels in-flight turns, stops the dispatch loop, and waits for all
// workers to drain. The log's fan-out is closed first: nothing consumes
// triggers once the dispatch loop exits, so appends from draining turns
// must not block on a full buffer. Their events still persist.
func (r *Runner) Stop() {
	r.once.Do(func() {
		close(r.stop)
		r.turnCancel()
		r.elog.Close()
	})
	<-r.done
	r.wg.Wait()
}

func (r *Runner) dispatch() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case trig := <-r.elog.Triggers():
			r.handle(trig)
		}
	}
}

// handle applies the gates in order (depth, then cooldown) and launches a
// worker for accepted triggers. Depth runs first so a beyond-limit trigger
// always produces its cascade.limit warning, even when the agent is also
// inside its cooldown window. Skips are final: a skipped trigger is never
// retried.
func (r *Runner) handle(trig core.Trigger) {
	now := r.nowFunc()

	if trig.Depth > r.cfg.MaxTriggerDepth {
		log.Printf("runner: skipping trigger for %s (event %d): depth %d exceeds %d",
			trig.AgentID, trig.EventID, trig.Depth, r.cfg.MaxTriggerDepth)
		r.publishSkip(trig, observer.SkipDepth)
		r.announceCascadeLimit(trig)
		return
	}
	if r.cfg.TriggerCooldown > 0 {
		r.mu.Lock()
		last, ok := r.lastTrigger[trig.AgentID]
		r.mu.Unlock()
		if ok && now.Sub(last) < r.cfg.TriggerCooldown {
			log.Printf("runner: skipping trigger for %s (event %d): cooldown", trig.AgentID, trig.EventID)
			r.publishSkip(trig, observer.SkipCooldown)
			return
		}
	}
	r.mu.Lock()
	r.lastTrigger[trig.AgentID] = now
	r.mu.Unlock()

	// Blocking acquire: a saturated pool applies backpressure to dispatch
	// instead of dropping triggers.
	select {
	case r.permits <- struct{}{}:
	case <-r.stop:
		return
	}

	corr := trig.Event.CorrelationID
	if corr == "" {
		corr = uuid.NewString()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.permits }()
		r.executeTurn(trig, corr)
	}()
}

// announceCascadeLimit appends the warning event for a depth skip. Skipped
// cascade-limit events don't produce another warning, otherwise a
// subscription matching the warning type would loop forever.
func (r *Runner) announceCascadeLimit(trig core.Trigger) {
	if trig.Event.Type == core.EventCascadeLimit {
		return
	}
	_, err := r.elog.AppendCascade(context.Background(), core.Event{
		Type:          core.EventCascadeLimit,
		GraphID:       trig.Event.GraphID,
		CorrelationID: trig.Event.CorrelationID,
		Payload: map[string]any{
			"agent_id": trig.AgentID,
			"event_id": trig.EventID,
			"depth":    trig.Depth,
			"limit":    r.cfg.MaxTriggerDepth,
		},
	}, trig.Depth)
	if err != nil {
		log.Printf("runner: append cascade limit event: %v", err)
	}
}

func (r *Runner) publishSkip(trig core.Trigger, reason string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(observer.Notification{
		Event:   trig.Event,
		Skipped: []observer.Skip{{AgentID: trig.AgentID, Reason: reason}},
	})
}

// executeTurn runs one turn end to end: agent-started event, executor,
// state persistence, completion or failure event. Executor errors are
// recorded, never propagated; the dispatch loop must survive anything an
// executor does.
func (r *Runner) executeTurn(trig core.Trigger, corr string) {
	agentID := trig.AgentID

	state, err := r.states.Load(agentID)
	if err != nil {
		log.Printf("runner: load state for %s: %v, starting empty", agentID, err)
		state = core.AgentState{AgentID: agentID}
	}

	r.lifecycleEvent(core.Event{
		Type:          core.EventAgentStarted,
		GraphID:       trig.Event.GraphID,
		FromAgent:     agentID,
		CorrelationID: corr,
		Payload:       map[string]any{"trigger_event_id": trig.EventID},
	}, trig.Depth)

	history, err := r.elog.Replay(r.turnCtx, 0, trig.Event.GraphID)
	if err != nil {
		log.Printf("runner: replay history for %s: %v", agentID, err)
	}
	if n := len(history); n > r.cfg.HistoryLimit {
		history = history[n-r.cfg.HistoryLimit:]
	}

	turn := &Turn{
		State:   state,
		Trigger: trig,
		History: history,
		Emit: func(ev core.Event) (core.Event, error) {
			if ev.FromAgent == "" {
				ev.FromAgent = agentID
			}
			if ev.GraphID == "" {
				ev.GraphID = trig.Event.GraphID
			}
			ev.CorrelationID = corr
			return r.elog.AppendCascade(r.turnCtx, ev, trig.Depth+1)
		},
	}

	result, execErr := r.safeExecute(turn)

	// State is persisted on failure too: a crashed turn keeps whatever it
	// learned before crashing.
	persisted := result.State
	if execErr != nil {
		persisted = turn.State
	}
	persisted.AgentID = agentID
	if err := r.states.Save(persisted); err != nil {
		log.Printf("runner: save state for %s: %v", agentID, err)
	}

	if execErr != nil {
		r.lifecycleEvent(core.Event{
			Type:          core.EventAgentFailed,
			GraphID:       trig.Event.GraphID,
			FromAgent:     agentID,
			CorrelationID: corr,
			Payload:       map[string]any{"trigger_event_id": trig.EventID, "error": execErr.Error()},
		}, trig.Depth)
		return
	}
	r.lifecycleEvent(core.Event{
		Type:          core.EventAgentCompleted,
		GraphID:       trig.Event.GraphID,
		FromAgent:     agentID,
		CorrelationID: corr,
		Payload:       map[string]any{"trigger_event_id": trig.EventID, "summary": result.Summary},
	}, trig.Depth)
}

// safeExecute shields the dispatch machinery from panicking executors.
func (r *Runner) safeExecute(turn *Turn) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("executor panic: %v", rec)
		}
	}()
	return r.executor.ExecuteTurn(r.turnCtx, turn)
}

// lifecycleEvent appends a runner-emitted event at one level below the
// turn, the same as anything the turn emits itself. A background context is
// used so completion records survive shutdown.
func (r *Runner) lifecycleEvent(ev core.Event, turnDepth int) {
	if _, err := r.elog.AppendCascade(context.Background(), ev, turnDepth+1); err != nil {
		log.Printf("runner: append %s event: %v", ev.Type, err)
	}
}
