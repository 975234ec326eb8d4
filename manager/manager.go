// Package manager creates and drives simulation runs. Each run owns a fully
// self-contained scheduler, so runs can execute sequentially or in parallel
// with no shared mutable state between them.
package manager

import (
	"context"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/strandsim/strand/sim"
)

// A ProcessSpec describes one initial process of a run.
type ProcessSpec struct {
	Name    string
	StartAt sim.VTime
	Body    sim.ProcessFunc
}

// A RunConfig describes one run: its seed, its bounds, and its initial
// process set. The zero value of MaxTime and MaxEvents means unbounded.
type RunConfig struct {
	Name      string
	Seed      int64
	MaxTime   sim.VTime
	MaxEvents uint64
	Processes []ProcessSpec
}

// A TerminalSnapshot is the state of a run after it reached a terminal
// outcome.
type TerminalSnapshot struct {
	RunID         string
	Name          string
	Seed          int64
	FinalClock    sim.VTime
	EventCount    uint64
	Outcome       sim.Outcome
	ProcessStates map[sim.ProcessID]sim.ProcessState

	// Err carries the diagnostic of an aborted run. Exhaustion is a normal
	// outcome and leaves Err nil.
	Err error
}

// A RunHandle refers to one created, not yet executed, run.
type RunHandle struct {
	id        string
	cfg       RunConfig
	scheduler *sim.Scheduler
	trace     *sim.TraceHook
}

// ID returns the run id.
func (h *RunHandle) ID() string {
	return h.id
}

// Scheduler exposes the run's scheduler, e.g. for attaching hooks before the
// run starts or inspecting state after it ends.
func (h *RunHandle) Scheduler() *sim.Scheduler {
	return h.scheduler
}

// Trace returns the recorded trace of the run, if tracing is enabled.
func (h *RunHandle) Trace() []sim.TraceEntry {
	if h.trace == nil {
		return nil
	}

	return h.trace.Entries
}

// A Manager owns zero or more independent runs, drives them to completion,
// and collects their terminal snapshots.
type Manager struct {
	log     *logrus.Logger
	store   *RunStore
	tracing bool

	mu      sync.Mutex
	runs    []*RunHandle
	results map[string]TerminalSnapshot
}

// NewRun creates a fresh scheduler seeded by the config and registers its
// initial processes in order.
func (m *Manager) NewRun(cfg RunConfig) *RunHandle {
	s := sim.NewScheduler(cfg.Seed)
	s.LimitTime(cfg.MaxTime)
	s.LimitEvents(cfg.MaxEvents)

	h := &RunHandle{
		id:        xid.New().String(),
		cfg:       cfg,
		scheduler: s,
	}

	if m.tracing || m.store != nil {
		h.trace = sim.NewTraceHook()
		s.AcceptHook(h.trace)
	}

	if m.log.IsLevelEnabled(logrus.DebugLevel) {
		s.AcceptHook(sim.NewEventLogger(m.log))
	}

	for _, spec := range cfg.Processes {
		s.SpawnAt(spec.Name, spec.Body, spec.StartAt)
	}

	m.mu.Lock()
	m.runs = append(m.runs, h)
	m.mu.Unlock()

	return h
}

// Run drives one run to completion and returns its terminal snapshot.
// Cancelling the context stops the run between events, leaving process
// states frozen.
func (m *Manager) Run(ctx context.Context, h *RunHandle) TerminalSnapshot {
	outcome, err := h.scheduler.Run(ctx)

	snap := TerminalSnapshot{
		RunID:         h.id,
		Name:          h.cfg.Name,
		Seed:          h.cfg.Seed,
		FinalClock:    h.scheduler.CurrentTime(),
		EventCount:    h.scheduler.EventCount(),
		Outcome:       outcome,
		ProcessStates: h.scheduler.Snapshot(),
		Err:           err,
	}

	m.log.WithFields(logrus.Fields{
		"run":     h.id,
		"name":    h.cfg.Name,
		"outcome": outcome.String(),
		"clock":   float64(snap.FinalClock),
		"events":  snap.EventCount,
	}).Info("run finished")

	if m.store != nil {
		m.store.Record(snap, h.Trace())
	}

	m.mu.Lock()
	m.results[h.id] = snap
	m.mu.Unlock()

	return snap
}

// RunAll executes the given runs, at most parallelism at a time, and returns
// their snapshots in handle order regardless of completion order. A
// parallelism below 1 runs everything sequentially. One run aborting or
// exhausting never affects another.
func (m *Manager) RunAll(
	ctx context.Context,
	handles []*RunHandle,
	parallelism int,
) []TerminalSnapshot {
	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > len(handles) {
		parallelism = len(handles)
	}

	snapshots := make([]TerminalSnapshot, len(handles))
	indexes := make(chan int, len(handles))
	for i := range handles {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				snapshots[i] = m.Run(ctx, handles[i])
			}
		}()
	}
	wg.Wait()

	return snapshots
}

// Result returns the snapshot of a finished run.
func (m *Manager) Result(runID string) (TerminalSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.results[runID]

	return snap, ok
}

// Runs returns all runs created so far, in creation order.
func (m *Manager) Runs() []*RunHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*RunHandle(nil), m.runs...)
}

// Close flushes the run store, if one is attached.
func (m *Manager) Close() {
	if m.store != nil {
		m.store.Close()
	}
}
