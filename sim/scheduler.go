package sim

import (
	"context"
	"fmt"
	"log"
)

// Outcome is the terminal result of one run.
type Outcome int

const (
	// OutcomeCompleted means the event queue drained with no process able to
	// make further progress.
	OutcomeCompleted Outcome = iota

	// OutcomeAborted means the caller cancelled the run, or an internal
	// consistency check failed.
	OutcomeAborted

	// OutcomeExhausted means a configured bound on virtual time or event
	// count was reached. Exhaustion is a normal terminal outcome, not an
	// error.
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "Completed"
	case OutcomeAborted:
		return "Aborted"
	case OutcomeExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

type runState int

const (
	runIdle runState = iota
	runRunning
	runFinished
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTime
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event) *EventHandle
}

// A Scheduler owns one clock, one event queue, and one set of processes, and
// drives a single simulation run. Within a run, execution is single-threaded
// and cooperative: the scheduler loop and the process bodies hand control to
// each other explicitly, so no two pieces of simulation logic ever run at
// the same instant.
//
// A Scheduler is a self-contained value. Independent Schedulers share
// nothing and can run on separate goroutines.
type Scheduler struct {
	HookableBase

	clock      VTime
	queue      *EventQueueImpl
	processes  map[ProcessID]*Process
	procOrder  []ProcessID
	conditions []*conditionReg
	nextProcID ProcessID

	rng *PartitionedRNG

	maxTime   VTime
	maxEvents uint64

	eventCount uint64
	state      runState
	outcome    Outcome
	err        error
	stopped    chan struct{}
}

// NewScheduler creates an idle Scheduler whose random number generator is
// seeded with the given seed.
func NewScheduler(seed int64) *Scheduler {
	s := new(Scheduler)

	s.queue = NewEventQueue()
	s.processes = make(map[ProcessID]*Process)
	s.rng = NewPartitionedRNG(seed)
	s.stopped = make(chan struct{})

	return s
}

// LimitTime bounds the run: the run ends with OutcomeExhausted instead of
// executing any event past time t. Zero means unbounded.
func (s *Scheduler) LimitTime(t VTime) {
	s.maxTime = t
}

// LimitEvents bounds the run to executing at most n events. Zero means
// unbounded.
func (s *Scheduler) LimitEvents(n uint64) {
	s.maxEvents = n
}

// CurrentTime returns the current virtual time. During the handling of an
// event, this equals the event's time.
func (s *Scheduler) CurrentTime() VTime {
	return s.clock
}

// EventCount returns the number of events executed so far.
func (s *Scheduler) EventCount() uint64 {
	return s.eventCount
}

// RNG returns the run's partitioned random number generator.
func (s *Scheduler) RNG() *PartitionedRNG {
	return s.rng
}

// Outcome returns the terminal outcome of the run. It is only meaningful
// after Run returns.
func (s *Scheduler) Outcome() Outcome {
	return s.outcome
}

// Schedule registers an event to fire in the future and returns a handle
// that can cancel it before it fires.
func (s *Scheduler) Schedule(evt Event) *EventHandle {
	if evt.Time() < s.clock {
		log.Panicf("scheduling an event at %v, earlier than current time %v",
			evt.Time(), s.clock)
	}

	return s.queue.Push(evt)
}

// Cancel removes a pending event before it fires. It returns false if the
// event already fired.
func (s *Scheduler) Cancel(h *EventHandle) bool {
	return s.queue.Cancel(h)
}

// ScheduleCallback schedules a plain function to run at time t.
func (s *Scheduler) ScheduleCallback(
	t VTime,
	priority int,
	fn func(now VTime),
) *EventHandle {
	evt := CallbackEvent{
		EventBase: MakeEventBase(t, priority, s),
		Callback:  fn,
	}

	return s.Schedule(evt)
}

// Spawn registers a process that starts at the current virtual time and
// returns its id.
func (s *Scheduler) Spawn(name string, body ProcessFunc) ProcessID {
	return s.SpawnAt(name, body, s.clock)
}

// SpawnAt registers a process whose body starts running at time t.
func (s *Scheduler) SpawnAt(name string, body ProcessFunc, t VTime) ProcessID {
	if t < s.clock {
		t = s.clock
	}

	id := s.nextProcID
	s.nextProcID++

	p := &Process{
		id:     id,
		name:   name,
		sched:  s,
		body:   body,
		resume: make(chan struct{}),
		parked: make(chan struct{}),
	}

	s.processes[id] = p
	s.procOrder = append(s.procOrder, id)

	p.setState(ProcessCreated)
	p.pending = s.scheduleWake(p, t, PriorityNormal)
	p.setState(ProcessScheduled)

	return id
}

// Process returns the process with the given id, or nil.
func (s *Scheduler) Process(id ProcessID) *Process {
	return s.processes[id]
}

// Snapshot returns the state of every registered process, in registration
// order of ids.
func (s *Scheduler) Snapshot() map[ProcessID]ProcessState {
	states := make(map[ProcessID]ProcessState, len(s.procOrder))
	for _, id := range s.procOrder {
		states[id] = s.processes[id].state
	}

	return states
}

// Run drives the main loop until the queue drains, a configured bound is
// reached, or the context is cancelled. Cancellation is observed between
// events; a process body is never interrupted mid-turn.
//
// Run can only be called once per Scheduler.
func (s *Scheduler) Run(ctx context.Context) (Outcome, error) {
	if s.state != runIdle {
		return s.outcome, fmt.Errorf("scheduler has already run")
	}
	s.state = runRunning

	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return s.finishRun(OutcomeAborted, err)
			}
		}

		if s.queue.Len() == 0 {
			return s.finishRun(OutcomeCompleted, nil)
		}

		if s.maxEvents > 0 && s.eventCount >= s.maxEvents {
			return s.finishRun(OutcomeExhausted, nil)
		}

		evt := s.queue.Pop()

		if s.maxTime > 0 && evt.Time() > s.maxTime {
			return s.finishRun(OutcomeExhausted, nil)
		}

		if evt.Time() < s.clock {
			return s.finishRun(OutcomeAborted, fmt.Errorf(
				"%w: event at %v, now %v",
				ErrCausalityViolation, evt.Time(), s.clock))
		}

		s.clock = evt.Time()

		hookCtx := HookCtx{
			Domain: s,
			Now:    s.clock,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		s.InvokeHook(hookCtx)

		_ = evt.Handler().Handle(evt)

		hookCtx.Pos = HookPosAfterEvent
		s.InvokeHook(hookCtx)

		s.eventCount++

		s.checkConditions()
	}
}

// Err returns the diagnostic of an aborted run, or nil.
func (s *Scheduler) Err() error {
	return s.err
}

// Handle dispatches the scheduler's own events: process wake-ups and plain
// callbacks.
func (s *Scheduler) Handle(e Event) error {
	switch evt := e.(type) {
	case wakeEvent:
		s.runProcess(evt.proc)
	case CallbackEvent:
		evt.Callback(s.clock)
	}

	return nil
}

// wakeEvent resumes a suspended process.
type wakeEvent struct {
	EventBase

	proc *Process
}

func (s *Scheduler) scheduleWake(
	p *Process,
	t VTime,
	priority int,
) *EventHandle {
	evt := wakeEvent{
		EventBase: MakeEventBase(t, priority, s),
		proc:      p,
	}

	return s.Schedule(evt)
}

// runProcess resumes one process and blocks until it suspends again or
// reaches a terminal state.
func (s *Scheduler) runProcess(p *Process) {
	p.pending = nil
	if p.state == ProcessWaiting {
		p.setState(ProcessScheduled)
	}
	p.setState(ProcessRunning)

	if !p.started {
		p.started = true
		go p.run()
	} else {
		p.resume <- struct{}{}
	}

	<-p.parked
}

// checkConditions re-evaluates every active WaitUntil registration and
// schedules a wake-up for each that is now satisfied.
func (s *Scheduler) checkConditions() {
	kept := s.conditions[:0]

	for _, reg := range s.conditions {
		if reg.cond() {
			reg.proc.pending = s.scheduleWake(
				reg.proc, s.clock, PriorityDeferred)
		} else {
			kept = append(kept, reg)
		}
	}

	s.conditions = kept
}

// finishRun records the terminal outcome and unwinds any process goroutine
// that is still suspended. Process states are frozen as they were when the
// run ended.
func (s *Scheduler) finishRun(outcome Outcome, err error) (Outcome, error) {
	s.state = runFinished
	s.outcome = outcome
	s.err = err

	close(s.stopped)

	return outcome, err
}
