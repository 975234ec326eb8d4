package sim

import (
	"errors"
	"fmt"
)

// ProcessID identifies a process within one Scheduler. IDs are assigned
// sequentially in registration order.
type ProcessID uint64

// ProcessState is the lifecycle state of a process.
type ProcessState int

// The states a process moves through. A process is Created when registered,
// Scheduled when it has an event that will start or resume it, Running while
// its body executes, and Waiting while suspended at a yield point. Terminated
// and Failed are terminal.
const (
	ProcessCreated ProcessState = iota
	ProcessScheduled
	ProcessRunning
	ProcessWaiting
	ProcessTerminated
	ProcessFailed
)

func (s ProcessState) String() string {
	switch s {
	case ProcessCreated:
		return "Created"
	case ProcessScheduled:
		return "Scheduled"
	case ProcessRunning:
		return "Running"
	case ProcessWaiting:
		return "Waiting"
	case ProcessTerminated:
		return "Terminated"
	case ProcessFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal returns true if the state is Terminated or Failed.
func (s ProcessState) Terminal() bool {
	return s == ProcessTerminated || s == ProcessFailed
}

// ProcessFunc is the body of a process. It runs cooperatively: it only gives
// up control at the yield points Timeout, At, WaitFor, WaitUntil, and Yield.
// Returning a non-nil error, or panicking, fails the process; other processes
// are not affected.
type ProcessFunc func(p *Process) error

// errRunStopped unwinds process goroutines that are still suspended when a
// run reaches a terminal outcome.
var errRunStopped = errors.New("run stopped")

// processFailure carries the error that fails the requesting process when a
// request itself is unrecoverable, such as waiting for an unknown process.
type processFailure struct {
	err error
}

// A Process is a cooperative unit of simulation logic. Its body runs on a
// dedicated goroutine, but control is handed over strictly: either the
// scheduler loop or exactly one process body is executing at any instant.
type Process struct {
	id    ProcessID
	name  string
	state ProcessState
	sched *Scheduler
	body  ProcessFunc

	started bool
	resume  chan struct{}
	parked  chan struct{}

	pending *EventHandle
	waiters []*Process
	failure error
}

// ID returns the process id.
func (p *Process) ID() ProcessID {
	return p.id
}

// Name returns the process name.
func (p *Process) Name() string {
	return p.name
}

// State returns the current lifecycle state of the process.
func (p *Process) State() ProcessState {
	return p.state
}

// Err returns the failure of the process, or nil if it has not failed.
func (p *Process) Err() error {
	return p.failure
}

// Now returns the current virtual time of the owning scheduler.
func (p *Process) Now() VTime {
	return p.sched.CurrentTime()
}

// RNG returns the owning scheduler's partitioned random number generator.
func (p *Process) RNG() *PartitionedRNG {
	return p.sched.RNG()
}

// Spawn registers a child process that starts at the current virtual time.
func (p *Process) Spawn(name string, body ProcessFunc) ProcessID {
	return p.sched.Spawn(name, body)
}

// Timeout suspends the process until the clock reaches now+d. A negative
// duration is rejected with ErrInvalidDuration and the process keeps running.
func (p *Process) Timeout(d VTime) error {
	if d < 0 {
		return fmt.Errorf("%w: negative timeout %v", ErrInvalidDuration, d)
	}

	p.pending = p.sched.scheduleWake(p, p.sched.clock+d, PriorityNormal)
	p.park()

	return nil
}

// At suspends the process until the clock reaches the absolute time t. A
// time earlier than the current clock is rejected with ErrInvalidDuration.
func (p *Process) At(t VTime) error {
	if t < p.sched.clock {
		return fmt.Errorf("%w: time %v is in the past, now %v",
			ErrInvalidDuration, t, p.sched.clock)
	}

	p.pending = p.sched.scheduleWake(p, t, PriorityNormal)
	p.park()

	return nil
}

// Yield gives up the current turn without advancing time. The process
// resumes at the same clock value, after all currently queued same-time
// events of lower or equal priority have run.
func (p *Process) Yield() error {
	p.pending = p.sched.scheduleWake(p, p.sched.clock, PriorityNormal)
	p.park()

	return nil
}

// WaitFor suspends the process until the target process is Terminated or
// Failed. It returns the target's terminal state together with its failure,
// if any, so the waiter can decide locally how to react. If the target is
// already terminal, the wake-up is still scheduled through the event queue,
// at the current clock with deferred priority; the waiter is never resumed
// on the target's (or its own) stack frame. Waiting for an unknown id fails
// this process immediately.
func (p *Process) WaitFor(id ProcessID) (ProcessState, error) {
	target, ok := p.sched.processes[id]
	if !ok {
		panic(processFailure{
			err: fmt.Errorf("%w: id %d", ErrUnknownProcess, id),
		})
	}

	if target.state.Terminal() {
		p.pending = p.sched.scheduleWake(p, p.sched.clock, PriorityDeferred)
	} else {
		target.waiters = append(target.waiters, p)
	}

	p.park()

	return target.state, target.failure
}

// WaitUntil suspends the process until the condition evaluates true. The
// condition is evaluated once at registration and then after every fired
// event. There is no implicit timeout: if the condition never becomes true,
// the process stays Waiting for the rest of the run.
func (p *Process) WaitUntil(cond func() bool) error {
	if cond == nil {
		return fmt.Errorf("wait until: nil condition")
	}

	if cond() {
		p.pending = p.sched.scheduleWake(p, p.sched.clock, PriorityDeferred)
	} else {
		p.sched.conditions = append(p.sched.conditions,
			&conditionReg{proc: p, cond: cond})
	}

	p.park()

	return nil
}

// park hands control back to the scheduler loop and blocks until the
// scheduler resumes this process. If the run ends first, the goroutine is
// unwound.
func (p *Process) park() {
	p.setState(ProcessWaiting)
	p.parked <- struct{}{}

	select {
	case <-p.resume:
	case <-p.sched.stopped:
		panic(errRunStopped)
	}
}

// run executes the process body on its own goroutine and records the
// terminal state.
func (p *Process) run() {
	var err error

	unwound := false

	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			if failure, ok := r.(processFailure); ok {
				err = failure.err
				return
			}

			if e, ok := r.(error); ok && errors.Is(e, errRunStopped) {
				unwound = true
				return
			}

			err = fmt.Errorf("process panic: %v", r)
		}()

		err = p.body(p)
	}()

	if unwound {
		return
	}

	p.finish(err)
}

// finish records the terminal state, wakes the processes waiting on this
// one, and returns control to the scheduler loop for the last time.
func (p *Process) finish(err error) {
	if err != nil {
		p.failure = err
		p.setState(ProcessFailed)
	} else {
		p.setState(ProcessTerminated)
	}

	for _, waiter := range p.waiters {
		waiter.pending = p.sched.scheduleWake(
			waiter, p.sched.clock, PriorityDeferred)
	}
	p.waiters = nil

	p.parked <- struct{}{}
}

func (p *Process) setState(s ProcessState) {
	p.state = s

	p.sched.InvokeHook(HookCtx{
		Domain: p.sched,
		Now:    p.sched.clock,
		Pos:    HookPosProcessState,
		Item:   p,
		Detail: s,
	})
}

// conditionReg is an active WaitUntil registration.
type conditionReg struct {
	proc *Process
	cond func() bool
}
