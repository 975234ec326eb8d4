package sim

import "fmt"

// A TraceEntry is one step of a run: a process changed state at a point in
// virtual time. For a fixed configuration, the sequence of trace entries is
// exactly reproducible.
type TraceEntry struct {
	Time    VTime
	Process ProcessID
	Name    string
	Action  string
}

func (e TraceEntry) String() string {
	return fmt.Sprintf("%.6f %d(%s) %s", float64(e.Time), e.Process, e.Name, e.Action)
}

// A TraceHook records the (time, process, action) triples of a run. Attach
// it to a Scheduler before the first process is spawned.
type TraceHook struct {
	Entries []TraceEntry
}

// NewTraceHook creates an empty TraceHook.
func NewTraceHook() *TraceHook {
	return &TraceHook{}
}

// Func records process state transitions.
func (h *TraceHook) Func(ctx HookCtx) {
	if ctx.Pos != HookPosProcessState {
		return
	}

	p, ok := ctx.Item.(*Process)
	if !ok {
		return
	}

	state, ok := ctx.Detail.(ProcessState)
	if !ok {
		return
	}

	h.Entries = append(h.Entries, TraceEntry{
		Time:    ctx.Now,
		Process: p.ID(),
		Name:    p.Name(),
		Action:  state.String(),
	})
}
