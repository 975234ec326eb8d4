package manager

import (
	"sort"
	"sync"

	"github.com/strandsim/strand/recording"
	"github.com/strandsim/strand/sim"
)

// A RunStore persists terminal snapshots and run traces. It serializes
// writes so that parallel runs can record through the same store.
type RunStore struct {
	mu sync.Mutex
	w  recording.Writer
}

type runRow struct {
	RunID      string
	Name       string
	Seed       int64
	FinalClock float64
	Outcome    string
	Events     int64
}

type processRow struct {
	RunID     string
	ProcessID int64
	State     string
}

type traceRow struct {
	RunID     string
	Step      int64
	Time      float64
	ProcessID int64
	Process   string
	Action    string
}

// NewRunStore opens a SQLite-backed store at path.
func NewRunStore(path string) *RunStore {
	w := recording.NewWriter(path)

	w.CreateTable("runs", runRow{})
	w.CreateTable("processes", processRow{})
	w.CreateTable("trace", traceRow{})

	return &RunStore{w: w}
}

// Record persists one run's snapshot and, if present, its trace.
func (s *RunStore) Record(snap TerminalSnapshot, trace []sim.TraceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := snap.Outcome.String()

	s.w.InsertData("runs", runRow{
		RunID:      snap.RunID,
		Name:       snap.Name,
		Seed:       snap.Seed,
		FinalClock: float64(snap.FinalClock),
		Outcome:    outcome,
		Events:     int64(snap.EventCount),
	})

	ids := make([]sim.ProcessID, 0, len(snap.ProcessStates))
	for id := range snap.ProcessStates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		s.w.InsertData("processes", processRow{
			RunID:     snap.RunID,
			ProcessID: int64(id),
			State:     snap.ProcessStates[id].String(),
		})
	}

	for i, entry := range trace {
		s.w.InsertData("trace", traceRow{
			RunID:     snap.RunID,
			Step:      int64(i),
			Time:      float64(entry.Time),
			ProcessID: int64(entry.Process),
			Process:   entry.Name,
			Action:    entry.Action,
		})
	}
}

// Close flushes buffered rows and closes the database.
func (s *RunStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Close()
}
