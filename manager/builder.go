package manager

import (
	"github.com/sirupsen/logrus"
)

// Builder can be used to build a Manager.
type Builder struct {
	logger    *logrus.Logger
	storePath string
	tracing   bool
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{}
}

// WithLogger sets the logger the manager and its runs log through.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// WithRunStore persists terminal snapshots and run traces to a SQLite
// database at the given path.
func (b Builder) WithRunStore(path string) Builder {
	b.storePath = path
	return b
}

// WithTracing records a (time, process, action) trace for every run, kept in
// memory on the run handle.
func (b Builder) WithTracing() Builder {
	b.tracing = true
	return b
}

// Build builds the manager.
func (b Builder) Build() *Manager {
	m := &Manager{
		log:     b.logger,
		tracing: b.tracing,
		results: make(map[string]TerminalSnapshot),
	}

	if m.log == nil {
		m.log = logrus.StandardLogger()
	}

	if b.storePath != "" {
		m.store = NewRunStore(b.storePath)
	}

	return m
}
