package sim

import "errors"

// ErrInvalidDuration reports a negative duration passed to Timeout, or an
// absolute time in the past passed to At. The request is rejected at the
// call site and the process is not suspended.
var ErrInvalidDuration = errors.New("invalid duration")

// ErrUnknownProcess reports a WaitFor on a process id that was never
// registered with the scheduler. The requesting process fails immediately.
var ErrUnknownProcess = errors.New("unknown process")

// ErrCausalityViolation reports an event popped with a time earlier than the
// current clock. This is an internal consistency check; it should never
// trigger, and when it does the run aborts with this diagnostic.
var ErrCausalityViolation = errors.New("causality violation")
