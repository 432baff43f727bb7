package trace

import (
	"fmt"
	"time"
)

// SpawnError means the tracer process could not start. No session exists
// afterwards; a new step request retries from scratch.
type SpawnError struct {
	EntryID string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn tracer for %s: %v", e.EntryID, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// PipeIOError is a failed write or read on the tracer's pipes. The session is
// torn down; the caller may re-issue the step.
type PipeIOError struct {
	Op       string // "write" or "read"
	EntryID  string
	StopLine int
	Err      error
}

func (e *PipeIOError) Error() string {
	return fmt.Sprintf("tracer %s failed for %s at line %d: %v", e.Op, e.EntryID, e.StopLine, e.Err)
}

func (e *PipeIOError) Unwrap() error { return e.Err }

// ProcessExitedError means the tracer terminated before producing an event.
type ProcessExitedError struct {
	EntryID  string
	StopLine int
	ExitCode int
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("tracer for %s exited with status %d before emitting an event (stop line %d)",
		e.EntryID, e.ExitCode, e.StopLine)
}

// EmptyEventError means the tracer emitted a blank line where an event was
// expected.
type EmptyEventError struct {
	EntryID  string
	StopLine int
}

func (e *EmptyEventError) Error() string {
	return fmt.Sprintf("tracer for %s emitted an empty event line at stop line %d", e.EntryID, e.StopLine)
}

// MalformedEventError means the tracer emitted a line that is neither valid
// JSON nor a recognizable failure report. The offending line is preserved for
// diagnosis.
type MalformedEventError struct {
	EntryID  string
	StopLine int
	Line     string
	Err      error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("tracer for %s emitted malformed event at stop line %d: %v -- line: %s",
		e.EntryID, e.StopLine, e.Err, e.Line)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// ProcessReportedError carries failure text the tracer surfaced itself, for
// example a traceback. It is passed through verbatim.
type ProcessReportedError struct {
	EntryID  string
	StopLine int
	Text     string
}

func (e *ProcessReportedError) Error() string {
	return fmt.Sprintf("tracer for %s reported failure at stop line %d: %s", e.EntryID, e.StopLine, e.Text)
}

// TimeoutError means the tracer produced no event within the configured step
// timeout. The process has been killed; the session is gone.
type TimeoutError struct {
	EntryID  string
	StopLine int
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tracer for %s produced no event within %s (stop line %d)", e.EntryID, e.Timeout, e.StopLine)
}
