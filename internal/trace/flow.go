// Package trace manages the lifecycle of the external tracer process: at most
// one live session at a time, flow-switch detection, and the line-oriented
// step protocol (send a stop line, receive exactly one JSON event).
package trace

// FlowIdentity names what a tracing session is bound to: one entry point in
// the target repository plus the JSON-encoded call arguments.
type FlowIdentity struct {
	EntryID  string
	ArgsJSON string
}

// Equal reports whether two identities target the same session. Arguments are
// part of the key: the tracer binds them once at spawn and cannot re-bind, so
// stepping the same function with different arguments needs a fresh process.
func (f FlowIdentity) Equal(other FlowIdentity) bool {
	return f.EntryID == other.EntryID && f.ArgsJSON == other.ArgsJSON
}

// StepRequest asks the controller to advance tracing to StopLine and return
// the event emitted at that pause point.
type StepRequest struct {
	Flow     FlowIdentity
	StopLine int
}
