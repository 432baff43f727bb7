package cli

import (
	"github.com/flowlens/flowlens/internal/trace"
)

// StepCmd issues a single tracing step against a fresh session and tears it
// down afterwards. Useful for checking a tracer setup without the frontend.
type StepCmd struct {
	Entry string `short:"e" required:"" help:"Entry id (path/to/file.py::function)"`
	Args  string `short:"a" default:"{}" help:"JSON-encoded call arguments"`
	Line  int    `short:"n" required:"" help:"Source line to stop at"`
}

// Run executes the step command
func (c *StepCmd) Run(globals *Globals) error {
	timeout, err := globals.Cfg.StepTimeoutDuration()
	if err != nil {
		return err
	}

	ctrl := trace.NewController(globals.toolConfig(), timeout, globals.Log)
	defer ctrl.Reset()

	ev, err := ctrl.Step(trace.StepRequest{
		Flow:     trace.FlowIdentity{EntryID: c.Entry, ArgsJSON: c.Args},
		StopLine: c.Line,
	})
	if err != nil {
		return err
	}
	return printJSON(globals.Stdout, ev)
}
