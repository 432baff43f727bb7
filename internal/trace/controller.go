package trace

import (
	"errors"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

var errReadTimeout = errors.New("tracer read timed out")

// Controller drives the step protocol against the single live session: reuse
// it, replace it on a flow switch, or spawn the first one.
type Controller struct {
	store   *Store
	log     *zap.Logger
	clock   clock.Clock
	timeout time.Duration

	// spawn is swapped for a fake in tests.
	spawn func(StepRequest) (session, error)
}

// NewController builds a controller for the given tracer tool. A timeout of
// zero disables the read deadline, which leaves a hung tracer able to stall
// every caller; production configs should keep it set.
func NewController(tool ToolConfig, timeout time.Duration, log *zap.Logger) *Controller {
	c := &Controller{
		store:   &Store{},
		log:     log,
		clock:   clock.New(),
		timeout: timeout,
	}
	c.spawn = func(req StepRequest) (session, error) {
		return Spawn(tool, req, log)
	}
	return c
}

// Step advances the trace to req.StopLine and returns the resulting event.
//
// The whole protocol for one request runs under the store lock: the spawn or
// flow-switch decision, the continuation write, and the blocking read. The
// first step of a session never writes a continuation; the tracer emits its
// first event unprompted once it has initialized at the startup stop line, so
// writing to it then would deadlock against a process with nothing to
// continue past.
func (c *Controller) Step(req StepRequest) (Event, error) {
	g := c.store.Acquire()
	defer g.Release()

	cur := g.Current()
	if cur != nil && !cur.Flow().Equal(req.Flow) {
		// The old process is bound to its flow at spawn time and cannot be
		// redirected; kill it and let this request start the new session.
		c.log.Info("flow switched, replacing tracer",
			zap.String("old_entry", cur.Flow().EntryID),
			zap.String("new_entry", req.Flow.EntryID),
		)
		cur.Kill()
		g.Clear()
		cur = nil
	}

	first := cur == nil
	if first {
		s, err := c.spawn(req)
		if err != nil {
			return nil, err
		}
		g.Set(s)
		cur = s
	} else {
		if err := cur.WriteContinue(req.StopLine); err != nil {
			c.teardown(g, cur)
			return nil, &PipeIOError{Op: "write", EntryID: req.Flow.EntryID, StopLine: req.StopLine, Err: err}
		}
	}

	line, err := c.readEvent(cur)
	if err != nil {
		c.teardown(g, cur)
		switch {
		case errors.Is(err, errReadTimeout):
			return nil, &TimeoutError{EntryID: req.Flow.EntryID, StopLine: req.StopLine, Timeout: c.timeout}
		case errors.Is(err, io.EOF):
			// Teardown above has reaped the child, so the status is known.
			return nil, &ProcessExitedError{EntryID: req.Flow.EntryID, StopLine: req.StopLine, ExitCode: cur.ExitCode()}
		default:
			return nil, &PipeIOError{Op: "read", EntryID: req.Flow.EntryID, StopLine: req.StopLine, Err: err}
		}
	}

	ev, decodeErr := DecodeEvent(line, req.Flow, req.StopLine)
	if decodeErr != nil {
		// Empty or malformed lines keep the session while the process is
		// still alive; a failure the process reported itself ends it.
		switch decodeErr.(type) {
		case *EmptyEventError, *MalformedEventError:
			if !cur.Alive() {
				c.teardown(g, cur)
			}
		default:
			c.teardown(g, cur)
		}
		return nil, decodeErr
	}
	return ev, nil
}

// Reset tears down any live session. Safe to call when none exists.
func (c *Controller) Reset() {
	g := c.store.Acquire()
	defer g.Release()
	if cur := g.Current(); cur != nil {
		cur.Kill()
		g.Clear()
	}
}

// readEvent blocks for one event line, bounded by the configured timeout. On
// expiry the child is killed, which unblocks the pending read, and the caller
// reports a timeout instead of hanging the whole session subsystem.
func (c *Controller) readEvent(cur session) ([]byte, error) {
	if c.timeout <= 0 {
		return cur.ReadEvent()
	}

	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := cur.ReadEvent()
		ch <- result{line, err}
	}()

	t := c.clock.Timer(c.timeout)
	defer t.Stop()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-t.C:
		cur.Kill()
		<-ch
		return nil, errReadTimeout
	}
}

// teardown kills the live process and empties the store. Kill failures are
// swallowed here and nowhere else; the child may already be dead.
func (c *Controller) teardown(g *Guard, cur session) {
	cur.Kill()
	g.Clear()
}
