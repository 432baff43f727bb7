package trace

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToolConfig locates the external tracer tool.
type ToolConfig struct {
	PythonBin string
	Script    string
}

// Handle owns one spawned tracer process and its three pipe ends.
//
// Events are multiplexed over stderr: the tracer tool reserves stdout for its
// one-shot outputs, so both sides agree on stderr as the event channel. The
// child's stdout is drained in the background so it can never block on a full
// pipe.
type Handle struct {
	id    string
	flow  FlowIdentity
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// events reads the child's stderr. Lines are read with a growable
	// buffer; an oversized event is never truncated.
	events *bufio.Reader

	waitOnce sync.Once
	waitErr  error
}

// Spawn starts a tracer process bound to the request's flow, with the
// requested stop line as a startup parameter rather than a continuation.
func Spawn(cfg ToolConfig, req StepRequest, log *zap.Logger) (*Handle, error) {
	cmd := exec.Command(cfg.PythonBin, cfg.Script,
		"--entry_full_id", req.Flow.EntryID,
		"--args_json", req.Flow.ArgsJSON,
		"--stop_line", strconv.Itoa(req.StopLine),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{EntryID: req.Flow.EntryID, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{EntryID: req.Flow.EntryID, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{EntryID: req.Flow.EntryID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{EntryID: req.Flow.EntryID, Err: err}
	}

	go func() {
		_, _ = io.Copy(io.Discard, stdout)
	}()

	h := &Handle{
		id:     uuid.NewString()[:8],
		flow:   req.Flow,
		cmd:    cmd,
		stdin:  stdin,
		events: bufio.NewReader(stderr),
	}
	log.Debug("spawned tracer",
		zap.String("session", h.id),
		zap.String("entry", req.Flow.EntryID),
		zap.Int("stop_line", req.StopLine),
		zap.Int("pid", cmd.Process.Pid),
	)
	return h, nil
}

// ID is a short identifier for log correlation.
func (h *Handle) ID() string { return h.id }

// Flow returns the identity this process was spawned for.
func (h *Handle) Flow() FlowIdentity { return h.flow }

// WriteContinue sends the next stop line as a decimal integer on the child's
// stdin. The pipe is unbuffered on our side, so the write is flushed to the
// child as soon as it returns.
func (h *Handle) WriteContinue(stopLine int) error {
	_, err := fmt.Fprintf(h.stdin, "%d\n", stopLine)
	return err
}

// ReadEvent blocks for one newline-terminated line on the event channel. A
// final unterminated line before EOF still counts as a line, since a child
// that exits mid-write may drop the terminator.
func (h *Handle) ReadEvent() ([]byte, error) {
	line, err := h.events.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	return line, nil
}

// Alive reports whether the child process is still running.
func (h *Handle) Alive() bool {
	if h.cmd.Process == nil {
		return false
	}
	return h.cmd.Process.Signal(syscall.Signal(0)) == nil
}

// Kill tears the process down: close stdin, send a kill signal, then wait so
// the child is reaped. Errors are ignored because the process may already be
// dead; teardown is attempted unconditionally on every exit path.
func (h *Handle) Kill() {
	_ = h.stdin.Close()
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	_ = h.wait()
}

// ExitCode reports the child's exit status once it has been waited on, or -1
// when the status is unknown. Callers should only ask after observing EOF or
// calling Kill, since waiting on a live process blocks.
func (h *Handle) ExitCode() int {
	_ = h.wait()
	if h.cmd.ProcessState == nil {
		return -1
	}
	return h.cmd.ProcessState.ExitCode()
}

func (h *Handle) wait() error {
	h.waitOnce.Do(func() {
		h.waitErr = h.cmd.Wait()
	})
	return h.waitErr
}
