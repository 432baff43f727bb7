package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// QuerySignature asks the tracer tool for a function's call signature. This
// is a one-shot invocation with no session interaction: the tool prints one
// JSON value on stdout and exits zero.
func QuerySignature(ctx context.Context, cfg ToolConfig, entryID string) (Event, error) {
	cmd := exec.CommandContext(ctx, cfg.PythonBin, cfg.Script,
		"--entry_full_id", entryID,
		"--signature",
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool writes its failure report to stdout, same as the
			// other one-shot tools; fall back to stderr when stdout is
			// empty.
			body := strings.TrimSpace(string(out))
			if body == "" {
				body = strings.TrimSpace(string(exitErr.Stderr))
			}
			return nil, fmt.Errorf("signature query for %s exited with status %d: %s",
				entryID, exitErr.ExitCode(), body)
		}
		return nil, &SpawnError{EntryID: entryID, Err: err}
	}

	trimmed := bytes.TrimSpace(out)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("signature query for %s returned invalid JSON: %q", entryID, string(trimmed))
	}
	return Event(trimmed), nil
}
