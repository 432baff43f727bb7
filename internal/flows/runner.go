// Package flows wraps the one-shot analysis tools: changed-function listing
// and file-tree queries against the target repository. These are stateless
// request/response invocations with no session to manage.
package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Runner invokes the analysis scripts and parses their whole stdout as one
// JSON document.
type Runner struct {
	PythonBin string
	ToolsDir  string
	RepoRoot  string

	// FunctionsFile is where the changed-functions script drops its
	// per-function detail document. Relative paths resolve against the
	// working directory, matching the script's own behavior.
	FunctionsFile string

	Log *zap.Logger
}

// Changed lists the repository's changed functions with their call parents,
// merged with the detail document the script writes alongside its stdout
// output. A missing or unreadable detail file degrades to null rather than
// failing the whole query.
func (r *Runner) Changed(ctx context.Context) (json.RawMessage, error) {
	doc, err := r.run(ctx, "get_changed_functions.py", "--repo", r.RepoRoot)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Parents json.RawMessage `json:"parents"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("changed-functions output: %w", err)
	}

	functions := json.RawMessage("null")
	if raw, err := os.ReadFile(r.functionsPath()); err == nil && json.Valid(raw) {
		functions = raw
	} else if err != nil {
		r.Log.Debug("functions detail file unavailable", zap.String("path", r.functionsPath()), zap.Error(err))
	}

	combined, err := json.Marshal(map[string]json.RawMessage{
		"parents":   orNull(parsed.Parents),
		"functions": functions,
	})
	if err != nil {
		return nil, err
	}
	return combined, nil
}

// FileTree returns the repository's folder/file tree.
func (r *Runner) FileTree(ctx context.Context) (json.RawMessage, error) {
	return r.run(ctx, "get_file_tree.py", "--root", r.RepoRoot)
}

func (r *Runner) run(ctx context.Context, script string, args ...string) (json.RawMessage, error) {
	argv := append([]string{filepath.Join(r.ToolsDir, script)}, args...)
	cmd := exec.CommandContext(ctx, r.PythonBin, argv...)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The scripts report failures on stdout.
			body := strings.TrimSpace(string(out))
			if body == "" {
				body = strings.TrimSpace(string(exitErr.Stderr))
			}
			return nil, fmt.Errorf("%s exited with status %d: %s", script, exitErr.ExitCode(), body)
		}
		return nil, fmt.Errorf("run %s: %w", script, err)
	}

	trimmed := bytes.TrimSpace(out)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%s returned invalid JSON", script)
	}
	return json.RawMessage(trimmed), nil
}

func (r *Runner) functionsPath() string {
	if r.FunctionsFile != "" {
		return r.FunctionsFile
	}
	return "functions.json"
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
