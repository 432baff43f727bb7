package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/flowlens/flowlens/internal/config"
)

// testGlobals builds Globals with captured stdout/stderr and stub tools. The
// stubs are shell scripts run through /bin/sh standing in for the Python
// tools.
func testGlobals(t *testing.T, scripts map[string]string) (*Globals, *bytes.Buffer) {
	t.Helper()
	toolsDir := t.TempDir()
	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(toolsDir, name), []byte(body), 0o755))
	}

	cfg := config.Default()
	cfg.PythonBin = "/bin/sh"
	cfg.ToolsDir = toolsDir
	cfg.RepoRoot = t.TempDir()
	cfg.FunctionsFile = filepath.Join(toolsDir, "functions.json")
	cfg.StepTimeout = "5s"

	stdout := &bytes.Buffer{}
	return &Globals{
		Cfg:    cfg,
		Log:    zaptest.NewLogger(t),
		Stdout: stdout,
		Stderr: &bytes.Buffer{},
	}, stdout
}

func TestStepCmd_Run(t *testing.T) {
	globals, stdout := testGlobals(t, map[string]string{
		"get_tracer.py": `
stop=0
while [ "$#" -gt 0 ]; do
  case "$1" in
    --stop_line) stop="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo "{\"event\":\"line\",\"line\":$stop}" >&2
`,
	})

	cmd := &StepCmd{Entry: "a.py::f", Args: "{}", Line: 12}
	require.NoError(t, cmd.Run(globals))

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, float64(12), out["line"])
}

func TestStepCmd_TracerFailure(t *testing.T) {
	globals, _ := testGlobals(t, map[string]string{
		"get_tracer.py": `exit 9`,
	})

	cmd := &StepCmd{Entry: "a.py::f", Args: "{}", Line: 12}
	err := cmd.Run(globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 9")
}

func TestSignatureCmd_Run(t *testing.T) {
	globals, stdout := testGlobals(t, map[string]string{
		"get_tracer.py": `echo '{"params":["metric_name","period"]}'`,
	})

	cmd := &SignatureCmd{Entry: "a.py::f"}
	require.NoError(t, cmd.Run(globals))

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Len(t, out["params"], 2)
}

func TestFlowsCmd_Run(t *testing.T) {
	globals, stdout := testGlobals(t, map[string]string{
		"get_changed_functions.py": `echo '{"parents":{"a.py::f":[]}}'`,
	})

	cmd := &FlowsCmd{}
	require.NoError(t, cmd.Run(globals))

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out, "parents")
	assert.Contains(t, out, "functions")
}

func TestTreeCmd_Run(t *testing.T) {
	globals, stdout := testGlobals(t, map[string]string{
		"get_file_tree.py": `echo '{"name":"repo","type":"folder","children":[]}'`,
	})

	cmd := &TreeCmd{}
	require.NoError(t, cmd.Run(globals))

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "repo", out["name"])
}
