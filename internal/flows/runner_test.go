package flows

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubTools writes shell scripts standing in for the analysis tools and
// returns a Runner pointing at them.
func stubTools(t *testing.T, scripts map[string]string) *Runner {
	t.Helper()
	dir := t.TempDir()
	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
	}
	return &Runner{
		PythonBin:     "/bin/sh",
		ToolsDir:      dir,
		RepoRoot:      "/repo",
		FunctionsFile: filepath.Join(dir, "functions.json"),
		Log:           zaptest.NewLogger(t),
	}
}

func TestRunnerChanged(t *testing.T) {
	t.Run("merges parents with the functions detail file", func(t *testing.T) {
		r := stubTools(t, map[string]string{
			"get_changed_functions.py": `echo '{"parents":{"a.py::f":["a.py::caller"]}}'`,
		})
		require.NoError(t, os.WriteFile(r.FunctionsFile, []byte(`{"a.py::f":{"start":1,"end":9}}`), 0o644))

		doc, err := r.Changed(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"parents": {"a.py::f": ["a.py::caller"]},
			"functions": {"a.py::f": {"start": 1, "end": 9}}
		}`, string(doc))
	})

	t.Run("missing detail file degrades to null", func(t *testing.T) {
		r := stubTools(t, map[string]string{
			"get_changed_functions.py": `echo '{"parents":{}}'`,
		})

		doc, err := r.Changed(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `{"parents":{},"functions":null}`, string(doc))
	})

	t.Run("non-zero exit surfaces the script output", func(t *testing.T) {
		r := stubTools(t, map[string]string{
			"get_changed_functions.py": `echo 'fatal: not a git repository'; exit 1`,
		})

		_, err := r.Changed(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 1")
		assert.Contains(t, err.Error(), "not a git repository")
	})

	t.Run("invalid JSON output", func(t *testing.T) {
		r := stubTools(t, map[string]string{
			"get_changed_functions.py": `echo 'not json'`,
		})
		_, err := r.Changed(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})
}

func TestRunnerFileTree(t *testing.T) {
	r := stubTools(t, map[string]string{
		"get_file_tree.py": `echo '{"name":"repo","type":"folder","children":[]}'`,
	})

	doc, err := r.FileTree(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"repo","type":"folder","children":[]}`, string(doc))
}

func TestRunnerPassesRepoArguments(t *testing.T) {
	r := stubTools(t, map[string]string{
		"get_file_tree.py": `
root=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    --root) root="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo "{\"root\":\"$root\"}"
`,
	})
	r.RepoRoot = "/some/repo"

	doc, err := r.FileTree(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"root":"/some/repo"}`, string(doc))
}
