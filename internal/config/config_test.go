package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1:8791", cfg.Listen)
	assert.Equal(t, ".", cfg.RepoRoot)
	assert.Equal(t, "tools", cfg.ToolsDir)
	assert.Equal(t, "python3", cfg.PythonBin)
	assert.Equal(t, "30s", cfg.StepTimeout)
	assert.False(t, cfg.Verbose)
}

func TestStepTimeoutDuration(t *testing.T) {
	t.Run("parses the default", func(t *testing.T) {
		d, err := Default().StepTimeoutDuration()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, d)
	})

	t.Run("zero disables the deadline", func(t *testing.T) {
		cfg := Default()
		cfg.StepTimeout = "0"
		d, err := cfg.StepTimeoutDuration()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), d)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		cfg := Default()
		cfg.StepTimeout = "soon"
		_, err := cfg.StepTimeoutDuration()
		assert.Error(t, err)
	})
}

func TestTracerScript(t *testing.T) {
	cfg := Default()
	cfg.ToolsDir = "/opt/flowlens/tools"
	assert.Equal(t, filepath.Join("/opt/flowlens/tools", "get_tracer.py"), cfg.TracerScript())
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "python3", cfg.PythonBin)
		assert.Equal(t, "30s", cfg.StepTimeout)
	})

	t.Run("honors PYTHON_BIN for script compatibility", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		t.Setenv("PYTHON_BIN", "/usr/local/bin/python3.12")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/usr/local/bin/python3.12", cfg.PythonBin)
	})

	t.Run("FLOWLENS env overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(origDir)

		t.Setenv("FLOWLENS_REPO", "/work/target-repo")
		t.Setenv("FLOWLENS_STEP_TIMEOUT", "5s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/work/target-repo", cfg.RepoRoot)
		assert.Equal(t, "5s", cfg.StepTimeout)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		tmpDir := t.TempDir()
		configContent := `
listen: "0.0.0.0:9000"
repo_root: /work/trap
tools_dir: /work/flowlens/tools
python_bin: python3.12
functions_file: /tmp/functions.json
step_timeout: 10s
allowed_origins:
  - "http://localhost:5173"
  - "http://localhost:4173"
verbose: true
`
		configPath := filepath.Join(tmpDir, "flowlens.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
		assert.Equal(t, "/work/trap", cfg.RepoRoot)
		assert.Equal(t, "/work/flowlens/tools", cfg.ToolsDir)
		assert.Equal(t, "python3.12", cfg.PythonBin)
		assert.Equal(t, "/tmp/functions.json", cfg.FunctionsFile)
		assert.Equal(t, "10s", cfg.StepTimeout)
		assert.Len(t, cfg.AllowedOrigins, 2)
		assert.True(t, cfg.Verbose)
	})
}
