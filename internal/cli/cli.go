package cli

import (
	"encoding/json"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/flowlens/flowlens/internal/config"
	"github.com/flowlens/flowlens/internal/flows"
	"github.com/flowlens/flowlens/internal/trace"
)

// CLI is the top-level command grammar
type CLI struct {
	Globals

	Serve     ServeCmd     `cmd:"" help:"Run the HTTP backend for the desktop frontend"`
	Step      StepCmd      `cmd:"" help:"Issue one tracing step and print the resulting event"`
	Signature SignatureCmd `cmd:"" help:"Query a function's call signature"`
	Flows     FlowsCmd     `cmd:"" help:"List changed functions with their call parents"`
	Tree      TreeCmd      `cmd:"" help:"Print the repository file tree"`
}

// Globals holds flags shared by every command plus the resolved runtime
// environment.
type Globals struct {
	Config  string `help:"Path to config file" type:"path"`
	Repo    string `help:"Target repository root (overrides config)"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Cfg    *config.Config `kong:"-"`
	Log    *zap.Logger    `kong:"-"`
	Stdout io.Writer      `kong:"-"`
	Stderr io.Writer      `kong:"-"`
}

// NewGlobals resolves parsed flags against loaded configuration.
func NewGlobals(c *CLI, cfg *config.Config) *Globals {
	g := c.Globals
	if g.Verbose {
		cfg.Verbose = true
	}
	if g.Repo != "" {
		cfg.RepoRoot = g.Repo
	}
	g.Cfg = cfg
	g.Log = newLogger(cfg.Verbose)
	g.Stdout = os.Stdout
	g.Stderr = os.Stderr
	return &g
}

// toolConfig locates the tracer tool from configuration.
func (g *Globals) toolConfig() trace.ToolConfig {
	return trace.ToolConfig{
		PythonBin: g.Cfg.PythonBin,
		Script:    g.Cfg.TracerScript(),
	}
}

// runner builds the one-shot analysis-tool runner.
func (g *Globals) runner() *flows.Runner {
	return &flows.Runner{
		PythonBin:     g.Cfg.PythonBin,
		ToolsDir:      g.Cfg.ToolsDir,
		RepoRoot:      g.Cfg.RepoRoot,
		FunctionsFile: g.Cfg.FunctionsFile,
		Log:           g.Log,
	}
}

// printJSON writes one indented JSON document to the command's stdout.
func printJSON(w io.Writer, doc json.RawMessage) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
