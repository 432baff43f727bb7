package cli

import (
	"context"

	"github.com/flowlens/flowlens/internal/trace"
)

// SignatureCmd queries a function's call signature from the tracer tool
type SignatureCmd struct {
	Entry string `short:"e" required:"" help:"Entry id (path/to/file.py::function)"`
}

// Run executes the signature command
func (c *SignatureCmd) Run(globals *Globals) error {
	sig, err := trace.QuerySignature(context.Background(), globals.toolConfig(), c.Entry)
	if err != nil {
		return err
	}
	return printJSON(globals.Stdout, sig)
}

// FlowsCmd lists the repository's changed functions with call parents
type FlowsCmd struct{}

// Run executes the flows command
func (c *FlowsCmd) Run(globals *Globals) error {
	doc, err := globals.runner().Changed(context.Background())
	if err != nil {
		return err
	}
	return printJSON(globals.Stdout, doc)
}

// TreeCmd prints the repository's folder/file tree
type TreeCmd struct{}

// Run executes the tree command
func (c *TreeCmd) Run(globals *Globals) error {
	doc, err := globals.runner().FileTree(context.Background())
	if err != nil {
		return err
	}
	return printJSON(globals.Stdout, doc)
}
