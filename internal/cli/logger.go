package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// newLogger builds the process logger: JSON to stderr, console encoding when
// stderr is a terminal, debug level with --verbose.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
