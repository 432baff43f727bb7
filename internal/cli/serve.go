package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowlens/flowlens/internal/flows"
	"github.com/flowlens/flowlens/internal/server"
	"github.com/flowlens/flowlens/internal/trace"
)

// ServeCmd runs the HTTP backend until interrupted
type ServeCmd struct {
	Listen string `short:"l" default:"${config_listen}" help:"Listen address"`
}

// Run executes the serve command
func (c *ServeCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if !globals.Cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout, err := globals.Cfg.StepTimeoutDuration()
	if err != nil {
		return err
	}

	ctrl := trace.NewController(globals.toolConfig(), timeout, globals.Log)
	defer ctrl.Reset()

	cache, err := flows.NewCache(globals.runner(), globals.Cfg.RepoRoot, globals.Log)
	if err != nil {
		return fmt.Errorf("watch repository: %w", err)
	}
	defer cache.Close()

	sigFn := func(ctx context.Context, entryID string) (trace.Event, error) {
		return trace.QuerySignature(ctx, globals.toolConfig(), entryID)
	}

	srv := server.New(ctrl, cache, sigFn, globals.Cfg.AllowedOrigins, globals.Log)
	globals.Log.Info("backend listening",
		zap.String("addr", c.Listen),
		zap.String("repo", globals.Cfg.RepoRoot),
		zap.Duration("step_timeout", timeout),
	)

	if err := srv.Serve(ctx, c.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
