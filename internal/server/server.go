// Package server exposes the tracer backend to the desktop frontend over
// HTTP/JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/flowlens/flowlens/internal/flows"
	"github.com/flowlens/flowlens/internal/trace"
)

// Stepper is the session-controller surface the server dispatches to.
type Stepper interface {
	Step(req trace.StepRequest) (trace.Event, error)
	Reset()
}

// SignatureFunc answers one-shot signature queries.
type SignatureFunc func(ctx context.Context, entryID string) (trace.Event, error)

// Server routes frontend requests to the tracer controller and the
// collaborator tools.
type Server struct {
	router    *gin.Engine
	log       *zap.Logger
	stepper   Stepper
	flows     flows.Source
	signature SignatureFunc
}

// New builds the router. allowedOrigins are the frontend origins permitted by
// CORS; the backend binds to loopback by default, so this is belt and braces
// for the desktop webview.
func New(stepper Stepper, src flows.Source, signature SignatureFunc, allowedOrigins []string, log *zap.Logger) *Server {
	s := &Server{
		router:    gin.New(),
		log:       log,
		stepper:   stepper,
		flows:     src,
		signature: signature,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(log))
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:  lo.Uniq(allowedOrigins),
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	v1 := s.router.Group("/v1")
	{
		v1.POST("/step", s.handleStep)
		v1.DELETE("/session", s.handleResetSession)
		v1.GET("/signature", s.handleSignature)
		v1.GET("/flows", s.handleFlows)
		v1.GET("/tree", s.handleTree)
		v1.GET("/healthz", s.handleHealth)
	}

	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler { return s.router }

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type stepRequest struct {
	EntryID  string `json:"entry_id" binding:"required"`
	ArgsJSON string `json:"args_json"`
	StopLine int    `json:"stop_line" binding:"required"`
}

func (s *Server) handleStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": err.Error()}})
		return
	}
	if req.ArgsJSON == "" {
		req.ArgsJSON = "{}"
	}

	ev, err := s.stepper.Step(trace.StepRequest{
		Flow:     trace.FlowIdentity{EntryID: req.EntryID, ArgsJSON: req.ArgsJSON},
		StopLine: req.StopLine,
	})
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": json.RawMessage(ev)})
}

func (s *Server) handleResetSession(c *gin.Context) {
	s.stepper.Reset()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSignature(c *gin.Context) {
	entryID := c.Query("entry")
	if entryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "missing entry parameter"}})
		return
	}
	sig, err := s.signature(c.Request.Context(), entryID)
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature": json.RawMessage(sig)})
}

func (s *Server) handleFlows(c *gin.Context) {
	doc, err := s.flows.Changed(c.Request.Context())
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

func (s *Server) handleTree(c *gin.Context) {
	doc, err := s.flows.FileTree(c.Request.Context())
	if err != nil {
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorResponse maps the tracer error taxonomy onto HTTP statuses and stable
// machine-readable codes, keeping the diagnostic context each error carries.
func errorResponse(err error) (int, gin.H) {
	body := gin.H{"message": err.Error()}

	var (
		spawnErr    *trace.SpawnError
		pipeErr     *trace.PipeIOError
		exitErr     *trace.ProcessExitedError
		emptyErr    *trace.EmptyEventError
		malformed   *trace.MalformedEventError
		reportedErr *trace.ProcessReportedError
		timeoutErr  *trace.TimeoutError
	)

	status := http.StatusBadGateway
	switch {
	case errors.As(err, &spawnErr):
		body["code"] = "SPAWN_FAILED"
		body["entry_id"] = spawnErr.EntryID
	case errors.As(err, &pipeErr):
		body["code"] = "PIPE_IO"
		body["entry_id"] = pipeErr.EntryID
		body["stop_line"] = pipeErr.StopLine
	case errors.As(err, &exitErr):
		body["code"] = "PROCESS_EXITED"
		body["entry_id"] = exitErr.EntryID
		body["stop_line"] = exitErr.StopLine
		body["exit_code"] = exitErr.ExitCode
	case errors.As(err, &emptyErr):
		body["code"] = "EMPTY_EVENT"
		body["entry_id"] = emptyErr.EntryID
		body["stop_line"] = emptyErr.StopLine
	case errors.As(err, &malformed):
		body["code"] = "MALFORMED_EVENT"
		body["entry_id"] = malformed.EntryID
		body["stop_line"] = malformed.StopLine
		body["raw"] = malformed.Line
	case errors.As(err, &reportedErr):
		body["code"] = "TRACER_ERROR"
		body["entry_id"] = reportedErr.EntryID
		body["stop_line"] = reportedErr.StopLine
		body["raw"] = reportedErr.Text
	case errors.As(err, &timeoutErr):
		body["code"] = "TRACER_TIMEOUT"
		body["entry_id"] = timeoutErr.EntryID
		body["stop_line"] = timeoutErr.StopLine
		status = http.StatusGatewayTimeout
	default:
		body["code"] = "INTERNAL"
		status = http.StatusInternalServerError
	}

	return status, gin.H{"error": body}
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
