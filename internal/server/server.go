// Package server is the HTTP host the dashboard talks to: JSON
// endpoints over the orchestrator's entry points, an event intake for
// the cross-tool store, and a websocket stream that makes the
// fire-and-forget map sink observable.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wardroom/internal/appstate"
	"wardroom/internal/assistant"
	"wardroom/internal/config"
	"wardroom/internal/session"
)

// Deps are the collaborators the server hosts. The orchestrator should
// already be wired with Hub.BroadcastCommand as its map sink; the
// server only adds the state-transition feed on top.
type Deps struct {
	Orchestrator *assistant.Orchestrator
	State        appstate.Store
	Hub          *Hub
	Logger       *zap.Logger
}

// Server hosts the assistant API.
type Server struct {
	cfg  *config.Config
	orch *assistant.Orchestrator
	app  appstate.Store
	hub  *Hub
	log  *zap.Logger

	unbindOnce sync.Once
	unbind     func()
}

// New wires the server: session state transitions feed the stream hub,
// and cross-tool events dispatched through POST /api/events reach the
// orchestrator via its store subscription.
func New(cfg *config.Config, d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hub := d.Hub
	if hub == nil {
		hub = NewHub(log)
	}

	s := &Server{
		cfg:  cfg,
		orch: d.Orchestrator,
		app:  d.State,
		hub:  hub,
		log:  log,
	}

	s.orch.Session().States.Subscribe(func(next session.State, _ func(session.State)) {
		hub.BroadcastState(next)
	})
	s.unbind = s.orch.BindState(context.Background())

	return s
}

// Close releases the store subscription. Run's shutdown path calls it;
// handler-only hosts (tests) call it directly.
func (s *Server) Close() {
	s.unbindOnce.Do(s.unbind)
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/assistant/message", s.handleMessage)
	mux.HandleFunc("POST /api/assistant/action", s.handleAction)
	mux.HandleFunc("POST /api/assistant/reset", s.handleReset)
	mux.HandleFunc("POST /api/assistant/workflow", s.handleWorkflow)
	mux.HandleFunc("POST /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/assistant/state", s.handleState)
	mux.HandleFunc("GET /api/assistant/messages", s.handleMessages)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.logRequests(mux)
}

// Run serves until the context is canceled, then shuts down within the
// configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout(),
		WriteTimeout: s.cfg.WriteTimeout(),
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		s.log.Info("shutting down")
		s.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

type messageRequest struct {
	Input string `json:"input"`
}

type actionRequest struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

type workflowRequest struct {
	Workflow string `json:"workflow"`
}

type stateResponse struct {
	State      session.State              `json:"state"`
	Workflow   *session.WorkflowSelection `json:"workflow,omitempty"`
	Processing bool                       `json:"processing"`
}

type messagesResponse struct {
	Messages []session.Message `json:"messages"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	msg := s.orch.ProcessInput(r.Context(), req.Input)
	s.respond(w, http.StatusOK, msg)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Action == "" {
		s.respondError(w, http.StatusBadRequest, "action is required")
		return
	}
	msg := s.orch.HandleAction(r.Context(), req.Action, req.Params)
	s.respond(w, http.StatusOK, msg)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orch.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// handleWorkflow starts a workflow. Unknown ids still answer 200: the
// orchestrator replies with the available list instead of an error.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Workflow == "" {
		s.respondError(w, http.StatusBadRequest, "workflow is required")
		return
	}
	msg := s.orch.StartWorkflow(req.Workflow)
	s.respond(w, http.StatusOK, msg)
}

// handleEvents is the cross-tool intake: the dashboard posts the same
// events here that it dispatches into its own store.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var ev appstate.Event
	if !s.decode(w, r, &ev) {
		return
	}
	if ev.Type == "" {
		s.respondError(w, http.StatusBadRequest, "event type is required")
		return
	}
	s.app.Dispatch(ev)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, stateResponse{
		State:      s.orch.Session().States.Current(),
		Workflow:   s.orch.Session().Workflow(),
		Processing: s.orch.Processing(),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, messagesResponse{
		Messages: s.orch.Session().Messages.Messages(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads the JSON body into v; on failure it answers 400 and
// reports false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, msg string) {
	s.respond(w, code, map[string]string{"error": msg})
}

// logRequests wraps the route table with zap request logging.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// statusRecorder captures the response status for the request log. It
// passes Hijack through so the websocket upgrade works behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
