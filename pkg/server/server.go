// Package server exposes the BotLang runtime over HTTP and WebSocket so a
// browser canvas can run programs and draw the robot's shapes live.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/robot"
	"github.com/thomasrohde/botlang/pkg/runtime"
)

const (
	// maxSourceBytes caps request bodies and WebSocket frames.
	maxSourceBytes = 1 << 20
	writeWait      = 10 * time.Second
	shutdownWait   = 5 * time.Second
	defaultFile    = "<web>"
)

// Message types sent over /ws.
const (
	MsgPrint      = "print"
	MsgShape      = "shape"
	MsgDiagnostic = "diagnostic"
	MsgDone       = "done"
	MsgKill       = "kill"
)

// RunRequest is the body of /run, /check and /fmt, and the first message on /ws.
type RunRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

func (r RunRequest) file() string {
	if r.Filename == "" {
		return defaultFile
	}
	return r.Filename
}

// RunResponse is the outcome of a run. Diagnostics is empty on success.
type RunResponse struct {
	RunID       string                   `json:"runId,omitempty"`
	ExitCode    int                      `json:"exitCode"`
	Output      []string                 `json:"output"`
	Shapes      []robot.Shape            `json:"shapes"`
	Robot       *robot.State             `json:"robot,omitempty"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

// Message is one WebSocket frame.
type Message struct {
	Type       string                  `json:"type"`
	Line       string                  `json:"line,omitempty"`
	Shape      *robot.Shape            `json:"shape,omitempty"`
	Diagnostic *diagnostics.Diagnostic `json:"diagnostic,omitempty"`
	Result     *RunResponse            `json:"result,omitempty"`
}

// Server serves a Runtime.
type Server struct {
	rt       *runtime.Runtime
	logger   log15.Logger
	origins  []string
	upgrader websocket.Upgrader
}

// New creates a server for rt. Allowed origins come from the runtime's
// server configuration.
func New(rt *runtime.Runtime, logger log15.Logger) *Server {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	s := &Server{
		rt:      rt,
		logger:  logger,
		origins: rt.Config().Server.AllowedOrigins,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/healthz", s.handleHealth)
	router.POST("/run", s.handleRun)
	router.POST("/check", s.handleCheck)
	router.POST("/fmt", s.handleFormat)
	router.POST("/runs/:id/kill", s.handleKill)
	router.GET("/ws", s.handleWS)

	return cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

// ListenAndServe serves on addr until ctx is done, then kills in-flight runs
// and shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: writeWait,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server started", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.rt.Kill()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		s.logger.Info("HTTP server stopping", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// --- HTTP ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	res, err := s.rt.Run(r.Context(), req.Source, req.file())
	resp := response(res, err)
	s.logger.Debug("Run request served", "file", req.file(), "exit", resp.ExitCode)

	status := http.StatusOK
	if resp.ExitCode == runtime.ExitInternal || resp.ExitCode == runtime.ExitUsage {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	diags := s.rt.Check(req.Source, req.file())
	if diags == nil {
		diags = []diagnostics.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"diagnostics": diags})
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	out, err := s.rt.Format(req.Source, req.file())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"diagnostics": runtime.Diagnostics(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source": out})
}

func (s *Server) handleKill(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if !s.rt.KillRun(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such run: " + id})
		return
	}
	s.logger.Info("Run killed", "run", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (RunRequest, bool) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSourceBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request: " + err.Error()})
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// response converts a run outcome. Host errors become E_INTERNAL diagnostics.
func response(res *runtime.Result, err error) RunResponse {
	resp := RunResponse{
		ExitCode:    runtime.ExitCode(err),
		Output:      []string{},
		Shapes:      []robot.Shape{},
		Diagnostics: runtime.Diagnostics(err),
	}
	if err != nil && resp.Diagnostics == nil {
		resp.Diagnostics = []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EInternal, err.Error(), nil, ""),
		}
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []diagnostics.Diagnostic{}
	}
	if res != nil {
		resp.RunID = res.RunID
		resp.Output = res.Output
		if res.Shapes != nil {
			resp.Shapes = res.Shapes
		}
		state := res.Robot
		resp.Robot = &state
	}
	return resp
}

// --- WebSocket ---

// handleWS runs the program sent as the first frame and streams its effects.
// Any later frame, or the client going away, kills the run.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxSourceBytes)

	var req RunRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Debug("WebSocket request unreadable", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil || m.Type == MsgKill {
				return
			}
		}
	}()

	var mu sync.Mutex
	send := func(m Message) {
		mu.Lock()
		defer mu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); err != nil {
			cancel()
		}
	}

	res, err := s.rt.RunWith(ctx, req.Source, req.file(), runtime.Hooks{
		Output: func(line string) {
			send(Message{Type: MsgPrint, Line: line})
		},
		Shape: func(shape robot.Shape) {
			send(Message{Type: MsgShape, Shape: &shape})
		},
	})
	resp := response(res, err)
	for i := range resp.Diagnostics {
		send(Message{Type: MsgDiagnostic, Diagnostic: &resp.Diagnostics[i]})
	}
	send(Message{Type: MsgDone, Result: &resp})

	mu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	mu.Unlock()
}
