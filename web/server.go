// Package web bridges sessions to browsers. Every websocket connection runs its own
// upgrade session; events are streamed as JSON and answers come back the same way.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"topgrade-gui/config"
	"topgrade-gui/log"
	"topgrade-gui/session"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Options configure a Server.
type Options struct {
	// Session is the command every connection runs. Rows and Cols are the default
	// size, a client may pass rows and cols as query parameters.
	Session session.Options
	// Spawn starts the child. Nil uses a real pty.
	Spawn session.Spawner
	// RecordRuns saves every finished run to the state file.
	RecordRuns bool
	// CheckOrigin overrides the origin check of the upgrade. Nil only accepts
	// same-origin requests.
	CheckOrigin func(r *http.Request) bool
}

// Server serves /ws and /healthz.
type Server struct {
	ctx      context.Context
	opts     Options
	spawn    session.Spawner
	registry *session.Registry
	upgrader websocket.Upgrader
}

// NewServer creates a server whose sessions are terminated when ctx is cancelled.
func NewServer(ctx context.Context, opts Options) *Server {
	spawn := opts.Spawn
	if spawn == nil {
		spawn = session.SpawnPTY
	}
	return &Server{
		ctx:      ctx,
		opts:     opts,
		spawn:    spawn,
		registry: session.NewRegistry(),
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
	}
}

// Registry returns the live sessions.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSession)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then stops every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.InfoLog.Printf("web: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if termErr := s.registry.TerminateAll(); termErr != nil {
			log.WarningLog.Printf("web: %v", termErr)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// hijacked websocket connections are not closed by Shutdown
	termErr := s.registry.TerminateAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return termErr
}

type health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health{Status: "ok", Sessions: s.registry.Len()}); err != nil {
		log.WarningLog.Printf("web: health: %v", err)
	}
}

// serverMessage is sent to the client. Type is output, prompt, prompt_cleared,
// ended or error.
type serverMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	ID   uint64 `json:"id,omitempty"`
	Kind string `json:"kind,omitempty"`
	Mask bool   `json:"mask,omitempty"`
	Hint string `json:"hint,omitempty"`

	ExitCode *int   `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// clientMessage is received from the client. Type is input or resize.
type clientMessage struct {
	Type string `json:"type"`
	// ID names the prompt being answered. Zero sends typed input.
	ID   uint64 `json:"id"`
	Data string `json:"data"`
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
}

func eventMessage(ev session.Event) serverMessage {
	switch ev := ev.(type) {
	case session.OutputAppended:
		return serverMessage{Type: "output", Text: ev.Text}
	case session.PromptRaised:
		p := ev.Prompt
		return serverMessage{Type: "prompt", ID: p.ID, Kind: p.Kind.String(), Mask: p.Mask, Hint: p.Hint(), Text: p.Text}
	case session.PromptCleared:
		return serverMessage{Type: "prompt_cleared", ID: ev.Prompt.ID}
	case session.SessionEnded:
		code := ev.ExitCode
		msg := serverMessage{Type: "ended", ExitCode: &code}
		if ev.Err != nil {
			msg.Error = ev.Err.Error()
		}
		return msg
	default:
		return serverMessage{Type: "error", Error: fmt.Sprintf("unknown event %T", ev)}
	}
}

// client serialises writes, gorilla connections allow one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *client) close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// sessionSize reads the optional rows and cols query parameters.
func sessionSize(r *http.Request, opts session.Options) (session.Options, error) {
	q := r.URL.Query()
	if q.Get("rows") == "" && q.Get("cols") == "" {
		return opts, nil
	}
	rows, err := strconv.ParseUint(q.Get("rows"), 10, 16)
	if err != nil || rows == 0 {
		return opts, fmt.Errorf("invalid rows %q", q.Get("rows"))
	}
	cols, err := strconv.ParseUint(q.Get("cols"), 10, 16)
	if err != nil || cols == 0 {
		return opts, fmt.Errorf("invalid cols %q", q.Get("cols"))
	}
	opts.Rows, opts.Cols = uint16(rows), uint16(cols)
	return opts, nil
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	opts, err := sessionSize(r, s.opts.Session)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WarningLog.Printf("web: upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	ctrl := session.NewControllerWithDeps(opts, s.spawn)
	s.registry.Add(ctrl)
	log.InfoLog.Printf("web: client %s connected, session %s", r.RemoteAddr, ctrl.ID())

	started := time.Now()
	if err := ctrl.Start(s.ctx); err != nil {
		// SessionEnded carries the error to the client
		log.ErrorLog.Printf("web: %v", err)
	}

	// client -> session
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readClient(c, ctrl)
	}()

	// session -> client. Events are drained even after the client went away.
	var ended session.SessionEnded
	writable := true
	for ev := range ctrl.Events() {
		if end, ok := ev.(session.SessionEnded); ok {
			ended = end
		}
		if !writable {
			continue
		}
		if err := c.send(eventMessage(ev)); err != nil {
			log.WarningLog.Printf("web: session %s: write failed: %v", ctrl.ID(), err)
			writable = false
			_ = ctrl.Terminate()
		}
	}

	if s.opts.RecordRuns {
		run := config.NewRunRecord(ctrl.Command(), started, time.Now(), ended.ExitCode, ended.Err, ctrl.Answered())
		if _, err := config.RecordRun(run); err != nil {
			log.WarningLog.Printf("web: failed to save run: %v", err)
		}
	}

	if writable {
		c.close("session ended")
	}
	// the reader returns once the client answered the close or the connection broke
	select {
	case <-readDone:
	case <-time.After(writeTimeout):
	}
	log.InfoLog.Printf("web: session %s finished", ctrl.ID())
}

// readClient applies client messages until the connection closes. A client that
// goes away stops its session.
func (s *Server) readClient(c *client, ctrl *session.Controller) {
	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.InfoLog.Printf("web: session %s: read: %v", ctrl.ID(), err)
			}
			if termErr := ctrl.Terminate(); termErr != nil {
				log.WarningLog.Printf("web: %v", termErr)
			}
			return
		}

		var err error
		switch msg.Type {
		case "input":
			var outcome session.Outcome
			if msg.ID != 0 {
				outcome, err = ctrl.Respond(msg.ID, msg.Data)
			} else {
				outcome, err = ctrl.SubmitInput(msg.Data)
			}
			log.InputTrace("web: session %s: input %s", ctrl.ID(), outcome)
		case "resize":
			err = ctrl.Resize(msg.Rows, msg.Cols)
		default:
			err = fmt.Errorf("unknown message type %q", msg.Type)
		}
		if err != nil {
			if sendErr := c.send(serverMessage{Type: "error", ID: msg.ID, Error: err.Error()}); sendErr != nil {
				log.WarningLog.Printf("web: session %s: %v", ctrl.ID(), sendErr)
			}
		}
	}
}
