// Package apiserver exposes a running program over HTTP and WebSocket
// for external tooling (spec.md's `-api-server` mode): a snapshot of
// VM status and the symbol table over plain HTTP, and a live step
// trace over a WebSocket stream. The route/CORS/websocket-pump shape
// is grounded on the teacher's api/server.go and api/websocket.go.
package apiserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/vm"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves a single compiled program's live state. Unlike the
// teacher's multi-session API, one selfc process runs exactly one
// program, so there is no session manager — just the VM and symbol
// table it was given at NewServer time.
type Server struct {
	machine *vm.VM
	syms    *symtab.Table

	mux    *http.ServeMux
	server *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer creates a server reporting on machine and syms. Install it
// as machine's step hook (see Server.StepHook) before the VM runs so
// /trace subscribers see every instruction.
func NewServer(machine *vm.VM, syms *symtab.Table) *Server {
	s := &Server{
		machine: machine,
		syms:    syms,
		mux:     http.NewServeMux(),
		clients: make(map[*client]struct{}),
	}
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/symbols", s.handleSymbols)
	s.mux.HandleFunc("/trace", s.handleTrace)
	return s
}

// Handler returns the server's HTTP handler with localhost-only CORS
// applied.
func (s *Server) Handler() http.Handler { return s.corsMiddleware(s.mux) }

// ListenAndServe starts the HTTP server at addr and blocks until it
// stops or ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api server listening on http://%s", addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}

// statusResponse is the snapshot GET /status returns.
type statusResponse struct {
	PC       int    `json:"pc"`
	SP       int    `json:"sp"`
	BP       int    `json:"bp"`
	A        int64  `json:"a"`
	Cycle    int64  `json:"cycle"`
	Exited   bool   `json:"exited"`
	ExitCode int    `json:"exitCode"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		PC: s.machine.PC, SP: s.machine.SP, BP: s.machine.BP,
		A: s.machine.A, Cycle: s.machine.Cycle,
		Exited: s.machine.Exited, ExitCode: s.machine.ExitCode,
	})
}

// symbolResponse is one identifier as reported by GET /symbols.
type symbolResponse struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Type  int    `json:"type"`
	Val   int64  `json:"val"`
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	idents := s.syms.All()
	out := make([]symbolResponse, 0, len(idents))
	for _, id := range idents {
		out = append(out, symbolResponse{
			Name: id.Name, Class: id.Class.String(),
			Type: int(id.Type), Val: id.Val,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("apiserver: encoding response: %v", err)
	}
}

// stepEvent is one instruction as broadcast to /trace subscribers.
type stepEvent struct {
	Cycle   int64  `json:"cycle"`
	PC      int    `json:"pc"`
	Op      string `json:"op"`
	Operand int64  `json:"operand"`
	A       int64  `json:"a"`
	SP      int    `json:"sp"`
	BP      int    `json:"bp"`
}

// client is one subscribed WebSocket connection.
type client struct {
	conn *websocket.Conn
	send chan stepEvent
}

// handleTrace upgrades the connection and registers it to receive
// every subsequent StepHook call as a JSON event.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("apiserver: websocket upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan stepEvent, 256)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.drop(c)
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// StepHook implements the vm.VM.OnStep signature: wire
// `machine.OnStep = server.StepHook` before running so every
// instruction fans out to connected /trace clients.
func (s *Server) StepHook(m *vm.VM, pc int, op vm.Op, operand int64) {
	ev := stepEvent{Cycle: m.Cycle, PC: pc, Op: op.String(), Operand: operand, A: m.A, SP: m.SP, BP: m.BP}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- ev:
		default:
			// client too slow, drop this event rather than block the VM
		}
	}
}
