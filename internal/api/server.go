// Package api provides the local HTTP and WebSocket API for controlling the engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"autoinput/internal/action"
	"autoinput/internal/config"
	"autoinput/internal/control"
	"autoinput/internal/engine"
	"autoinput/internal/protocol"
)

// Server provides HTTP API for local control
type Server struct {
	surface *control.Surface
	token   string
	wsMgr   *WSManager
	httpSrv *http.Server
}

// NewServer creates a new API server. Completion events from the engine are
// broadcast to every WebSocket client.
func NewServer(surface *control.Surface, token string) *Server {
	s := &Server{
		surface: surface,
		token:   token,
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()

	surface.Subscribe(s.BroadcastActionStopped)
	return s
}

// Handler returns the API routes wrapped in auth and panic recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/toggle", s.handleToggle)
	mux.HandleFunc("/api/drag", s.handleDrag)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/setups", s.handleSetups)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves the API on addr until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("ERROR: API server failed to listen on %s: %v", addr, err)
		return err
	}

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("API: Listening on %s", ln.Addr())

	if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("ERROR: API server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the WebSocket hub
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMgr.stop()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
	}
}

// writeError maps engine and surface errors to status codes
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, action.ErrInvalidDescriptor):
		code = http.StatusBadRequest
	case errors.Is(err, control.ErrSetupNotFound):
		code = http.StatusNotFound
	case errors.Is(err, engine.ErrClosed):
		code = http.StatusServiceUnavailable
	}
	log.Printf("API: Request failed: %v", err)
	http.Error(w, err.Error(), code)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleStart handles POST /api/start?setup=<name>, or a setup object in the body
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	name := r.URL.Query().Get("setup")
	if name != "" {
		if err := s.surface.StartSetup(name); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"status": "ok", "setup": name, "running": true})
		return
	}

	var setup config.Setup
	if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
		http.Error(w, "Missing setup parameter or invalid setup body", http.StatusBadRequest)
		return
	}
	d, err := setup.Descriptor()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.surface.StartAction(d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok", "setup": setup.Name, "running": true})
}

// handleStop handles POST /api/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := s.surface.StopAction(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok", "running": false})
}

// handleToggle handles POST /api/toggle?setup=<name>
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	name := r.URL.Query().Get("setup")
	if name == "" {
		http.Error(w, "Missing setup parameter", http.StatusBadRequest)
		return
	}
	running, err := s.surface.ToggleSetup(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok", "setup": name, "running": running})
}

// handleDrag handles POST /api/drag with {"dx": .., "dy": ..}
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var p protocol.DragPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid drag vector", http.StatusBadRequest)
		return
	}
	if err := s.surface.UpdateDragVector(p.DX, p.DY); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, statusPayload(s.surface.Status()))
}

// handleSetups handles GET /api/setups
func (s *Server) handleSetups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{
		"active": s.surface.ActiveSetup(),
		"setups": s.surface.Setups(),
	})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func statusPayload(st engine.Status) protocol.StatusPayload {
	return protocol.StatusPayload{
		Running:     st.Running,
		Setup:       st.SetupID,
		Mode:        st.Mode,
		Ticks:       st.Ticks,
		FailedTicks: st.FailedTicks,
		LastError:   st.LastError,
	}
}

// BroadcastActionStopped forwards an engine completion event to WebSocket clients
func (s *Server) BroadcastActionStopped(ev engine.Event) {
	p := protocol.ActionStoppedPayload{
		Setup:  ev.SetupID,
		Mode:   ev.Mode.String(),
		Reason: string(ev.Reason),
		Ticks:  ev.Ticks,
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	msg, err := protocol.NewMessage(protocol.TypeActionStopped, p)
	if err != nil {
		log.Printf("WS: %v", err)
		return
	}
	s.wsMgr.Broadcast(msg)
}
