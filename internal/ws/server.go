package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/config"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/works"
)

const readLimit = 512

// Server serves the click feed, the works listing and the click sink.
type Server struct {
	config      *config.Config
	broadcaster *Broadcaster
	catalog     *works.Catalog
	limiter     *works.ClickLimiter
	stats       ProcStats
}

// NewServer wires the HTTP routes to the broadcaster and catalogue.
func NewServer(cfg *config.Config, broadcaster *Broadcaster, catalog *works.Catalog) *Server {
	return &Server{
		config:      cfg,
		broadcaster: broadcaster,
		catalog:     catalog,
		limiter: works.NewClickLimiter(
			cfg.Feed.ClickInterval,
			cfg.Feed.LimiterMaxEntries,
			cfg.Feed.LimiterCleanup,
		),
		stats: processStats,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/ws", s.handleWS)
	mux.HandleFunc("/api/works", s.handleWorks)
	mux.HandleFunc("/api/works/", s.handleWorkRoutes)
	mux.HandleFunc("/healthz", s.handleHealth)
}

// Click records a click on workID and broadcasts it. It is shared by the
// HTTP sink and the mock generator.
func (s *Server) Click(workID string) (uint64, error) {
	if _, err := s.catalog.RecordClick(workID); err != nil {
		return 0, err
	}
	return s.broadcaster.BroadcastWorkClick(workID), nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		log.Printf("ws client rejected (%s): %v", r.RemoteAddr, err)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	log.Printf("WebSocket client connected: %s (%s)", r.RemoteAddr, c.id)

	pongWait := s.config.Feed.PongWait
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is receive-only; reading just services control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.broadcaster.RemoveClient(c)
	log.Printf("WebSocket client disconnected: %s (%s)", r.RemoteAddr, c.id)
}

func (s *Server) handleWorks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.List())
}

func (s *Server) handleWorkRoutes(w http.ResponseWriter, r *http.Request) {
	// Parse: /api/works/{id}/clicks
	path := strings.TrimPrefix(r.URL.Path, "/api/works/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] != "clicks" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.handleWorkClick(w, r, strings.TrimSpace(parts[0]))
}

func (s *Server) handleWorkClick(w http.ResponseWriter, r *http.Request, workID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if workID == "" {
		http.Error(w, "work id is required", http.StatusBadRequest)
		return
	}
	if _, ok := s.catalog.Get(workID); !ok {
		http.Error(w, "work not found", http.StatusNotFound)
		return
	}
	if !s.limiter.Allow(clientIP(r), workID) {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if _, err := s.Click(workID); err != nil {
		if errors.Is(err, works.ErrUnknownWork) {
			http.Error(w, "work not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to record click", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := strings.TrimSpace(s.config.Server.AllowedOrigin)
	if allowed == "" || allowed == "*" {
		return true
	}
	return origin == allowed
}

// clientIP prefers the first X-Forwarded-For entry, then X-Real-Ip, then
// the connection's remote host.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
