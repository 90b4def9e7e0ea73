package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"markestedt/datepaste/config"
	"markestedt/datepaste/stamp"
	"markestedt/datepaste/storage"
)

//go:embed static/*
var staticFiles embed.FS

var timeNow = time.Now

// SourceAPI tags pastes requested through the HTTP API
const SourceAPI = "api"

// Dispatcher is the agent side of the API: it accepts paste requests and
// reports what the agent is doing. Paste calls must not block.
type Dispatcher interface {
	PasteKind(source string, kind stamp.Kind)
	PasteText(source, text string)
	Status() Status
}

// Status is the agent state exposed at /api/status
type Status struct {
	State         string    `json:"status"`
	LastPaste     time.Time `json:"lastPaste,omitempty"`
	HotkeysActive bool      `json:"hotkeysActive"`
	Uptime        string    `json:"uptime"`
}

// Server serves the local settings UI and the paste API
type Server struct {
	db         *storage.DB
	config     *config.Config
	renderer   *stamp.Renderer
	dispatcher Dispatcher
	hub        *Hub
	running    atomic.Bool
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewServer creates a new web server
func NewServer(db *storage.DB, cfg *config.Config, renderer *stamp.Renderer, dispatcher Dispatcher) *Server {
	s := &Server{
		db:         db,
		config:     cfg,
		renderer:   renderer,
		dispatcher: dispatcher,
		hub:        NewHub(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Addr returns the loopback address the server listens on
func (s *Server) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", s.GetConfig().Web.Port)
}

// Handler builds the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/preview", s.handlePreview)
		r.Get("/settings", s.handleGetSettings)
		r.Get("/formats", s.handleListFormats)
		r.Get("/timezones", s.handleTimezones)
		r.Get("/history", s.handleGetHistory)
		r.Get("/stats", s.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(s.sameOrigin)
			r.Post("/paste", s.handlePaste)
			r.Put("/settings", s.handlePutSettings)
			r.Post("/formats", s.handleAddFormat)
			r.Delete("/formats/{id}", s.handleDeleteFormat)
			r.Delete("/history", s.handleClearHistory)
			r.Delete("/history/{id}", s.handleDeleteHistory)
		})
	})
	r.Get("/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The embed pattern guarantees the directory exists
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(staticFS)))

	return r
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		s.hub.Stop()
	}()

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting web server", "url", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		return nil
	}
}

// GetConfig returns the current configuration (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// broadcast hands msg to the hub. Messages are dropped while the server is
// not running since nothing drains the hub queue then.
func (s *Server) broadcast(msg Message) {
	if !s.running.Load() {
		return
	}
	s.hub.BroadcastMessage(msg)
}

// BroadcastStatus broadcasts a status update to all connected clients
func (s *Server) BroadcastStatus(status string) {
	s.broadcast(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{Status: status},
	})
}

// BroadcastPaste broadcasts a recorded paste to all connected clients
func (s *Server) BroadcastPaste(p *storage.Paste) {
	s.broadcast(Message{
		Type: MessageTypePaste,
		Data: PasteMessage{
			ID:        p.ID,
			Source:    p.Source,
			Kind:      p.Kind,
			Text:      p.Text,
			Success:   p.Success(),
			Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
		},
	})
}

// checkOrigin only admits pages served by this server; the API can paste
// into the focused window, so foreign sites must not reach it.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	port := fmt.Sprintf(":%d", s.GetConfig().Web.Port)
	return origin == "127.0.0.1"+port || origin == "localhost"+port
}

// sameOrigin guards state-changing routes. Requests with a body must be
// JSON, which forces a CORS preflight from browsers; any Origin header must
// be this server's.
func (s *Server) sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.checkOrigin(r) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && !isJSON(r) {
			writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &wsClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
