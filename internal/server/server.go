// Package server exposes the globe state, settings, camera preview and
// the live interaction event stream over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/capture"
	"github.com/ayusman/pinchglobe/internal/scene"
	"github.com/ayusman/pinchglobe/internal/server/api"
	"github.com/ayusman/pinchglobe/internal/sink"
	"github.com/ayusman/pinchglobe/internal/store"
)

// SceneSource provides globe snapshots.
type SceneSource interface {
	Snapshot() scene.Snapshot
}

// Config holds the server configuration. Every dependency is optional;
// routes whose dependency is missing are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Preview   *capture.Preview
	Bus       *sink.Bus
	Scene     SceneSource
	Log       *zap.Logger

	// ValidateSetting checks a settings write before it is stored.
	ValidateSetting func(key, value string) error
	// SettingsChanged is called after a settings write or delete.
	SettingsChanged func()
	// Status adds fields to the health response.
	Status func() map[string]any
}

// Server is the HTTP front end.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    *zap.Logger
	events *EventsHandler
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log.With(zap.String("component", "http")),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Scene != nil {
		s.mux.HandleFunc("/api/scene", s.handleScene)
	}

	if s.config.Store != nil {
		settings := api.NewSettingsHandler(s.config.Store, s.config.ValidateSetting, s.config.SettingsChanged)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.Bus != nil {
		s.events = NewEventsHandler(s.config.Bus, s.config.Scene, s.log)
		s.mux.Handle("/api/events", s.events)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.events != nil {
		response["ws_clients"] = s.events.Clients()
	}
	if s.config.Status != nil {
		for k, v := range s.config.Status() {
			response[k] = v
		}
	}

	api.WriteJSON(w, http.StatusOK, response)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	api.WriteJSON(w, http.StatusOK, s.config.Scene.Snapshot())
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
