// Package server exposes tables and tournaments over HTTP. Commands are plain
// JSON requests authenticated by a bearer token whose subject is the
// participant id; table events reach browsers through a websocket gateway
// that relays the broadcast topics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
	"github.com/gorilla/websocket"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/table"
	"github.com/Silozo17/homeholdem-sub001/internal/tournament"
)

// Channel is the broadcast bus the gateway relays
type Channel interface {
	broadcast.Publisher
	broadcast.Subscriber
}

// Config holds listener settings
type Config struct {
	Addr           string
	AllowedOrigins []string
	// RateLimit is requests per minute per client IP; zero disables limiting
	RateLimit int
	JWTSecret string
}

// Server serves the command API and the websocket gateway
type Server struct {
	cfg         Config
	tables      *table.Manager
	tournaments *tournament.Controller
	bus         Channel
	auth        *jwtauth.JWTAuth
	logger      *log.Logger
	upgrader    websocket.Upgrader

	mu     sync.Mutex
	online map[string]int
}

// New creates a server. tournaments may be nil.
func New(cfg Config, tables *table.Manager, tournaments *tournament.Controller, bus Channel, logger *log.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		tables:      tables,
		tournaments: tournaments,
		bus:         bus,
		auth:        NewAuth(cfg.JWTSecret),
		logger:      logger.WithPrefix("server"),
		online:      make(map[string]int),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

// Router builds the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		// Public reads and the gateway, which admits spectators without a token.
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(s.auth, jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Get("/tables", s.handleListTables)
			r.Get("/tables/{tableID}/state", s.handleState)
			r.Get("/tables/{tableID}/hands/{handID}/actions", s.handleActions)
			r.Get("/tables/{tableID}/hands/{handID}/result", s.handleResult)
			r.Get("/tables/{tableID}/ws", s.handleWebSocket)
			r.Get("/tournaments", s.handleListTournaments)
			r.Get("/tournaments/{tournamentID}", s.handleTournament)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(s.auth))
			r.Use(jwtauth.Authenticator)

			r.Post("/tables", s.handleCreateTable)
			r.Delete("/tables/{tableID}", s.handleCloseTable)
			r.Post("/tables/{tableID}/deal", s.handleDeal)
			r.Post("/tables/{tableID}/actions", s.handleAct)
			r.Post("/tables/{tableID}/heartbeat", s.handleHeartbeat)
			r.Post("/tables/{tableID}/timeout", s.handleTimeout)
			r.Post("/tables/{tableID}/seats", s.handleJoin)
			r.Delete("/tables/{tableID}/seats/me", s.handleLeave)
			r.Post("/tables/{tableID}/kick", s.handleKick)
			r.Post("/tables/{tableID}/rebuy", s.handleRebuy)
			r.Post("/tables/{tableID}/chat", s.handleChat)
			r.Get("/tables/{tableID}/hands/{handID}/cards", s.handleMyCards)
			r.Post("/tournaments/{tournamentID}/register", s.handleRegister)
		})
	})
	return r
}

// Serve listens on cfg.Addr until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("Stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes err as an error response, hiding internal details
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := protocol.CodeOf(err)
	msg := err.Error()
	if code == protocol.CodeInternal {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		msg = "internal error"
	}
	writeJSON(w, code.Status(), protocol.ErrorResponse{Error: protocol.NewError(code, msg)})
}
