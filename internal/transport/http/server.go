package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"imposter-rounds/internal/app"
	"imposter-rounds/internal/config"
	"imposter-rounds/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	hub     *app.GameHub
	config  *config.Config
	limiter *RateLimiter
	logger  *slog.Logger
	done    chan struct{}
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, hub *app.GameHub, logger *slog.Logger) *Server {
	s := &Server{
		hub:     hub,
		config:  cfg,
		limiter: NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst),
		logger:  logger,
		done:    make(chan struct{}),
	}

	s.router = s.routes()

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// routes configures all HTTP routes
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger, s.config.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders())
	r.Use(CORS(s.config.Server.AllowedOrigins))
	r.Use(s.limiter.Middleware())

	// API routes
	r.Route("/api", func(r chi.Router) {
		if s.config.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
		}
		r.Use(RequestSizeLimiter(s.config.Server.MaxRequestSize))

		r.Post("/rooms", s.handleCreateRoom)
		r.Get("/rooms/{roomCode}", s.handleGetRoom)
		r.Get("/rooms/{roomCode}/exists", s.handleRoomExists)
		r.Get("/rooms/{roomCode}/scores", s.handleRoomScores)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
	})

	// WebSocket connections are long lived, so no request timeout here
	wsHandler := ws.NewHandler(s.hub, ws.ClientOptions{
		MessageRate:    s.config.WS.MessageRate,
		MessageBurst:   s.config.WS.MessageBurst,
		MaxMessageSize: s.config.WS.MaxMessageSize,
	}, s.config.Server.AllowedOrigins, s.logger)
	r.Method(http.MethodGet, "/ws", wsHandler)

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sweepLoop()

	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")

	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.server.Shutdown(ctx)
}

// sweepLoop drops idle rate limiter entries
func (s *Server) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			if n := s.limiter.Sweep(now); n > 0 {
				s.logger.Debug("rate limiter swept", "removed", n)
			}
		}
	}
}
