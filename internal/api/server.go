package api

import (
	"log"
	"net/http"
	"time"

	"voxctf/internal/game"

	"github.com/go-chi/chi/v5"
)

// stateBroadcastInterval is how often connected spectator sockets receive
// a fresh state snapshot.
const stateBroadcastInterval = 200 * time.Millisecond

// Server is the admin/metrics HTTP surface around a running game.Server.
// It never touches the gameplay path - that goes straight from the UDP
// transport into game.Server.HandleDatagram - this is read-only inspection
// plus the debug endpoints ops needs.
//
// Background workers do NOT start until Start() is called, so tests can
// construct a Server and use Router() directly against httptest.NewServer
// without opening a real listener.
type Server struct {
	engine      *game.Server
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	spectators  *SpectatorHub
}

// NewServer builds the admin surface for engine with default rate limiting
// and CORS origins.
func NewServer(engine *game.Server) *Server {
	return NewServerWithConfig(engine, RouterConfig{})
}

// NewServerWithConfig builds the admin surface for engine. cfg.Engine is
// always overwritten with engine; the rest of cfg (CORS origins, rate
// limit tuning) passes through to NewRouter.
func NewServerWithConfig(engine *game.Server, cfg RouterConfig) *Server {
	cfg.Engine = engine
	s := &Server{engine: engine, spectators: NewSpectatorHub()}

	s.rateLimiter = cfg.RateLimiter
	if s.rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		s.rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	cfg.RateLimiter = s.rateLimiter
	cfg.Spectators = s.spectators

	s.router = NewRouter(cfg)
	return s
}

// Start begins serving the admin surface on addr, and starts the
// spectator hub's register/broadcast loop and periodic state push.
// Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.spectators.Run()
	s.spectators.StartStateBroadcastLoop(s.engine, stateBroadcastInterval)
	log.Printf("admin API listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler, for use with httptest.NewServer in
// tests that want to hit endpoints without a real listener.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop halts the rate limiter's cleanup goroutine and the spectator hub.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.spectators.Stop()
}
