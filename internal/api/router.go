package api

import (
	"net/http"

	"voxctf/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the game engine methods the admin API calls.
// Keeping this minimal and narrow lets tests substitute a fake engine
// without spinning up a full world/transport/master stack.
type EngineInterface interface {
	PlayerCount() int
	TeamScores() (a, b int)
	Leaderboard() *game.Leaderboard
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Built for dependency injection: tests can pass a RateLimitConfig
// with a high limit and skip the real engine's network stack entirely.
type RouterConfig struct {
	// Engine is the game engine queried by the admin endpoints (required).
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter. If nil, one
	// is built from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil. If both are nil,
	// DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins. If nil,
	// uses AllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware, useful for
	// benchmarks and quiet test output.
	DisableLogging bool

	// Spectators is the optional WebSocket hub serving /ws/spectate. If
	// nil, the route is not registered.
	Spectators *SpectatorHub
}

type routerHandlers struct {
	engine EngineInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It is pure: no goroutines started, no listeners opened, safe to drive
// with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{engine: cfg.Engine}

	r.Get("/healthz", h.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/leaderboard", h.handleGetLeaderboard)
	})
	if cfg.Spectators != nil {
		r.Get("/ws/spectate", cfg.Spectators.HandleWebSocket)
	}

	return r
}

// handleHealthz replies 200 as long as the process is up; it does not
// depend on engine state so a stalled tick loop doesn't mask itself as
// unhealthy behind a lock.
func (h *routerHandlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
