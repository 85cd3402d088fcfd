/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /hooks/rocketchat     Chat webhook
  /api/commands         Command runner
  /api/session/*        Read-only session views
  /api/scenarios/*      Demo scenarios (demo mode only)
  /healthz              Liveness

SECURITY NOTE:
  Only the webhook checks a token. Put the JSON API behind a private
  network or a proxy that authenticates.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/pokerpal/serve.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	Scenarios      bool // mount /api/scenarios
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Post("/hooks/rocketchat", h.RocketChatHook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", h.PostCommand)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Get("/events", h.GetEvents)
			r.Get("/pnl", h.GetPnL)
		})

		if opts.Scenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	return r
}
