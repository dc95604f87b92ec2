package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/query"
	"github.com/starford/munin/internal/ratelimit"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced on the private
// surface; the public brain endpoints are always open (and CORS-enabled).
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, engine *query.Engine, limiter *ratelimit.Limiter,
	authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, engine)

	r := chi.NewRouter()

	// Public surface: open, CORS *, rate limited per scope.
	r.Group(func(pub chi.Router) {
		pub.Use(corsAllowAll)
		pub.With(RateLimitMiddleware(limiter, "public:brain", ratelimit.Public)).
			Get("/public/brain", h.PublicBrain)
		pub.With(RateLimitMiddleware(limiter, "public:query", ratelimit.Query)).
			Get("/public/brain/query", h.PublicQueryGet)
		pub.With(RateLimitMiddleware(limiter, "public:query", ratelimit.Query)).
			Post("/public/brain/query", h.PublicQueryPost)

		// Explicit OPTIONS routes so preflight reaches the CORS middleware;
		// chi answers 405 for unregistered methods before middleware runs.
		preflight := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }
		pub.Options("/public/brain", preflight)
		pub.Options("/public/brain/query", preflight)
	})

	// Private surface.
	r.Group(func(priv chi.Router) {
		priv.Use(AuthMiddleware(authEnabled, token))

		// Creation invokes the AI pipeline, so it gets the strictest budget.
		priv.With(RateLimitMiddleware(limiter, "notes:create", ratelimit.AI)).
			Post("/notes", h.CreateNote)

		priv.With(RateLimitMiddleware(limiter, "notes:read", ratelimit.Standard)).
			Get("/notes", h.ListNotes)
		priv.With(RateLimitMiddleware(limiter, "notes:read", ratelimit.Standard)).
			Get("/notes/{id}", h.GetNote)
		priv.With(RateLimitMiddleware(limiter, "notes:write", ratelimit.Standard)).
			Patch("/notes/{id}", h.ToggleNote)
		priv.With(RateLimitMiddleware(limiter, "notes:write", ratelimit.Standard)).
			Delete("/notes/{id}", h.DeleteNote)

		priv.With(RateLimitMiddleware(limiter, "ask", ratelimit.Query)).
			Post("/ask", h.Ask)

		if sseHandler != nil {
			priv.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
