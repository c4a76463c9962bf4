package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rasoi-ai/internal/handlers"
	"rasoi-ai/internal/storage"
	"rasoi-ai/internal/vision"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryService handlers.QueryService
	RecipeRepo   storage.RecipeStore
	Analyzer     vision.Analyzer
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	r.Method(http.MethodGet, "/", handlers.NewHealthHandler())
	r.Method(http.MethodPost, "/query/assistant", handlers.NewQueryHandler(deps.QueryService))
	r.Method(http.MethodGet, "/recipes", handlers.NewRecipesHandler(deps.RecipeRepo))

	if deps.Analyzer != nil {
		r.Method(http.MethodPost, "/vision/analyze", handlers.NewVisionHandler(deps.Analyzer))
	}

	return r
}
