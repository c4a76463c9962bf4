package handlers

import (
	"net/http"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/storage"
)

// RecipesHandler handles HTTP requests for recipe listings.
type RecipesHandler struct {
	recipeRepo storage.RecipeStore
}

// NewRecipesHandler creates a new RecipesHandler.
func NewRecipesHandler(recipeRepo storage.RecipeStore) *RecipesHandler {
	return &RecipesHandler{recipeRepo: recipeRepo}
}

// RecipeResponse represents one recipe in a listing response.
type RecipeResponse struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	SourceURL    string   `json:"source_url,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Cuisine      string   `json:"cuisine,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// ServeHTTP handles HTTP requests for recipe listings. Recipes can be
// filtered by the "cuisine" and "search" query parameters.
func (h *RecipesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cuisine := r.URL.Query().Get("cuisine")
	search := r.URL.Query().Get("search")

	recipes, err := h.recipeRepo.List(ctx, cuisine, search)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list recipes", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list recipes")
		return
	}

	response := make([]RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		response = append(response, RecipeResponse{
			ID:           recipe.ID,
			Title:        recipe.Title,
			SourceURL:    recipe.SourceURL,
			Ingredients:  recipe.Ingredients,
			Instructions: recipe.Instructions,
			Cuisine:      recipe.Cuisine,
			Tags:         recipe.Tags,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
