package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_recipe_store.go -package=mocks rasoi-ai/internal/storage RecipeStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// recipeListLimit bounds the number of recipes returned by a single listing.
const recipeListLimit = 100

// RecipeStore defines the interface for recipe storage operations.
type RecipeStore interface {
	// List returns recipes, optionally filtered by cuisine and a title
	// search term (both case-insensitive substring matches).
	List(ctx context.Context, cuisine, search string) ([]Recipe, error)
	// ListAll returns every stored recipe.
	ListAll(ctx context.Context) ([]Recipe, error)
	// InsertIfAbsent inserts a recipe unless its source URL is already
	// stored. Returns true if a row was inserted.
	InsertIfAbsent(ctx context.Context, recipe *Recipe) (bool, error)
	// UpdateTags replaces the tags of a recipe.
	UpdateTags(ctx context.Context, id int64, tags []string) error
}

// RecipeRepo provides methods for recipe operations.
// It implements the RecipeStore interface.
type RecipeRepo struct {
	db *sql.DB
}

// NewRecipeRepo creates a new RecipeRepo.
func NewRecipeRepo(db *sql.DB) *RecipeRepo {
	return &RecipeRepo{db: db}
}

// List returns recipes matching the optional cuisine and search filters.
func (r *RecipeRepo) List(ctx context.Context, cuisine, search string) ([]Recipe, error) {
	query := "SELECT id, title, source_url, ingredients, instructions, cuisine, tags FROM recipes"
	var conditions []string
	var args []any

	if cuisine != "" {
		conditions = append(conditions, "cuisine LIKE ? COLLATE NOCASE")
		args = append(args, "%"+cuisine+"%")
	}
	if search != "" {
		conditions = append(conditions, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+search+"%")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT %d", recipeListLimit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var recipes []Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	return recipes, nil
}

// ListAll returns every stored recipe.
func (r *RecipeRepo) ListAll(ctx context.Context) ([]Recipe, error) {
	return r.List(ctx, "", "")
}

// InsertIfAbsent inserts a recipe unless its source URL is already stored.
func (r *RecipeRepo) InsertIfAbsent(ctx context.Context, recipe *Recipe) (bool, error) {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return false, fmt.Errorf("failed to encode ingredients: %w", err)
	}
	instructions, err := json.Marshal(recipe.Instructions)
	if err != nil {
		return false, fmt.Errorf("failed to encode instructions: %w", err)
	}
	tags, err := marshalTags(recipe.Tags)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recipes (title, source_url, ingredients, instructions, cuisine, tags)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_url) DO NOTHING`,
		recipe.Title, recipe.SourceURL, string(ingredients), string(instructions), recipe.Cuisine, tags,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert recipe: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted > 0 {
		id, err := res.LastInsertId()
		if err == nil {
			recipe.ID = id
		}
	}
	return inserted > 0, nil
}

// UpdateTags replaces the tags of a recipe.
func (r *RecipeRepo) UpdateTags(ctx context.Context, id int64, tags []string) error {
	encoded, err := marshalTags(tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "UPDATE recipes SET tags = ? WHERE id = ?", encoded, id)
	if err != nil {
		return fmt.Errorf("failed to update recipe tags: %w", err)
	}
	return checkAffected(res)
}

// scanRecipe reads one row from a recipe listing query.
func scanRecipe(rows *sql.Rows) (*Recipe, error) {
	var recipe Recipe
	var sourceURL, cuisine, ingredientsJSON, instructionsJSON, tagsJSON sql.NullString

	err := rows.Scan(&recipe.ID, &recipe.Title, &sourceURL, &ingredientsJSON, &instructionsJSON, &cuisine, &tagsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipe: %w", err)
	}

	recipe.SourceURL = sourceURL.String
	recipe.Cuisine = cuisine.String

	if ingredientsJSON.Valid && ingredientsJSON.String != "" {
		if err := json.Unmarshal([]byte(ingredientsJSON.String), &recipe.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to decode ingredients for recipe %d: %w", recipe.ID, err)
		}
	}
	if instructionsJSON.Valid && instructionsJSON.String != "" {
		if err := json.Unmarshal([]byte(instructionsJSON.String), &recipe.Instructions); err != nil {
			return nil, fmt.Errorf("failed to decode instructions for recipe %d: %w", recipe.ID, err)
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &recipe.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for recipe %d: %w", recipe.ID, err)
		}
	}

	return &recipe, nil
}
