package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/dedupe"
	"rasoi-ai/internal/langdetect"
	"rasoi-ai/internal/storage"
	"rasoi-ai/internal/tagging"
	"rasoi-ai/internal/vectorstore"
)

// indexBatchSize is the number of entries embedded and upserted per request.
const indexBatchSize = 100

// Embedder generates embedding vectors for texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Deps holds the collaborators a Runner needs.
type Deps struct {
	Contextual  storage.ContextualStore
	Recipes     storage.RecipeStore
	Deduper     *dedupe.Engine
	Tagger      *tagging.Tagger
	Detector    *langdetect.Detector
	Embedder    Embedder
	Store       vectorstore.VectorStore
	Collection  string
	RawDataPath string
}

// Runner executes the enrichment pipeline stages over the stored content.
type Runner struct {
	deps Deps
}

// NewRunner creates a pipeline runner.
func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps}
}

// Run executes all stages in order. A failed stage is logged and does not
// stop the stages after it; the combined errors are returned at the end.
func (r *Runner) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load", r.Load},
		{"tag", r.Tag},
		{"langdetect", r.DetectLanguages},
		{"index", r.BuildIndex},
	}

	var errs []error
	for _, stage := range stages {
		logger.InfoContext(ctx, "pipeline stage starting", "stage", stage.name)
		if err := stage.fn(ctx); err != nil {
			logger.ErrorContext(ctx, "pipeline stage failed", "stage", stage.name, "error", err)
			errs = append(errs, fmt.Errorf("stage %s: %w", stage.name, err))
			continue
		}
		logger.InfoContext(ctx, "pipeline stage completed", "stage", stage.name)
	}
	return errors.Join(errs...)
}

// Load reads scraped posts from the raw data file, collapses posts whose
// questions are near-identical, and inserts new entries into storage.
func (r *Runner) Load(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	posts, err := LoadRawPosts(ctx, r.deps.RawDataPath)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}

	// Logical dedup runs over the whole batch, including posts whose URL is
	// already stored; the URL guard applies after, so a fresh near-duplicate
	// of a stored post clusters against it instead of slipping in.
	// Similarity is computed over the question text alone: one question maps
	// to one canonical cluster regardless of how the answers vary.
	candidates := make([]dedupe.Candidate, len(posts))
	for i, post := range posts {
		candidates[i] = dedupe.Candidate{
			Text:  post.Question,
			Score: post.Score,
		}
	}

	kept, err := r.deps.Deduper.Deduplicate(ctx, candidates)
	if err != nil {
		return fmt.Errorf("failed to deduplicate posts: %w", err)
	}

	known, err := r.deps.Contextual.ListURLs(ctx)
	if err != nil {
		return err
	}

	inserted := 0
	skipped := 0
	for _, idx := range kept {
		post := posts[idx]
		if _, ok := known[post.SourceURL]; ok {
			skipped++
			continue
		}
		entry := &storage.ContextualEntry{
			Question:       post.Question,
			Answer:         post.Answer,
			SourcePlatform: post.SourcePlatform,
			SourceURL:      post.SourceURL,
			Score:          post.Score,
		}
		ok, err := r.deps.Contextual.InsertIfAbsent(ctx, entry)
		if err != nil {
			logger.WarnContext(ctx, "failed to insert entry", "source_url", post.SourceURL, "error", err)
			continue
		}
		if ok {
			inserted++
		}
	}

	logger.InfoContext(ctx, "load stage finished",
		"scraped", len(posts), "after_dedupe", len(kept), "already_stored", skipped, "inserted", inserted)
	return nil
}

// Tag discovers topic tags over the combined corpus of contextual entries
// and recipes and writes them back to storage.
func (r *Runner) Tag(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := r.deps.Contextual.ListAll(ctx)
	if err != nil {
		return err
	}
	recipes, err := r.deps.Recipes.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(entries)+len(recipes) == 0 {
		return nil
	}

	texts := make([]string, 0, len(entries)+len(recipes))
	for _, entry := range entries {
		texts = append(texts, entry.Question+" "+entry.Answer)
	}
	for _, recipe := range recipes {
		texts = append(texts, recipeText(recipe))
	}

	tags, err := r.deps.Tagger.Tag(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to discover tags: %w", err)
	}

	tagged := 0
	for i, entry := range entries {
		if len(tags[i]) == 0 {
			continue
		}
		if err := r.deps.Contextual.UpdateTags(ctx, entry.ID, tags[i]); err != nil {
			logger.WarnContext(ctx, "failed to update entry tags", "id", entry.ID, "error", err)
			continue
		}
		tagged++
	}
	for i, recipe := range recipes {
		recipeTags := tags[len(entries)+i]
		if len(recipeTags) == 0 {
			continue
		}
		if err := r.deps.Recipes.UpdateTags(ctx, recipe.ID, recipeTags); err != nil {
			logger.WarnContext(ctx, "failed to update recipe tags", "id", recipe.ID, "error", err)
			continue
		}
		tagged++
	}

	logger.InfoContext(ctx, "tag stage finished", "documents", len(texts), "tagged", tagged)
	return nil
}

// DetectLanguages classifies the language of each contextual entry and
// stores the resulting code.
func (r *Runner) DetectLanguages(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := r.deps.Contextual.ListAll(ctx)
	if err != nil {
		return err
	}

	updated := 0
	for _, entry := range entries {
		lang := r.deps.Detector.Detect(entry.Question + " " + entry.Answer)
		if lang == entry.Language {
			continue
		}
		if err := r.deps.Contextual.UpdateLanguage(ctx, entry.ID, lang); err != nil {
			logger.WarnContext(ctx, "failed to update language", "id", entry.ID, "error", err)
			continue
		}
		updated++
	}

	logger.InfoContext(ctx, "langdetect stage finished", "entries", len(entries), "updated", updated)
	return nil
}

// BuildIndex embeds every contextual entry and upserts the vectors into the
// search collection in batches. Point IDs are derived from source URLs so
// re-indexing overwrites instead of duplicating.
func (r *Runner) BuildIndex(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := r.deps.Contextual.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.InfoContext(ctx, "nothing to index")
		return nil
	}

	indexed := 0
	for start := 0; start < len(entries); start += indexBatchSize {
		end := min(start+indexBatchSize, len(entries))
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, entry := range batch {
			texts[i] = fmt.Sprintf("Question: %s\nAnswer: %s", entry.Question, entry.Answer)
		}

		vectors, err := r.deps.Embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}

		points := make([]vectorstore.Point, len(batch))
		for i, entry := range batch {
			points[i] = vectorstore.Point{
				ID:  pointID(entry),
				Vec: vectors[i],
				Meta: map[string]any{
					"text_chunk":      texts[i],
					"question":        entry.Question,
					"answer":          entry.Answer,
					"source_platform": entry.SourcePlatform,
					"language":        entry.Language,
					"tags":            strings.Join(entry.Tags, ","),
				},
			}
		}

		if err := r.deps.Store.Upsert(ctx, r.deps.Collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}
		indexed += len(batch)
	}

	logger.InfoContext(ctx, "index stage finished", "indexed", indexed)
	return nil
}

// pointID derives a stable UUID for an entry from its source URL.
func pointID(entry storage.ContextualEntry) string {
	if entry.SourceURL != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(entry.SourceURL)).String()
	}
	return uuid.NewString()
}

// recipeText builds the taggable text of a recipe.
func recipeText(recipe storage.Recipe) string {
	parts := []string{recipe.Title}
	parts = append(parts, recipe.Ingredients...)
	parts = append(parts, recipe.Instructions...)
	return strings.Join(parts, " ")
}
