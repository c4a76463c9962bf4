package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rasoi-ai/internal/config"
	"rasoi-ai/internal/dedupe"
	"rasoi-ai/internal/langdetect"
	"rasoi-ai/internal/llm"
	"rasoi-ai/internal/pipeline"
	"rasoi-ai/internal/storage"
	"rasoi-ai/internal/tagging"
	"rasoi-ai/internal/vectorstore"
)

// rawDataFileName is the JSON file the scrapers write into RAW_DATA_PATH.
const rawDataFileName = "scraped_contextual_posts.json"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Content ingestion and enrichment pipeline",
		Long:         "Loads scraped cooking content, enriches it with tags and language codes, and builds the vector search index.",
		SilenceUsage: true,
	}

	root.AddCommand(
		newStageCmd("run", "Run all pipeline stages in order", func(ctx context.Context, r *pipeline.Runner) error {
			return r.Run(ctx)
		}),
		newStageCmd("load", "Load and deduplicate scraped posts", func(ctx context.Context, r *pipeline.Runner) error {
			return r.Load(ctx)
		}),
		newStageCmd("tag", "Discover topic tags for stored content", func(ctx context.Context, r *pipeline.Runner) error {
			return r.Tag(ctx)
		}),
		newStageCmd("langdetect", "Detect the language of stored entries", func(ctx context.Context, r *pipeline.Runner) error {
			return r.DetectLanguages(ctx)
		}),
		newStageCmd("index", "Embed entries and build the vector index", func(ctx context.Context, r *pipeline.Runner) error {
			return r.BuildIndex(ctx)
		}),
	)

	return root
}

// newStageCmd wraps one pipeline stage as a subcommand. Dependencies are
// built per invocation so each stage can run standalone.
func newStageCmd(use, short string, run func(context.Context, *pipeline.Runner) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := buildRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return run(cmd.Context(), runner)
		},
	}
}

// buildRunner wires the pipeline from configuration. The returned cleanup
// closes the database.
func buildRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	cleanup := func() {
		_ = db.Close()
	}

	if err := storage.Migrate(db); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)

	dedupeParams := dedupe.DefaultParams()
	dedupeParams.SimilarityThreshold = cfg.DedupeThreshold

	runner := pipeline.NewRunner(pipeline.Deps{
		Contextual:  storage.NewContextualRepo(db),
		Recipes:     storage.NewRecipeRepo(db),
		Deduper:     dedupe.NewEngine(embedder, dedupeParams),
		Tagger:      tagging.NewTagger(tagging.DefaultParams()),
		Detector:    langdetect.NewDetector(),
		Embedder:    embedder,
		Store:       vectorStore,
		Collection:  cfg.QdrantCollection,
		RawDataPath: filepath.Join(cfg.RawDataPath, rawDataFileName),
	})
	return runner, cleanup, nil
}
