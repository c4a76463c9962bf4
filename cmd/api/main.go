package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"rasoi-ai/internal/config"
	"rasoi-ai/internal/http"
	"rasoi-ai/internal/intent"
	"rasoi-ai/internal/llm"
	"rasoi-ai/internal/orchestrator"
	"rasoi-ai/internal/rag"
	"rasoi-ai/internal/storage"
	"rasoi-ai/internal/vectorstore"
	"rasoi-ai/internal/vision"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	recipeRepo := storage.NewRecipeRepo(db)

	// Initialize Qdrant vector store
	ctx := context.Background()

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Create RAG engine
	ragParams := rag.DefaultParams()
	ragParams.TopK = cfg.RetrievalTopK
	if cfg.RetrievalLanguage != "" {
		ragParams.Filters = map[string]any{"language": cfg.RetrievalLanguage}
	}
	ragEngine := rag.NewEngine(embedder, vectorStore, cfg.QdrantCollection, llmClient, ragParams)
	slog.Info("RAG engine initialized", "top_k", ragParams.TopK, "language_filter", cfg.RetrievalLanguage)

	// The expert model answers creative queries; without a fine-tuned
	// deployment the base model serves both roles.
	expertModel := cfg.ExpertModelName
	if expertModel == "" {
		expertModel = cfg.LLMModelName
	}

	classifier := intent.NewClassifier(llmClient, cfg.LLMModelName)
	orch := orchestrator.New(classifier, ragEngine, llmClient, expertModel, cfg.QueryTimeout)
	slog.Info("Query orchestrator initialized", "expert_model", expertModel, "timeout", cfg.QueryTimeout)

	// Create router with dependencies
	deps := &http.Deps{
		QueryService: orch,
		RecipeRepo:   recipeRepo,
	}
	if cfg.VisionBaseURL != "" {
		deps.Analyzer = vision.NewClient(cfg.VisionBaseURL)
		slog.Info("Vision analyzer enabled", "base_url", cfg.VisionBaseURL)
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
