package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/llm"
	"rasoi-ai/internal/vectorstore"
)

// Fixed user-facing replies for the two defined terminal failure paths.
// The engine's contract is that every failure produces one of these
// strings, never a raw error.
const (
	embedFailureReply      = "I'm sorry, I had trouble understanding your question. Could you please rephrase?"
	completionFailureReply = "I'm sorry, I encountered an error while formulating a response. Please try again."
)

const systemPrompt = "You are a helpful and friendly cooking assistant. Answer the user's question " +
	"based on the provided context. If the context isn't relevant, use your general cooking knowledge."

// Engine produces grounded answers to factual cooking questions.
type Engine interface {
	// Answer runs the full RAG chain: embed, retrieve, generate.
	// It always returns a user-facing string; failures map to fixed replies.
	Answer(ctx context.Context, question string) string
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	collection  string
	completer   Completer
	params      Params
	logger      *slog.Logger
}

// NewEngine creates a new RAG engine over the given clients.
func NewEngine(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	completer Completer,
	params Params,
) Engine {
	if params.TopK <= 0 {
		params.TopK = DefaultParams().TopK
	}
	if params.Temperature == 0 {
		params.Temperature = DefaultParams().Temperature
	}
	return &ragEngine{
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		completer:   completer,
		params:      params,
		logger:      slog.Default(),
	}
}

// Answer answers a question using RAG.
func (e *ragEngine) Answer(ctx context.Context, question string) string {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "RAG chain started", "question", question, "k", e.params.TopK)

	// Embed the question. An embedding failure is a defined terminal state:
	// no vector store or completion call is made.
	embeddings, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil || len(embeddings) == 0 {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		return embedFailureReply
	}
	queryVector := embeddings[0]

	// Retrieve context. A store failure degrades to an empty context rather
	// than aborting; the model then answers from general knowledge.
	// No minimum similarity floor is applied to the hits.
	snippets := e.retrieveContext(ctx, queryVector)

	var contextBuilder strings.Builder
	for i, snippet := range snippets {
		if i > 0 {
			contextBuilder.WriteString("\n\n")
		}
		contextBuilder.WriteString("- ")
		contextBuilder.WriteString(snippet)
	}

	userPrompt := fmt.Sprintf("Context:\n%s\n\nUser's Question: %s", contextBuilder.String(), question)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	answer, err := e.completer.ChatWithMessages(ctx, messages, llm.ChatParams{
		Temperature: e.params.Temperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate final response", "error", err)
		return completionFailureReply
	}

	logger.InfoContext(ctx, "RAG chain completed", "snippets_used", len(snippets), "answer_length", len(answer))
	return answer
}

// retrieveContext queries the vector store and returns the stored text chunks
// in descending similarity order.
func (e *ragEngine) retrieveContext(ctx context.Context, queryVector []float32) []string {
	logger := contextutil.LoggerFromContext(ctx)

	results, err := e.vectorStore.Search(ctx, e.collection, queryVector, e.params.TopK, e.params.Filters)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query vector store, continuing without context", "error", err)
		return nil
	}

	snippets := make([]string, 0, len(results))
	for _, result := range results {
		chunk, _ := result.Meta["text_chunk"].(string)
		if chunk == "" {
			logger.WarnContext(ctx, "search result missing text chunk", "point_id", result.PointID)
			continue
		}
		snippets = append(snippets, chunk)
	}

	logger.InfoContext(ctx, "vector search completed", "results", len(results), "snippets", len(snippets))
	return snippets
}
