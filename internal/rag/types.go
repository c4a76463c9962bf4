package rag

import (
	"context"

	"rasoi-ai/internal/llm"
)

// Embedder is the slice of the embeddings client the engine needs.
// Interfaces are defined from the consumer side so tests can substitute fakes.
type Embedder interface {
	// EmbedTexts returns one vector per input text, order-preserving.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is the slice of the LLM client the engine needs.
type Completer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Params holds the tunable retrieval parameters.
type Params struct {
	// TopK is the number of nearest neighbors retrieved per query.
	TopK int
	// Temperature is passed to the completion call.
	Temperature float32
	// Filters restricts retrieval to points whose payload matches every
	// entry exactly (e.g. {"language": "en"}). Nil retrieves from the
	// whole collection.
	Filters map[string]any
}

// DefaultParams returns the retrieval parameters used in production.
func DefaultParams() Params {
	return Params{
		TopK:        3,
		Temperature: 0.7,
	}
}
