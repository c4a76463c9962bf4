package intent

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_completer.go -package=mocks rasoi-ai/internal/intent ChatCompleter

import (
	"context"
	"log/slog"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/llm"
)

// classifierSystemPrompt restricts the model to exactly one of the two labels.
const classifierSystemPrompt = "You are an API that classifies a user's cooking-related query. " +
	"Respond with only one of these two categories: 'Troubleshooting/Q&A' for specific problems, " +
	"errors, or factual questions, or 'Creative/Instructional' for open-ended requests like asking " +
	"for a recipe, ideas, or general guidance."

// ChatCompleter is the slice of the LLM client the classifier needs.
type ChatCompleter interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Classifier performs single-shot intent classification of a query.
type Classifier struct {
	completer ChatCompleter
	model     string
	logger    *slog.Logger
}

// NewClassifier creates a classifier backed by the given completion client.
// model names the classification model; empty uses the client default.
func NewClassifier(completer ChatCompleter, model string) *Classifier {
	return &Classifier{
		completer: completer,
		model:     model,
		logger:    slog.Default(),
	}
}

// Classify returns the intent for the query. It never returns an error:
// any API failure or unrecognized label is logged and mapped to the
// Troubleshooting default, failing toward the fact-grounded path.
func (c *Classifier) Classify(ctx context.Context, queryText string) Intent {
	logger := contextutil.LoggerFromContext(ctx)

	messages := []llm.Message{
		{Role: "system", Content: classifierSystemPrompt},
		{Role: "user", Content: queryText},
	}

	raw, err := c.completer.ChatWithMessages(ctx, messages, llm.ChatParams{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		logger.ErrorContext(ctx, "could not classify intent", "error", err)
		return Troubleshooting
	}

	result, err := Parse(raw)
	if err != nil {
		logger.WarnContext(ctx, "unexpected classification result, defaulting to troubleshooting", "raw", raw)
		return Troubleshooting
	}

	logger.InfoContext(ctx, "detected intent", "intent", result.String())
	return result
}
