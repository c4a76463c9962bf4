package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/intent"
	"rasoi-ai/internal/llm"
	"rasoi-ai/internal/rag"
)

// Source labels identify which backend produced a response.
const (
	SourceEmergency   = "Emergency System"
	SourceRAG         = "RAG System"
	SourceExpert      = "Fine-Tuned LLM"
	SourceRAGFallback = "RAG System (Fallback)"
)

// emergencyReply is returned verbatim whenever an emergency keyword is
// present; it must be producible even when every backing service is down.
const emergencyReply = "EMERGENCY DETECTED. Please ensure your immediate safety. " +
	"Turn off all cooking appliances. If there is a fire, use a fire extinguisher. " +
	"Do not use water on a grease fire."

const expertSystemPrompt = "You are a helpful and friendly cooking assistant. " +
	"Handle creative requests and generate recipes or ideas with flair."

// Response is the immutable result of handling one query.
type Response struct {
	ResponseText string
	Intent       string
	Source       string
}

// Classifier returns a validated intent for a query. It must not fail;
// the classifier's own fallback applies on error.
type Classifier interface {
	Classify(ctx context.Context, queryText string) intent.Intent
}

// Completer is the slice of the LLM client used for the expert model call.
type Completer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Orchestrator routes one user query to exactly one response-producing path:
// emergency interception, then intent classification, then RAG or the
// fine-tuned expert model with RAG as the expert's fallback. It holds no
// cross-request state; independent queries may be handled concurrently.
type Orchestrator struct {
	classifier        Classifier
	ragEngine         rag.Engine
	completer         Completer
	expertModel       string
	queryTimeout      time.Duration
	emergencyKeywords []string
	logger            *slog.Logger
}

// New creates an orchestrator. expertModel names the fine-tuned model used
// for creative intents; queryTimeout bounds each outbound call.
func New(classifier Classifier, ragEngine rag.Engine, completer Completer, expertModel string, queryTimeout time.Duration) *Orchestrator {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &Orchestrator{
		classifier:   classifier,
		ragEngine:    ragEngine,
		completer:    completer,
		expertModel:  expertModel,
		queryTimeout: queryTimeout,
		emergencyKeywords: []string{
			"fire", "smoke", "burning", "help", "emergency", "spill", "danger",
		},
		logger: slog.Default(),
	}
}

// HandleQuery executes the full query-handling pipeline for one query.
func (o *Orchestrator) HandleQuery(ctx context.Context, queryText string) Response {
	logger := contextutil.LoggerFromContext(ctx)

	// 1. Emergency check. Absolute priority: it runs before any outbound
	// call and cannot be skipped by downstream unavailability.
	if o.isEmergency(queryText) {
		logger.WarnContext(ctx, "emergency keyword detected", "query", queryText)
		return Response{
			ResponseText: emergencyReply,
			Intent:       intent.Emergency.String(),
			Source:       SourceEmergency,
		}
	}

	// 2. Intent classification. The classifier owns its fallback; by the
	// time control returns here the intent is always valid.
	classifyCtx, cancel := context.WithTimeout(ctx, o.queryTimeout)
	detected := o.classifier.Classify(classifyCtx, queryText)
	cancel()

	// 3. Route.
	if detected == intent.Troubleshooting {
		logger.InfoContext(ctx, "routing to RAG system for a fact-based answer")
		return Response{
			ResponseText: o.answerWithRAG(ctx, queryText),
			Intent:       detected.String(),
			Source:       SourceRAG,
		}
	}

	logger.InfoContext(ctx, "routing to fine-tuned expert model", "model", o.expertModel)
	expertCtx, cancel := context.WithTimeout(ctx, o.queryTimeout)
	defer cancel()

	answer, err := o.completer.ChatWithMessages(expertCtx, []llm.Message{
		{Role: "system", Content: expertSystemPrompt},
		{Role: "user", Content: queryText},
	}, llm.ChatParams{
		Model:       o.expertModel,
		Temperature: 0.8,
	})
	if err != nil {
		// Single secondary attempt. The RAG engine's own failure contract
		// applies beyond this point; no further cascading.
		logger.ErrorContext(ctx, "expert model call failed, falling back to RAG", "error", err)
		return Response{
			ResponseText: o.answerWithRAG(ctx, queryText),
			Intent:       detected.String(),
			Source:       SourceRAGFallback,
		}
	}

	return Response{
		ResponseText: answer,
		Intent:       detected.String(),
		Source:       SourceExpert,
	}
}

// answerWithRAG invokes the retrieval engine under the per-query timeout.
func (o *Orchestrator) answerWithRAG(ctx context.Context, queryText string) string {
	ragCtx, cancel := context.WithTimeout(ctx, o.queryTimeout)
	defer cancel()
	return o.ragEngine.Answer(ragCtx, queryText)
}

// isEmergency reports whether the query contains any emergency keyword,
// case-insensitive, at any position.
func (o *Orchestrator) isEmergency(queryText string) bool {
	lowered := strings.ToLower(queryText)
	for _, keyword := range o.emergencyKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
