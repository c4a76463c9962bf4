package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"rasoi-ai/internal/intent"
	"rasoi-ai/internal/llm"
)

type fakeClassifier struct {
	result intent.Intent
	called bool
}

func (f *fakeClassifier) Classify(ctx context.Context, queryText string) intent.Intent {
	f.called = true
	return f.result
}

type fakeRAGEngine struct {
	reply  string
	called bool
}

func (f *fakeRAGEngine) Answer(ctx context.Context, question string) string {
	f.called = true
	return f.reply
}

type fakeCompleter struct {
	reply      string
	err        error
	called     bool
	lastParams llm.ChatParams
}

func (f *fakeCompleter) ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
	f.called = true
	f.lastParams = params
	return f.reply, f.err
}

func TestHandleQueryEmergencyBypass(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "lowercase keyword", query: "there is a fire on my stove"},
		{name: "uppercase keyword", query: "SMOKE everywhere!"},
		{name: "keyword inside sentence", query: "I think something is burning in the oven"},
		{name: "spill keyword", query: "huge oil spill on the counter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := &fakeClassifier{result: intent.Creative}
			ragEngine := &fakeRAGEngine{reply: "rag"}
			completer := &fakeCompleter{reply: "expert"}
			orch := New(classifier, ragEngine, completer, "expert-model", time.Second)

			resp := orch.HandleQuery(context.Background(), tt.query)

			if resp.Source != SourceEmergency {
				t.Errorf("source = %q, want %q", resp.Source, SourceEmergency)
			}
			if resp.Intent != intent.Emergency.String() {
				t.Errorf("intent = %q, want %q", resp.Intent, intent.Emergency.String())
			}
			if classifier.called {
				t.Error("classifier must not run for emergency queries")
			}
			if ragEngine.called || completer.called {
				t.Error("no backend may be called for emergency queries")
			}
		})
	}
}

func TestHandleQueryRoutesTroubleshootingToRAG(t *testing.T) {
	classifier := &fakeClassifier{result: intent.Troubleshooting}
	ragEngine := &fakeRAGEngine{reply: "add a potato"}
	completer := &fakeCompleter{reply: "expert"}
	orch := New(classifier, ragEngine, completer, "expert-model", time.Second)

	resp := orch.HandleQuery(context.Background(), "my curry is too salty")

	if resp.ResponseText != "add a potato" {
		t.Errorf("response = %q, want rag reply", resp.ResponseText)
	}
	if resp.Source != SourceRAG {
		t.Errorf("source = %q, want %q", resp.Source, SourceRAG)
	}
	if resp.Intent != intent.Troubleshooting.String() {
		t.Errorf("intent = %q", resp.Intent)
	}
	if completer.called {
		t.Error("expert model must not be called for troubleshooting queries")
	}
}

func TestHandleQueryRoutesCreativeToExpert(t *testing.T) {
	classifier := &fakeClassifier{result: intent.Creative}
	ragEngine := &fakeRAGEngine{reply: "rag"}
	completer := &fakeCompleter{reply: "a paneer recipe with flair"}
	orch := New(classifier, ragEngine, completer, "expert-model", time.Second)

	resp := orch.HandleQuery(context.Background(), "give me a fancy paneer recipe")

	if resp.ResponseText != "a paneer recipe with flair" {
		t.Errorf("response = %q, want expert reply", resp.ResponseText)
	}
	if resp.Source != SourceExpert {
		t.Errorf("source = %q, want %q", resp.Source, SourceExpert)
	}
	if ragEngine.called {
		t.Error("RAG must not run when the expert model succeeds")
	}
	if completer.lastParams.Model != "expert-model" {
		t.Errorf("model = %q, want expert-model", completer.lastParams.Model)
	}
	if completer.lastParams.Temperature != 0.8 {
		t.Errorf("temperature = %v, want 0.8", completer.lastParams.Temperature)
	}
}

func TestHandleQueryExpertFailureFallsBackToRAG(t *testing.T) {
	classifier := &fakeClassifier{result: intent.Creative}
	ragEngine := &fakeRAGEngine{reply: "fallback answer"}
	completer := &fakeCompleter{err: errors.New("model unavailable")}
	orch := New(classifier, ragEngine, completer, "expert-model", time.Second)

	resp := orch.HandleQuery(context.Background(), "invent a dessert")

	if resp.ResponseText != "fallback answer" {
		t.Errorf("response = %q, want fallback answer", resp.ResponseText)
	}
	if resp.Source != SourceRAGFallback {
		t.Errorf("source = %q, want %q", resp.Source, SourceRAGFallback)
	}
	// The original creative intent is preserved in the response.
	if resp.Intent != intent.Creative.String() {
		t.Errorf("intent = %q, want %q", resp.Intent, intent.Creative.String())
	}
}

func TestHandleQueryEmergencyReplyIsFixed(t *testing.T) {
	orch := New(&fakeClassifier{}, &fakeRAGEngine{}, &fakeCompleter{}, "expert-model", time.Second)

	first := orch.HandleQuery(context.Background(), "fire!")
	second := orch.HandleQuery(context.Background(), "help, grease FIRE")

	if first.ResponseText != second.ResponseText {
		t.Error("emergency reply must be identical for every emergency query")
	}
	if first.ResponseText == "" {
		t.Error("emergency reply must not be empty")
	}
}

func TestIsEmergency(t *testing.T) {
	orch := New(&fakeClassifier{}, &fakeRAGEngine{}, &fakeCompleter{}, "expert-model", time.Second)

	tests := []struct {
		query string
		want  bool
	}{
		{"there is smoke", true},
		{"DANGER ahead", true},
		{"how do I make biryani", false},
		{"", false},
		{"my dish needs help", true},
	}

	for _, tt := range tests {
		if got := orch.isEmergency(tt.query); got != tt.want {
			t.Errorf("isEmergency(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
