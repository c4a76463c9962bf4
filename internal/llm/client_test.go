package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatWithMessages(t *testing.T) {
	tests := []struct {
		name       string
		params     ChatParams
		handler    http.HandlerFunc
		wantModel  string
		wantAnswer string
		wantErr    string
	}{
		{
			name:   "success with explicit model",
			params: ChatParams{Model: "expert-model", Temperature: 0.8},
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if req.Model != "expert-model" {
					t.Errorf("model = %q, want %q", req.Model, "expert-model")
				}
				if req.Temperature != 0.8 {
					t.Errorf("temperature = %v, want 0.8", req.Temperature)
				}
				json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "an answer"}}},
				})
			},
			wantAnswer: "an answer",
		},
		{
			name:   "empty model falls back to client default",
			params: ChatParams{Temperature: 0.7},
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if req.Model != "default-model" {
					t.Errorf("model = %q, want %q", req.Model, "default-model")
				}
				json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "ok"}}},
				})
			},
			wantAnswer: "ok",
		},
		{
			name:   "max tokens forwarded",
			params: ChatParams{MaxTokens: 20},
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if req.MaxTokens != 20 {
					t.Errorf("max_tokens = %d, want 20", req.MaxTokens)
				}
				json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "ok"}}},
				})
			},
			wantAnswer: "ok",
		},
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream down", http.StatusBadGateway)
			},
			wantErr: "bad status 502",
		},
		{
			name: "no choices returned",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(ChatResponse{})
			},
			wantErr: "no choices returned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(srv.URL, "test-key", "default-model")
			answer, err := client.ChatWithMessages(context.Background(), []Message{
				{Role: "user", Content: "hello"},
			}, tt.params)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", answer, tt.wantAnswer)
			}
		})
	}
}

func TestChatSendsAuthorizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "hi"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", "default-model")
	answer, err := client.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "hi" {
		t.Errorf("answer = %q, want %q", answer, "hi")
	}
}
