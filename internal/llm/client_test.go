package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestComplete_ReturnsTopChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer test-key", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q, want gpt-4o-mini", req.Model)
		}
		if req.Temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", req.Temperature)
		}
		if req.MaxTokens != 2000 {
			t.Errorf("max_tokens = %d, want 2000", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Generated guide text."}},
				{"message": map[string]string{"role": "assistant", "content": "second choice, ignored"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	got, err := c.Complete(context.Background(), CompletionRequest{
		Model:       "gpt-4o-mini",
		Prompt:      "Write a guide",
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Generated guide text." {
		t.Errorf("Complete() = %q, want top choice content", got)
	}
}

func TestComplete_NoChoicesReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	got, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "" {
		t.Errorf("Complete() = %q, want empty string", got)
	}
}

func TestComplete_HTTPErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", srv.URL)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
	if !strings.HasPrefix(err.Error(), "completion request:") {
		t.Errorf("error %q missing component prefix", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q should carry the HTTP status", err)
	}
}

func TestComplete_NetworkErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewClientWithBaseURL("k", srv.URL)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
	if !strings.HasPrefix(err.Error(), "completion request:") {
		t.Errorf("error %q missing component prefix", err)
	}
}
