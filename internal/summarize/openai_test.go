package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, maxRetries int, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewOpenAIClient("test-key", "gpt-4", maxRetries, WithBaseURL(ts.URL+"/v1"))
}

func TestSummarize(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, completionBody("A short greeting."))
	})

	summary, err := c.Summarize(context.Background(), "hello world", "Summarize the voicemail.")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "A short greeting." {
		t.Errorf("summary = %q, want %q", summary, "A short greeting.")
	}
	if got.Model != "gpt-4" {
		t.Errorf("model = %q, want gpt-4", got.Model)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "Summarize the voicemail." {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "hello world" {
		t.Errorf("user message = %+v", got.Messages[1])
	}
}

func TestSummarize_EmptyText(t *testing.T) {
	c := NewOpenAIClient("test-key", "gpt-4", 0)
	if _, err := c.Summarize(context.Background(), "   ", "instr"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestSummarize_RetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 2, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limit exceeded","type":"rate_limit_exceeded"}}`)
			return
		}
		fmt.Fprint(w, completionBody("done"))
	})

	summary, err := c.Summarize(context.Background(), "some transcript", "instr")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "done" {
		t.Errorf("summary = %q, want done", summary)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestSummarize_NoRetryOnAuthError(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	})

	if _, err := c.Summarize(context.Background(), "some transcript", "instr"); err == nil {
		t.Fatal("expected error")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (auth errors are not retried)", got)
	}
}

func TestSummarize_NoChoices(t *testing.T) {
	c := newTestClient(t, 0, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})
	if _, err := c.Summarize(context.Background(), "some transcript", "instr"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
