package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		})
	}))
}

func newTestModerator(url string) *Moderator {
	return NewModerator(&ModeratorConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestModerator_Allow(t *testing.T) {
	server := completionServer(t, `{"decision":"ALLOW","reason":"playful query"}`)
	defer server.Close()

	d, err := newTestModerator(server.URL).Classify(context.Background(), "curly hair")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !d.Allowed {
		t.Error("expected allowed decision")
	}
	if d.Reason != "playful query" {
		t.Errorf("Reason = %q", d.Reason)
	}
}

func TestModerator_Block(t *testing.T) {
	server := completionServer(t, `{"decision":"BLOCK","reason":"derogatory"}`)
	defer server.Close()

	d, err := newTestModerator(server.URL).Classify(context.Background(), "ugliest person")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if d.Allowed {
		t.Error("expected blocked decision")
	}
}

func TestModerator_AllowIsCaseInsensitive(t *testing.T) {
	server := completionServer(t, `{"decision":"allow","reason":"ok"}`)
	defer server.Close()

	d, err := newTestModerator(server.URL).Classify(context.Background(), "glasses")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !d.Allowed {
		t.Error("lowercase allow should count as ALLOW")
	}
}

func TestModerator_UnparseableVerdict(t *testing.T) {
	server := completionServer(t, `sure, that query looks fine`)
	defer server.Close()

	if _, err := newTestModerator(server.URL).Classify(context.Background(), "glasses"); err == nil {
		t.Fatal("expected error for non-JSON verdict")
	}
}

func TestModerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := newTestModerator(server.URL).Classify(context.Background(), "glasses"); err == nil {
		t.Fatal("expected error for failed completion")
	}
}
