package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionResponse(content string) string {
	out, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(out)
}

func TestGenerateJSON(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(completionResponse(`{"actions": []}`)))
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL, APIKey: "sk-test", Model: "m1"})
	out, err := p.GenerateJSON(context.Background(), "action-plan", "sys", "user")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != `{"actions": []}` {
		t.Errorf("content = %q", out)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "m1" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != float64(0) {
		t.Errorf("temperature = %v, want 0", gotBody["temperature"])
	}
}

func TestGenerateJSONStripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse("```json\n{\"sections\": []}\n```")))
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL})
	out, err := p.GenerateJSON(context.Background(), "dpia-draft", "sys", "user")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != `{"sections": []}` {
		t.Errorf("fences not stripped: %q", out)
	}
}

func TestGenerateJSONNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL})
	_, err := p.GenerateJSON(context.Background(), "action-plan", "sys", "user")
	if err == nil {
		t.Fatal("expected an error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestGenerateJSONEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL})
	if _, err := p.GenerateJSON(context.Background(), "action-plan", "s", "u"); err == nil {
		t.Fatal("expected an error for a response without choices")
	}
}

func TestGenerateJSONEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse("   ")))
	}))
	defer srv.Close()

	p := NewOpenAI(Options{BaseURL: srv.URL})
	if _, err := p.GenerateJSON(context.Background(), "action-plan", "s", "u"); err == nil {
		t.Fatal("expected an error for blank content")
	}
}

func TestLocalProviderNeverGenerates(t *testing.T) {
	_, err := Local{}.GenerateJSON(context.Background(), "action-plan", "s", "u")
	if !errors.Is(err, ErrLocalMode) {
		t.Errorf("err = %v, want ErrLocalMode", err)
	}
}

func TestIsLocalAgreesWithNew(t *testing.T) {
	// The skip-generation decision and provider selection must never
	// diverge: a mode is local exactly when New returns the no-op provider.
	for _, mode := range []string{"", "local", "openai", "OpenAI", "azureopenai", "AzureOpenAI", "anthropic"} {
		_, selectedLocal := New(Options{Mode: mode}).(Local)
		if IsLocal(mode) != selectedLocal {
			t.Errorf("mode %q: IsLocal = %v but New selected local = %v", mode, IsLocal(mode), selectedLocal)
		}
	}
}

func TestNewSelectsByMode(t *testing.T) {
	if _, ok := New(Options{Mode: "openai"}).(*OpenAI); !ok {
		t.Error("mode openai should select the OpenAI provider")
	}
	if _, ok := New(Options{Mode: "AzureOpenAI"}).(*OpenAI); !ok {
		t.Error("mode azureopenai should select the OpenAI provider (case-insensitive)")
	}
	if _, ok := New(Options{Mode: "local"}).(Local); !ok {
		t.Error("mode local should select the no-op provider")
	}
	if _, ok := New(Options{Mode: "something-else"}).(Local); !ok {
		t.Error("unknown mode should fail toward the no-op provider")
	}
}
