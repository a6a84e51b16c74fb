package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoad_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[
			{"name":"gpt-4o","display_name":"GPT-4o","platform":"openai","capability":"general","best_for":["Data analysis"]},
			{"name":"llama-3.1-8b-instant","display_name":"Llama 3.1 8B","platform":"groq","capability":"fast"}
		]}`))
	}))
	defer server.Close()

	cat := Load(context.Background(), server.URL, slog.Default())
	if cat.Fallback() {
		t.Error("expected loaded catalog, got fallback")
	}
	models := cat.Models()
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "gpt-4o" || models[0].Platform != "openai" {
		t.Errorf("unexpected first model: %+v", models[0])
	}
	if !cat.Has("llama-3.1-8b-instant") {
		t.Error("expected llama-3.1-8b-instant in catalog")
	}
	if cat.Has("nonexistent") {
		t.Error("Has matched a model not in the catalog")
	}
}

func TestLoad_FetchErrorYieldsFallback(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	cat := Load(context.Background(), server.URL, slog.Default())
	if !cat.Fallback() {
		t.Fatal("expected fallback catalog")
	}
	if len(cat.Models()) == 0 {
		t.Fatal("fallback catalog is empty")
	}
	// The fallback keeps the designated default selectable.
	if !cat.Has("gpt-4o-mini") {
		t.Error("fallback catalog missing gpt-4o-mini")
	}
	// At least one entry per platform.
	platforms := map[string]bool{}
	for _, m := range cat.Models() {
		platforms[m.Platform] = true
	}
	if !platforms["openai"] || !platforms["groq"] {
		t.Errorf("fallback platforms incomplete: %v", platforms)
	}
}

func TestLoad_BadStatusYieldsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	cat := Load(context.Background(), server.URL, slog.Default())
	if !cat.Fallback() {
		t.Error("expected fallback catalog on 500")
	}
}

func TestLoad_EmptyListYieldsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	cat := Load(context.Background(), server.URL, slog.Default())
	if !cat.Fallback() {
		t.Error("expected fallback catalog on empty model list")
	}
}
