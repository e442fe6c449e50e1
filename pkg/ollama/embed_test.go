package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbed_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("wrong path %s", r.URL.Path)
		}
		var req ollamaEmbedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "2014 Hyundai Santa Fe Sport" {
			t.Errorf("wrong request: %+v", req)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embedding: []float64{0.25, -0.5}})
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "nomic-embed-text")
	got, err := c.Embed(context.Background(), "2014 Hyundai Santa Fe Sport")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != 0.25 || got[1] != -0.5 {
		t.Fatalf("wrong embedding: %v", got)
	}
}

func TestEmbed_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "nomic-embed-text")
	if _, err := c.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedBatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embedding: []float64{float64(calls)}})
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "nomic-embed-text")
	got, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[2][0] != 3 {
		t.Fatalf("wrong batch result: %v", got)
	}
}

func TestEmbedBatch_StopsOnError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embedding: []float64{1}})
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "nomic-embed-text")
	if _, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Fatalf("expected stop after failure, got %d calls", calls)
	}
}
