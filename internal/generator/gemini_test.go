package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGeminiClientParsesImageResponse(t *testing.T) {
	want := []byte("fake png payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(want),
						},
					}},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiOptions{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	got, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a frame"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Generate() = %q, want %q", got, want)
	}
}

func TestGeminiClientRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiOptions{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	_, err = client.Generate(context.Background(), GenerateRequest{Prompt: "a frame"})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Generate() error = %v, want RateLimitError", err)
	}
	if rl.RetryAfter != 5*time.Second {
		t.Fatalf("RetryAfter = %v, want 5s from the header", rl.RetryAfter)
	}
}

func TestGeminiClientRateLimitDefaultHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiOptions{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	_, err = client.Generate(context.Background(), GenerateRequest{Prompt: "a frame"})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Generate() error = %v, want RateLimitError", err)
	}
	if rl.RetryAfter != defaultRateLimitRetryAfter {
		t.Fatalf("RetryAfter = %v, want default %v", rl.RetryAfter, defaultRateLimitRetryAfter)
	}
}

func TestGeminiClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "prompt was blocked"},
		})
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiOptions{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	_, err = client.Generate(context.Background(), GenerateRequest{Prompt: "a frame"})
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("prompt was blocked")) {
		t.Fatalf("Generate() error = %v, want the provider message surfaced", err)
	}
}

func TestGeminiClientWithoutKeyUsesSynthetic(t *testing.T) {
	client, err := NewGeminiClient(GeminiOptions{})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	data, err := client.Generate(context.Background(), GenerateRequest{Prompt: "crystal icon", RequestID: "job-1"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("synthetic fallback did not return a decodable png: %v", err)
	}
}
