package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dressup/internal/ai"
)

func testClient(url string) *Client {
	c := New(url, "test-model")
	c.retryDelay = time.Millisecond
	return c
}

func TestGenerateImageSuccess(t *testing.T) {
	var gotPath string
	var gotPayload generatePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(generateResponse{
			Candidates: []struct {
				Content struct {
					Parts []part `json:"parts"`
				} `json:"content"`
			}{{Content: struct {
				Parts []part `json:"parts"`
			}{Parts: []part{
				{Text: "some commentary"},
				{InlineData: &inlineData{MimeType: "image/png", Data: "UkVTVUxU"}},
			}}}},
		})
	}))
	defer srv.Close()

	image, err := testClient(srv.URL).GenerateImage(context.Background(), ai.ImageRequest{
		APIKey:            "key",
		Prompt:            "compose",
		GoalImageBase64:   "R09BTA==",
		GoalImageMimeType: "image/png",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if image != "UkVTVUxU" {
		t.Fatalf("expected the inline image data, got %q", image)
	}
	if gotPath != "/test-model:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(gotPayload.Contents) != 1 || len(gotPayload.Contents[0].Parts) != 2 {
		t.Fatalf("request should carry prompt text plus the goal image, got %+v", gotPayload)
	}
	if gotPayload.Contents[0].Parts[1].InlineData.MimeType != "image/png" {
		t.Fatal("goal image mime type should be forwarded")
	}
}

func TestGenerateImageRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{{
						"inlineData": map[string]string{"mimeType": "image/jpeg", "data": "T0s="},
					}},
				},
			}},
		})
	}))
	defer srv.Close()

	image, err := testClient(srv.URL).GenerateImage(context.Background(), ai.ImageRequest{APIKey: "key", Prompt: "p", GoalImageBase64: "Zw=="})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if image != "T0s=" {
		t.Fatalf("got %q", image)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGenerateImageSurfacesProviderMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "Quota exceeded for model"},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GenerateImage(context.Background(), ai.ImageRequest{APIKey: "key", Prompt: "p", GoalImageBase64: "Zw=="})
	if err == nil || err.Error() != "Quota exceeded for model" {
		t.Fatalf("expected the provider message verbatim, got %v", err)
	}
	if calls.Load() != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, calls.Load())
	}
}

func TestGenerateImageFallbackErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GenerateImage(context.Background(), ai.ImageRequest{APIKey: "key", Prompt: "p", GoalImageBase64: "Zw=="})
	if err == nil || err.Error() != "provider error (status 502)" {
		t.Fatalf("expected the status fallback message, got %v", err)
	}
}

func TestGenerateImageMissingKey(t *testing.T) {
	_, err := testClient("http://unused").GenerateImage(context.Background(), ai.ImageRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("missing API key should fail fast")
	}
}

func TestGenerateImageNoImageInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{{"text": "words only"}},
				},
			}},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GenerateImage(context.Background(), ai.ImageRequest{APIKey: "key", Prompt: "p", GoalImageBase64: "Zw=="})
	if err == nil {
		t.Fatal("a response without image data should error")
	}
}
