// Package gemini calls the Google generative language API for image
// composition.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dressup/internal/ai"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel   = "gemini-2.5-flash-image-preview"

	maxAttempts  = 5
	initialDelay = time.Second
)

type Client struct {
	baseURL    string
	model      string
	http       *http.Client
	retryDelay time.Duration
}

// New builds a client; empty arguments fall back to defaults.
func New(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		http:       &http.Client{Timeout: 120 * time.Second},
		retryDelay: initialDelay,
	}
}

type generatePayload struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage posts the composite request, retrying on non-2xx responses
// with exponentially growing delays. On exhaustion the provider's own error
// message is surfaced verbatim.
func (c *Client) GenerateImage(ctx context.Context, req ai.ImageRequest) (string, error) {
	if req.APIKey == "" {
		return "", errors.New("missing API key")
	}
	mimeType := req.GoalImageMimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	payload := generatePayload{
		Contents: []content{{
			Parts: []part{
				{Text: req.Prompt},
				{InlineData: &inlineData{MimeType: mimeType, Data: req.GoalImageBase64}},
			},
		}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"IMAGE"}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, req.APIKey)

	delay := c.retryDelay
	var lastStatus int
	var lastBody []byte
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastStatus = 0
			lastBody = nil
			continue
		}

		if resp.StatusCode/100 == 2 {
			defer resp.Body.Close()
			var out generateResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return "", fmt.Errorf("decode provider response: %w", err)
			}
			for _, candidate := range out.Candidates {
				for _, p := range candidate.Content.Parts {
					if p.InlineData != nil && p.InlineData.Data != "" {
						return p.InlineData.Data, nil
					}
				}
			}
			return "", errors.New("no image data received from the provider")
		}

		lastStatus = resp.StatusCode
		lastBody, _ = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
	}

	if lastStatus == 0 {
		return "", errors.New("no response received from the provider")
	}
	message := fmt.Sprintf("provider error (status %d)", lastStatus)
	var apiErr apiError
	if err := json.Unmarshal(lastBody, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}
	return "", errors.New(message)
}
