// Package ai defines the image generation provider contract.
package ai

import "context"

// ImageRequest is one composite generation call: the final instruction string
// plus the host-supplied goal image the provider blends it with.
type ImageRequest struct {
	APIKey            string
	Prompt            string
	GoalImageBase64   string
	GoalImageMimeType string
}

// Provider generates a base64 image for a composite request. Implementations
// retry transient failures internally and surface the provider's error message
// verbatim once attempts are exhausted.
type Provider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}
