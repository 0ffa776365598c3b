// Package imageproc shrinks result images so a session's payloads stay within
// the storage budget.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// DefaultMaxBytes keeps a comfortable margin below the backing store's
	// per-record limit.
	DefaultMaxBytes = 450_000

	defaultTargetWidth = 1000
	minWidth           = 400
	startQuality       = 90
	floorQuality       = 20
)

// ShrinkBase64 recompresses a base64 image until the encoded JPEG fits within
// maxBytes, preserving aspect ratio. Quality is reduced first, dimensions
// second; once both floors are reached the smallest attempt is returned even
// if it still exceeds the budget. An undecodable input is returned unchanged
// rather than destroyed.
func ShrinkBase64(encoded string, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	raw, err := decodeBase64(encoded)
	if err != nil {
		return encoded
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return encoded
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return encoded
	}
	aspect := float64(bounds.Dy()) / float64(bounds.Dx())

	width := defaultTargetWidth
	if bounds.Dx() < width {
		// Never enlarge.
		width = bounds.Dx()
	}

	scaled := scale(src, width, aspect)
	out, err := encodeJPEG(scaled, startQuality)
	if err != nil {
		return encoded
	}

	for quality := startQuality - 10; len(out) > maxBytes && quality >= floorQuality; quality -= 10 {
		candidate, err := encodeJPEG(scaled, quality)
		if err != nil {
			break
		}
		out = candidate
	}

	for len(out) > maxBytes && width > minWidth {
		width -= 100
		if width < minWidth {
			width = minWidth
		}
		scaled = scale(src, width, aspect)
		candidate, err := encodeJPEG(scaled, 70)
		if err != nil {
			break
		}
		out = candidate
	}

	return base64.StdEncoding.EncodeToString(out)
}

func decodeBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("empty image data")
	}
	// Accept full data URLs as well as bare base64.
	if parts := strings.SplitN(encoded, ",", 2); len(parts) == 2 {
		encoded = parts[1]
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func scale(src image.Image, width int, aspect float64) image.Image {
	height := int(float64(width)*aspect + 0.5)
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
