package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxImageSize bounds uploaded images.
const MaxImageSize = 20 * 1024 * 1024

var (
	ErrImageTooLarge       = errors.New("image too large")
	ErrUnsupportedImage    = errors.New("unsupported image type")
	ErrEmptyImage          = errors.New("image is empty")
	errMalformedDataURL    = errors.New("invalid data URL")
	errDataURLNotBase64    = errors.New("data URL must be base64 encoded")
	errDataURLMissingComma = errors.New("invalid data URL: missing comma separator")
)

// Image is a decoded image ready to send to a model.
type Image struct {
	MediaType string
	Data      []byte
}

// NewImage validates raw bytes. An empty mediaType is sniffed from the data.
func NewImage(data []byte, mediaType string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return Image{}, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(data), MaxImageSize)
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	if !isSupportedMediaType(mediaType) {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mediaType)
	}
	return Image{MediaType: normalizeMediaType(mediaType), Data: data}, nil
}

// ParseDataURL decodes a data:image/...;base64, URL.
func ParseDataURL(url string) (Image, error) {
	content, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return Image{}, errMalformedDataURL
	}

	metadata, payload, ok := strings.Cut(content, ",")
	if !ok {
		return Image{}, errDataURLMissingComma
	}

	parts := strings.Split(metadata, ";")
	isBase64 := false
	for _, part := range parts[1:] {
		if part == "base64" {
			isBase64 = true
			break
		}
	}
	if !isBase64 {
		return Image{}, errDataURLNotBase64
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return NewImage(data, parts[0])
}

// DataURL encodes the image the way the OpenAI image_url part expects.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func isSupportedMediaType(mediaType string) bool {
	switch normalizeMediaType(mediaType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// normalizeMediaType drops parameters and folds image/jpg into image/jpeg.
func normalizeMediaType(mediaType string) string {
	mainType := strings.Split(mediaType, ";")[0]
	mainType = strings.TrimSpace(strings.ToLower(mainType))
	if mainType == "image/jpg" {
		return "image/jpeg"
	}
	return mainType
}
