package enums

import (
	"fmt"
	"strings"
)

// MediaType is the kind of blob a reward points at.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

var validMediaTypes = []MediaType{
	MediaTypeImage,
	MediaTypeVideo,
}

func (m MediaType) String() string {
	return string(m)
}

// IsValid reports whether the media type is known.
func (m MediaType) IsValid() bool {
	for _, candidate := range validMediaTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaType converts raw input into a MediaType.
func ParseMediaType(value string) (MediaType, error) {
	for _, candidate := range validMediaTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media type %q", value)
}

// MediaTypeFromMIME maps a MIME type such as "video/mp4" to its MediaType.
func MediaTypeFromMIME(mimeType string) (MediaType, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaTypeImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo, true
	default:
		return "", false
	}
}
