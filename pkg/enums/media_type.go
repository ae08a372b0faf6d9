package enums

import "fmt"

// MediaType classifies an uploaded store asset.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

var validMediaTypes = []MediaType{
	MediaTypeImage,
	MediaTypeVideo,
}

// String returns the literal string for the type.
func (m MediaType) String() string {
	return string(m)
}

// IsValid reports whether the type is known.
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
