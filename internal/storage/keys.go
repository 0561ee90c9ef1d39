package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Upload prefixes.
const (
	PrefixToilets = "toilets"
	PrefixReviews = "reviews"
)

var contentTypeExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// AllowedContentType reports whether uploads of contentType are accepted.
func AllowedContentType(contentType string) bool {
	_, ok := contentTypeExt[contentType]
	return ok
}

// NormalizePrefix maps a client supplied prefix onto a known one.
func NormalizePrefix(prefix string) string {
	if prefix == PrefixReviews {
		return PrefixReviews
	}
	return PrefixToilets
}

func extension(contentType, filename string) string {
	if ext, ok := contentTypeExt[contentType]; ok {
		return ext
	}
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "jpg"
}

// NewObjectKey returns a fresh key of the form <prefix>/<userID>/<uuid>.<ext>.
func NewObjectKey(prefix, userID, contentType, filename string) string {
	return fmt.Sprintf("%s/%s/%s.%s", prefix, userID, uuid.NewString(), extension(contentType, filename))
}
