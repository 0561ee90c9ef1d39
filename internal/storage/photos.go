package storage

import (
	"encoding/json"
	"strings"
)

// MaxPhotos is the number of photos accepted per submission or review.
const MaxPhotos = 3

// Photo is an uploaded object as reported back by the browser.
type Photo struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ParsePhotos decodes JSON photo envelopes. Entries that are not objects,
// lack a key or url, use a key outside prefix or a url outside publicBaseURL
// are skipped. At most limit photos are returned.
func ParsePhotos(raw []string, prefix, publicBaseURL string, limit int) []Photo {
	if limit <= 0 {
		limit = MaxPhotos
	}
	base := strings.TrimRight(publicBaseURL, "/") + "/"

	var out []Photo
	for _, item := range raw {
		if len(out) >= limit {
			break
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(item), &fields); err != nil || fields == nil {
			continue
		}
		key, _ := fields["key"].(string)
		url, _ := fields["url"].(string)
		if key == "" || url == "" {
			continue
		}
		if !strings.HasPrefix(key, prefix+"/") || !strings.HasPrefix(url, base) {
			continue
		}
		out = append(out, Photo{Key: key, URL: url})
	}
	return out
}
