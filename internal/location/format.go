package location

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"
)

// DefaultAccessNotes is shown for locations submitted without notes.
const DefaultAccessNotes = "No access notes provided."

// EmptySnippet is shown for pending reviews without a body.
const EmptySnippet = "No review notes yet."

const (
	snippetMax  = 90
	snippetKeep = 87
	slugMax     = 60
)

var tones = []string{
	"sunset",
	"mango",
	"citrus",
	"apricot",
	"coral",
	"sherbet",
	"amber",
	"rose",
	"fire",
	"lava",
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s, collapses every run of non-alphanumerics into a
// single hyphen, trims edge hyphens and caps the result at 60 characters.
func Slugify(s string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > slugMax {
		slug = slug[:slugMax]
	}
	return slug
}

// ToiletSlug builds the public slug for a newly submitted toilet.
func ToiletSlug(name, id string) string {
	base := Slugify(name)
	if base == "" {
		base = "toilet"
	}
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return base + "-" + suffix
}

// PickTone maps a slug onto one of the decorative colour tones. The mapping
// is stable across processes and releases.
func PickTone(slug string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(slug)) {
		h = (h << 5) - h + int32(c)
	}
	idx := int64(h)
	if idx < 0 {
		idx = -idx
	}
	return tones[idx%int64(len(tones))]
}

// HumanizeDate renders a review timestamp relative to now. A zero time
// renders as "Recently".
func HumanizeDate(t, now time.Time) string {
	if t.IsZero() {
		return "Recently"
	}
	days := int(math.Floor(now.Sub(t).Hours() / 24))
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}
	if weeks := days / 7; weeks < 5 {
		return fmt.Sprintf("%d weeks ago", weeks)
	}
	return t.Format("2 Jan")
}

// Snippet trims a review body for list display.
func Snippet(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return EmptySnippet
	}
	r := []rune(trimmed)
	if len(r) <= snippetMax {
		return trimmed
	}
	return string(r[:snippetKeep]) + "..."
}

// ParseTags splits a pipe-delimited tag list, dropping blanks.
func ParseTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, "|") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ReviewerName picks the display name for a review author.
func ReviewerName(name, email string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if email != "" {
		local, _, _ := strings.Cut(email, "@")
		return local
	}
	return "Anonymous"
}

func submitterName(name string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return "Anonymous"
}
