package location

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"North Shore", "north-shore"},
		{"  north   shore ", "north-shore"},
		{"Mt Eden", "mt-eden"},
		{"R&L Glade -- WC!", "r-l-glade-wc"},
		{"---", ""},
		{"Café Lane", "caf-lane"},
		{strings.Repeat("a", 70), strings.Repeat("a", 60)},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToiletSlug(t *testing.T) {
	if got := ToiletSlug("Albert Park Gate WC", "3f2a9c1e-0000"); got != "albert-park-gate-wc-3f2a9c" {
		t.Errorf("got %q", got)
	}
	if got := ToiletSlug("!!!", "abcdef123"); got != "toilet-abcdef" {
		t.Errorf("got %q", got)
	}
}

func TestPickTone(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"", "sunset"},
		{"a", "rose"},
		{"wynyard-wharf-restrooms", "amber"},
		{"britomart-transit-wc", "mango"},
		{"takapuna-beach-pavilion", "citrus"},
	}
	for _, tt := range tests {
		if got := PickTone(tt.slug); got != tt.want {
			t.Errorf("PickTone(%q) = %q, want %q", tt.slug, got, tt.want)
		}
	}
}

func TestPickToneDeterministic(t *testing.T) {
	for _, slug := range []string{"x", "domain-wintergarden-wc", "some-long-slug-with-many-parts-0123456789"} {
		first := PickTone(slug)
		for i := 0; i < 5; i++ {
			if got := PickTone(slug); got != first {
				t.Fatalf("PickTone(%q) not stable: %q then %q", slug, first, got)
			}
		}
	}
}

func TestHumanizeDate(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "Recently"},
		{"future", now.Add(2 * time.Hour), "Today"},
		{"hours ago", now.Add(-5 * time.Hour), "Today"},
		{"yesterday", now.Add(-30 * time.Hour), "Yesterday"},
		{"days", now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{"six days", now.Add(-6 * 24 * time.Hour), "6 days ago"},
		{"one week", now.Add(-7 * 24 * time.Hour), "1 weeks ago"},
		{"four weeks", now.Add(-34 * 24 * time.Hour), "4 weeks ago"},
		{"calendar", time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), "2 Mar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HumanizeDate(tt.t, now); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x", 91)
	tests := []struct {
		in   string
		want string
	}{
		{"", EmptySnippet},
		{"   ", EmptySnippet},
		{"  short and sweet  ", "short and sweet"},
		{strings.Repeat("y", 90), strings.Repeat("y", 90)},
		{long, strings.Repeat("x", 87) + "..."},
	}
	for _, tt := range tests {
		got := Snippet(tt.in)
		if got != tt.want {
			t.Errorf("Snippet(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if len([]rune(got)) > 90 {
			t.Errorf("snippet longer than 90 runes: %d", len([]rune(got)))
		}
	}
}

func TestParseTags(t *testing.T) {
	got := ParseTags(" 24h | Accessible||Waterfront | ")
	want := []string{"24h", "Accessible", "Waterfront"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseTags mismatch (-want +got):\n%s", diff)
	}
	if got := ParseTags(""); len(got) != 0 {
		t.Errorf("expected no tags, got %v", got)
	}
}

func TestReviewerName(t *testing.T) {
	tests := []struct {
		name, email, want string
	}{
		{"Kai", "kai@example.com", "Kai"},
		{"   ", "harper.l@example.com", "harper.l"},
		{"", "", "Anonymous"},
	}
	for _, tt := range tests {
		if got := ReviewerName(tt.name, tt.email); got != tt.want {
			t.Errorf("ReviewerName(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.want)
		}
	}
}

func TestFoldRating(t *testing.T) {
	if got := FoldRating(0, 0, 4); got != 4 {
		t.Errorf("first rating: got %v", got)
	}
	if got := FoldRating(4.5, 2, 3); got != 4 {
		t.Errorf("got %v, want 4", got)
	}
	if got := FoldRating(4.8, 312, 1); got != 4.79 {
		t.Errorf("got %v, want 4.79", got)
	}
}
