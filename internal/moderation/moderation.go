// Package moderation asks an OpenAI-compatible vision model whether an
// uploaded image is acceptable. Every failure yields a rejecting verdict.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Verdict reasons produced by the gateway itself.
const (
	ReasonDisabled        = "moderation_disabled"
	ReasonRequestFailed   = "moderation_request_failed"
	ReasonInvalidResponse = "moderation_invalid_response"
	ReasonUnparseable     = "moderation_unparseable"
	ReasonFailed          = "moderation_failed"
	ReasonUnspecified     = "unspecified"
)

const DefaultTimeout = 12 * time.Second

const systemPrompt = "You are a safety reviewer for a public toilet review app. " +
	"Allow normal restroom photos, building exteriors, signage, and maps. " +
	"Reject nudity, sexual content, graphic violence, gore, hate symbols, " +
	"self-harm, illegal activity, or private personal info. " +
	`Respond only with JSON like {"ok":true,"reason":"short reason"}`

// Verdict is the moderation outcome for one image.
type Verdict struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// Recorder observes verdicts.
type Recorder interface {
	ModerationVerdict(ok bool, reason string, elapsed time.Duration)
}

// Options configures a Gateway.
type Options struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Client  *http.Client
}

// Gateway calls the moderation model.
type Gateway struct {
	enabled bool
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
	rec     Recorder
}

// New creates a Gateway. rec may be nil.
func New(opts Options, rec Recorder) *Gateway {
	base := strings.TrimRight(opts.BaseURL, "/")
	g := &Gateway{
		enabled: opts.Enabled && base != "" && opts.APIKey != "" && opts.Model != "",
		url:     base + "/chat/completions",
		apiKey:  opts.APIKey,
		model:   opts.Model,
		timeout: opts.Timeout,
		client:  opts.Client,
		rec:     rec,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	return g
}

// Enabled reports whether images are actually sent to the model.
func (g *Gateway) Enabled() bool { return g.enabled }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ModerateImage classifies the image in dataURL. purpose describes where the
// image will be used and is passed to the model verbatim.
func (g *Gateway) ModerateImage(ctx context.Context, dataURL, purpose string) Verdict {
	start := time.Now()
	v := g.moderate(ctx, dataURL, purpose)
	if g.rec != nil {
		g.rec.ModerationVerdict(v.OK, v.Reason, time.Since(start))
	}
	return v
}

func (g *Gateway) moderate(ctx context.Context, dataURL, purpose string) Verdict {
	if !g.enabled {
		return Verdict{OK: true, Reason: ReasonDisabled}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if purpose == "" {
		purpose = "user upload"
	}
	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: fmt.Sprintf("Review this image for %s compliance.", purpose)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
	})
	if err != nil {
		return g.fail(ReasonFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return g.fail(ReasonFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return g.fail(ReasonFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return g.fail(ReasonRequestFailed, fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return g.fail(ReasonFailed, err)
	}
	if len(payload.Choices) == 0 {
		return g.fail(ReasonInvalidResponse, nil)
	}
	content, ok := payload.Choices[0].Message.Content.(string)
	if !ok {
		return g.fail(ReasonInvalidResponse, nil)
	}

	verdict, ok := ParseVerdict(content)
	if !ok {
		return g.fail(ReasonUnparseable, nil)
	}
	return verdict
}

func (g *Gateway) fail(reason string, err error) Verdict {
	attrs := []any{"reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	slog.Warn("image moderation failed", attrs...)
	return Verdict{OK: false, Reason: reason}
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseVerdict extracts the first-brace to last-brace span of content and
// decodes it. ok must be a JSON boolean; a missing or non-string reason
// becomes "unspecified".
func ParseVerdict(content string) (Verdict, bool) {
	match := jsonObjectRe.FindString(content)
	if match == "" {
		return Verdict{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(match), &fields); err != nil {
		return Verdict{}, false
	}
	ok, isBool := fields["ok"].(bool)
	if !isBool {
		return Verdict{}, false
	}
	reason, isString := fields["reason"].(string)
	if !isString {
		reason = ReasonUnspecified
	}
	return Verdict{OK: ok, Reason: reason}, true
}
