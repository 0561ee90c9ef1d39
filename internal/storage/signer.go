// Package storage issues signed upload policies for the OSS bucket that holds
// user photos and manages the objects stored there.
package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/isquat/isquat/internal/crypto"
)

// ErrNotConfigured is returned when the OSS credentials, bucket or endpoint
// are missing.
var ErrNotConfigured = errors.New("OSS configuration is missing")

const (
	DefaultMaxUploadBytes = 3 * 1024 * 1024
	DefaultPolicyTTL      = 5 * time.Minute
	DefaultContentPrefix  = "image/"
)

// Options configures a Signer.
type Options struct {
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Endpoint        string
	Region          string
	// PublicBaseURL is where uploaded objects are served from. Defaults to
	// the bucket host.
	PublicBaseURL  string
	MaxUploadBytes int64
	PolicyTTL      time.Duration
	Now            func() time.Time
}

// Configured reports whether every required field is set.
func (o Options) Configured() bool {
	return o.AccessKeyID != "" && o.AccessKeySecret != "" && o.Bucket != "" && normalizeEndpoint(o.Endpoint) != ""
}

// Signer builds browser upload policies for direct PostObject uploads.
type Signer struct {
	keyID      string
	secret     string
	bucket     string
	host       string
	publicBase string
	maxBytes   int64
	ttl        time.Duration
	now        func() time.Time
}

// Policy is the form data a browser needs to upload one object.
type Policy struct {
	Host        string `json:"host"`
	AccessKeyID string `json:"accessKeyId"`
	Policy      string `json:"policy"`
	Signature   string `json:"signature"`
	Expire      int64  `json:"expire"`
	MaxBytes    int64  `json:"maxBytes"`
}

var schemeRe = regexp.MustCompile(`^https?://`)

func normalizeEndpoint(endpoint string) string {
	return strings.TrimRight(schemeRe.ReplaceAllString(endpoint, ""), "/")
}

// NewSigner validates opts and returns a Signer, or ErrNotConfigured.
func NewSigner(opts Options) (*Signer, error) {
	if !opts.Configured() {
		return nil, ErrNotConfigured
	}
	host := fmt.Sprintf("https://%s.%s", opts.Bucket, normalizeEndpoint(opts.Endpoint))
	publicBase := strings.TrimRight(opts.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = host
	}
	s := &Signer{
		keyID:      opts.AccessKeyID,
		secret:     opts.AccessKeySecret,
		bucket:     opts.Bucket,
		host:       host,
		publicBase: publicBase,
		maxBytes:   opts.MaxUploadBytes,
		ttl:        opts.PolicyTTL,
		now:        opts.Now,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxUploadBytes
	}
	if s.ttl <= 0 {
		s.ttl = DefaultPolicyTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Host returns the bucket upload host.
func (s *Signer) Host() string { return s.host }

// PublicBaseURL returns the base URL uploaded objects are served from,
// without a trailing slash.
func (s *Signer) PublicBaseURL() string { return s.publicBase }

// ObjectURL returns the public URL of key.
func (s *Signer) ObjectURL(key string) string {
	return s.publicBase + "/" + key
}

type policyDocument struct {
	Expiration string `json:"expiration"`
	Conditions []any  `json:"conditions"`
}

// Policy signs an upload policy that accepts exactly one object at key with a
// content type starting with contentTypePrefix.
func (s *Signer) Policy(key, contentTypePrefix string) (Policy, error) {
	if contentTypePrefix == "" {
		contentTypePrefix = DefaultContentPrefix
	}
	expireAt := s.now().Add(s.ttl).UTC()
	doc := policyDocument{
		Expiration: expireAt.Format("2006-01-02T15:04:05.000Z"),
		Conditions: []any{
			[]any{"eq", "$key", key},
			[]any{"starts-with", "$Content-Type", contentTypePrefix},
			[]any{"content-length-range", 0, s.maxBytes},
			map[string]string{"bucket": s.bucket},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Policy{}, fmt.Errorf("encoding policy: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	return Policy{
		Host:        s.host,
		AccessKeyID: s.keyID,
		Policy:      encoded,
		Signature:   crypto.HMACSHA1Base64(s.secret, encoded),
		Expire:      expireAt.Unix(),
		MaxBytes:    s.maxBytes,
	}, nil
}
