// Package submission implements the user write path: proposing new toilets
// and reviewing existing ones. Everything written here starts out pending and
// stays invisible until an admin approves it.
package submission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/isquat/isquat/internal/auth"
	"github.com/isquat/isquat/internal/geo"
	"github.com/isquat/isquat/internal/location"
	"github.com/isquat/isquat/internal/storage"
)

// User facing validation messages.
const (
	MsgSignInToSubmit     = "Please sign in to submit a location."
	MsgSignInToReview     = "Please sign in to add a review."
	MsgToiletFields       = "Name, address, and district are required."
	MsgDropPin            = "Please drop a pin on the map."
	MsgDistrictNotFound   = "District not found. Choose one from the list."
	MsgRatingRequired     = "Rating is required."
	MsgToiletNotFound     = "Toilet not found."
	MsgPhotosNotAvailable = "Photo uploads are not configured."
)

// Outcomes reported to the Recorder.
const (
	KindToilet = "toilet"
	KindReview = "review"

	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Writer persists submissions. Implementations must store each toilet
// together with its submission atomically.
type Writer interface {
	// DistrictID resolves a district by exact name or slug and returns
	// location.ErrDistrictNotFound when neither matches.
	DistrictID(ctx context.Context, name, slug string) (string, error)
	CreateToilet(ctx context.Context, t location.NewToilet, s location.NewSubmission, photos []location.NewPhoto) error
	// ToiletExists reports whether a toilet exists in any status.
	ToiletExists(ctx context.Context, id string) (bool, error)
	CreateReview(ctx context.Context, r location.NewReview, photos []location.NewPhoto) error
}

// Recorder observes submission outcomes.
type Recorder interface {
	IncSubmission(kind, outcome string)
}

// FieldError is a validation failure attributable to one form field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string { return e.Message }

// Result is the outcome of a submission: either a redirect target or a
// validation error, never both.
type Result struct {
	Redirect string
	Err      *FieldError
}

// OK reports whether the submission was accepted.
func (r Result) OK() bool { return r.Err == nil }

func redirect(to string) Result { return Result{Redirect: to} }

func invalid(field, msg string) Result {
	return Result{Err: &FieldError{Field: field, Message: msg}}
}

// ToiletForm is the raw input for a new location.
type ToiletForm struct {
	Name     string
	Address  string
	District string
	Notes    string
	Lat      string
	Lng      string
	Photos   []string
}

// ReviewForm is the raw input for a review.
type ReviewForm struct {
	ToiletID string
	Rating   string
	Body     string
	Photos   []string
}

// Options configures a Service.
type Options struct {
	Writer Writer
	// Signer supplies the public base URL photo references must live under.
	// A nil Signer rejects any submission carrying photos.
	Signer   *storage.Signer
	Recorder Recorder
	Now      func() time.Time
	NewID    func() string
}

// Service validates and records submissions.
type Service struct {
	writer Writer
	signer *storage.Signer
	rec    Recorder
	now    func() time.Time
	newID  func() string
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	s := &Service{
		writer: opts.Writer,
		signer: opts.Signer,
		rec:    opts.Recorder,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) record(kind string, res Result, err error) {
	if s.rec == nil {
		return
	}
	switch {
	case err != nil:
		s.rec.IncSubmission(kind, OutcomeError)
	case !res.OK():
		s.rec.IncSubmission(kind, OutcomeInvalid)
	default:
		s.rec.IncSubmission(kind, OutcomeAccepted)
	}
}

// parseNumber accepts a trimmed finite decimal. Blank input is not a number.
func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRating rounds raw to the nearest integer, halves rounding up, and
// accepts 1 to 5.
func ParseRating(raw string) (int, bool) {
	v, ok := parseNumber(raw)
	if !ok {
		return 0, false
	}
	r := math.Floor(v + 0.5)
	if r < 1 || r > 5 {
		return 0, false
	}
	return int(r), true
}

// photos parses photo envelopes for prefix. It fails when photos were sent
// but uploads are not configured.
func (s *Service) photos(raw []string, prefix string) ([]storage.Photo, bool) {
	var present []string
	for _, r := range raw {
		if strings.TrimSpace(r) != "" {
			present = append(present, r)
		}
	}
	if len(present) == 0 {
		return nil, true
	}
	if s.signer == nil {
		return nil, false
	}
	return storage.ParsePhotos(present, prefix, s.signer.PublicBaseURL(), storage.MaxPhotos), true
}

func author(u *auth.User) location.Author {
	return location.Author{ID: u.ID, Name: u.Name, Email: u.Email}
}

// SubmitToilet records a new hidden toilet with its pending submission and
// photos. The returned error is reserved for storage failures.
func (s *Service) SubmitToilet(ctx context.Context, user *auth.User, f ToiletForm) (Result, error) {
	res, err := s.submitToilet(ctx, user, f)
	s.record(KindToilet, res, err)
	return res, err
}

func (s *Service) submitToilet(ctx context.Context, user *auth.User, f ToiletForm) (Result, error) {
	if user == nil {
		return invalid("", MsgSignInToSubmit), nil
	}

	name := strings.TrimSpace(f.Name)
	address := strings.TrimSpace(f.Address)
	district := strings.TrimSpace(f.District)
	notes := strings.TrimSpace(f.Notes)
	switch {
	case name == "":
		return invalid("name", MsgToiletFields), nil
	case address == "":
		return invalid("address", MsgToiletFields), nil
	case district == "":
		return invalid("district", MsgToiletFields), nil
	}

	lat, latOK := parseNumber(f.Lat)
	lng, lngOK := parseNumber(f.Lng)
	if !latOK || !lngOK || !(geo.Point{Lat: lat, Lng: lng}).Valid() {
		return invalid("location", MsgDropPin), nil
	}

	photos, ok := s.photos(f.Photos, storage.PrefixToilets)
	if !ok {
		return invalid("photos", MsgPhotosNotAvailable), nil
	}

	districtID, err := s.writer.DistrictID(ctx, district, location.Slugify(district))
	if errors.Is(err, location.ErrDistrictNotFound) {
		return invalid("district", MsgDistrictNotFound), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("resolving district: %w", err)
	}

	now := s.now()
	toiletID := s.newID()
	t := location.NewToilet{
		ID:          toiletID,
		Slug:        location.ToiletSlug(name, toiletID),
		Name:        name,
		DistrictID:  districtID,
		Address:     address,
		Lat:         lat,
		Lng:         lng,
		AccessNotes: notes,
		CreatedBy:   author(user),
		CreatedAt:   now,
	}
	sub := location.NewSubmission{
		ID:          s.newID(),
		UserID:      user.ID,
		Name:        name,
		DistrictID:  districtID,
		Address:     address,
		Lat:         lat,
		Lng:         lng,
		AccessNotes: notes,
		ToiletID:    toiletID,
		CreatedAt:   now,
	}
	records := make([]location.NewPhoto, len(photos))
	for i, p := range photos {
		records[i] = location.NewPhoto{
			ID:         s.newID(),
			ToiletID:   toiletID,
			UploadedBy: user.ID,
			Key:        p.Key,
			URL:        p.URL,
			CreatedAt:  now,
		}
	}

	if err := s.writer.CreateToilet(ctx, t, sub, records); err != nil {
		return Result{}, fmt.Errorf("creating toilet: %w", err)
	}
	return redirect("/dashboard"), nil
}

// SubmitReview records a pending review and its photos.
func (s *Service) SubmitReview(ctx context.Context, user *auth.User, f ReviewForm) (Result, error) {
	res, err := s.submitReview(ctx, user, f)
	s.record(KindReview, res, err)
	return res, err
}

func (s *Service) submitReview(ctx context.Context, user *auth.User, f ReviewForm) (Result, error) {
	if user == nil {
		return invalid("", MsgSignInToReview), nil
	}

	toiletID := strings.TrimSpace(f.ToiletID)
	rating, ok := ParseRating(f.Rating)
	if toiletID == "" || !ok {
		return invalid("rating", MsgRatingRequired), nil
	}

	photos, ok := s.photos(f.Photos, storage.PrefixReviews)
	if !ok {
		return invalid("photos", MsgPhotosNotAvailable), nil
	}

	exists, err := s.writer.ToiletExists(ctx, toiletID)
	if err != nil {
		return Result{}, fmt.Errorf("looking up toilet: %w", err)
	}
	if !exists {
		return invalid("toiletId", MsgToiletNotFound), nil
	}

	now := s.now()
	review := location.NewReview{
		ID:        s.newID(),
		ToiletID:  toiletID,
		Author:    author(user),
		Rating:    rating,
		Body:      strings.TrimSpace(f.Body),
		CreatedAt: now,
	}
	records := make([]location.NewPhoto, len(photos))
	for i, p := range photos {
		records[i] = location.NewPhoto{
			ID:         s.newID(),
			ToiletID:   toiletID,
			ReviewID:   review.ID,
			UploadedBy: user.ID,
			Key:        p.Key,
			URL:        p.URL,
			CreatedAt:  now,
		}
	}

	if err := s.writer.CreateReview(ctx, review, records); err != nil {
		return Result{}, fmt.Errorf("creating review: %w", err)
	}
	return redirect("/toilet/" + toiletID), nil
}
