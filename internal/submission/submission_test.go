package submission

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/isquat/isquat/internal/auth"
	"github.com/isquat/isquat/internal/location"
	"github.com/isquat/isquat/internal/storage"
)

var testNow = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

var member = &auth.User{ID: "u1", Email: "liam@example.com", Name: "Liam", Role: auth.RoleUser, Status: auth.StatusActive}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) IncSubmission(kind, outcome string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[kind+":"+outcome]++
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%06d", n)
	}
}

func testSigner(t *testing.T) *storage.Signer {
	t.Helper()
	s, err := storage.NewSigner(storage.Options{
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "isquat",
		Endpoint:        "oss.example.com",
		PublicBaseURL:   "https://cdn.example.com",
	})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

func newFixtureService(t *testing.T, signer *storage.Signer) (*Service, *location.FixtureRepository, *countingRecorder) {
	t.Helper()
	repo := location.NewFixtureRepository(location.DefaultFixture(testNow), nil)
	rec := &countingRecorder{}
	svc := NewService(Options{
		Writer:   repo,
		Signer:   signer,
		Recorder: rec,
		Now:      func() time.Time { return testNow },
		NewID:    sequentialIDs(),
	})
	return svc, repo, rec
}

func validToiletForm() ToiletForm {
	return ToiletForm{
		Name:     "  Quay Street Kiosk ",
		Address:  "1 Quay St",
		District: "Waterfront",
		Lat:      "-36.8431",
		Lng:      "174.7680",
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"4", 4, true},
		{"4.4", 4, true},
		{"4.5", 5, true},
		{" 1 ", 1, true},
		{"5", 5, true},
		{"0", 0, false},
		{"0.4", 0, false},
		{"0.5", 1, true},
		{"5.5", 0, false},
		{"6", 0, false},
		{"-1", 0, false},
		{"", 0, false},
		{"four", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRating(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	tests := []struct {
		name  string
		user  *auth.User
		form  ReviewForm
		field string
		msg   string
	}{
		{"anonymous", nil, ReviewForm{ToiletID: "t1", Rating: "4"}, "", MsgSignInToReview},
		{"rating zero", member, ReviewForm{ToiletID: "t1", Rating: "0"}, "rating", MsgRatingRequired},
		{"rating six", member, ReviewForm{ToiletID: "t1", Rating: "6"}, "rating", MsgRatingRequired},
		{"rating text", member, ReviewForm{ToiletID: "t1", Rating: "great"}, "rating", MsgRatingRequired},
		{"missing toilet id", member, ReviewForm{Rating: "4"}, "rating", MsgRatingRequired},
		{"unknown toilet", member, ReviewForm{ToiletID: "nope", Rating: "4"}, "toiletId", MsgToiletNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newFixtureService(t, nil)
			res, err := svc.SubmitReview(context.Background(), tt.user, tt.form)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.OK() {
				t.Fatalf("expected rejection, got redirect %q", res.Redirect)
			}
			if res.Err.Field != tt.field || res.Err.Message != tt.msg {
				t.Errorf("got %+v, want field %q message %q", res.Err, tt.field, tt.msg)
			}
		})
	}
}

func TestSubmitReview_RoundsRating(t *testing.T) {
	svc, repo, rec := newFixtureService(t, nil)
	ctx := context.Background()

	res, err := svc.SubmitReview(ctx, member, ReviewForm{ToiletID: "t1", Rating: "4.4", Body: "  Clean enough  "})
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if !res.OK() || res.Redirect != "/toilet/t1" {
		t.Fatalf("unexpected result %+v", res)
	}

	pending, _ := repo.PendingReviews(ctx)
	var found *location.PendingReview
	for i := range pending {
		if pending[i].ID == "id000001" {
			found = &pending[i]
		}
	}
	if found == nil {
		t.Fatalf("review not queued: %+v", pending)
	}
	if found.Rating != 4 || found.Snippet != "Clean enough" || found.SubmittedBy != "Liam" {
		t.Errorf("unexpected pending review %+v", found)
	}
	if rec.counts["review:accepted"] != 1 {
		t.Errorf("expected accepted review to be recorded, got %v", rec.counts)
	}
}

func TestSubmitReview_HiddenToilet(t *testing.T) {
	svc, _, _ := newFixtureService(t, nil)

	res, err := svc.SubmitReview(context.Background(), member, ReviewForm{ToiletID: "h1", Rating: "3"})
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if !res.OK() {
		t.Errorf("hidden toilets can be reviewed, got %+v", res.Err)
	}
}

func TestSubmitToilet_Validation(t *testing.T) {
	tests := []struct {
		name  string
		user  *auth.User
		mod   func(*ToiletForm)
		field string
		msg   string
	}{
		{"anonymous", nil, func(*ToiletForm) {}, "", MsgSignInToSubmit},
		{"missing name", member, func(f *ToiletForm) { f.Name = "  " }, "name", MsgToiletFields},
		{"missing address", member, func(f *ToiletForm) { f.Address = "" }, "address", MsgToiletFields},
		{"missing district", member, func(f *ToiletForm) { f.District = "" }, "district", MsgToiletFields},
		{"missing lat", member, func(f *ToiletForm) { f.Lat = "" }, "location", MsgDropPin},
		{"bad lng", member, func(f *ToiletForm) { f.Lng = "east" }, "location", MsgDropPin},
		{"out of range", member, func(f *ToiletForm) { f.Lat = "123" }, "location", MsgDropPin},
		{"unknown district", member, func(f *ToiletForm) { f.District = "Atlantis" }, "district", MsgDistrictNotFound},
		{"photos without storage", member, func(f *ToiletForm) {
			f.Photos = []string{`{"key":"toilets/u1/a.jpg","url":"https://cdn.example.com/toilets/u1/a.jpg"}`}
		}, "photos", MsgPhotosNotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, rec := newFixtureService(t, nil)
			form := validToiletForm()
			tt.mod(&form)

			res, err := svc.SubmitToilet(context.Background(), tt.user, form)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.OK() {
				t.Fatalf("expected rejection, got redirect %q", res.Redirect)
			}
			if res.Err.Field != tt.field || res.Err.Message != tt.msg {
				t.Errorf("got %+v, want field %q message %q", res.Err, tt.field, tt.msg)
			}
			if locs, _ := repo.PendingLocations(context.Background()); len(locs) != 3 {
				t.Errorf("rejected submission must not write, queue has %d", len(locs))
			}
			if rec.counts["toilet:invalid"] != 1 {
				t.Errorf("expected invalid outcome, got %v", rec.counts)
			}
		})
	}
}

func TestSubmitToilet_DistrictBySlug(t *testing.T) {
	svc, repo, _ := newFixtureService(t, testSigner(t))
	ctx := context.Background()

	form := validToiletForm()
	form.District = "north shore"
	form.Photos = []string{
		`{"key":"toilets/u1/a.jpg","url":"https://cdn.example.com/toilets/u1/a.jpg"}`,
		`{"key":"reviews/u1/b.jpg","url":"https://cdn.example.com/reviews/u1/b.jpg"}`,
		"",
	}
	res, err := svc.SubmitToilet(ctx, member, form)
	if err != nil {
		t.Fatalf("SubmitToilet: %v", err)
	}
	if !res.OK() || res.Redirect != "/dashboard" {
		t.Fatalf("unexpected result %+v", res)
	}

	locs, _ := repo.PendingLocations(ctx)
	if len(locs) != 4 {
		t.Fatalf("expected new submission in queue, got %d", len(locs))
	}
	got := locs[0]
	if got.Name != "Quay Street Kiosk" || got.District != "North Shore" || got.Photos != 1 || got.SubmittedBy != "Liam" {
		t.Errorf("unexpected pending location %+v", got)
	}

	if exists, _ := repo.ToiletExists(ctx, "id000001"); !exists {
		t.Error("expected hidden toilet row")
	}
	if _, err := repo.ToiletByID(ctx, "quay-street-kiosk-id0000"); !errors.Is(err, location.ErrNotFound) {
		t.Errorf("new toilet must stay hidden, got %v", err)
	}
}

type failingWriter struct {
	err error
}

func (w *failingWriter) DistrictID(context.Context, string, string) (string, error) { return "", w.err }
func (w *failingWriter) ToiletExists(context.Context, string) (bool, error)         { return false, w.err }
func (w *failingWriter) CreateToilet(context.Context, location.NewToilet, location.NewSubmission, []location.NewPhoto) error {
	return w.err
}
func (w *failingWriter) CreateReview(context.Context, location.NewReview, []location.NewPhoto) error {
	return w.err
}

func TestSubmit_StorageErrors(t *testing.T) {
	boom := errors.New("connection refused")
	rec := &countingRecorder{}
	svc := NewService(Options{Writer: &failingWriter{err: boom}, Recorder: rec})
	ctx := context.Background()

	if _, err := svc.SubmitToilet(ctx, member, validToiletForm()); !errors.Is(err, boom) {
		t.Errorf("SubmitToilet: expected wrapped error, got %v", err)
	}
	if _, err := svc.SubmitReview(ctx, member, ReviewForm{ToiletID: "t1", Rating: "5"}); !errors.Is(err, boom) {
		t.Errorf("SubmitReview: expected wrapped error, got %v", err)
	}
	if rec.counts["toilet:error"] != 1 || rec.counts["review:error"] != 1 {
		t.Errorf("expected error outcomes, got %v", rec.counts)
	}
}
