package location

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/isquat/isquat/internal/geo"
)

// FixtureDistrict is a district in a fixture data set.
type FixtureDistrict struct {
	ID   string
	Name string
	Slug string
}

// FixtureToilet is a toilet in a fixture data set.
type FixtureToilet struct {
	ID          string
	Slug        string
	Name        string
	DistrictID  string
	Address     string
	Lat         float64
	Lng         float64
	Rating      float64
	ReviewCount int
	Tags        []string
	AccessNotes string
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
}

// FixtureReview is a review in a fixture data set.
type FixtureReview struct {
	ID        string
	ToiletID  string
	UserID    string
	UserName  string
	UserEmail string
	Rating    int
	Body      string
	Status    string
	CreatedAt time.Time
}

// FixtureSubmission is a location submission in a fixture data set.
type FixtureSubmission struct {
	ID          string
	UserID      string
	SubmittedBy string
	Name        string
	DistrictID  string
	Address     string
	Lat         float64
	Lng         float64
	AccessNotes string
	Status      string
	ToiletID    string
	CreatedAt   time.Time
}

// FixturePhoto is a toilet or review photo in a fixture data set.
type FixturePhoto struct {
	ID         string
	ToiletID   string
	ReviewID   string
	UploadedBy string
	Key        string
	URL        string
	Status     string
	CreatedAt  time.Time
}

// FixtureData is a complete in-memory data set.
type FixtureData struct {
	Districts   []FixtureDistrict
	Toilets     []FixtureToilet
	Reviews     []FixtureReview
	Submissions []FixtureSubmission
	Photos      []FixturePhoto
}

// FixtureRepository serves a fixture data set from memory. It carries hidden
// and pending rows alongside approved ones and filters them exactly as the
// database does. Writes are kept in memory only.
type FixtureRepository struct {
	mu          sync.RWMutex
	districts   []FixtureDistrict
	toilets     []*FixtureToilet
	reviews     []*FixtureReview
	submissions []*FixtureSubmission
	photos      []*FixturePhoto
	parse       parser
}

// NewFixtureRepository creates a repository over a copy of data. drops may
// be nil.
func NewFixtureRepository(data FixtureData, drops DropRecorder) *FixtureRepository {
	r := &FixtureRepository{
		districts: append([]FixtureDistrict(nil), data.Districts...),
		parse:     parser{drops: drops, now: time.Now},
	}
	for i := range data.Toilets {
		t := data.Toilets[i]
		t.Tags = append([]string(nil), t.Tags...)
		r.toilets = append(r.toilets, &t)
	}
	for i := range data.Reviews {
		rv := data.Reviews[i]
		r.reviews = append(r.reviews, &rv)
	}
	for i := range data.Submissions {
		s := data.Submissions[i]
		r.submissions = append(r.submissions, &s)
	}
	for i := range data.Photos {
		p := data.Photos[i]
		r.photos = append(r.photos, &p)
	}
	return r
}

func (r *FixtureRepository) districtName(id string) string {
	for _, d := range r.districts {
		if d.ID == id {
			return d.Name
		}
	}
	return ""
}

func (r *FixtureRepository) toiletByID(id string) *FixtureToilet {
	for _, t := range r.toilets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *FixtureRepository) coverPhoto(toiletID string) string {
	var best *FixturePhoto
	for _, p := range r.photos {
		if p.ToiletID != toiletID || p.ReviewID != "" || p.Status != StatusApproved {
			continue
		}
		if best == nil || p.CreatedAt.Before(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.URL
}

func (r *FixtureRepository) toiletRow(t *FixtureToilet) Row {
	row := Row{
		"id":           t.ID,
		"slug":         t.Slug,
		"name":         t.Name,
		"district":     r.districtName(t.DistrictID),
		"address":      t.Address,
		"lat":          t.Lat,
		"lng":          t.Lng,
		"rating":       t.Rating,
		"review_count": int64(t.ReviewCount),
		"tags":         strings.Join(t.Tags, "|"),
	}
	if t.AccessNotes != "" {
		row["access_notes"] = t.AccessNotes
	}
	if url := r.coverPhoto(t.ID); url != "" {
		row["photo_url"] = url
	}
	return row
}

// approvedToilets returns approved toilets newest first.
func (r *FixtureRepository) approvedToilets(keep func(*FixtureToilet) bool) []*FixtureToilet {
	var out []*FixtureToilet
	for _, t := range r.toilets {
		if t.Status == StatusApproved && (keep == nil || keep(t)) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *FixtureRepository) toiletRows(toilets []*FixtureToilet) []Row {
	rows := make([]Row, len(toilets))
	for i, t := range toilets {
		rows[i] = r.toiletRow(t)
	}
	return rows
}

// Districts returns all district names in alphabetical order.
func (r *FixtureRepository) Districts(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]Row, len(r.districts))
	for i, d := range r.districts {
		rows[i] = Row{"id": d.ID, "name": d.Name}
	}
	names := r.parse.districts(rows)
	sort.Strings(names)
	return names, nil
}

// Toilets lists approved toilets, newest first.
func (r *FixtureRepository) Toilets(_ context.Context, f ToiletFilter) ([]Toilet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keep func(*FixtureToilet) bool
	if f.District != "" {
		slug := Slugify(f.District)
		keep = func(t *FixtureToilet) bool {
			for _, d := range r.districts {
				if d.ID == t.DistrictID {
					return d.Name == f.District || d.Slug == slug
				}
			}
			return false
		}
	}
	return r.parse.toilets(r.toiletRows(r.approvedToilets(keep))), nil
}

// TopRated lists approved toilets by rating, breaking ties on review count.
func (r *FixtureRepository) TopRated(_ context.Context, limit int) ([]Toilet, error) {
	if limit <= 0 {
		limit = DefaultTopRatedLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	toilets := r.parse.toilets(r.toiletRows(r.approvedToilets(nil)))
	sort.SliceStable(toilets, func(i, j int) bool {
		if toilets[i].Rating != toilets[j].Rating {
			return toilets[i].Rating > toilets[j].Rating
		}
		return toilets[i].ReviewCount > toilets[j].ReviewCount
	})
	if len(toilets) > limit {
		toilets = toilets[:limit]
	}
	return toilets, nil
}

// ToiletByID returns the approved toilet with the given id or slug.
func (r *FixtureRepository) ToiletByID(_ context.Context, idOrSlug string) (*Toilet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.approvedToilets(func(t *FixtureToilet) bool {
		return t.ID == idOrSlug || t.Slug == idOrSlug
	})
	toilets := r.parse.toilets(r.toiletRows(matches))
	if len(toilets) == 0 {
		return nil, ErrNotFound
	}
	return &toilets[0], nil
}

// Nearby lists other approved toilets closest to t.
func (r *FixtureRepository) Nearby(_ context.Context, t Toilet, limit int) ([]Toilet, error) {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	others := r.parse.toilets(r.toiletRows(r.approvedToilets(func(ft *FixtureToilet) bool {
		return ft.ID != t.ID
	})))
	origin := t.Point()
	sort.SliceStable(others, func(i, j int) bool {
		return geo.SquaredDegreeDistance(others[i].Point(), origin) < geo.SquaredDegreeDistance(others[j].Point(), origin)
	})
	if len(others) > limit {
		others = others[:limit]
	}
	return others, nil
}

// ReviewsForToilet returns the newest approved reviews of a toilet.
func (r *FixtureRepository) ReviewsForToilet(_ context.Context, toiletID string) ([]Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*FixtureReview
	for _, rv := range r.reviews {
		if rv.ToiletID == toiletID && rv.Status == StatusApproved {
			matched = append(matched, rv)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > ReviewLimit {
		matched = matched[:ReviewLimit]
	}

	rows := make([]Row, len(matched))
	for i, rv := range matched {
		rows[i] = Row{
			"id":         rv.ID,
			"rating":     int64(rv.Rating),
			"body":       rv.Body,
			"created_at": rv.CreatedAt,
			"user_name":  rv.UserName,
			"user_email": rv.UserEmail,
		}
	}
	return r.parse.reviews(rows), nil
}

// PendingLocations returns the newest submissions awaiting a decision.
func (r *FixtureRepository) PendingLocations(_ context.Context) ([]PendingLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*FixtureSubmission
	for _, s := range r.submissions {
		if s.Status == StatusPending {
			pending = append(pending, s)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	if len(pending) > PendingLimit {
		pending = pending[:PendingLimit]
	}

	rows := make([]Row, len(pending))
	for i, s := range pending {
		photos := 0
		for _, p := range r.photos {
			if s.ToiletID != "" && p.ToiletID == s.ToiletID && p.ReviewID == "" {
				photos++
			}
		}
		rows[i] = Row{
			"id":           s.ID,
			"name":         s.Name,
			"district":     r.districtName(s.DistrictID),
			"note":         s.AccessNotes,
			"submitted_by": s.SubmittedBy,
			"photos":       int64(photos),
		}
	}
	return r.parse.pendingLocations(rows), nil
}

// PendingReviews returns the newest reviews awaiting a decision.
func (r *FixtureRepository) PendingReviews(_ context.Context) ([]PendingReview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*FixtureReview
	for _, rv := range r.reviews {
		if rv.Status == StatusPending {
			pending = append(pending, rv)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	if len(pending) > PendingLimit {
		pending = pending[:PendingLimit]
	}

	rows := make([]Row, len(pending))
	for i, rv := range pending {
		row := Row{
			"id":           rv.ID,
			"rating":       int64(rv.Rating),
			"body":         rv.Body,
			"submitted_by": firstNonEmpty(rv.UserName, rv.UserEmail),
		}
		if t := r.toiletByID(rv.ToiletID); t != nil {
			row["location"] = t.Name
		}
		photos := 0
		for _, p := range r.photos {
			if p.ReviewID == rv.ID {
				photos++
			}
		}
		row["photos"] = int64(photos)
		rows[i] = row
	}
	return r.parse.pendingReviews(rows), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DistrictID resolves a district by exact name or by slug.
func (r *FixtureRepository) DistrictID(_ context.Context, name, slug string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.districts {
		if d.Name == name || d.Slug == slug {
			return d.ID, nil
		}
	}
	return "", ErrDistrictNotFound
}

// ToiletExists reports whether a toilet with id exists in any status.
func (r *FixtureRepository) ToiletExists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.toiletByID(id) != nil, nil
}

// CreateToilet stores a hidden toilet, its pending submission and photos.
func (r *FixtureRepository) CreateToilet(_ context.Context, t NewToilet, s NewSubmission, photos []NewPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.toilets = append(r.toilets, &FixtureToilet{
		ID:          t.ID,
		Slug:        t.Slug,
		Name:        t.Name,
		DistrictID:  t.DistrictID,
		Address:     t.Address,
		Lat:         t.Lat,
		Lng:         t.Lng,
		AccessNotes: t.AccessNotes,
		Status:      StatusHidden,
		CreatedBy:   t.CreatedBy.ID,
		CreatedAt:   t.CreatedAt,
	})
	r.submissions = append(r.submissions, &FixtureSubmission{
		ID:          s.ID,
		UserID:      s.UserID,
		SubmittedBy: firstNonEmpty(t.CreatedBy.Name, t.CreatedBy.Email),
		Name:        s.Name,
		DistrictID:  s.DistrictID,
		Address:     s.Address,
		Lat:         s.Lat,
		Lng:         s.Lng,
		AccessNotes: s.AccessNotes,
		Status:      StatusPending,
		ToiletID:    s.ToiletID,
		CreatedAt:   s.CreatedAt,
	})
	r.addPhotos(photos)
	return nil
}

// CreateReview stores a pending review and its photos.
func (r *FixtureRepository) CreateReview(_ context.Context, rv NewReview, photos []NewPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reviews = append(r.reviews, &FixtureReview{
		ID:        rv.ID,
		ToiletID:  rv.ToiletID,
		UserID:    rv.Author.ID,
		UserName:  rv.Author.Name,
		UserEmail: rv.Author.Email,
		Rating:    rv.Rating,
		Body:      rv.Body,
		Status:    StatusPending,
		CreatedAt: rv.CreatedAt,
	})
	r.addPhotos(photos)
	return nil
}

func (r *FixtureRepository) addPhotos(photos []NewPhoto) {
	for _, p := range photos {
		r.photos = append(r.photos, &FixturePhoto{
			ID:         p.ID,
			ToiletID:   p.ToiletID,
			ReviewID:   p.ReviewID,
			UploadedBy: p.UploadedBy,
			Key:        p.Key,
			URL:        p.URL,
			Status:     StatusPending,
			CreatedAt:  p.CreatedAt,
		})
	}
}

func (r *FixtureRepository) pendingSubmission(id string) (*FixtureSubmission, error) {
	for _, s := range r.submissions {
		if s.ID == id {
			if s.Status != StatusPending {
				return nil, ErrNotPending
			}
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *FixtureRepository) pendingReview(id string) (*FixtureReview, error) {
	for _, rv := range r.reviews {
		if rv.ID == id {
			if rv.Status != StatusPending {
				return nil, ErrNotPending
			}
			return rv, nil
		}
	}
	return nil, ErrNotFound
}

// setPhotoStatus updates photos matching keep and returns their storage keys.
func (r *FixtureRepository) setPhotoStatus(status string, keep func(*FixturePhoto) bool) []string {
	var keys []string
	for _, p := range r.photos {
		if keep(p) {
			p.Status = status
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// ApproveLocation publishes a pending submission's toilet and photos.
func (r *FixtureRepository) ApproveLocation(_ context.Context, submissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.pendingSubmission(submissionID)
	if err != nil {
		return err
	}
	s.Status = StatusApproved
	if t := r.toiletByID(s.ToiletID); t != nil {
		t.Status = StatusApproved
	}
	r.setPhotoStatus(StatusApproved, func(p *FixturePhoto) bool {
		return p.ToiletID == s.ToiletID && p.ReviewID == ""
	})
	return nil
}

// RejectLocation rejects a pending submission and returns the storage keys
// of its photos.
func (r *FixtureRepository) RejectLocation(_ context.Context, submissionID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.pendingSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	s.Status = StatusRejected
	if t := r.toiletByID(s.ToiletID); t != nil {
		t.Status = StatusRejected
	}
	return r.setPhotoStatus(StatusRejected, func(p *FixturePhoto) bool {
		return p.ToiletID == s.ToiletID && p.ReviewID == ""
	}), nil
}

// ApproveReview publishes a pending review and folds its rating into the
// toilet aggregates.
func (r *FixtureRepository) ApproveReview(_ context.Context, reviewID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, err := r.pendingReview(reviewID)
	if err != nil {
		return err
	}
	rv.Status = StatusApproved
	if t := r.toiletByID(rv.ToiletID); t != nil {
		t.Rating = FoldRating(t.Rating, t.ReviewCount, rv.Rating)
		t.ReviewCount++
	}
	r.setPhotoStatus(StatusApproved, func(p *FixturePhoto) bool {
		return p.ReviewID == rv.ID
	})
	return nil
}

// RejectReview rejects a pending review and returns the storage keys of its
// photos.
func (r *FixtureRepository) RejectReview(_ context.Context, reviewID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, err := r.pendingReview(reviewID)
	if err != nil {
		return nil, err
	}
	rv.Status = StatusRejected
	return r.setPhotoStatus(StatusRejected, func(p *FixturePhoto) bool {
		return p.ReviewID == rv.ID
	}), nil
}

// FoldRating adds one rating to an average over count ratings, rounded to
// two decimals.
func FoldRating(avg float64, count, rating int) float64 {
	total := avg*float64(count) + float64(rating)
	return math.Round(total/float64(count+1)*100) / 100
}
