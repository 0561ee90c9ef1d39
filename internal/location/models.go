package location

import (
	"time"

	"github.com/isquat/isquat/internal/geo"
)

// Statuses. Toilets move hidden -> approved|rejected; submissions, reviews
// and photos move pending -> approved|rejected.
const (
	StatusHidden   = "hidden"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Toilet is a publicly listed location.
type Toilet struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	District    string   `json:"district"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	Distance    string   `json:"distance"`
	Tags        []string `json:"tags"`
	AccessNotes string   `json:"accessNotes"`
	Tone        string   `json:"tone"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
}

// Point returns the toilet's coordinates.
func (t Toilet) Point() geo.Point {
	return geo.Point{Lat: t.Lat, Lng: t.Lng}
}

// NearestToilet is a toilet annotated with its exact distance from a query
// point.
type NearestToilet struct {
	Toilet
	DistanceKm float64 `json:"distanceKm"`
}

// Review is an approved review as shown on a toilet page.
type Review struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Date   string  `json:"date"`
	Body   string  `json:"body"`
}

// PendingLocation is a submission awaiting an admin decision.
type PendingLocation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	District    string `json:"district"`
	SubmittedBy string `json:"submittedBy"`
	Photos      int    `json:"photos"`
	Note        string `json:"note"`
}

// PendingReview is a review awaiting an admin decision.
type PendingReview struct {
	ID          string  `json:"id"`
	Location    string  `json:"location"`
	Rating      float64 `json:"rating"`
	SubmittedBy string  `json:"submittedBy"`
	Photos      int     `json:"photos"`
	Snippet     string  `json:"snippet"`
}

// ToiletFilter narrows Toilets. A zero filter lists every approved toilet.
type ToiletFilter struct {
	// District matches a district name exactly or by slug.
	District string
}

// Author identifies the user behind a write.
type Author struct {
	ID    string
	Name  string
	Email string
}

// NewToilet is a toilet row created by a submission. It starts hidden.
type NewToilet struct {
	ID          string
	Slug        string
	Name        string
	DistrictID  string
	Address     string
	Lat         float64
	Lng         float64
	AccessNotes string
	CreatedBy   Author
	CreatedAt   time.Time
}

// NewSubmission is the pending audit record paired with a NewToilet.
type NewSubmission struct {
	ID          string
	UserID      string
	Name        string
	DistrictID  string
	Address     string
	Lat         float64
	Lng         float64
	AccessNotes string
	ToiletID    string
	CreatedAt   time.Time
}

// NewReview is a pending review.
type NewReview struct {
	ID        string
	ToiletID  string
	Author    Author
	Rating    int
	Body      string
	CreatedAt time.Time
}

// NewPhoto is a pending photo attached to a toilet or a review.
type NewPhoto struct {
	ID         string
	ToiletID   string
	ReviewID   string
	UploadedBy string
	Key        string
	URL        string
	CreatedAt  time.Time
}
