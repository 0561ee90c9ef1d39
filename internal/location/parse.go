package location

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/isquat/isquat/internal/geo"
)

// Row is a loosely typed result row keyed by column name. Both repositories
// build their entities from rows so that malformed data is treated the same
// way regardless of where it came from.
type Row map[string]any

// Drop reasons.
const (
	reasonMissingField = "missing_field"
	reasonBadNumber    = "bad_number"
)

// Entities.
const (
	entityToilet          = "toilet"
	entityReview          = "review"
	entityDistrict        = "district"
	entityPendingLocation = "pending_location"
	entityPendingReview   = "pending_review"
)

type parser struct {
	drops DropRecorder
	now   func() time.Time
}

func (p parser) drop(entity, reason string, row Row) {
	id, _ := toString(row["id"])
	slog.Warn("dropping malformed row", "entity", entity, "reason", reason, "id", id)
	if p.drops != nil {
		p.drops.RowDropped(entity, reason)
	}
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case pgtype.Text:
		return x.String, x.Valid
	case pgtype.UUID:
		if !x.Valid {
			return "", false
		}
		v, err := x.Value()
		if err != nil {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	default:
		return "", false
	}
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case pgtype.Numeric:
		fv, err := x.Float64Value()
		if err != nil || !fv.Valid {
			return 0, false
		}
		f = fv.Float64
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case pgtype.Timestamptz:
		return x.Time, x.Valid
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// nonEmpty returns the string at key when it is present and non-empty.
func nonEmpty(row Row, key string) (string, bool) {
	s, ok := toString(row[key])
	return s, ok && s != ""
}

func (p parser) toilet(row Row) (Toilet, bool) {
	var t Toilet
	var ok bool
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"id", &t.ID},
		{"slug", &t.Slug},
		{"name", &t.Name},
		{"district", &t.District},
		{"address", &t.Address},
	} {
		if *f.dst, ok = nonEmpty(row, f.key); !ok {
			p.drop(entityToilet, reasonMissingField, row)
			return Toilet{}, false
		}
	}

	lat, latOK := toNumber(row["lat"])
	lng, lngOK := toNumber(row["lng"])
	if !latOK || !lngOK {
		p.drop(entityToilet, reasonBadNumber, row)
		return Toilet{}, false
	}
	t.Lat, t.Lng = lat, lng

	t.Rating, _ = toNumber(row["rating"])
	count, _ := toNumber(row["review_count"])
	t.ReviewCount = int(count)

	t.AccessNotes = DefaultAccessNotes
	if notes, ok := nonEmpty(row, "access_notes"); ok {
		t.AccessNotes = notes
	}
	tags, _ := toString(row["tags"])
	t.Tags = ParseTags(tags)
	t.Tone = PickTone(t.Slug)
	t.Distance = geo.FormatDistance(geo.Reference.DistanceTo(t.Point()))
	t.PhotoURL, _ = toString(row["photo_url"])
	return t, true
}

func (p parser) review(row Row) (Review, bool) {
	id, ok := nonEmpty(row, "id")
	if !ok {
		p.drop(entityReview, reasonMissingField, row)
		return Review{}, false
	}
	rating, ok := toNumber(row["rating"])
	if !ok {
		p.drop(entityReview, reasonBadNumber, row)
		return Review{}, false
	}

	name, _ := toString(row["user_name"])
	email, _ := toString(row["user_email"])
	body, _ := toString(row["body"])
	created, _ := toTime(row["created_at"])

	return Review{
		ID:     id,
		Name:   ReviewerName(name, email),
		Rating: rating,
		Date:   HumanizeDate(created, p.now()),
		Body:   body,
	}, true
}

func (p parser) pendingLocation(row Row) (PendingLocation, bool) {
	id, idOK := nonEmpty(row, "id")
	name, nameOK := nonEmpty(row, "name")
	district, districtOK := nonEmpty(row, "district")
	if !idOK || !nameOK || !districtOK {
		p.drop(entityPendingLocation, reasonMissingField, row)
		return PendingLocation{}, false
	}

	by, _ := toString(row["submitted_by"])
	photos, _ := toNumber(row["photos"])
	note, ok := nonEmpty(row, "note")
	if !ok {
		note = DefaultAccessNotes
	}
	return PendingLocation{
		ID:          id,
		Name:        name,
		District:    district,
		SubmittedBy: submitterName(by),
		Photos:      int(photos),
		Note:        note,
	}, true
}

func (p parser) pendingReview(row Row) (PendingReview, bool) {
	id, idOK := nonEmpty(row, "id")
	loc, locOK := nonEmpty(row, "location")
	if !idOK || !locOK {
		p.drop(entityPendingReview, reasonMissingField, row)
		return PendingReview{}, false
	}
	rating, ok := toNumber(row["rating"])
	if !ok {
		p.drop(entityPendingReview, reasonBadNumber, row)
		return PendingReview{}, false
	}

	by, _ := toString(row["submitted_by"])
	photos, _ := toNumber(row["photos"])
	body, _ := toString(row["body"])
	return PendingReview{
		ID:          id,
		Location:    loc,
		Rating:      rating,
		SubmittedBy: submitterName(by),
		Photos:      int(photos),
		Snippet:     Snippet(body),
	}, true
}

func (p parser) toilets(rows []Row) []Toilet {
	out := make([]Toilet, 0, len(rows))
	for _, row := range rows {
		if t, ok := p.toilet(row); ok {
			out = append(out, t)
		}
	}
	return out
}

func (p parser) reviews(rows []Row) []Review {
	out := make([]Review, 0, len(rows))
	for _, row := range rows {
		if r, ok := p.review(row); ok {
			out = append(out, r)
		}
	}
	return out
}

func (p parser) districts(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		name, ok := nonEmpty(row, "name")
		if !ok {
			p.drop(entityDistrict, reasonMissingField, row)
			continue
		}
		out = append(out, name)
	}
	return out
}

func (p parser) pendingLocations(rows []Row) []PendingLocation {
	out := make([]PendingLocation, 0, len(rows))
	for _, row := range rows {
		if pl, ok := p.pendingLocation(row); ok {
			out = append(out, pl)
		}
	}
	return out
}

func (p parser) pendingReviews(rows []Row) []PendingReview {
	out := make([]PendingReview, 0, len(rows))
	for _, row := range rows {
		if pr, ok := p.pendingReview(row); ok {
			out = append(out, pr)
		}
	}
	return out
}
