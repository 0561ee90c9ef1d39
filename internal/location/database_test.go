package location

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows serves a fixed result set through the pgx.Rows interface.
type fakeRows struct {
	cols   []string
	values [][]any
	pos    int
	closed bool
}

func newFakeRows(cols []string, values ...[]any) *fakeRows {
	return &fakeRows{cols: cols, values: values, pos: -1}
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.values)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	return errors.New("fakeRows: only RowScanner destinations are supported")
}

type recordedQuery struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	queries []recordedQuery
	rows    *fakeRows
	err     error
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, recordedQuery{sql: sql, args: args})
	if q.err != nil {
		return nil, q.err
	}
	if q.rows == nil {
		return newFakeRows(nil), nil
	}
	return q.rows, nil
}

var toiletCols = []string{"id", "slug", "name", "district", "address", "lat", "lng", "access_notes", "rating", "review_count", "tags", "photo_url"}

func TestDatabase_ToiletsByDistrict(t *testing.T) {
	q := &fakeQuerier{rows: newFakeRows(toiletCols,
		[]any{"t6", "takapuna-beach-pavilion", "Takapuna Beach Pavilion", "North Shore", "21 The Strand", -36.7939, 174.7743, nil, 4.9, int64(254), "Accessible|Family", nil},
		[]any{"bad", "", "No Slug", "North Shore", "1 Road", -36.8, 174.7, nil, 4.0, int64(1), nil, nil},
	)}
	drops := &recordingDrops{}
	repo := NewDatabaseRepository(q, drops)

	got, err := repo.Toilets(context.Background(), ToiletFilter{District: "North Shore"})
	if err != nil {
		t.Fatalf("Toilets: %v", err)
	}
	if len(got) != 1 || got[0].ID != "t6" {
		t.Fatalf("expected only the well-formed row, got %+v", got)
	}
	if diff := cmp.Diff([]string{"Accessible", "Family"}, got[0].Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got[0].AccessNotes != DefaultAccessNotes {
		t.Errorf("expected default access notes, got %q", got[0].AccessNotes)
	}
	if len(drops.drops) != 1 {
		t.Errorf("expected one dropped row, got %v", drops.drops)
	}
	if diff := cmp.Diff([]any{"North Shore", "north-shore"}, q.queries[0].args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(q.queries[0].sql, "t.status = 'approved'") {
		t.Error("toilet query must filter on approved status")
	}
	if !q.rows.closed {
		t.Error("rows were not closed")
	}
}

func TestDatabase_TopRatedOrdering(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewDatabaseRepository(q, nil)

	if _, err := repo.TopRated(context.Background(), 0); err != nil {
		t.Fatalf("TopRated: %v", err)
	}
	sql := q.queries[0].sql
	if !strings.Contains(sql, "ORDER BY t.avg_rating DESC, t.review_count DESC") {
		t.Errorf("missing tie-break ordering in %s", sql)
	}
	if diff := cmp.Diff([]any{DefaultTopRatedLimit}, q.queries[0].args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDatabase_ToiletByIDNotFound(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewDatabaseRepository(q, nil)

	_, err := repo.ToiletByID(context.Background(), "h1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDatabase_NearbyArgs(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewDatabaseRepository(q, nil)

	origin := Toilet{ID: "t1", Lat: -36.84, Lng: 174.75}
	if _, err := repo.Nearby(context.Background(), origin, 0); err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if diff := cmp.Diff([]any{"t1", -36.84, 174.75, DefaultNearbyLimit}, q.queries[0].args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDatabase_ReviewsForToilet(t *testing.T) {
	q := &fakeQuerier{rows: newFakeRows([]string{"id", "rating", "body", "created_at", "user_name", "user_email"},
		[]any{"r1", int64(5), "Spotless", nil, nil, "kai@example.com"},
		[]any{"r2", "not a number", "", nil, "Mia", nil},
	)}
	repo := NewDatabaseRepository(q, nil)

	got, err := repo.ReviewsForToilet(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ReviewsForToilet: %v", err)
	}
	want := []Review{{ID: "r1", Name: "kai", Rating: 5, Date: "Recently", Body: "Spotless"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reviews mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"t1", ReviewLimit}, q.queries[0].args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDatabase_QueryError(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewDatabaseRepository(&fakeQuerier{err: boom}, nil)
	ctx := context.Background()

	if _, err := repo.Districts(ctx); !errors.Is(err, boom) {
		t.Errorf("Districts: expected wrapped error, got %v", err)
	}
	if _, err := repo.PendingLocations(ctx); !errors.Is(err, boom) {
		t.Errorf("PendingLocations: expected wrapped error, got %v", err)
	}
	if _, err := repo.PendingReviews(ctx); !errors.Is(err, boom) {
		t.Errorf("PendingReviews: expected wrapped error, got %v", err)
	}
}

func TestDatabase_PendingLocations(t *testing.T) {
	q := &fakeQuerier{rows: newFakeRows([]string{"id", "name", "district", "note", "submitted_by", "photos"},
		[]any{"p1", "Quay St Kiosk", "Waterfront", nil, nil, int64(2)},
	)}
	repo := NewDatabaseRepository(q, nil)

	got, err := repo.PendingLocations(context.Background())
	if err != nil {
		t.Fatalf("PendingLocations: %v", err)
	}
	want := []PendingLocation{{ID: "p1", Name: "Quay St Kiosk", District: "Waterfront", SubmittedBy: "Anonymous", Photos: 2, Note: DefaultAccessNotes}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
