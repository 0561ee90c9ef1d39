package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRowDropped(t *testing.T) {
	m := New()
	m.RowDropped("toilet", "missing_field")
	m.RowDropped("toilet", "missing_field")
	m.RowDropped("review", "bad_number")

	if got := testutil.ToFloat64(m.RowsDroppedTotal.WithLabelValues("toilet", "missing_field")); got != 2 {
		t.Errorf("expected 2 dropped toilet rows, got %v", got)
	}
	if got := testutil.ToFloat64(m.RowsDroppedTotal.WithLabelValues("review", "bad_number")); got != 1 {
		t.Errorf("expected 1 dropped review row, got %v", got)
	}
}

func TestModerationVerdict(t *testing.T) {
	m := New()
	m.ModerationVerdict(true, "moderation_disabled", 0)
	m.ModerationVerdict(false, "moderation_failed", 12*time.Second)

	if got := testutil.ToFloat64(m.ModerationVerdictsTotal.WithLabelValues("false", "moderation_failed")); got != 1 {
		t.Errorf("expected 1 failed verdict, got %v", got)
	}
	if got := testutil.CollectAndCount(m.ModerationVerdictsTotal); got != 2 {
		t.Errorf("expected 2 label sets, got %d", got)
	}
}

func TestDBPoolCollector(t *testing.T) {
	m := New()
	m.RegisterDBPoolCollector(func() PoolStats {
		return PoolStats{Total: 4, Idle: 3, Acquired: 1, Max: 10}
	})

	expected := `
# HELP isquat_db_pool_acquired_conns Number of acquired connections in the DB pool.
# TYPE isquat_db_pool_acquired_conns gauge
isquat_db_pool_acquired_conns 1
# HELP isquat_db_pool_max_conns Configured maximum size of the DB pool.
# TYPE isquat_db_pool_max_conns gauge
isquat_db_pool_max_conns 10
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"isquat_db_pool_acquired_conns", "isquat_db_pool_max_conns"); err != nil {
		t.Error(err)
	}
}

func TestSummaryHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/toilets", 200, 512, 20*time.Millisecond)
	m.ObserveHTTP("GET", "/api/toilets/{id}", 404, 64, 5*time.Millisecond)
	m.IncAuthFailure("signin", "invalid")
	m.IncAuthSuccess("signup")
	m.IncRateLimitRejection("moderation")
	m.ModerationVerdict(true, "clean", time.Second)
	m.ModerationVerdict(false, "nudity", time.Second)
	m.RowDropped("toilet", "missing_field")
	m.IncSubmission("toilet", "accepted")
	m.IncSubmission("review", "accepted")
	m.IncSubmission("review", "invalid")
	m.IncDecision("location", "approve")
	m.IncDecision("review", "reject")
	m.IncPhotoPurge("error")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/metrics/summary", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var s Summary
	if err := json.NewDecoder(rr.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.HTTP.TotalRequests != 2 || s.HTTP.ErrorRate != 0.5 {
		t.Errorf("unexpected http summary %+v", s.HTTP)
	}
	if s.Auth.Failures != 1 || s.Auth.Successes != 1 {
		t.Errorf("unexpected auth summary %+v", s.Auth)
	}
	if s.RateLimit.Rejections != 1 {
		t.Errorf("unexpected rate limit summary %+v", s.RateLimit)
	}
	if s.Moderation.Allowed != 1 || s.Moderation.Rejected != 1 {
		t.Errorf("unexpected moderation summary %+v", s.Moderation)
	}
	if s.RowsDropped["toilet"] != 1 {
		t.Errorf("unexpected dropped rows %+v", s.RowsDropped)
	}
	if s.Submissions.Toilets != 1 || s.Submissions.Reviews != 1 || s.Submissions.Invalid != 1 {
		t.Errorf("unexpected submissions %+v", s.Submissions)
	}
	if s.Decisions.Approved != 1 || s.Decisions.Rejected != 1 || s.Decisions.PurgeErrors != 1 {
		t.Errorf("unexpected decisions %+v", s.Decisions)
	}
	if s.Server.StartTime == 0 {
		t.Error("expected start time to be set")
	}
}
