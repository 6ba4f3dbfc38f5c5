package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gatherly/internal/engagement"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsExposure(t *testing.T) {
	ObserveToggle(engagement.Like, nil, time.Now().Add(-20*time.Millisecond))
	RateLimited.WithLabelValues("/posts/{post_id}/like/toggle").Inc()
	PostsCreated.Inc()
	PostsDeleted.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"gatherly_engagement_toggles_total",
		"gatherly_engagement_toggle_duration_seconds",
		"gatherly_rate_limited_total",
		"gatherly_posts_created_total",
		"gatherly_posts_deleted_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}

func TestObserveToggle_Result(t *testing.T) {
	before := testutil.ToFloat64(Toggles.WithLabelValues("bookmark", "remote_write_failed"))
	err := &engagement.RemoteWriteError{Op: "delete", Kind: engagement.Bookmark, Err: errors.New("reset")}
	ObserveToggle(engagement.Bookmark, err, time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(Toggles.WithLabelValues("bookmark", "remote_write_failed")))

	assert.Equal(t, "auth_required", result(engagement.ErrAuthRequired))
	assert.Equal(t, "error", result(errors.New("x")))
	assert.Equal(t, "ok", result(nil))
}
