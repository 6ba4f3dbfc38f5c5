package metrics

import (
	"errors"
	"time"

	"gatherly/internal/engagement"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Toggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_engagement_toggles_total",
		Help: "Engagement toggles by kind and result",
	}, []string{"kind", "result"})
	ToggleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatherly_engagement_toggle_duration_seconds",
		Help:    "Engagement toggle duration seconds, remote write included",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"route"})
	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_posts_created_total",
		Help: "Total posts created",
	})
	PostsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_posts_deleted_total",
		Help: "Total posts deleted",
	})
)

func init() {
	prometheus.MustRegister(Toggles, ToggleDuration, RateLimited, PostsCreated, PostsDeleted)
}

// ObserveToggle records the outcome of one toggle that started at start.
func ObserveToggle(kind engagement.Kind, err error, start time.Time) {
	ToggleDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	Toggles.WithLabelValues(string(kind), result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engagement.ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, engagement.ErrRemoteWriteFailed):
		return "remote_write_failed"
	}
	return "error"
}
