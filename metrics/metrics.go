package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civic_reports"

var (
	// SubmissionsTotal counts submit attempts by outcome (ok or an error kind).
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Report submissions by result.",
	}, []string{"result"})

	// UploadsTotal counts media uploads by asset kind and outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Media uploads by asset kind and result.",
	}, []string{"kind", "result"})

	UploadDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "Time to upload one media asset to the object store.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"kind"})

	FeedSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_subscriptions",
		Help:      "Live report feed subscriptions currently open.",
	})

	FeedSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_snapshots_total",
		Help:      "Snapshots delivered to feed subscribers.",
	})

	// OrphansTotal counts uploaded assets left without a report, by stage.
	OrphansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphans_total",
		Help:      "Orphaned media assets journaled and swept.",
	}, []string{"stage"})
)
