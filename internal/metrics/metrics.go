package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"confessionrelay/internal/domain"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confession_submissions_total",
			Help: "Submissions by pipeline outcome and rejection reason",
		},
		[]string{"outcome", "reason", "kind"},
	)
	PublicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confession_publications_total",
			Help: "Channel publish attempts by result",
		},
		[]string{"result"},
	)
	ArchiveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confession_photo_archive_total",
			Help: "Photo archive uploads by result",
		},
		[]string{"result"},
	)
	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confession_pipeline_duration_seconds",
			Help:    "Time spent processing one submission",
			Buckets: prometheus.DefBuckets,
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			PublicationsTotal,
			ArchiveTotal,
			PipelineDuration,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthRejections,
		)
	})
}

func ObserveOutcome(out domain.Outcome) {
	SubmissionsTotal.WithLabelValues(string(out.Status), string(out.Reason), string(out.Kind)).Inc()
}

func ObservePublication(result string) {
	PublicationsTotal.WithLabelValues(result).Inc()
}

func ObserveArchive(result string) {
	ArchiveTotal.WithLabelValues(result).Inc()
}
