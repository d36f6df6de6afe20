// Package metrics exposes Prometheus collectors for the playback daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

const namespace = "wwfm_live"

var allStatuses = []models.Status{
	models.StatusIdle,
	models.StatusLoading,
	models.StatusPlaying,
	models.StatusPaused,
	models.StatusError,
}

// Recorder records controller activity. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	playAttempts prometheus.Counter
	rejections   prometheus.Counter
	streamErrors prometheus.Counter
	metadata     prometheus.Counter
	transitions  *prometheus.CounterVec
	status       *prometheus.GaugeVec
}

// New creates a Recorder registered on its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		playAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "play_attempts_total",
			Help:      "Play attempts issued to the media primitive.",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "play_rejections_total",
			Help:      "Play attempts that were rejected.",
		}),
		streamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Errors reported by the media primitive after audio started.",
		}),
		metadata: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_messages_total",
			Help:      "Metadata pushes applied to the label.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Playback status transitions by target status.",
		}, []string{"status"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "1 for the current playback status, 0 otherwise.",
		}, []string{"status"}),
	}
	r.registry.MustRegister(r.playAttempts, r.rejections, r.streamErrors, r.metadata, r.transitions, r.status)
	r.setStatus(models.StatusIdle)
	return r
}

// Handler returns the /metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}


func (r *Recorder) PlayAttempt() {
	if r != nil {
		r.playAttempts.Inc()
	}
}

func (r *Recorder) PlayRejected() {
	if r != nil {
		r.rejections.Inc()
	}
}

func (r *Recorder) StreamError() {
	if r != nil {
		r.streamErrors.Inc()
	}
}

func (r *Recorder) Metadata() {
	if r != nil {
		r.metadata.Inc()
	}
}

// Transition records a status change to s.
func (r *Recorder) Transition(s models.Status) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(string(s)).Inc()
	r.setStatus(s)
}

func (r *Recorder) setStatus(s models.Status) {
	for _, st := range allStatuses {
		v := 0.0
		if st == s {
			v = 1
		}
		r.status.WithLabelValues(string(st)).Set(v)
	}
}
