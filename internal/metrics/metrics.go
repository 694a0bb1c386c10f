// Package metrics counts what a preparation run parsed and produced.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arcs"

// Example kinds.
const (
	KindPositive = "positive"
	KindHard     = "hard_negative"
	KindEasy     = "easy_negative"
)

// Recorder holds run metrics in its own registry. A nil *Recorder is a
// valid no-op.
type Recorder struct {
	registry *prometheus.Registry

	documents *prometheus.CounterVec
	topics    prometheus.Counter
	judgments *prometheus.CounterVec
	examples  *prometheus.CounterVec
	oov       prometheus.Counter
	duration  *prometheus.HistogramVec
}

// New creates a recorder and registers its collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_parsed_total",
				Help:      "Documents parsed, by whether a title was found",
			},
			[]string{"title"},
		),
		topics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topics_parsed_total",
			Help:      "Topics parsed",
		}),
		judgments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "judgments_loaded_total",
				Help:      "Relevance judgments loaded, by relevance",
			},
			[]string{"relevant"},
		),
		examples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "training_examples_total",
				Help:      "Training examples emitted, by kind",
			},
			[]string{"kind"},
		),
		oov: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_oov_terms_total",
			Help:      "Distinct out-of-vocabulary topic terms",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of preparation stages in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
	}
	r.registry.MustRegister(r.documents, r.topics, r.judgments, r.examples, r.oov, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Document counts one parsed document.
func (r *Recorder) Document(hasTitle bool) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(strconv.FormatBool(hasTitle)).Inc()
}

// Topics counts parsed topics.
func (r *Recorder) Topics(n int) {
	if r == nil {
		return
	}
	r.topics.Add(float64(n))
}

// Judgments counts loaded judgments with the given relevance.
func (r *Recorder) Judgments(relevant bool, n int) {
	if r == nil {
		return
	}
	r.judgments.WithLabelValues(strconv.FormatBool(relevant)).Add(float64(n))
}

// Examples counts emitted training examples of a kind.
func (r *Recorder) Examples(kind string, n int) {
	if r == nil {
		return
	}
	r.examples.WithLabelValues(kind).Add(float64(n))
}

// OOV counts out-of-vocabulary topic terms.
func (r *Recorder) OOV(n int) {
	if r == nil {
		return
	}
	r.oov.Add(float64(n))
}

// Stage observes how long a named stage took since start.
func (r *Recorder) Stage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes all metrics in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
