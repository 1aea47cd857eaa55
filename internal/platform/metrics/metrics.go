// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is registered on its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	QuestionsAsked    *prometheus.CounterVec // by kind
	QuestionsAnswered *prometheus.CounterVec // by kind
	GeocodeLookups    *prometheus.CounterVec // by outcome
	CityBackfills     *prometheus.CounterVec // by outcome
	OrphansSwept      prometheus.Counter
}

const (
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
	OutcomeQueued   = "queued"
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QuestionsAsked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conference",
			Name:      "questions_asked_total",
			Help:      "Questions created, by target kind.",
		}, []string{"kind"}),
		QuestionsAnswered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conference",
			Name:      "questions_answered_total",
			Help:      "Questions moved from pending to answered, by target kind.",
		}, []string{"kind"}),
		GeocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conference",
			Name:      "geocode_lookups_total",
			Help:      "Reverse geocoding lookups, by outcome.",
		}, []string{"outcome"}),
		CityBackfills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conference",
			Name:      "city_backfills_total",
			Help:      "Background city backfill attempts, by outcome.",
		}, []string{"outcome"}),
		OrphansSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "conference",
			Name:      "orphan_questions_swept_total",
			Help:      "Article questions removed because their article is gone.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QuestionsAsked,
		m.QuestionsAnswered,
		m.GeocodeLookups,
		m.CityBackfills,
		m.OrphansSwept,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
