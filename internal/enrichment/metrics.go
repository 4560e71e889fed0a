package enrichment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы вызова обогащения (label outcome).
const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeTimeout = "timeout"
	outcomeEmpty   = "empty"
)

var (
	// enrichmentCalls — количество вызовов обогащения по исходу.
	enrichmentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pi_enrichment_calls_total",
			Help: "Количество вызовов ИИ-обогащения анкет по исходу",
		},
		[]string{"outcome"},
	)

	// enrichmentDuration — длительность ожидания ответа модели.
	enrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pi_enrichment_duration_seconds",
			Help:    "Длительность ИИ-обогащения анкеты в секундах",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)
)
