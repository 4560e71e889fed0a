package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// enrichmentTasks — завершённые фоновые задачи обогащения по результату.
	enrichmentTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pi_enrichment_tasks_total",
			Help: "Количество фоновых задач обогащения анкет по результату",
		},
		[]string{"result"},
	)

	// tasksInFlight — фоновые задачи, выполняющиеся в данный момент.
	tasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pi_enrichment_tasks_in_flight",
			Help: "Количество выполняющихся фоновых задач обогащения",
		},
	)

	// blobCleanupFailures — неудачные попытки удалить медиафайл из хранилища.
	blobCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pi_blob_cleanup_failures_total",
			Help: "Количество неудачных удалений медиафайлов из хранилища",
		},
	)
)
