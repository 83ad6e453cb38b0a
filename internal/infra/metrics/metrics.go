package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FlowsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_flows_started_total",
		Help: "Запущенные сценарии по типу",
	}, []string{"flow"})

	Callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_callbacks_total",
		Help: "Нажатия кнопок по действию и результату",
	}, []string{"action", "result"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_cache_lookups_total",
		Help: "Обращения к кэшу роликов",
	}, []string{"result"})

	DeletionsScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_deletions_scheduled_total",
		Help: "Запланированные пакеты удаления сообщений",
	})

	Deletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_deletions_total",
		Help: "Попытки удаления сообщений",
	}, []string{"result"})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	UpdatePanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_update_panics_total",
		Help: "Паники, перехваченные при обработке апдейтов",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FlowsStarted,
		Callbacks,
		CacheLookups,
		DeletionsScheduled,
		Deletions,
		BotSendErrors,
		UpdatePanics,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// RegisterGauge регистрирует gauge, значение которого читается при сборе.
func RegisterGauge(registerer prometheus.Registerer, name, help string, fn func() float64) {
	registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}
