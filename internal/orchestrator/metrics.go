package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tasksDispatched counts dispatches by result.
	tasksDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_tasks_dispatched_total",
		Help: "Total number of dispatched tasks by result",
	}, []string{"result"}) // result: success, failure, rejected

	// earningsTotal accumulates confirmed earnings.
	earningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hunter_earnings_total",
		Help: "Accumulated confirmed earnings across all completed tasks",
	})

	// tasksDiscovered counts normalized candidates by source and method.
	tasksDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_tasks_discovered_total",
		Help: "Total number of task candidates discovered by source and method",
	}, []string{"source", "method"})

	// queueDepth tracks the current working-set size.
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hunter_queue_depth",
		Help: "Number of tasks currently queued",
	})

	// breakerState exposes each source breaker as 0=closed 1=open 2=half-open.
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hunter_breaker_state",
		Help: "Circuit breaker state by source (0 closed, 1 open, 2 half-open)",
	}, []string{"source"})

	// cycleDuration tracks orchestrator cycle time.
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hunter_cycle_duration_seconds",
		Help:    "Time taken by one orchestrator cycle",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 180},
	})

	// adaptiveInterval exposes the currently scheduled cycle delay.
	adaptiveInterval = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hunter_adaptive_interval_seconds",
		Help: "Current adaptive delay until the next cycle",
	})

	// pacedBreaks counts cycles skipped because the governor was blocking.
	pacedBreaks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hunter_paced_breaks_total",
		Help: "Total number of cycles that skipped discovery due to rate pressure",
	})

	// suspiciousTasks counts security pre-check rejections.
	suspiciousTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hunter_suspicious_tasks_total",
		Help: "Total number of tasks rejected by the security pre-check",
	})

	// requestsThisHour mirrors the governor's hourly counter.
	requestsThisHour = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hunter_antidetect_requests_hour",
		Help: "Outbound requests counted in the current hourly window",
	})
)

// MetricsRecorder provides methods to record orchestrator metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordDispatch records a dispatch outcome.
func (m *MetricsRecorder) RecordDispatch(result string, earnings float64) {
	tasksDispatched.WithLabelValues(result).Inc()
	if earnings > 0 {
		earningsTotal.Add(earnings)
	}
}

// RecordDiscovered records normalized candidates for a source.
func (m *MetricsRecorder) RecordDiscovered(source, method string, count int) {
	tasksDiscovered.WithLabelValues(source, method).Add(float64(count))
}

// RecordQueueDepth records the current queue length.
func (m *MetricsRecorder) RecordQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// RecordBreakerState records a source breaker state.
func (m *MetricsRecorder) RecordBreakerState(source string, state int) {
	breakerState.WithLabelValues(source).Set(float64(state))
}

// RecordCycle records one cycle's duration.
func (m *MetricsRecorder) RecordCycle(d time.Duration) {
	cycleDuration.Observe(d.Seconds())
}

// RecordAdaptiveInterval records the next-cycle delay.
func (m *MetricsRecorder) RecordAdaptiveInterval(d time.Duration) {
	adaptiveInterval.Set(d.Seconds())
}

// RecordPacedBreak counts a governor-blocked cycle.
func (m *MetricsRecorder) RecordPacedBreak() {
	pacedBreaks.Inc()
}

// RecordSuspicious counts a security rejection.
func (m *MetricsRecorder) RecordSuspicious() {
	suspiciousTasks.Inc()
}

// RecordHourlyRequests mirrors the governor's hourly window counter.
func (m *MetricsRecorder) RecordHourlyRequests(n int) {
	requestsThisHour.Set(float64(n))
}
