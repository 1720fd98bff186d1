package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsRecordedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "accounting",
		Name:      "workouts_recorded_total",
		Help:      "Number of recordWorkout calls grouped by source and outcome.",
	}, []string{"source", "outcome"})

	pointsAwardedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "accounting",
		Name:      "points_awarded_total",
		Help:      "Points credited to weeks through the ledger.",
	})

	txRetryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "accounting",
		Name:      "transaction_retries_total",
		Help:      "Transactions retried after a contention abort.",
	})

	lifecycleTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Week status transitions grouped by target status.",
	}, []string{"status"})

	notificationErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "lifecycle",
		Name:      "notification_errors_total",
		Help:      "Notification failures grouped by event.",
	}, []string{"event"})

	lastTickGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "forge",
		Subsystem: "lifecycle",
		Name:      "last_tick_timestamp_seconds",
		Help:      "Unix timestamp of the most recent scheduler tick.",
	})

	inboxEventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "inbox",
		Name:      "events_total",
		Help:      "Inbox events grouped by source and terminal status.",
	}, []string{"source", "status"})

	inboxIngestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "inbox",
		Name:      "ingested_total",
		Help:      "Webhook deliveries grouped by source and whether they were new.",
	}, []string{"source", "created"})

	circuitStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "forge",
		Subsystem: "dependency",
		Name:      "circuit_open",
		Help:      "1 while the named outbound circuit breaker is open or half open.",
	}, []string{"breaker"})
)

func init() {
	prometheus.MustRegister(
		workoutsRecordedCounter,
		pointsAwardedCounter,
		txRetryCounter,
		lifecycleTransitionCounter,
		notificationErrorCounter,
		lastTickGauge,
		inboxEventsCounter,
		inboxIngestCounter,
		circuitStateGauge,
	)
}

func RecordWorkout(source, outcome string, points int) {
	workoutsRecordedCounter.WithLabelValues(source, outcome).Inc()
	if points > 0 {
		pointsAwardedCounter.Add(float64(points))
	}
}

func RecordTxRetry() {
	txRetryCounter.Inc()
}

func RecordTransition(status string) {
	lifecycleTransitionCounter.WithLabelValues(status).Inc()
}

func RecordNotificationError(event string) {
	notificationErrorCounter.WithLabelValues(event).Inc()
}

// RecordTick updates the scheduler heartbeat gauge.
func RecordTick(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastTickGauge.Set(float64(ts.Unix()))
}

func RecordInboxEvent(source, status string) {
	inboxEventsCounter.WithLabelValues(source, status).Inc()
}

func RecordInboxIngest(source string, created bool) {
	label := "false"
	if created {
		label = "true"
	}
	inboxIngestCounter.WithLabelValues(source, label).Inc()
}

func RecordCircuitState(breaker, state string) {
	value := 0.0
	if state != "closed" {
		value = 1
	}
	circuitStateGauge.WithLabelValues(breaker).Set(value)
}
