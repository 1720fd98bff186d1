package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordWorkout_CountsOutcomeAndPoints(t *testing.T) {
	before := testutil.ToFloat64(pointsAwardedCounter)

	RecordWorkout("MANUAL", "created", 10)
	RecordWorkout("MANUAL", "already_recorded", 0)

	if got := testutil.ToFloat64(pointsAwardedCounter) - before; got != 10 {
		t.Fatalf("unexpected points delta: got=%v want=10", got)
	}
	if got := testutil.ToFloat64(workoutsRecordedCounter.WithLabelValues("MANUAL", "already_recorded")); got < 1 {
		t.Fatalf("expected already_recorded counter to be incremented, got=%v", got)
	}
}

func TestRecordInboxIngest_LabelsCreated(t *testing.T) {
	RecordInboxIngest("STRAVA", true)
	RecordInboxIngest("STRAVA", false)
	RecordInboxIngest("STRAVA", false)

	if got := testutil.ToFloat64(inboxIngestCounter.WithLabelValues("STRAVA", "false")); got < 2 {
		t.Fatalf("unexpected duplicate ingest count: %v", got)
	}
}

func TestRecordCircuitState(t *testing.T) {
	RecordCircuitState("qstash", "open")
	if got := testutil.ToFloat64(circuitStateGauge.WithLabelValues("qstash")); got != 1 {
		t.Fatalf("expected open breaker gauge to be 1, got=%v", got)
	}

	RecordCircuitState("qstash", "closed")
	if got := testutil.ToFloat64(circuitStateGauge.WithLabelValues("qstash")); got != 0 {
		t.Fatalf("expected closed breaker gauge to be 0, got=%v", got)
	}
}
