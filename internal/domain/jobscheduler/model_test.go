package jobscheduler

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDispatchID_UsesQStashSafeFormat(t *testing.T) {
	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := DispatchID("lifecycle-end-and-open", "forge:dublin/1 crew", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dispatch id must not contain colon, got=%q", got)
	}
	want := "lifecycle-end-and-open-forge-dublin-1-crew-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dispatch id: got=%q want=%q", got, want)
	}
}

func TestDispatchID_DefaultsToMinuteBuckets(t *testing.T) {
	a := DispatchID("tick", "c1", time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC), 0)
	b := DispatchID("tick", "c1", time.Date(2026, 3, 1, 10, 0, 55, 0, time.UTC), 0)
	if a != b {
		t.Fatalf("expected same slot, got %q and %q", a, b)
	}
}

func TestSafeSegment_EmptyFallback(t *testing.T) {
	if got := SafeSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected fallback: got=%q want=%q", got, "unknown")
	}
}

func TestOutcomeStatus(t *testing.T) {
	if got := OutcomeStatus(true, errors.New("boom")); got != StatusFailed {
		t.Fatalf("error must win, got %s", got)
	}
	if got := OutcomeStatus(true, nil); got != StatusCompleted || !got.Terminal() {
		t.Fatalf("unexpected changed status %s", got)
	}
	if got := OutcomeStatus(false, nil); got != StatusSkipped || !got.Terminal() {
		t.Fatalf("unexpected no-op status %s", got)
	}
	if StatusFailed.Terminal() || StatusSent.Terminal() {
		t.Fatalf("failed and sent are not terminal")
	}
}
