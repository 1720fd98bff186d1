package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/riskibarqy/forge/internal/config"
	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:                config.EnvDev,
		HTTPAddr:              ":0",
		StorageDriver:         config.StorageDriverMemory,
		CommunityID:           "forge",
		CommunityTimezone:     "Europe/Dublin",
		WeekStartDay:          time.Sunday,
		CommitmentsOpenAt:     community.ClockTime{Hour: 21},
		CommitmentsCloseAt:    community.ClockTime{Hour: 9},
		PointsPerWorkout:      10,
		AccountingTxRetries:   3,
		SchedulerEnabled:      true,
		SchedulerPollInterval: time.Minute,
		InboxConsumerEnabled:  true,
		InboxPollInterval:     time.Minute,
		InboxBatchSize:        5,
		InboxWorkers:          1,
		InboxLeaseTimeout:     time.Minute,
		CacheEnabled:          true,
		CacheTTL:              time.Minute,
		MetricsEnabled:        true,
		CORSAllowedOrigins:    []string{"*"},
	}
}

func TestNew_MemoryDriverServesRoutes(t *testing.T) {
	a, err := New(memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.Close()

	for _, path := range []string{"/healthz", "/metrics", "/v1/communities/forge/config"} {
		rec := httptest.NewRecorder()
		a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: unexpected status %d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.MetricsEnabled = false

	a, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be unmounted, got %d", rec.Code)
	}
}

func TestNew_RejectsEmptyAddr(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTPAddr = ""
	if _, err := New(cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty http addr")
	}
}

func TestRunWorkers_StopsOnCancel(t *testing.T) {
	a, err := New(memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.RunWorkers(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("workers did not stop after cancel")
	}
}
