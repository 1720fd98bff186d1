package notifier

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/platform/resilience"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type webhookServer struct {
	mu       sync.Mutex
	status   int
	messages []webhookMessage
}

func (s *webhookServer) handle(ctx *fasthttp.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msg webhookMessage
	if err := sonic.Unmarshal(ctx.PostBody(), &msg); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	s.messages = append(s.messages, msg)
	ctx.SetStatusCode(s.status)
}

func (s *webhookServer) received() []webhookMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhookMessage(nil), s.messages...)
}

func newWebhookUnderTest(t *testing.T, status int, breaker resilience.CircuitBreakerConfig) (*Webhook, *webhookServer) {
	t.Helper()

	server := &webhookServer{status: status}
	ln := fasthttputil.NewInmemoryListener()
	go func() {
		_ = fasthttp.Serve(ln, server.handle)
	}()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	hook := NewWebhook(WebhookConfig{
		URL:              "http://chat.local/hooks/forge",
		Username:         "FORGE",
		Timeout:          time.Second,
		PointsPerWorkout: 10,
		CircuitBreaker:   breaker,
		Client:           client,
	}, logging.NewNop())
	return hook, server
}

func TestWebhook_PostsAnnouncements(t *testing.T) {
	hook, server := newWebhookUnderTest(t, fasthttp.StatusNoContent, resilience.CircuitBreakerConfig{})
	ctx := context.Background()
	w := week.Week{ID: "wk1", GoalPoints: 100, CurrentPoints: 50}

	if err := hook.OnWeekClosed(ctx, w); err != nil {
		t.Fatalf("week closed: %v", err)
	}
	if err := hook.OnPointsChanged(ctx, w); err != nil {
		t.Fatalf("points changed: %v", err)
	}

	got := server.received()
	if len(got) != 2 {
		t.Fatalf("expected two messages, got=%d", len(got))
	}
	if got[0].Username != "FORGE" || !strings.Contains(got[0].Content, "100 points (10 workouts)") {
		t.Fatalf("unexpected closed message: %+v", got[0])
	}
	if !strings.HasPrefix(got[1].Content, "█████░░░░░ 50%") || !strings.Contains(got[1].Content, "5 workouts to go") {
		t.Fatalf("unexpected progress message: %q", got[1].Content)
	}
}

type stubCommunities struct {
	cfg community.Config
	err error
}

func (s *stubCommunities) Get(context.Context, string) (community.Config, error) {
	return s.cfg, s.err
}

func TestWebhook_UsesLiveCommunityPoints(t *testing.T) {
	hook, server := newWebhookUnderTest(t, fasthttp.StatusNoContent, resilience.CircuitBreakerConfig{})
	communities := &stubCommunities{cfg: community.Config{PointsPerWorkout: 20}}
	hook.communities = communities
	ctx := context.Background()
	w := week.Week{ID: "wk1", GoalPoints: 100, CurrentPoints: 50}

	if err := hook.OnWeekClosed(ctx, w); err != nil {
		t.Fatalf("week closed: %v", err)
	}
	if err := hook.OnPointsChanged(ctx, w); err != nil {
		t.Fatalf("points changed: %v", err)
	}
	communities.err = errors.New("config store down")
	if err := hook.OnPointsChanged(ctx, w); err != nil {
		t.Fatalf("points changed with failing lookup: %v", err)
	}

	got := server.received()
	if len(got) != 3 {
		t.Fatalf("expected three messages, got=%d", len(got))
	}
	if !strings.Contains(got[0].Content, "100 points (5 workouts)") {
		t.Fatalf("closed message ignores community points: %q", got[0].Content)
	}
	if !strings.Contains(got[1].Content, "3 workouts to go") {
		t.Fatalf("progress message ignores community points: %q", got[1].Content)
	}
	if !strings.Contains(got[2].Content, "5 workouts to go") {
		t.Fatalf("expected the configured default after a failed lookup: %q", got[2].Content)
	}
}

func TestWebhook_RecapNamesOnlyBuckets(t *testing.T) {
	hook, server := newWebhookUnderTest(t, fasthttp.StatusOK, resilience.CircuitBreakerConfig{})
	w := week.Week{ID: "wk1", GoalPoints: 100, CurrentPoints: 120}
	summary := recap.Summarize(w, 12, recap.Result{
		AboveAndBeyond: []recap.Overachiever{{UserID: "ana", Overage: 1}},
		SteadyHands:    []string{"ben"},
		ExtraSparks:    []string{"dee"},
	})

	if err := hook.OnWeekEnded(context.Background(), w, summary); err != nil {
		t.Fatalf("week ended: %v", err)
	}

	got := server.received()
	if len(got) != 1 {
		t.Fatalf("expected one message, got=%d", len(got))
	}
	content := got[0].Content
	for _, want := range []string{"Goal reached", "120/100 points from 12 workouts", "Above and beyond: ana (+1)", "Steady hands: ben", "Extra sparks: dee"} {
		if !strings.Contains(content, want) {
			t.Fatalf("recap message missing %q:\n%s", want, content)
		}
	}
}

func TestWebhook_CircuitOpensOnTransientFailures(t *testing.T) {
	breaker := resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenMaxReq: 1}
	hook, server := newWebhookUnderTest(t, fasthttp.StatusServiceUnavailable, breaker)
	ctx := context.Background()
	w := week.Week{ID: "wk1"}

	for i := 0; i < 2; i++ {
		err := hook.OnWeekOpened(ctx, w)
		if !errors.Is(err, errWebhookTransient) {
			t.Fatalf("attempt %d: expected transient error, got %v", i, err)
		}
	}

	err := hook.OnWeekOpened(ctx, w)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if len(server.received()) != 2 {
		t.Fatalf("open circuit must not reach the server, got=%d calls", len(server.received()))
	}
}

func TestWebhook_ClientErrorsDoNotTripCircuit(t *testing.T) {
	breaker := resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1}
	hook, _ := newWebhookUnderTest(t, fasthttp.StatusBadRequest, breaker)

	for i := 0; i < 3; i++ {
		err := hook.OnWeekOpened(context.Background(), week.Week{ID: "wk1"})
		if err == nil || errors.Is(err, errWebhookTransient) || errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected a permanent rejection, got %v", i, err)
		}
	}
}

func TestWebhook_RequiresURL(t *testing.T) {
	hook := NewWebhook(WebhookConfig{}, logging.NewNop())
	if err := hook.OnWeekOpened(context.Background(), week.Week{}); err == nil {
		t.Fatalf("expected missing url error")
	}
}
