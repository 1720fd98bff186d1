package notifier

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/recap"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/platform/resilience"
	"github.com/valyala/fasthttp"
)

var errWebhookTransient = crerr.New("notifier webhook transient failure")

// CommunityConfigs resolves the live community settings at render time.
type CommunityConfigs interface {
	Get(ctx context.Context, communityID string) (community.Config, error)
}

type WebhookConfig struct {
	URL      string
	Username string
	Timeout  time.Duration
	// PointsPerWorkout is used when Communities is nil or the lookup fails.
	PointsPerWorkout int
	Communities      CommunityConfigs
	CircuitBreaker   resilience.CircuitBreakerConfig
	// Client is used as-is when set.
	Client *fasthttp.Client
}

// Webhook posts announcements as plain text to a chat webhook.
type Webhook struct {
	client           *fasthttp.Client
	url              string
	username         string
	timeout          time.Duration
	pointsPerWorkout int
	communities      CommunityConfigs
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
}

type webhookMessage struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

func NewWebhook(cfg WebhookConfig, logger *logging.Logger) *Webhook {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &fasthttp.Client{
			Name:                "forge-notifier",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		}
	}

	return &Webhook{
		client:           client,
		url:              strings.TrimSpace(cfg.URL),
		username:         strings.TrimSpace(cfg.Username),
		timeout:          timeout,
		pointsPerWorkout: cfg.PointsPerWorkout,
		communities:      cfg.Communities,
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker("notifier_webhook", cfg.CircuitBreaker),
	}
}

func (w *Webhook) OnWeekOpened(ctx context.Context, item week.Week) error {
	return w.post(ctx, "week_opened", weekOpenedMessage(item))
}

func (w *Webhook) OnWeekClosed(ctx context.Context, item week.Week) error {
	return w.post(ctx, "week_closed", weekClosedMessage(item, w.points(ctx)))
}

func (w *Webhook) OnWeekEnded(ctx context.Context, item week.Week, summary recap.Summary) error {
	return w.post(ctx, "week_ended", weekEndedMessage(item, summary))
}

func (w *Webhook) OnPointsChanged(ctx context.Context, item week.Week) error {
	return w.post(ctx, "points_changed", pointsChangedMessage(item, w.points(ctx)))
}

func (w *Webhook) points(ctx context.Context) int {
	if w.communities == nil {
		return w.pointsPerWorkout
	}
	cfg, err := w.communities.Get(ctx, "")
	if err != nil || cfg.PointsPerWorkout <= 0 {
		w.logger.WarnContext(ctx, "resolve points per workout failed, using default",
			"default", w.pointsPerWorkout,
			"error", err,
		)
		return w.pointsPerWorkout
	}
	return cfg.PointsPerWorkout
}

func (w *Webhook) post(ctx context.Context, event, content string) error {
	if w.url == "" {
		return crerr.New("notifier webhook url is not configured")
	}
	if err := ctx.Err(); err != nil {
		return crerr.Wrap(err, "notifier webhook")
	}

	body, err := sonic.Marshal(webhookMessage{Content: content, Username: w.username})
	if err != nil {
		return crerr.Wrap(err, "marshal webhook message")
	}

	err = w.breaker.Execute(func() error { return w.deliver(ctx, event, body) }, isTransient)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		w.logger.WarnContext(ctx, "notifier webhook circuit breaker rejected request", "event", event, "state", w.breaker.State())
		return crerr.Wrapf(err, "notifier webhook is temporarily unavailable event=%s", event)
	}
	return err
}

func (w *Webhook) deliver(ctx context.Context, event string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(w.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := w.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%w: post event=%s: %v", errWebhookTransient, event, err)
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		raw := truncate(strings.TrimSpace(string(resp.Body())), 512)
		if isRetryableStatus(status) {
			return fmt.Errorf("%w: post event=%s status=%d body=%s", errWebhookTransient, event, status, raw)
		}
		return crerr.Newf("notifier webhook rejected event=%s status=%d body=%s", event, status, raw)
	}

	w.logger.DebugContext(ctx, "notifier webhook delivered", "event", event, "status_code", status)
	return nil
}

func isTransient(err error) bool {
	return stderrors.Is(err, errWebhookTransient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == fasthttp.StatusRequestTimeout ||
		statusCode == fasthttp.StatusTooManyRequests ||
		statusCode >= fasthttp.StatusInternalServerError
}

func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}
