package jobqueue

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errQStashTransient = crerr.New("qstash transient failure")

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
	HTTPClient       *http.Client
}

// QStashPublisher pushes internal job calls (lifecycle triggers, inbox
// processing) through QStash so they are retried and deduplicated upstream.
type QStashPublisher struct {
	client           *http.Client
	publishBaseURL   string
	targetBaseURL    string
	token            string
	retries          int
	internalJobToken string
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
}

// NewQStashPublisher validates both base URLs up front.
func NewQStashPublisher(cfg QStashPublisherConfig, logger *logging.Logger) (*QStashPublisher, error) {
	if logger == nil {
		logger = logging.Default()
	}
	publishBaseURL, err := validateHTTPBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := validateHTTPBaseURL(cfg.TargetBaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &QStashPublisher{
		client:           client,
		publishBaseURL:   publishBaseURL,
		targetBaseURL:    targetBaseURL,
		token:            strings.TrimSpace(cfg.Token),
		retries:          cfg.Retries,
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker("qstash", cfg.CircuitBreaker),
	}, nil
}

func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return crerr.New("job path is required")
	}
	deduplicationID = strings.TrimSpace(deduplicationID)

	if err := p.breaker.Allow(); err != nil {
		p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "path", path, "state", p.breaker.State())
		return crerr.Wrap(err, "qstash is temporarily unavailable")
	}

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		p.recordCircuitResult(nil)
		return crerr.Wrap(err, "marshal job payload")
	}

	targetURL := p.targetBaseURL + path
	publishURL := p.publishBaseURL + "/v2/publish/" + targetURL
	headers := p.publishHeaders(delay, deduplicationID)
	preview := curlPreview(publishURL, headers, truncateForLog(string(body), 4096))

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.path", path),
			attribute.String("qstash.deduplication_id", deduplicationID),
		)
	}
	p.logger.DebugContext(ctx, "qstash publish request", "path", path, "target_url", targetURL, "curl_preview", preview)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, bytes.NewReader(body))
	if err != nil {
		p.recordCircuitResult(nil)
		return crerr.Wrap(err, "create qstash request")
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	for _, h := range headers {
		req.Header.Set(h.name, h.value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		callErr := fmt.Errorf("%w: publish path=%s: %v", errQStashTransient, path, err)
		p.recordCircuitResult(callErr)
		return callErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var callErr error
		if isQStashRetryableStatus(resp.StatusCode) {
			callErr = fmt.Errorf("%w: publish path=%s status=%d body=%s", errQStashTransient, path, resp.StatusCode, strings.TrimSpace(string(raw)))
		} else {
			callErr = crerr.Newf("qstash rejected path=%s status=%d body=%s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		p.recordCircuitResult(callErr)
		return callErr
	}

	p.recordCircuitResult(nil)
	p.logger.InfoContext(ctx, "qstash job published", "path", path, "delay", normalizeDelay(delay), "deduplication_id", deduplicationID)
	return nil
}

type header struct {
	name  string
	value string
}

// publishHeaders are the Upstash headers of a publish call, without the token.
func (p *QStashPublisher) publishHeaders(delay time.Duration, deduplicationID string) []header {
	out := []header{
		{name: "Content-Type", value: "application/json"},
		{name: "Upstash-Method", value: http.MethodPost},
	}
	if p.retries > 0 {
		out = append(out, header{name: "Upstash-Retries", value: strconv.Itoa(p.retries)})
	}
	if delay > 0 {
		out = append(out, header{name: "Upstash-Delay", value: normalizeDelay(delay)})
	}
	if deduplicationID != "" {
		out = append(out, header{name: "Upstash-Deduplication-Id", value: deduplicationID})
	}
	if p.internalJobToken != "" {
		out = append(out, header{name: "Upstash-Forward-X-Internal-Job-Token", value: p.internalJobToken})
	}
	return out
}

func (p *QStashPublisher) recordCircuitResult(err error) {
	if err != nil && stderrors.Is(err, errQStashTransient) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

func isQStashRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func normalizeDelay(delay time.Duration) string {
	if delay <= 0 {
		return "0s"
	}
	return strconv.Itoa(int(delay.Round(time.Second).Seconds())) + "s"
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return strings.TrimRight(candidate, "/"), nil
}

// curlPreview renders a replayable request for logs with secrets masked.
func curlPreview(publishURL string, headers []header, body string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -X POST ")
	_, _ = buf.WriteString(shellQuote(publishURL))
	_, _ = buf.WriteString(" -H ")
	_, _ = buf.WriteString(shellQuote("Authorization: Bearer ***"))
	for _, h := range headers {
		value := h.value
		if strings.HasSuffix(h.name, "Token") {
			value = "***"
		}
		_, _ = buf.WriteString(" -H ")
		_, _ = buf.WriteString(shellQuote(h.name + ": " + value))
	}
	_, _ = buf.WriteString(" -d ")
	_, _ = buf.WriteString(shellQuote(body))
	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}
