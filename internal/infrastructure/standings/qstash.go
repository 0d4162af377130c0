package standings

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/riskibarqy/vocalia/internal/platform/resilience"
	"github.com/riskibarqy/vocalia/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errQStashTransient = crerr.New("qstash transient failure")

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

const (
	qstashFinalizedPath = "/internal/standings/match-finalized"
	qstashRevertedPath  = "/internal/standings/match-reverted"
)

type QStashNotifierConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// QStashNotifier forwards standings signals through Upstash QStash, which owns
// delivery retries to the standings service.
type QStashNotifier struct {
	client           *http.Client
	baseURL          string
	token            string
	targetBaseURL    string
	retries          int
	internalJobToken string
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
}

func NewQStashNotifier(cfg QStashNotifierConfig, logger *logging.Logger) *QStashNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &QStashNotifier{
		client:           &http.Client{Timeout: timeout},
		baseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:            strings.TrimSpace(cfg.Token),
		targetBaseURL:    strings.TrimRight(strings.TrimSpace(cfg.TargetBaseURL), "/"),
		retries:          cfg.Retries,
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker("qstash", cfg.CircuitBreaker, resilience.OnStateChange(func(name string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "dependency", name, "from", string(from), "to", string(to))
		})),
	}
}

func (n *QStashNotifier) MatchFinalized(ctx context.Context, result usecase.MatchResult) error {
	return n.publish(ctx, qstashFinalizedPath, result, dedupKey("finalized", result.MatchID, result.FinalizedAt))
}

func (n *QStashNotifier) MatchReverted(ctx context.Context, matchID string) error {
	payload := map[string]any{"match_id": matchID}
	return n.publish(ctx, qstashRevertedPath, payload, "")
}

func (n *QStashNotifier) publish(ctx context.Context, path string, payload any, deduplicationID string) error {
	err := n.breaker.Execute(ctx, func(ctx context.Context) error {
		return n.send(ctx, path, payload, deduplicationID)
	}, isQStashCircuitFailure)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		n.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "path", path)
		return crerr.Wrap(err, "qstash is temporarily unavailable")
	}
	return err
}

func (n *QStashNotifier) send(ctx context.Context, path string, payload any, deduplicationID string) error {
	baseURL, err := validateHTTPBaseURL(n.baseURL)
	if err != nil {
		return crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := validateHTTPBaseURL(n.targetBaseURL)
	if err != nil {
		return crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	targetURL := targetBaseURL + path
	publishURL := baseURL + "/v2/publish/" + targetURL

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return crerr.Wrap(err, "marshal standings payload")
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.publish_url", publishURL),
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.path", path),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, bytes.NewReader(buf.B))
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Method", http.MethodPost)
	if n.retries > 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(n.retries))
	}
	if deduplicationID != "" {
		req.Header.Set("Upstash-Deduplication-Id", deduplicationID)
	}
	if n.internalJobToken != "" {
		req.Header.Set("Upstash-Forward-X-Internal-Job-Token", n.internalJobToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: publish standings signal target_url=%s: %v", errQStashTransient, targetURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isQStashRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("%w: publish standings signal status=%d target_url=%s body=%s",
				errQStashTransient, resp.StatusCode, targetURL, strings.TrimSpace(string(raw)))
		}
		return fmt.Errorf("publish standings signal status=%d target_url=%s body=%s",
			resp.StatusCode, targetURL, strings.TrimSpace(string(raw)))
	}

	n.logger.InfoContext(ctx, "standings signal published", "path", path, "deduplication_id", deduplicationID)
	return nil
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

func isQStashCircuitFailure(err error) bool {
	return stderrors.Is(err, errQStashTransient)
}

func isQStashRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

// dedupKey builds an Upstash-Deduplication-Id; QStash rejects ids containing ':'.
func dedupKey(kind, matchID string, at time.Time) string {
	return sanitizeDedupSegment(kind) + "-" + sanitizeDedupSegment(matchID) + "-" + strconv.FormatInt(at.UTC().UnixMilli(), 10)
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}
