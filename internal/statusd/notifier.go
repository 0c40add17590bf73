package statusd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
)

var (
	ErrInvalidURL       = errors.New("invalid callback URL")
	ErrMetadataEndpoint = errors.New("callback URL points to a cloud metadata endpoint")
)

// NotificationPayload is the JSON body posted to the callback URL
type NotificationPayload struct {
	RunID           string  `json:"run_id"`
	Status          string  `json:"status"`
	StartedAtUnixMs int64   `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64   `json:"ended_at_unix_ms,omitempty"`
	Interval        int     `json:"interval,omitempty"`
	GasLimit        int     `json:"gas_limit,omitempty"`
	Throughput      float64 `json:"throughput,omitempty"`
	Evaluations     int     `json:"evaluations"`
	Error           string  `json:"error,omitempty"`
	Timestamp       int64   `json:"timestamp"` // When notification was sent
}

// Notifier posts run completion to a callback URL
type Notifier struct {
	httpClient *http.Client
	maxRetries uint64
	baseDelay  time.Duration
	wg         sync.WaitGroup
}

// NewNotifier creates a new notification service
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  1 * time.Second,
	}
}

// validateCallbackURL rejects URLs that are not http(s) or that target cloud
// metadata services.
func validateCallbackURL(raw string) error {
	u, err := url.Parse(strings.ReplaceAll(raw, "{run_id}", "run"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrInvalidURL)
	}
	if host == "169.254.169.254" || host == "metadata.google.internal" {
		return ErrMetadataEndpoint
	}
	return nil
}

// Notify sends st to callbackURL in the background until it is delivered,
// retries run out or ctx is done. Wait blocks until every pending
// notification finished.
func (n *Notifier) Notify(ctx context.Context, callbackURL, callbackSecret string, st Status) {
	if callbackURL == "" {
		return
	}
	if err := validateCallbackURL(callbackURL); err != nil {
		logger.Warn("cannot notify: rejected callback URL", "callback_url", callbackURL, "error", err)
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", url.PathEscape(st.RunID))
	payload := newNotificationPayload(st)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.send(ctx, finalURL, callbackSecret, payload); err != nil {
			logger.Error("failed to send notification",
				"callback_url", finalURL,
				"run_id", payload.RunID,
				"status", payload.Status,
				"error", err)
			return
		}
		logger.Info("notification sent", "run_id", payload.RunID, "status", payload.Status)
	}()
}

// Wait blocks until pending notifications are sent or given up
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func newNotificationPayload(st Status) NotificationPayload {
	payload := NotificationPayload{
		RunID:       st.RunID,
		Status:      string(st.State),
		Evaluations: st.Evaluations,
		Error:       st.Error,
		Timestamp:   time.Now().UTC().UnixMilli(),
	}
	if !st.StartedAt.IsZero() {
		payload.StartedAtUnixMs = st.StartedAt.UnixMilli()
	}
	if !st.EndedAt.IsZero() {
		payload.EndedAtUnixMs = st.EndedAt.UnixMilli()
	}
	if st.Outcome != nil {
		payload.Interval = st.Outcome.Interval
		payload.GasLimit = st.Outcome.GasLimit
		payload.Throughput = st.Outcome.Throughput
	}
	return payload
}

// send posts payload, retrying with exponential backoff
func (n *Notifier) send(ctx context.Context, callbackURL, callbackSecret string, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = n.baseDelay
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	policy := backoff.WithMaxRetries(backoff.WithContext(exp, ctx), n.maxRetries)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return n.post(ctx, callbackURL, callbackSecret, body)
	}, policy, func(err error, delay time.Duration) {
		logger.Warn("notification attempt failed",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"attempt", attempt,
			"retry_in", delay,
			"error", err)
	})
}

// post performs a single delivery attempt
func (n *Notifier) post(ctx context.Context, callbackURL, callbackSecret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "optibench/1.0")
	if callbackSecret != "" {
		req.Header.Set("X-Optibench-Callback-Secret", callbackSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
