package tracker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"erpsite/api/logger"
	"erpsite/api/metrics"
	"erpsite/api/models"
)

// MultiSink delivers every batch to all sinks and joins their errors.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Send(ctx context.Context, events []models.AnalyticsEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, events); err != nil {
			metrics.SinkFailures.WithLabelValues(s.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes batches to the logger; used when no warehouse is configured.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Send(_ context.Context, events []models.AnalyticsEvent) error {
	for _, ev := range events {
		logger.Info("analytics event", "event", ev.EventName, "category", ev.Category,
			"session", ev.SessionID, "utm_source", ev.UTM.Source, "utm_campaign", ev.UTM.Campaign)
	}
	return nil
}

// WebhookSink posts batches as a JSON array to an external analytics endpoint. Bodies are
// signed with HMAC-SHA256 in the X-Signature header.
type WebhookSink struct {
	url        string
	secret     []byte
	client     *http.Client
	maxRetries uint64
}

func NewWebhookSink(url, secret string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:        url,
		secret:     []byte(secret),
		client:     &http.Client{Timeout: timeout},
		maxRetries: 3,
	}
}

func (w *WebhookSink) Name() string { return "webhook" }

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (w *WebhookSink) Send(ctx context.Context, events []models.AnalyticsEvent) error {
	body, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	sig := Sign(w.secret, body)

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Signature", sig)

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err = fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(b))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, w.maxRetries), ctx))
}
