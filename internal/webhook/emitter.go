// Package webhook delivers ticket events to an externally configured HTTP
// endpoint. Delivery is fire-and-forget: the triggering request never waits
// on it and never observes its failure.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/observability"
	"github.com/intranet-hub/portal-service/internal/repository"
)

// Payload is the normalized outbound body.
type Payload struct {
	Type           string    `json:"type"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Timestamp      time.Time `json:"timestamp"`
	Data           any       `json:"data"`
}

// Emitter posts payloads to the admin-configured webhook URL with a bounded
// timeout and a single retry after a fixed backoff.
type Emitter struct {
	settings repository.SettingsRepository
	client   *http.Client
	backoff  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	wg       sync.WaitGroup
}

// NewEmitter builds the emitter. The target URL and enabled flag are read
// from the settings store at call time so admin changes apply immediately.
func NewEmitter(settings repository.SettingsRepository, timeout, backoff time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Emitter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Emitter{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
		backoff:  backoff,
		logger:   logger,
		metrics:  metrics,
	}
}

// IdempotencyKey derives the dedupe key consumers use.
func IdempotencyKey(eventType, ticketID string, ts time.Time) string {
	return fmt.Sprintf("%s:%s:%d", eventType, ticketID, ts.Unix())
}

// EmitAsync dispatches the payload on a detached goroutine. The caller's
// context is not reused: the delivery outlives the originating request.
func (e *Emitter) EmitAsync(payload Payload) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(context.Background(), payload)
	}()
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) deliver(ctx context.Context, payload Payload) {
	url, enabled := e.target(ctx)
	if !enabled || url == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("webhook payload marshal", zap.Error(err))
		return
	}

	if e.post(ctx, url, body) {
		e.metrics.RecordWebhookDelivery(payload.Type, true)
		return
	}
	time.Sleep(e.backoff)
	if e.post(ctx, url, body) {
		e.metrics.RecordWebhookDelivery(payload.Type, true)
		return
	}
	// retry budget exhausted; failure is logged and dropped
	e.metrics.RecordWebhookDelivery(payload.Type, false)
	e.logger.Warn("webhook delivery failed",
		zap.String("type", payload.Type),
		zap.String("idempotency_key", payload.IdempotencyKey))
}

func (e *Emitter) post(ctx context.Context, url string, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		e.logger.Error("webhook request build", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("webhook attempt failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (e *Emitter) target(ctx context.Context) (string, bool) {
	url, ok, err := e.settings.Get(ctx, domain.SettingWebhookURL)
	if err != nil || !ok {
		return "", false
	}
	enabledVal, ok, err := e.settings.Get(ctx, domain.SettingWebhookEnabled)
	if err != nil {
		return "", false
	}
	if !ok {
		return url, true
	}
	return url, strings.EqualFold(enabledVal, "true")
}
