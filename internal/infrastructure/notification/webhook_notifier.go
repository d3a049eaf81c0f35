// Package notification delivers fulfillment notifications to customers and
// merchants through an outbound webhook.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is kept for the log
const maxErrorBody = 4 << 10

// ErrDeliveryFailed wraps any non-2xx webhook response
var ErrDeliveryFailed = errors.New("notification delivery failed")

// WebhookNotifier posts each notification as JSON to a single endpoint.
// Routing to customers or merchants is left to the receiver via the audience field.
type WebhookNotifier struct {
	httpClient   *http.Client
	url          string
	secretHeader string
	secret       string
	logger       *zap.Logger
}

// NewWebhookNotifier creates a notifier from configuration
func NewWebhookNotifier(cfg config.NotificationConfig, logger *zap.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		httpClient:   &http.Client{Timeout: timeout},
		url:          cfg.WebhookURL,
		secretHeader: cfg.SecretHeader,
		secret:       cfg.Secret,
		logger:       logger,
	}
}

// Notify sends n and reports non-2xx responses as ErrDeliveryFailed
func (w *WebhookNotifier) Notify(ctx context.Context, n appfulfillment.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notification: failed to encode %s: %w", n.EventType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notification: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", n.EventType)
	req.Header.Set("X-Event-ID", n.EventID.String())
	if w.secretHeader != "" && w.secret != "" {
		req.Header.Set(w.secretHeader, w.secret)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", ErrDeliveryFailed, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.WithLogger(ctx, w.logger).Debug("notification delivered",
		zap.String("audience", string(n.Audience)),
		zap.String("event_type", n.EventType),
		zap.String("order_id", n.OrderID.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// LogNotifier records notifications in the log instead of sending them. It is
// used when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n at info level
func (l *LogNotifier) Notify(ctx context.Context, n appfulfillment.Notification) error {
	logger.WithLogger(ctx, l.logger).Info("notification (not delivered)",
		zap.String("audience", string(n.Audience)),
		zap.String("event_type", n.EventType),
		zap.String("order_id", n.OrderID.String()),
		zap.String("order_number", n.OrderNumber),
		zap.String("message", n.Message),
	)
	return nil
}

// New returns the notifier selected by configuration
func New(cfg config.NotificationConfig, logger *zap.Logger) appfulfillment.Notifier {
	if cfg.Enabled && cfg.WebhookURL != "" {
		return NewWebhookNotifier(cfg, logger)
	}
	return NewLogNotifier(logger)
}

var (
	_ appfulfillment.Notifier = (*WebhookNotifier)(nil)
	_ appfulfillment.Notifier = (*LogNotifier)(nil)
)
