package notifications

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoTokens is returned by a Transport asked to deliver to nobody.
var ErrNoTokens = errors.New("no tokens to send to")

// Transport hands a notification to a push backend.
type Transport interface {
	Deliver(ctx context.Context, tokens []string, m Message) error
}

// FCMSender sends push notifications via Firebase Cloud Messaging.
// Nil-safe: when not configured, all methods are no-ops.
type FCMSender struct {
	credentialsFile string
	logger          *slog.Logger
	// TODO: Add firebase.google.com/go/v4/messaging.Client and call
	// SendEachForMulticast once a service account is provisioned.
}

// NewFCMSender creates an FCM sender from a service account credentials file.
// Returns nil if credentialsFile is empty (notifications disabled).
func NewFCMSender(credentialsFile string, logger *slog.Logger) *FCMSender {
	if credentialsFile == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMSender{
		credentialsFile: credentialsFile,
		logger:          logger,
	}
}

// Deliver sends m to every token. Currently logs the send.
func (s *FCMSender) Deliver(ctx context.Context, tokens []string, m Message) error {
	if s == nil {
		return nil // no-op when not configured
	}
	if len(tokens) == 0 {
		return ErrNoTokens
	}

	s.logger.Info("FCM send (pending integration)",
		"user_id", m.UserID, "tokens", len(tokens), "title", m.Title, "type", m.Data["type"])
	return nil
}

// LogTransport writes each delivery to the log instead of a push backend.
// It is the fallback for NOTIFY_TRANSPORT=log without FCM credentials, so
// the outbox still drains and every notification is visible.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Deliver logs m.
func (t *LogTransport) Deliver(ctx context.Context, tokens []string, m Message) error {
	if len(tokens) == 0 {
		return ErrNoTokens
	}
	t.logger.Info("Notification delivered (log transport)",
		"user_id", m.UserID, "tokens", len(tokens), "title", m.Title,
		"body", m.Body, "type", m.Data["type"], "watch_id", m.Data["watch_id"])
	return nil
}

// TransportConfig selects the delivery backend.
type TransportConfig struct {
	Kind               string // "log" or "amqp"
	FCMCredentialsFile string
	AMQPURL            string
	AMQPQueue          string
}

// NewTransport builds the configured Transport. "amqp" publishes to a
// broker; anything else uses FCM when credentials are set and the log
// transport otherwise. The returned close func releases broker resources.
func NewTransport(cfg TransportConfig, logger *slog.Logger) (Transport, func() error) {
	noop := func() error { return nil }
	if cfg.Kind == "amqp" {
		t := NewAMQPTransport(cfg.AMQPURL, cfg.AMQPQueue, logger)
		return t, t.Close
	}
	if fcm := NewFCMSender(cfg.FCMCredentialsFile, logger); fcm != nil {
		return fcm, noop
	}
	return NewLogTransport(logger), noop
}
