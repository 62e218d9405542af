// Package notifications delivers watch notifications to users' devices.
//
// Flow: the monitor calls Dispatcher.Send → the message is written to the
// watch_notifications outbox → a background dispatch worker claims due rows
// and hands them to a Transport (FCM or AMQP).
//
// Delivery is at-least-once from the outbox's point of view and best-effort
// from the monitor's: Send never returns an error.
package notifications

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	dispatchInterval  = 5 * time.Second
	dispatchBatchSize = 100
	maxAttempts       = 5
	retryBackoff      = 30 * time.Second
)

// Outbox row states.
const (
	StateScheduled = "scheduled"
	StateSending   = "sending"
	StateSent      = "sent"
	StateFailed    = "failed"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Message is one notification addressed to a user.
type Message struct {
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Claimed is an outbox row taken by the dispatch worker.
type Claimed struct {
	ID       int64
	Attempts int
	Message
}
