package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type row struct {
	Claimed
	state   string
	lastErr string
	due     time.Time
}

// memOutbox is an in-memory Outbox for tests.
type memOutbox struct {
	mu       sync.Mutex
	disabled map[string]bool
	tokens   map[string][]string
	rows     []*row
	failNext error
}

func newMemOutbox() *memOutbox {
	return &memOutbox{disabled: map[string]bool{}, tokens: map[string][]string{}}
}

func (o *memOutbox) PushEnabled(ctx context.Context, userID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failNext != nil {
		err := o.failNext
		o.failNext = nil
		return false, err
	}
	return !o.disabled[userID], nil
}

func (o *memOutbox) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tokens[userID], nil
}

func (o *memOutbox) Enqueue(ctx context.Context, m Message) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := int64(len(o.rows) + 1)
	o.rows = append(o.rows, &row{Claimed: Claimed{ID: id, Message: m}, state: StateScheduled})
	return id, nil
}

func (o *memOutbox) ClaimDue(ctx context.Context, limit int) ([]Claimed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Claimed
	for _, r := range o.rows {
		if len(out) == limit {
			break
		}
		if r.state == StateScheduled && !r.due.After(time.Now()) {
			r.state = StateSending
			r.Attempts++
			out = append(out, r.Claimed)
		}
	}
	return out, nil
}

func (o *memOutbox) set(id int64, state, reason string, due time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := o.rows[id-1]
	r.state, r.lastErr, r.due = state, reason, due
}

func (o *memOutbox) MarkSent(ctx context.Context, id int64) error {
	o.set(id, StateSent, "", time.Time{})
	return nil
}

func (o *memOutbox) MarkFailed(ctx context.Context, id int64, reason string) error {
	o.set(id, StateFailed, reason, time.Time{})
	return nil
}

func (o *memOutbox) Retry(ctx context.Context, id int64, reason string, at time.Time) error {
	o.set(id, StateScheduled, reason, at)
	return nil
}

type fakeTransport struct {
	mu        sync.Mutex
	delivered []Message
	err       error
}

func (t *fakeTransport) Deliver(ctx context.Context, tokens []string, m Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.delivered = append(t.delivered, m)
	return nil
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestDispatcherSendSkipsUnreachableUsers(t *testing.T) {
	ctx := context.Background()
	ob := newMemOutbox()
	ob.tokens["ok"] = []string{"tok-1"}
	ob.tokens["muted"] = []string{"tok-2"}
	ob.disabled["muted"] = true

	d := NewDispatcher(ob, quietLogger())
	d.Send(ctx, "ok", "Seats available", "body", map[string]string{"type": "seats_found"})
	d.Send(ctx, "muted", "Seats available", "body", nil)
	d.Send(ctx, "no-device", "Seats available", "body", nil)

	ob.failNext = errors.New("db down")
	d.Send(ctx, "ok", "Seats available", "body", nil)

	require.Len(t, ob.rows, 1)
	assert.Equal(t, "ok", ob.rows[0].UserID)
	assert.Equal(t, "seats_found", ob.rows[0].Data["type"])

	var nilDispatcher *Dispatcher
	assert.NotPanics(t, func() { nilDispatcher.Send(ctx, "ok", "t", "b", nil) })
}

func TestWorkerDeliversAndMarksSent(t *testing.T) {
	ctx := context.Background()
	ob := newMemOutbox()
	ob.tokens["u1"] = []string{"tok"}
	_, _ = ob.Enqueue(ctx, Message{UserID: "u1", Title: "a"})
	_, _ = ob.Enqueue(ctx, Message{UserID: "gone", Title: "b"})

	tr := &fakeTransport{}
	w := NewWorker(ob, tr, quietLogger())

	sent, failed, err := w.DispatchBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, StateSent, ob.rows[0].state)
	assert.Equal(t, StateFailed, ob.rows[1].state)
	require.Len(t, tr.delivered, 1)
	assert.Equal(t, "a", tr.delivered[0].Title)
}

func TestWorkerRetriesThenGivesUp(t *testing.T) {
	ctx := context.Background()
	ob := newMemOutbox()
	ob.tokens["u1"] = []string{"tok"}
	_, _ = ob.Enqueue(ctx, Message{UserID: "u1", Title: "a"})

	tr := &fakeTransport{err: errors.New("broker unavailable")}
	w := NewWorker(ob, tr, quietLogger())
	w.now = func() time.Time { return time.Now().Add(-time.Hour) } // retries are due immediately

	for i := 1; i < maxAttempts; i++ {
		_, failed, err := w.DispatchBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, failed)
		assert.Equal(t, StateScheduled, ob.rows[0].state, "attempt %d", i)
	}

	_, _, err := w.DispatchBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, ob.rows[0].state)
	assert.Equal(t, "broker unavailable", ob.rows[0].lastErr)
}

func TestNilFCMSenderIsNoop(t *testing.T) {
	s := NewFCMSender("", nil)
	assert.Nil(t, s)
	assert.NoError(t, s.Deliver(context.Background(), nil, Message{}))

	s = NewFCMSender("creds.json", quietLogger())
	assert.ErrorIs(t, s.Deliver(context.Background(), nil, Message{}), ErrNoTokens)
	assert.NoError(t, s.Deliver(context.Background(), []string{"t"}, Message{Title: "x"}))
}

func TestEncodePush(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	body, err := encodePush([]string{"a", "b"}, Message{
		UserID: "u1", Title: "Seats available", Body: "Seoul → Busan", Data: map[string]string{"watch_id": "w1"},
	}, at)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, "u1", env["user_id"])
	assert.Equal(t, []any{"a", "b"}, env["tokens"])
	assert.Equal(t, "2026-10-19T09:00:00Z", env["sent_at"])
	assert.Equal(t, map[string]any{"watch_id": "w1"}, env["data"])
}

func TestNewTransportSelection(t *testing.T) {
	tr, closeFn := NewTransport(TransportConfig{Kind: "log"}, quietLogger())
	assert.IsType(t, &LogTransport{}, tr)
	assert.NoError(t, closeFn())

	tr, _ = NewTransport(TransportConfig{Kind: "log", FCMCredentialsFile: "sa.json"}, quietLogger())
	assert.IsType(t, &FCMSender{}, tr)

	tr, closeFn = NewTransport(TransportConfig{Kind: "amqp", AMQPURL: "amqp://127.0.0.1:1/"}, quietLogger())
	assert.IsType(t, &AMQPTransport{}, tr)
	assert.NoError(t, closeFn())
}

func TestLogTransportDrainsOutbox(t *testing.T) {
	ctx := context.Background()
	outbox := newMemOutbox()
	outbox.tokens["u1"] = []string{"tok-1"}

	NewDispatcher(outbox, quietLogger()).Send(ctx, "u1", "Seats available", "Seoul → Busan", map[string]string{"type": "seats_found"})

	tr, _ := NewTransport(TransportConfig{Kind: "log"}, quietLogger())
	sent, failed, err := NewWorker(outbox, tr, quietLogger()).DispatchBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Zero(t, failed)

	assert.ErrorIs(t, NewLogTransport(nil).Deliver(ctx, nil, Message{}), ErrNoTokens)
}
