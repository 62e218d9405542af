package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/seatwatch/internal/provider"
	"github.com/albapepper/seatwatch/internal/watch"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeProvider struct {
	mu     sync.Mutex
	calls  []provider.Query
	search func(q provider.Query) ([]provider.Train, error)
}

func (f *fakeProvider) Search(ctx context.Context, q provider.Query) ([]provider.Train, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	if f.search == nil {
		return nil, nil
	}
	return f.search(q)
}

func (f *fakeProvider) Calls() []provider.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Query(nil), f.calls...)
}

type sentNotification struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sentNotification
	panic string // user ID whose notification panics
}

func (n *recordingNotifier) Send(ctx context.Context, userID, title, body string, data map[string]string) {
	if userID == n.panic {
		panic("push transport exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Body: body, Data: data})
}

func (n *recordingNotifier) Sent() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type names map[string]string

func (n names) NameOf(id string) string {
	if v, ok := n[id]; ok {
		return v
	}
	return id
}

var stationNames = names{"X": "Seoul", "Y": "Busan", "Z": "Daejeon", "W": "Gwangju"}

type harness struct {
	store    *watch.MemoryStore
	provider *fakeProvider
	notifier *recordingNotifier
	runner   *Runner
	seq      int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    watch.NewMemoryStore(),
		provider: &fakeProvider{},
		notifier: &recordingNotifier{},
	}
	logger := quietLogger()
	probe := NewProbe(h.provider, time.Second, logger)
	lc := NewLifecycle(h.store, h.notifier, stationNames, time.UTC, logger).
		WithClock(func() time.Time { return testNow })
	h.runner = NewRunner(h.store, probe, lc, logger)
	return h
}

// add stores a pending watch. Each call uses a fresh user so the per-user
// limits never interfere.
func (h *harness) add(t *testing.T, from, to, date string, cabin watch.CabinClass) *watch.Request {
	t.Helper()
	h.seq++
	d, err := watch.ParseDate(date)
	require.NoError(t, err)
	r := &watch.Request{
		ID:              fmt.Sprintf("w%03d", h.seq),
		UserID:          fmt.Sprintf("u%03d", h.seq),
		FromStationID:   from,
		ToStationID:     to,
		TravelDate:      d,
		CabinClass:      cabin,
		DepartureWindow: watch.Window{Start: "06:00", End: "12:00"},
		IsActive:        true,
		Status:          watch.StatusPending,
		CreatedAt:       testNow.Add(time.Duration(h.seq) * time.Second),
	}
	require.NoError(t, h.store.Create(context.Background(), r))
	return r
}

func (h *harness) get(t *testing.T, id string) *watch.Request {
	t.Helper()
	r, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func economyTrain(seats int) provider.Train {
	return provider.Train{
		TrainNumber:   "101",
		TrainType:     "KTX",
		HighSpeed:     true,
		DepartureTime: "07:30",
		ArrivalTime:   "10:05",
		Seats:         map[watch.CabinClass]int{watch.CabinEconomy: seats},
	}
}

// --------------------------------------------------------------------------
// Grouping
// --------------------------------------------------------------------------

func TestGroupPendingKeepsFirstSeenOrder(t *testing.T) {
	mk := func(id, from, to, date string) watch.Request {
		d, _ := watch.ParseDate(date)
		return watch.Request{ID: id, FromStationID: from, ToStationID: to, TravelDate: d}
	}
	groups := GroupPending([]watch.Request{
		mk("1", "X", "Y", "2026-10-25"),
		mk("2", "Y", "X", "2026-10-25"),
		mk("3", "X", "Y", "2026-10-25"),
		mk("4", "X", "Y", "2026-10-26"),
		mk("5", "Y", "X", "2026-10-25"),
	})

	require.Len(t, groups, 3)
	assert.Equal(t, Key{From: "X", To: "Y", Date: "2026-10-25"}, groups[0].Key)
	assert.Equal(t, []string{"1", "3"}, groups[0].IDs())
	assert.Equal(t, []string{"2", "5"}, groups[1].IDs())
	assert.Equal(t, []string{"4"}, groups[2].IDs())
	assert.Equal(t, "1", groups[0].Representative().ID)

	assert.Empty(t, GroupPending(nil))
}

func TestPassMakesOneProviderCallPerKey(t *testing.T) {
	stations := []string{"X", "Y", "Z", "W"}
	dates := []string{"2026-10-20", "2026-10-21", "2026-10-22"}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 5; round++ {
		h := newHarness(t)
		keys := make(map[Key]bool)
		n := 5 + rng.Intn(40)
		for i := 0; i < n; i++ {
			from := stations[rng.Intn(len(stations))]
			to := stations[rng.Intn(len(stations))]
			if from == to {
				continue
			}
			r := h.add(t, from, to, dates[rng.Intn(len(dates))], watch.CabinEconomy)
			keys[KeyOf(r)] = true
		}

		res, err := h.runner.RunPass(context.Background())
		require.NoError(t, err)
		assert.Len(t, h.provider.Calls(), len(keys), "round %d", round)
		assert.Equal(t, len(keys), res.ProviderCalls)
		assert.Equal(t, len(keys), res.Groups)
		assert.Equal(t, res.Pending, res.Checked, "empty provider leaves everything pending")
	}
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

func TestExpiredWatchFailsWithOneNotification(t *testing.T) {
	h := newHarness(t)
	w := h.add(t, "X", "Y", "2026-10-18", watch.CabinEconomy)

	res, err := h.runner.RunPass(context.Background())
	require.NoError(t, err)

	got := h.get(t, w.ID)
	assert.Equal(t, watch.StatusFailed, got.Status)
	assert.Equal(t, watch.ReasonDatePassed, got.StatusReason)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, 1, res.Expired)

	sent := h.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, w.UserID, sent[0].UserID)
	assert.Equal(t, "watch_expired", sent[0].Data["type"])
	assert.Empty(t, h.provider.Calls(), "expired groups are not searched")
}

func TestMatchesCompleteEveryMember(t *testing.T) {
	h := newHarness(t)
	h.provider.search = func(q provider.Query) ([]provider.Train, error) {
		return []provider.Train{economyTrain(3)}, nil
	}
	a := h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)
	b := h.add(t, "X", "Y", "2026-10-25", watch.CabinBusiness)
	c := h.add(t, "X", "Y", "2026-10-25", watch.CabinBusiness)

	res, err := h.runner.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Completed)

	calls := h.provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, watch.CabinEconomy, calls[0].CabinClass, "representative is the oldest member")

	for _, w := range []*watch.Request{a, b, c} {
		got := h.get(t, w.ID)
		assert.Equal(t, watch.StatusCompleted, got.Status)
		assert.Equal(t, watch.ReasonSeatsFound, got.StatusReason)
		assert.False(t, got.IsActive)
	}

	sent := h.notifier.Sent()
	require.Len(t, sent, 3)
	for _, n := range sent {
		assert.Contains(t, n.Body, "Seoul")
		assert.Contains(t, n.Body, "Busan")
		assert.Equal(t, "seats_found", n.Data["type"])
		assert.Equal(t, "101", n.Data["train_number"])
		// business members get the economy seats the representative found
		assert.Equal(t, "3", n.Data["seats"], n.UserID)
		assert.Equal(t, string(watch.CabinEconomy), n.Data["cabin_class"], n.UserID)
		assert.Contains(t, n.Body, "has 3 economy seat(s)")
	}
}

func TestTrainsWithoutSeatsAreNoResult(t *testing.T) {
	h := newHarness(t)
	h.provider.search = func(q provider.Query) ([]provider.Train, error) {
		return []provider.Train{economyTrain(0)}, nil
	}
	w := h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)

	res, err := h.runner.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)

	got := h.get(t, w.ID)
	assert.Equal(t, watch.StatusPending, got.Status)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.LastCheckedAt)
	assert.True(t, got.LastCheckedAt.Equal(testNow))
	assert.Empty(t, h.notifier.Sent())
}

func TestProviderFailureIsIsolatedToItsGroup(t *testing.T) {
	h := newHarness(t)
	h.provider.search = func(q provider.Query) ([]provider.Train, error) {
		if q.FromStationID == "X" {
			return nil, errors.New("connection reset")
		}
		return []provider.Train{economyTrain(1)}, nil
	}
	a := h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)
	b := h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)
	c := h.add(t, "Z", "W", "2026-10-25", watch.CabinEconomy)

	res, err := h.runner.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Completed)
	assert.Zero(t, res.GroupErrors)

	for _, w := range []*watch.Request{a, b} {
		got := h.get(t, w.ID)
		assert.Equal(t, watch.StatusFailed, got.Status)
		assert.Equal(t, watch.ReasonProviderFailure, got.StatusReason)
		assert.False(t, got.IsActive)
	}
	assert.Equal(t, watch.StatusCompleted, h.get(t, c.ID).Status)
	assert.Len(t, h.provider.Calls(), 2)
}

func TestProviderTimeoutIsFailure(t *testing.T) {
	h := newHarness(t)
	slow := provider.Func(func(ctx context.Context, q provider.Query) ([]provider.Train, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	probe := NewProbe(slow, 20*time.Millisecond, quietLogger())
	g := &Group{Members: []watch.Request{*h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)}}

	out := probe.Check(context.Background(), g)
	assert.Equal(t, OutcomeProviderFailure, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestProviderPanicIsFailure(t *testing.T) {
	h := newHarness(t)
	boom := provider.Func(func(ctx context.Context, q provider.Query) ([]provider.Train, error) {
		panic("nil map")
	})
	probe := NewProbe(boom, time.Second, quietLogger())
	g := &Group{Members: []watch.Request{*h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)}}

	out := probe.Check(context.Background(), g)
	assert.Equal(t, OutcomeProviderFailure, out.Kind)
	assert.ErrorContains(t, out.Err, "nil map")
}

func TestPanicInOneGroupDoesNotStopThePass(t *testing.T) {
	h := newHarness(t)
	h.provider.search = func(q provider.Query) ([]provider.Train, error) {
		return []provider.Train{economyTrain(2)}, nil
	}
	bad := h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)
	good := h.add(t, "Z", "W", "2026-10-25", watch.CabinEconomy)
	h.notifier.panic = bad.UserID

	res, err := h.runner.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.GroupErrors)
	assert.Equal(t, watch.StatusCompleted, h.get(t, good.ID).Status)
	require.Len(t, h.notifier.Sent(), 1)
	assert.Equal(t, good.UserID, h.notifier.Sent()[0].UserID)
}

func TestApplySkipsWatchesChangedByUser(t *testing.T) {
	h := newHarness(t)
	w := h.add(t, "X", "Y", "2026-10-25", watch.CabinEconomy)
	ctx := context.Background()

	require.NoError(t, h.store.UpdateStatus(ctx, w.ID, watch.StatusUpdate{
		Status: watch.StatusFailed, StatusReason: watch.ReasonUserDeclined,
	}))

	lc := h.runner.lifecycle
	tr, err := lc.Apply(ctx, w.ID, Outcome{Kind: OutcomeMatches, Trains: []provider.Train{economyTrain(1)}})
	require.NoError(t, err)
	assert.Equal(t, TransitionSkipped, tr)

	got := h.get(t, w.ID)
	assert.Equal(t, watch.ReasonUserDeclined, got.StatusReason)
	assert.Empty(t, h.notifier.Sent())

	tr, err = lc.Apply(ctx, "missing", Outcome{})
	require.NoError(t, err)
	assert.Equal(t, TransitionSkipped, tr)
}

func TestPassReportsStoreFailure(t *testing.T) {
	logger := quietLogger()
	store := &failingStore{MemoryStore: watch.NewMemoryStore()}
	lc := NewLifecycle(store, nil, nil, time.UTC, logger)
	r := NewRunner(store, NewProbe(&fakeProvider{}, time.Second, logger), lc, logger)

	_, err := r.RunPass(context.Background())
	assert.Error(t, err)
}

type failingStore struct {
	*watch.MemoryStore
}

func (f *failingStore) FetchActivePending(ctx context.Context) ([]watch.Request, error) {
	return nil, errors.New("database is down")
}
