package timer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/internal/model"
	"focusflow/internal/session"
)

func testMachine(focus, brk, long float64, cycles int) *session.Machine {
	params := model.CreateSessionParams{FocusMinutes: focus, BreakMinutes: brk, LongBreakMinutes: long, TotalCycles: cycles}
	return session.NewMachine(session.New("sess-1", "ABC123", params), session.Options{})
}

func newTestBroadcaster(store Store, ch Channel, every, queue int) *Broadcaster {
	return NewBroadcaster(store, ch, BroadcasterConfig{
		SessionID:  "sess-1",
		Code:       "ABC123",
		Origin:     "client-a",
		EveryTicks: every,
		QueueSize:  queue,
	})
}

func ops(store *fakeStore) []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	out := make([]string, 0, len(store.calls))
	for _, call := range store.calls {
		out = append(out, call.op)
	}
	return out
}

func TestBroadcasterPushesStateChangesImmediately(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 0)
	b.Start(context.Background())

	m := testMachine(1, 1, 1, 2)
	b.Handle(m.Start())
	b.Close()

	assert.Equal(t, []string{"set_timer_state", "set_status"}, ops(store))
	assert.Equal(t, []model.Status{model.StatusActive}, store.statuses())
	require.Equal(t, 1, ch.publishedCount())
	assert.Equal(t, "client-a", ch.last().Origin)
	assert.True(t, ch.last().IsRunning)
}

func TestBroadcasterThrottlesTicks(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 0)
	b.Start(context.Background())

	m := testMachine(1, 1, 1, 2)
	m.Start()
	for i := 0; i < 12; i++ {
		b.Handle(m.Tick())
	}
	b.Close()

	assert.Equal(t, 2, store.count("set_timer_state"))
	assert.Zero(t, store.count("set_status"))
	assert.Equal(t, 2, ch.publishedCount())
	assert.Equal(t, 50, ch.last().TimeLeftSeconds)
}

func TestBroadcasterStateChangeRestartsThrottle(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 0)
	b.Start(context.Background())

	m := testMachine(1, 1, 1, 2)
	m.Start()
	for i := 0; i < 4; i++ {
		b.Handle(m.Tick())
	}
	b.Handle(m.Pause())
	b.Handle(m.Start())
	for i := 0; i < 4; i++ {
		b.Handle(m.Tick())
	}
	b.Close()

	// Only the pause and the restart; neither run of ticks reached five.
	assert.Equal(t, 2, ch.publishedCount())
}

func TestBroadcasterCompletionOrdersStatusLast(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 0)
	b.Start(context.Background())

	m := testMachine(1, 1, 1, 2)
	m.Reconcile(model.Snapshot{TimeLeftSeconds: 0, IsBreak: true, CurrentCycle: 2, Status: model.StatusActive})
	out := m.CompleteIfDue()
	require.True(t, out.Completed)
	b.Handle(out)
	b.Close()

	assert.Equal(t, []string{"set_cycle", "set_timer_state", "set_status", "check_completion"}, ops(store))
	assert.Equal(t, []model.Status{model.StatusCompleted}, store.statuses())
	assert.Equal(t, model.StatusCompleted, ch.last().Status)
}

func TestBroadcasterIgnoresRemoteOutcomes(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 1, 0)
	b.Start(context.Background())

	m := testMachine(1, 1, 1, 2)
	b.Handle(m.Reconcile(model.Snapshot{TimeLeftSeconds: 10, IsRunning: true, CurrentCycle: 2, Status: model.StatusActive}))
	b.Close()

	assert.Empty(t, ops(store))
	assert.Zero(t, ch.publishedCount())
}

func TestBroadcasterFailuresAreNotRetried(t *testing.T) {
	store, ch := &fakeStore{fail: errors.New("connection refused")}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 0)
	b.Start(context.Background())

	m := testMachine(1, 1, 1, 2)
	b.Handle(m.Start())
	b.Record(session.Note{Type: model.ActivityTimerStarted, Message: "Focus timer started"})
	b.Close()

	assert.Equal(t, 1, store.count("set_status"))
	assert.Equal(t, 1, store.count("set_timer_state"))
	assert.Len(t, store.activityTypes(), 1)
	assert.Equal(t, 1, ch.publishedCount())
}

func TestBroadcasterDropsWhenQueueFull(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 1)

	b.Record(session.Note{Type: model.ActivityTimerStarted})
	b.Record(session.Note{Type: model.ActivityTimerPaused})
	b.Start(context.Background())
	b.Close()

	assert.Equal(t, []model.ActivityType{model.ActivityTimerStarted}, store.activityTypes())
}

func TestBroadcasterFlushesAfterCancel(t *testing.T) {
	store, ch := &fakeStore{}, newFakeChannel()
	b := newTestBroadcaster(store, ch, 5, 0)

	ctx, cancel := context.WithCancel(context.Background())
	b.Start(ctx)
	cancel()

	m := testMachine(1, 1, 1, 2)
	b.Handle(m.EndEarly())
	b.Close()
	b.Close()

	assert.Equal(t, []model.Status{model.StatusEndedEarly}, store.statuses())
}
