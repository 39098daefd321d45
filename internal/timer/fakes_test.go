package timer

import (
	"context"
	"fmt"
	"sync"

	"focusflow/internal/model"
	"focusflow/internal/session"
)

type storeCall struct {
	op     string
	status model.Status
	cycle  int
	timer  model.TimerState
}

// fakeStore mimics the store's absorbing terminal statuses.
type fakeStore struct {
	mu         sync.Mutex
	calls      []storeCall
	activities []session.Note
	status     model.Status
	fail       error
}

func (f *fakeStore) record(call storeCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.fail != nil {
		return f.fail
	}
	if f.status.Terminal() && call.op != "check_completion" {
		if call.op == "set_status" && call.status == f.status {
			return nil
		}
		return fmt.Errorf("set %s: %w", call.op, session.ErrTerminal)
	}
	if call.op == "set_status" {
		f.status = call.status
	}
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, _ string, status model.Status) error {
	return f.record(storeCall{op: "set_status", status: status})
}

func (f *fakeStore) SetCycle(_ context.Context, _ string, cycle int) error {
	return f.record(storeCall{op: "set_cycle", cycle: cycle})
}

func (f *fakeStore) SetTimerState(_ context.Context, _ string, state model.TimerState) error {
	return f.record(storeCall{op: "set_timer_state", timer: state})
}

func (f *fakeStore) CheckCompletion(_ context.Context, _ string) error {
	return f.record(storeCall{op: "check_completion"})
}

func (f *fakeStore) RecordActivity(_ context.Context, _ string, activityType model.ActivityType, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, session.Note{Type: activityType, Message: message})
	return f.fail
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call.op == op {
			n++
		}
	}
	return n
}

func (f *fakeStore) statuses() []model.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Status
	for _, call := range f.calls {
		if call.op == "set_status" {
			out = append(out, call.status)
		}
	}
	return out
}

func (f *fakeStore) activityTypes() []model.ActivityType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ActivityType, 0, len(f.activities))
	for _, note := range f.activities {
		out = append(out, note.Type)
	}
	return out
}

// fakeChannel records publishes and lets tests inject remote traffic.
type fakeChannel struct {
	mu        sync.Mutex
	published []model.Snapshot
	snaps     chan model.Snapshot
	joins     chan model.JoinNotice
	subErr    error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		snaps: make(chan model.Snapshot, 16),
		joins: make(chan model.JoinNotice, 16),
	}
}

func (f *fakeChannel) Publish(_ context.Context, _ string, snap model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, snap)
	return nil
}

func (f *fakeChannel) Subscribe(context.Context, string) (<-chan model.Snapshot, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.snaps, nil
}

func (f *fakeChannel) SubscribeJoins(context.Context, string) (<-chan model.JoinNotice, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.joins, nil
}

func (f *fakeChannel) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeChannel) last() model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}
