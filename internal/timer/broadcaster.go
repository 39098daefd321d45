package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"focusflow/internal/model"
	"focusflow/internal/session"
)

const (
	DefaultBroadcastEveryTicks = 5
	DefaultQueueSize           = 64
	DefaultRequestTimeout      = 5 * time.Second
)

// Store is the authoritative session store as seen by one client. Each
// update is an independent idempotent operation keyed by session id.
type Store interface {
	SetStatus(ctx context.Context, id string, status model.Status) error
	SetCycle(ctx context.Context, id string, cycle int) error
	SetTimerState(ctx context.Context, id string, state model.TimerState) error
	CheckCompletion(ctx context.Context, id string) error
	RecordActivity(ctx context.Context, id string, activityType model.ActivityType, message string) error
}

// Channel is the publish/subscribe transport keyed by session code.
type Channel interface {
	Publish(ctx context.Context, code string, snap model.Snapshot) error
	Subscribe(ctx context.Context, code string) (<-chan model.Snapshot, error)
	SubscribeJoins(ctx context.Context, code string) (<-chan model.JoinNotice, error)
}

type BroadcasterConfig struct {
	SessionID string
	Code      string
	// Origin tags published snapshots so the sender can skip their echo.
	Origin     string
	EveryTicks int
	QueueSize  int
	Timeout    time.Duration
	Logger     *slog.Logger
}

type job struct {
	op  string
	run func(ctx context.Context) error
}

// Broadcaster pushes local state to the store and the channel. Work is
// queued to a single worker so network I/O never blocks the caller; a full
// queue drops the operation and failures are logged without retry.
type Broadcaster struct {
	store   Store
	channel Channel
	cfg     BroadcasterConfig
	logger  *slog.Logger

	mu      sync.Mutex
	queue   chan job
	closed  bool
	started bool
	done    chan struct{}
	ticks   int
}

func NewBroadcaster(store Store, channel Channel, cfg BroadcasterConfig) *Broadcaster {
	if cfg.EveryTicks <= 0 {
		cfg.EveryTicks = DefaultBroadcastEveryTicks
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		store:   store,
		channel: channel,
		cfg:     cfg,
		logger:  logger.With("session_id", cfg.SessionID),
		queue:   make(chan job, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Queued operations outlive ctx cancellation so
// a final state change is still flushed by Close.
func (b *Broadcaster) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	go b.work(context.WithoutCancel(ctx))
}

// Close stops accepting work and waits for queued operations to finish.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	started := b.started
	close(b.queue)
	b.mu.Unlock()

	if !started {
		close(b.done)
		return
	}
	<-b.done
}

// Handle reacts to a local transition. State-changing outcomes are pushed
// at once; running ticks are pushed every EveryTicks ticks.
func (b *Broadcaster) Handle(out session.Outcome) {
	if !out.Changed {
		return
	}

	b.mu.Lock()
	if out.Broadcast {
		b.ticks = 0
		b.mu.Unlock()
		b.push(out.Snapshot, out.Persist, out.CheckCompletion)
		return
	}
	if out.Event.Kind != session.EventTick {
		b.mu.Unlock()
		return
	}
	b.ticks++
	due := b.ticks >= b.cfg.EveryTicks
	if due {
		b.ticks = 0
	}
	b.mu.Unlock()

	if due {
		b.push(out.Snapshot, session.PersistTimer, false)
	}
}

// Record stores an activity entry for the session.
func (b *Broadcaster) Record(note session.Note) {
	b.enqueue(job{op: "record_activity", run: func(ctx context.Context) error {
		return b.store.RecordActivity(ctx, b.cfg.SessionID, note.Type, note.Message)
	}})
}

func (b *Broadcaster) push(snap model.Snapshot, persist session.Persist, checkCompletion bool) {
	id := b.cfg.SessionID

	// Cycle and timer go before status: once a terminal status is stored
	// the store rejects every other update.
	if persist.Has(session.PersistCycle) {
		cycle := snap.CurrentCycle
		b.enqueue(job{op: "set_cycle", run: func(ctx context.Context) error {
			return b.store.SetCycle(ctx, id, cycle)
		}})
	}
	if persist.Has(session.PersistTimer) {
		state := model.TimerState{
			TimeLeftSeconds: snap.TimeLeftSeconds,
			IsRunning:       snap.IsRunning,
			IsBreak:         snap.IsBreak,
		}
		b.enqueue(job{op: "set_timer_state", run: func(ctx context.Context) error {
			return b.store.SetTimerState(ctx, id, state)
		}})
	}
	if persist.Has(session.PersistStatus) {
		status := snap.Status
		b.enqueue(job{op: "set_status", run: func(ctx context.Context) error {
			return b.store.SetStatus(ctx, id, status)
		}})
	}

	snap.Origin = b.cfg.Origin
	b.enqueue(job{op: "publish", run: func(ctx context.Context) error {
		return b.channel.Publish(ctx, b.cfg.Code, snap)
	}})

	if checkCompletion {
		b.enqueue(job{op: "check_completion", run: func(ctx context.Context) error {
			return b.store.CheckCompletion(ctx, id)
		}})
	}
}

func (b *Broadcaster) enqueue(j job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Debug("broadcaster closed, dropping operation", "op", j.op)
		return
	}
	select {
	case b.queue <- j:
	default:
		b.logger.Warn("broadcast queue full, dropping operation", "op", j.op)
	}
}

func (b *Broadcaster) work(ctx context.Context) {
	defer close(b.done)
	for j := range b.queue {
		jobCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
		err := j.run(jobCtx)
		cancel()

		switch {
		case err == nil:
		case errors.Is(err, session.ErrTerminal):
			b.logger.Debug("store ignored update against terminal session", "op", j.op)
		default:
			b.logger.Warn("broadcast operation failed", "op", j.op, "error", err)
		}
	}
}
