package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"focusflow/internal/model"
	"focusflow/internal/session"
)

var (
	ErrStopped        = errors.New("runner stopped")
	ErrAlreadyRunning = errors.New("runner already running")
)

type Command string

const (
	CommandStart  Command = "start"
	CommandPause  Command = "pause"
	CommandToggle Command = "toggle"
	CommandReset  Command = "reset"
	CommandEnd    Command = "end"
)

type EventType string

const (
	EventState    EventType = "state"
	EventActivity EventType = "activity"
	EventAlarm    EventType = "alarm"
	EventEnded    EventType = "ended"
)

// Event is a runner update for local observers.
type Event struct {
	Type    EventType
	Session model.Session
	State   session.State
	Note    session.Note
	Sound   string
	Trigger session.Trigger
	At      time.Time
}

type Options struct {
	Clock  clockwork.Clock
	Logger *slog.Logger
	// ClientID identifies this participant's broadcasts. Generated when empty.
	ClientID            string
	TickInterval        time.Duration
	WatchdogInterval    time.Duration
	BroadcastEveryTicks int
	PauseBetweenPhases  bool
	AlarmSound          string
	QueueSize           int
	RequestTimeout      time.Duration
}

// Runner is one client's cooperative scheduler. A single goroutine selects
// over the tick and watchdog tickers, remote snapshots, join notices and
// user commands, so transitions never interleave.
type Runner struct {
	machine     *session.Machine
	ticker      *Ticker
	watchdog    *Watchdog
	broadcaster *Broadcaster
	reconciler  *Reconciler
	clock       clockwork.Clock
	logger      *slog.Logger
	alarm       string
	clientID    string

	commands chan Command
	done     chan struct{}

	mu          sync.Mutex
	started     bool
	finished    bool
	subscribers []chan Event
}

func NewRunner(s model.Session, store Store, channel Channel, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	logger := opts.Logger.With("session_id", s.ID, "code", s.Code)

	return &Runner{
		machine:  session.NewMachine(s, session.Options{PauseBetweenPhases: opts.PauseBetweenPhases}),
		ticker:   NewTicker(opts.Clock, opts.TickInterval),
		watchdog: NewWatchdog(opts.Clock, opts.WatchdogInterval, logger),
		broadcaster: NewBroadcaster(store, channel, BroadcasterConfig{
			SessionID:  s.ID,
			Code:       s.Code,
			Origin:     opts.ClientID,
			EveryTicks: opts.BroadcastEveryTicks,
			QueueSize:  opts.QueueSize,
			Timeout:    opts.RequestTimeout,
			Logger:     logger,
		}),
		reconciler: NewReconciler(channel, s.Code, opts.ClientID, logger),
		clock:      opts.Clock,
		logger:     logger,
		alarm:      opts.AlarmSound,
		clientID:   opts.ClientID,
		commands:   make(chan Command, 8),
		done:       make(chan struct{}),
	}
}

func (r *Runner) ClientID() string { return r.clientID }

func (r *Runner) Session() model.Session { return r.machine.Session() }

func (r *Runner) State() session.State { return r.machine.State() }

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Subscribe registers an observer. Events are dropped for observers that
// fall behind; the channel is closed when Run returns.
func (r *Runner) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		close(ch)
		return ch
	}
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Send queues a user command for the run loop.
func (r *Runner) Send(ctx context.Context, cmd Command) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}

	select {
	case r.commands <- cmd:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the session until it reaches a terminal status or ctx ends.
// It returns nil on terminal completion and ctx.Err() on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.started = true
	r.mu.Unlock()
	defer close(r.done)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.broadcaster.Start(ctx)
	snaps, joins := r.reconciler.Subscribe(subCtx)
	r.syncTickers()
	r.logger.Info("session runner started", "state", r.machine.State())

	var err error
loop:
	for !r.machine.Session().Status.Terminal() {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case <-r.ticker.C():
			r.handle(r.machine.Tick())
		case <-r.watchdog.C():
			r.handle(r.watchdog.Check(r.machine))
		case snap, ok := <-snaps:
			if !ok {
				snaps = nil
				continue
			}
			r.handle(r.reconciler.Apply(r.machine, snap))
		case notice, ok := <-joins:
			if !ok {
				joins = nil
				continue
			}
			r.note(r.reconciler.JoinNote(notice))
		case cmd := <-r.commands:
			r.handle(r.apply(cmd))
		}
	}

	r.ticker.Stop()
	r.watchdog.Stop()
	r.broadcaster.Close()

	s := r.machine.Session()
	if s.Status.Terminal() {
		r.logger.Info("session runner finished", "status", s.Status)
		r.emit(Event{Type: EventEnded, Session: s, State: session.StateOf(s), At: r.clock.Now()})
	}
	r.closeSubscribers()
	return err
}

func (r *Runner) apply(cmd Command) session.Outcome {
	switch cmd {
	case CommandStart:
		return r.machine.Start()
	case CommandPause:
		return r.machine.Pause()
	case CommandToggle:
		if r.machine.Session().IsRunning {
			return r.machine.Pause()
		}
		return r.machine.Start()
	case CommandReset:
		return r.machine.Reset()
	case CommandEnd:
		return r.machine.EndEarly()
	}
	r.logger.Warn("ignoring unknown command", "command", cmd)
	return session.Outcome{}
}

func (r *Runner) handle(out session.Outcome) {
	if !out.Changed {
		return
	}
	if out.Terminal {
		r.ticker.Stop()
		r.watchdog.Stop()
	}

	r.broadcaster.Handle(out)

	s := r.machine.Session()
	state := session.StateOf(s)
	now := r.clock.Now()
	local := out.Event.Kind != session.EventRemote

	for _, note := range out.Notes {
		if local {
			r.broadcaster.Record(note)
		}
		r.emit(Event{Type: EventActivity, Session: s, State: state, Note: note, At: now})
	}
	if out.Completed {
		r.logger.Info("session completed", "trigger", out.Trigger)
	}
	if out.PhaseChanged || out.Completed {
		r.emit(Event{Type: EventAlarm, Session: s, State: state, Sound: r.alarm, Trigger: out.Trigger, At: now})
	}
	r.emit(Event{Type: EventState, Session: s, State: state, Trigger: out.Trigger, At: now})

	if !out.Terminal {
		r.syncTickers()
	}
}

func (r *Runner) note(note session.Note) {
	r.broadcaster.Record(note)
	s := r.machine.Session()
	r.emit(Event{Type: EventActivity, Session: s, State: session.StateOf(s), Note: note, At: r.clock.Now()})
}

// syncTickers runs the countdown only while the session is running and the
// watchdog while it is not terminal.
func (r *Runner) syncTickers() {
	s := r.machine.Session()
	if s.Status.Terminal() {
		r.ticker.Stop()
		r.watchdog.Stop()
		return
	}
	r.watchdog.Start()
	if s.IsRunning {
		r.ticker.Start()
	} else {
		r.ticker.Stop()
	}
}

func (r *Runner) emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *Runner) closeSubscribers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = nil
}
