package session

import (
	"fmt"
	"sync"

	"focusflow/internal/model"
)

type EventKind string

const (
	EventStart     EventKind = "start"
	EventPause     EventKind = "pause"
	EventTick      EventKind = "tick"
	EventReset     EventKind = "reset"
	EventEndEarly  EventKind = "end_early"
	EventRemote    EventKind = "remote"
	EventCheckDone EventKind = "check_done"
)

// Trigger names the path that drove a completion.
type Trigger string

const (
	TriggerTick     Trigger = "tick"
	TriggerWatchdog Trigger = "watchdog"
	TriggerRemote   Trigger = "remote"
)

// Persist is a set of store updates an outcome requires.
type Persist uint8

const (
	PersistStatus Persist = 1 << iota
	PersistCycle
	PersistTimer

	PersistAll = PersistStatus | PersistCycle | PersistTimer
)

func (p Persist) Has(flag Persist) bool { return p&flag != 0 }

type Event struct {
	Kind   EventKind
	Remote model.Snapshot
}

type Note struct {
	Type    model.ActivityType
	Message string
}

// Outcome describes what a transition did. The machine performs no I/O;
// callers carry out the persistence, broadcast and activity side effects.
type Outcome struct {
	Event Event

	// Changed is set when any field was mutated.
	Changed bool
	// Broadcast is set for state-changing operations that must be pushed
	// immediately rather than on the throttled cadence.
	Broadcast bool
	// PhaseChanged is set when a phase boundary was crossed.
	PhaseChanged bool
	Persist      Persist
	Notes        []Note

	// Completed is set on exactly one outcome per machine: the one that
	// latched the completion guard.
	Completed bool
	Trigger   Trigger
	// CheckCompletion asks the store to re-derive completion as well.
	CheckCompletion bool

	Terminal bool
	Snapshot model.Snapshot
}

type Options struct {
	// PauseBetweenPhases stops the countdown at every phase boundary so
	// the next phase needs an explicit start.
	PauseBetweenPhases bool
}

// Machine owns a client's cached copy of a session. Every mutation goes
// through Apply, which holds the machine lock for the whole transition.
type Machine struct {
	mu         sync.Mutex
	s          model.Session
	opts       Options
	completing bool
}

func NewMachine(s model.Session, opts Options) *Machine {
	if s.TimeLeftSeconds < 0 {
		s.TimeLeftSeconds = 0
	}
	return &Machine{
		s:          s,
		opts:       opts,
		completing: s.Status == model.StatusCompleted,
	}
}

func (m *Machine) Session() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

func (m *Machine) Snapshot() model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Snapshot()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StateOf(m.s)
}

// Completing reports whether the completion guard has been latched. Only
// tests read it; runners observe completion through Outcome.Terminal.
func (m *Machine) Completing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completing
}

func (m *Machine) Start() Outcome    { return m.Apply(Event{Kind: EventStart}) }
func (m *Machine) Pause() Outcome    { return m.Apply(Event{Kind: EventPause}) }
func (m *Machine) Tick() Outcome     { return m.Apply(Event{Kind: EventTick}) }
func (m *Machine) Reset() Outcome    { return m.Apply(Event{Kind: EventReset}) }
func (m *Machine) EndEarly() Outcome { return m.Apply(Event{Kind: EventEndEarly}) }

// Reconcile overwrites the local timer fields with a remote snapshot.
func (m *Machine) Reconcile(remote model.Snapshot) Outcome {
	return m.Apply(Event{Kind: EventRemote, Remote: remote})
}

// CompleteIfDue drives the completion transition when CompletionDue holds
// and the guard is not yet latched.
func (m *Machine) CompleteIfDue() Outcome {
	return m.Apply(Event{Kind: EventCheckDone})
}

// Apply is the single transition entry point.
func (m *Machine) Apply(ev Event) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Outcome{Event: ev}
	if m.completing || m.s.Status.Terminal() {
		out.Terminal = true
		out.Snapshot = m.s.Snapshot()
		return out
	}

	switch ev.Kind {
	case EventStart:
		m.start(&out)
	case EventPause:
		m.pause(&out)
	case EventTick:
		m.tick(&out)
	case EventReset:
		m.reset(&out)
	case EventEndEarly:
		m.endEarly(&out)
	case EventRemote:
		m.reconcile(&out, ev.Remote)
	case EventCheckDone:
		if CompletionDue(m.s) {
			m.complete(&out, TriggerWatchdog)
			out.CheckCompletion = true
		}
	}

	out.Terminal = m.s.Status.Terminal()
	out.Snapshot = m.s.Snapshot()
	return out
}

func (m *Machine) start(out *Outcome) {
	if m.s.IsRunning {
		return
	}
	if m.s.Status == model.StatusCreated {
		out.Notes = append(out.Notes, Note{model.ActivitySessionStarted, "Session started"})
	}
	m.s.IsRunning = true
	m.s.Status = model.StatusActive

	message := "Focus timer started"
	if m.s.IsBreak {
		message = "Break timer started"
	}
	out.Notes = append(out.Notes, Note{model.ActivityTimerStarted, message})
	out.Changed, out.Broadcast = true, true
	out.Persist |= PersistStatus | PersistTimer
}

func (m *Machine) pause(out *Outcome) {
	if !m.s.IsRunning {
		return
	}
	m.s.IsRunning = false
	m.s.Status = model.StatusPaused

	message := "Focus timer paused"
	if m.s.IsBreak {
		message = "Break timer paused"
	}
	out.Notes = append(out.Notes, Note{model.ActivityTimerPaused, message})
	out.Changed, out.Broadcast = true, true
	out.Persist |= PersistStatus | PersistTimer
}

func (m *Machine) tick(out *Outcome) {
	if !m.s.IsRunning {
		return
	}
	out.Changed = true
	if m.s.TimeLeftSeconds > 0 {
		m.s.TimeLeftSeconds--
		if m.s.TimeLeftSeconds > 0 {
			return
		}
	}
	m.phaseComplete(out)
}

func (m *Machine) phaseComplete(out *Outcome) {
	out.Changed, out.Broadcast, out.PhaseChanged = true, true, true

	if !m.s.IsBreak {
		m.s.IsBreak = true
		if m.s.CurrentCycle < m.s.TotalCycles {
			m.s.TimeLeftSeconds = m.s.BreakSeconds()
			out.Notes = append(out.Notes, Note{
				model.ActivityBreakStarted,
				fmt.Sprintf("Break time! Cycle %d completed.", m.s.CurrentCycle),
			})
			out.Persist |= PersistTimer
		} else {
			m.s.TimeLeftSeconds = m.s.LongBreakSeconds()
			out.Notes = append(out.Notes,
				Note{model.ActivityCycleCompleted, fmt.Sprintf("All %d work cycles completed.", m.s.TotalCycles)},
				Note{model.ActivityBreakStarted, "Long break time!"},
			)
			out.Persist |= PersistTimer | PersistCycle
		}
		m.pauseAtBoundary()
		return
	}

	if m.s.CurrentCycle >= m.s.TotalCycles {
		m.complete(out, TriggerTick)
		return
	}

	m.s.CurrentCycle++
	m.s.IsBreak = false
	m.s.TimeLeftSeconds = m.s.FocusSeconds()
	out.Notes = append(out.Notes, Note{
		model.ActivityCycleStarted,
		fmt.Sprintf("Starting cycle %d", m.s.CurrentCycle),
	})
	out.Persist |= PersistTimer | PersistCycle
	m.pauseAtBoundary()
}

func (m *Machine) pauseAtBoundary() {
	if m.opts.PauseBetweenPhases {
		m.s.IsRunning = false
	}
}

// complete latches the guard and moves to the terminal state. Callers
// hold m.mu and have checked the guard.
func (m *Machine) complete(out *Outcome, trigger Trigger) {
	m.completing = true
	m.s.Status = model.StatusCompleted
	m.s.CurrentCycle = m.s.TotalCycles
	m.s.IsBreak = false
	m.s.TimeLeftSeconds = 0
	m.s.IsRunning = false

	out.Changed, out.Broadcast = true, true
	out.Completed = true
	out.Trigger = trigger
	out.Persist |= PersistAll
	out.Notes = append(out.Notes, Note{
		model.ActivitySessionCompleted,
		"Congratulations! Focus session and long break completed.",
	})
}

func (m *Machine) reset(out *Outcome) {
	m.s.CurrentCycle = 1
	m.s.IsBreak = false
	m.s.IsRunning = false
	m.s.TimeLeftSeconds = m.s.FocusSeconds()
	if m.s.Status != model.StatusCreated {
		m.s.Status = model.StatusPaused
	}

	out.Notes = append(out.Notes, Note{model.ActivityTimerReset, "Timer reset"})
	out.Changed, out.Broadcast = true, true
	out.Persist |= PersistAll
}

func (m *Machine) endEarly(out *Outcome) {
	m.s.Status = model.StatusEndedEarly
	m.s.IsRunning = false

	out.Notes = append(out.Notes, Note{model.ActivitySessionEnded, "Session ended early by user"})
	out.Changed, out.Broadcast = true, true
	out.Persist |= PersistStatus | PersistTimer
}

// reconcile applies last-message-wins: the remote values replace the local
// ones whatever their order of arrival. Values outside the session's
// invariants are clamped rather than rejected.
func (m *Machine) reconcile(out *Outcome, remote model.Snapshot) {
	if !remote.Status.Valid() {
		return
	}

	m.s.TimeLeftSeconds = max(remote.TimeLeftSeconds, 0)
	m.s.IsRunning = remote.IsRunning
	m.s.IsBreak = remote.IsBreak
	m.s.CurrentCycle = min(max(remote.CurrentCycle, 1), max(m.s.TotalCycles, 1))
	m.s.Status = remote.Status
	out.Changed = true

	switch remote.Status {
	case model.StatusCompleted:
		m.complete(out, TriggerRemote)
		// The remote participant already recorded completion.
		out.Persist = 0
		out.Broadcast = false
	case model.StatusEndedEarly:
		m.s.IsRunning = false
		out.Notes = append(out.Notes, Note{model.ActivitySessionEnded, "Session ended by another participant"})
	}
}
