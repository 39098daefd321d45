package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusflow/internal/model"
)

func newMachine(t *testing.T, focus, brk, long float64, cycles int) *Machine {
	t.Helper()
	params := model.CreateSessionParams{
		FocusMinutes:     focus,
		BreakMinutes:     brk,
		LongBreakMinutes: long,
		TotalCycles:      cycles,
	}
	require.NoError(t, ValidateParams(params, 0))
	return NewMachine(New("sess-1", "ABC123", params), Options{})
}

func tickN(m *Machine, n int) []Outcome {
	outcomes := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		outcomes = append(outcomes, m.Tick())
	}
	return outcomes
}

func TestNewSessionInitialState(t *testing.T) {
	m := newMachine(t, 25, 5, 15, 4)
	s := m.Session()

	assert.Equal(t, model.StatusCreated, s.Status)
	assert.Equal(t, 1, s.CurrentCycle)
	assert.False(t, s.IsBreak)
	assert.False(t, s.IsRunning)
	assert.Equal(t, 1500, s.TimeLeftSeconds)
	assert.Equal(t, StateCreated, m.State())
}

func TestFractionalMinuteRounding(t *testing.T) {
	tests := []struct {
		minutes float64
		want    int
	}{
		{0.05, 3},
		{1.5, 90},
		{0.01, 1},
		{0.125, 8},
		{25, 1500},
	}
	for _, tt := range tests {
		m := newMachine(t, tt.minutes, 1, 1, 1)
		assert.Equal(t, tt.want, m.Session().TimeLeftSeconds, "focusMinutes=%v", tt.minutes)
	}
}

func TestFullRunScenario(t *testing.T) {
	m := newMachine(t, 1, 1, 2, 2)
	m.Start()

	tickN(m, 60)
	s := m.Session()
	assert.True(t, s.IsBreak)
	assert.Equal(t, 1, s.CurrentCycle)
	assert.Equal(t, 60, s.TimeLeftSeconds)

	tickN(m, 60)
	s = m.Session()
	assert.False(t, s.IsBreak)
	assert.Equal(t, 2, s.CurrentCycle)
	assert.Equal(t, 60, s.TimeLeftSeconds)

	tickN(m, 60)
	s = m.Session()
	assert.True(t, s.IsBreak)
	assert.Equal(t, 2, s.CurrentCycle)
	assert.Equal(t, 120, s.TimeLeftSeconds)
	assert.Equal(t, StateBreakRunning, m.State())

	outcomes := tickN(m, 120)
	s = m.Session()
	assert.Equal(t, model.StatusCompleted, s.Status)
	assert.Equal(t, 2, s.CurrentCycle)
	assert.False(t, s.IsBreak)
	assert.False(t, s.IsRunning)
	assert.Equal(t, 0, s.TimeLeftSeconds)

	last := outcomes[len(outcomes)-1]
	assert.True(t, last.Completed)
	assert.Equal(t, TriggerTick, last.Trigger)
	assert.Equal(t, PersistAll, last.Persist)
}

func TestPhaseCountsForNCycles(t *testing.T) {
	for cycles := 1; cycles <= 5; cycles++ {
		m := newMachine(t, 0.05, 0.05, 0.1, cycles)
		m.Start()

		work, shortBreaks, longBreaks := 1, 0, 0
		completions := 0
		for i := 0; i < 10000 && m.Session().Status != model.StatusCompleted; i++ {
			out := m.Tick()
			if out.Completed {
				completions++
				continue
			}
			if !out.PhaseChanged {
				continue
			}
			s := m.Session()
			switch {
			case !s.IsBreak:
				work++
			case s.InLongBreak():
				longBreaks++
			default:
				shortBreaks++
			}
		}

		assert.Equal(t, cycles, work, "work phases for %d cycles", cycles)
		assert.Equal(t, cycles-1, shortBreaks, "short breaks for %d cycles", cycles)
		assert.Equal(t, 1, longBreaks, "long breaks for %d cycles", cycles)
		assert.Equal(t, 1, completions)
		assert.Equal(t, cycles, m.Session().CurrentCycle)
	}
}

func TestTimeLeftNeverNegative(t *testing.T) {
	m := newMachine(t, 0.05, 0.02, 0.03, 3)
	m.Start()

	previous := m.Session()
	for i := 0; i < 200; i++ {
		out := m.Tick()
		s := m.Session()
		require.GreaterOrEqual(t, s.TimeLeftSeconds, 0)
		if out.PhaseChanged {
			assert.Equal(t, 1, previous.TimeLeftSeconds,
				"a phase transition fires on the tick that would reach zero")
		}
		previous = s
	}
}

func TestTickWhileStalledAtZeroTransitions(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 2)
	m.Reconcile(model.Snapshot{
		TimeLeftSeconds: 0,
		IsRunning:       true,
		IsBreak:         false,
		CurrentCycle:    1,
		Status:          model.StatusActive,
	})

	out := m.Tick()

	assert.True(t, out.PhaseChanged)
	assert.True(t, m.Session().IsBreak)
	assert.Equal(t, 60, m.Session().TimeLeftSeconds)
}

func TestTickIgnoredWhenNotRunning(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 1)
	out := m.Tick()

	assert.False(t, out.Changed)
	assert.Equal(t, 60, m.Session().TimeLeftSeconds)
}

func TestStartPauseTransitions(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 2)

	out := m.Start()
	require.True(t, out.Broadcast)
	assert.Equal(t, StateWorkRunning, m.State())
	assert.Equal(t, model.StatusActive, m.Session().Status)
	assert.True(t, out.Persist.Has(PersistStatus))
	assert.True(t, out.Persist.Has(PersistTimer))
	require.Len(t, out.Notes, 2)
	assert.Equal(t, model.ActivitySessionStarted, out.Notes[0].Type)
	assert.Equal(t, model.ActivityTimerStarted, out.Notes[1].Type)

	again := m.Start()
	assert.False(t, again.Changed)

	out = m.Pause()
	assert.True(t, out.Broadcast)
	assert.Equal(t, StateWorkPaused, m.State())
	assert.Equal(t, model.StatusPaused, m.Session().Status)
	require.Len(t, out.Notes, 1)
	assert.Equal(t, model.ActivityTimerPaused, out.Notes[0].Type)

	tickN(m, 10)
	assert.Equal(t, 60, m.Session().TimeLeftSeconds)

	out = m.Start()
	require.Len(t, out.Notes, 1)
	assert.Equal(t, "Focus timer started", out.Notes[0].Message)
}

func TestBreakPausedState(t *testing.T) {
	m := newMachine(t, 0.05, 1, 1, 2)
	m.Start()
	tickN(m, 3)
	m.Pause()

	assert.Equal(t, StateBreakPaused, m.State())
	out := m.Start()
	assert.Equal(t, "Break timer started", out.Notes[0].Message)
	assert.Equal(t, StateBreakRunning, m.State())
}

func TestPauseBetweenPhases(t *testing.T) {
	params := model.CreateSessionParams{FocusMinutes: 0.05, BreakMinutes: 0.05, LongBreakMinutes: 0.05, TotalCycles: 2}
	m := NewMachine(New("s", "CODE01", params), Options{PauseBetweenPhases: true})
	m.Start()

	tickN(m, 3)
	s := m.Session()
	assert.True(t, s.IsBreak)
	assert.False(t, s.IsRunning)
	assert.Equal(t, model.StatusActive, s.Status)
	assert.Equal(t, StateBreakPaused, m.State())

	tickN(m, 5)
	assert.Equal(t, 3, m.Session().TimeLeftSeconds)
}

func TestResetFromAnyNonTerminalState(t *testing.T) {
	setups := map[string]func(m *Machine){
		"created":       func(m *Machine) {},
		"work running":  func(m *Machine) { m.Start(); tickN(m, 2) },
		"work paused":   func(m *Machine) { m.Start(); tickN(m, 2); m.Pause() },
		"break running": func(m *Machine) { m.Start(); tickN(m, 4) },
		"break paused":  func(m *Machine) { m.Start(); tickN(m, 4); m.Pause() },
		"second cycle":  func(m *Machine) { m.Start(); tickN(m, 6) },
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			m := newMachine(t, 0.05, 0.05, 0.05, 3)
			setup(m)

			out := m.Reset()
			s := m.Session()

			assert.True(t, out.Broadcast)
			assert.Equal(t, PersistAll, out.Persist)
			assert.Equal(t, 1, s.CurrentCycle)
			assert.False(t, s.IsBreak)
			assert.False(t, s.IsRunning)
			assert.Equal(t, 3, s.TimeLeftSeconds)
			assert.False(t, s.Status.Terminal())
		})
	}
}

func TestEndEarlyIsIrreversible(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 2)
	m.Start()
	tickN(m, 5)

	out := m.EndEarly()
	require.True(t, out.Terminal)
	assert.False(t, out.Completed)
	assert.Equal(t, StateEndedEarly, m.State())
	assert.Equal(t, model.ActivitySessionEnded, out.Notes[0].Type)

	before := m.Session()
	for _, op := range []func() Outcome{m.Start, m.Pause, m.Tick, m.Reset, m.EndEarly, m.CompleteIfDue} {
		got := op()
		assert.False(t, got.Changed)
		assert.True(t, got.Terminal)
	}
	assert.Equal(t, before, m.Session())
}

func TestCompletedIgnoresRemoteUpdates(t *testing.T) {
	m := newMachine(t, 0.05, 0.05, 0.05, 1)
	m.Start()
	tickN(m, 6)
	require.Equal(t, model.StatusCompleted, m.Session().Status)

	out := m.Reconcile(model.Snapshot{TimeLeftSeconds: 30, IsRunning: true, CurrentCycle: 1, Status: model.StatusActive})

	assert.False(t, out.Changed)
	assert.Equal(t, model.StatusCompleted, m.Session().Status)
}

func TestWatchdogCompletion(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 2)
	m.Start()

	out := m.CompleteIfDue()
	assert.False(t, out.Completed, "first cycle is not due")

	// Long break stalled at zero after a missed tick.
	m.Reconcile(model.Snapshot{TimeLeftSeconds: 0, IsRunning: false, IsBreak: true, CurrentCycle: 2, Status: model.StatusActive})
	out = m.CompleteIfDue()
	require.True(t, out.Completed)
	assert.Equal(t, TriggerWatchdog, out.Trigger)
	assert.True(t, out.CheckCompletion)
	assert.Equal(t, model.StatusCompleted, m.Session().Status)

	again := m.CompleteIfDue()
	assert.False(t, again.Completed)
}

func TestWatchdogDoesNotCutFinalWorkPhase(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 1)
	m.Start()
	tickN(m, 10)

	out := m.CompleteIfDue()

	assert.False(t, out.Completed)
	assert.Equal(t, StateWorkRunning, m.State())
}

func TestCompletionSignalledOnceUnderRace(t *testing.T) {
	for round := 0; round < 50; round++ {
		m := newMachine(t, 1, 1, 1, 2)
		m.Reconcile(model.Snapshot{TimeLeftSeconds: 1, IsRunning: true, IsBreak: true, CurrentCycle: 2, Status: model.StatusActive})

		var (
			wg          sync.WaitGroup
			mu          sync.Mutex
			completions int
		)
		record := func(out Outcome) {
			if out.Completed {
				mu.Lock()
				completions++
				mu.Unlock()
			}
		}

		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() { defer wg.Done(); record(m.Tick()) }()
			go func() { defer wg.Done(); record(m.CompleteIfDue()) }()
		}
		wg.Wait()

		require.Equal(t, 1, completions, "round %d", round)
		assert.True(t, m.Completing())
	}
}

func TestReconcileLastAppliedWins(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 4)
	m.Start()

	m.Reconcile(model.Snapshot{TimeLeftSeconds: 40, IsRunning: true, CurrentCycle: 3, Status: model.StatusActive})
	assert.Equal(t, 3, m.Session().CurrentCycle)

	// A stale message arriving later moves the cycle backwards.
	out := m.Reconcile(model.Snapshot{TimeLeftSeconds: 55, IsRunning: false, IsBreak: true, CurrentCycle: 2, Status: model.StatusPaused})

	s := m.Session()
	assert.True(t, out.Changed)
	assert.False(t, out.Broadcast)
	assert.Zero(t, out.Persist)
	assert.Equal(t, 2, s.CurrentCycle)
	assert.Equal(t, 55, s.TimeLeftSeconds)
	assert.True(t, s.IsBreak)
	assert.False(t, s.IsRunning)
	assert.Equal(t, model.StatusPaused, s.Status)
}

func TestReconcileClampsOutOfRangeValues(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 3)

	m.Reconcile(model.Snapshot{TimeLeftSeconds: -4, CurrentCycle: 9, Status: model.StatusActive})

	s := m.Session()
	assert.Equal(t, 0, s.TimeLeftSeconds)
	assert.Equal(t, 3, s.CurrentCycle)
}

func TestReconcileRejectsUnknownStatus(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 3)

	out := m.Reconcile(model.Snapshot{TimeLeftSeconds: 5, CurrentCycle: 2, Status: "BOGUS"})

	assert.False(t, out.Changed)
	assert.Equal(t, 60, m.Session().TimeLeftSeconds)
}

func TestReconcileRemoteCompletion(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 3)
	m.Start()

	out := m.Reconcile(model.Snapshot{TimeLeftSeconds: 0, CurrentCycle: 3, Status: model.StatusCompleted})

	assert.True(t, out.Completed)
	assert.Equal(t, TriggerRemote, out.Trigger)
	assert.Zero(t, out.Persist)
	assert.True(t, m.Completing())
	assert.False(t, m.CompleteIfDue().Completed)
}

func TestReconcileRemoteEndedEarly(t *testing.T) {
	m := newMachine(t, 1, 1, 1, 3)
	m.Start()

	out := m.Reconcile(model.Snapshot{TimeLeftSeconds: 12, IsRunning: true, CurrentCycle: 1, Status: model.StatusEndedEarly})

	assert.True(t, out.Terminal)
	assert.False(t, out.Completed)
	assert.False(t, m.Session().IsRunning)
	assert.Equal(t, StateEndedEarly, m.State())
}

func TestLongBreakPersistsCycle(t *testing.T) {
	m := newMachine(t, 0.05, 0.05, 0.1, 1)
	m.Start()

	outcomes := tickN(m, 3)
	last := outcomes[2]

	require.True(t, last.PhaseChanged)
	assert.True(t, last.Persist.Has(PersistCycle))
	assert.Equal(t, 1, m.Session().CurrentCycle)
	assert.Equal(t, 6, m.Session().TimeLeftSeconds)
}
