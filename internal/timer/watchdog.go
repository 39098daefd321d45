package timer

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"focusflow/internal/session"
)

// Watchdog periodically re-derives whether a session should already be
// complete. It runs on its own period, independent of the tick path, and
// drives completion through the machine's guarded transition.
type Watchdog struct {
	*Ticker
	logger *slog.Logger
}

func NewWatchdog(clock clockwork.Clock, period time.Duration, logger *slog.Logger) *Watchdog {
	if period <= 0 {
		period = DefaultWatchdogInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{Ticker: NewTicker(clock, period), logger: logger}
}

func (w *Watchdog) Check(m *session.Machine) session.Outcome {
	out := m.CompleteIfDue()
	if out.Completed {
		s := m.Session()
		w.logger.Info("watchdog completed stalled session",
			"session_id", s.ID,
			"cycle", s.CurrentCycle,
			"total_cycles", s.TotalCycles,
		)
	}
	return out
}
