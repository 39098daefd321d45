package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultTickInterval     = time.Second
	DefaultWatchdogInterval = 2 * time.Second
)

// Ticker is a restartable periodic trigger. It carries no session data.
// Start and Stop are idempotent; C returns nil while stopped so a select
// over it never fires after Stop returns.
type Ticker struct {
	clock  clockwork.Clock
	period time.Duration

	mu     sync.Mutex
	ticker clockwork.Ticker
}

func NewTicker(clock clockwork.Clock, period time.Duration) *Ticker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = DefaultTickInterval
	}
	return &Ticker{clock: clock, period: period}
}

func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker != nil {
		return
	}
	t.ticker = t.clock.NewTicker(t.period)
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	t.ticker = nil
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticker != nil
}

func (t *Ticker) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ticker == nil {
		return nil
	}
	return t.ticker.Chan()
}

func (t *Ticker) Period() time.Duration { return t.period }
