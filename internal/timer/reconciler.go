package timer

import (
	"context"
	"fmt"
	"log/slog"

	"focusflow/internal/model"
	"focusflow/internal/session"
)

// Reconciler merges remote snapshots into the local machine. The last
// applied snapshot wins; there is no sequence number or vector clock.
type Reconciler struct {
	channel Channel
	code    string
	origin  string
	logger  *slog.Logger
}

func NewReconciler(channel Channel, code, origin string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{channel: channel, code: code, origin: origin, logger: logger}
}

// Subscribe opens both session topics. A failure leaves the corresponding
// channel nil and the client keeps ticking on local state.
func (r *Reconciler) Subscribe(ctx context.Context) (<-chan model.Snapshot, <-chan model.JoinNotice) {
	snaps, err := r.channel.Subscribe(ctx, r.code)
	if err != nil {
		r.logger.Warn("subscribe to session topic failed", "code", r.code, "error", err)
		snaps = nil
	}
	joins, err := r.channel.SubscribeJoins(ctx, r.code)
	if err != nil {
		r.logger.Warn("subscribe to join topic failed", "code", r.code, "error", err)
		joins = nil
	}
	return snaps, joins
}

// Own reports whether snap is the echo of this client's own broadcast.
func (r *Reconciler) Own(snap model.Snapshot) bool {
	return r.origin != "" && snap.Origin == r.origin
}

func (r *Reconciler) Apply(m *session.Machine, snap model.Snapshot) session.Outcome {
	if r.Own(snap) {
		return session.Outcome{Event: session.Event{Kind: session.EventRemote, Remote: snap}}
	}
	out := m.Reconcile(snap)
	if out.Changed {
		r.logger.Debug("applied remote snapshot",
			"code", r.code,
			"status", snap.Status,
			"cycle", snap.CurrentCycle,
			"time_left", snap.TimeLeftSeconds,
		)
	}
	return out
}

// JoinNote turns a join notice into an activity entry. Join notices never
// touch timer state.
func (r *Reconciler) JoinNote(notice model.JoinNotice) session.Note {
	return session.Note{
		Type:    model.ActivityUserJoined,
		Message: fmt.Sprintf("%s joined the session", notice.Participant),
	}
}
