package channel

import (
	"context"
	"encoding/json"
	"log/slog"

	"focusflow/internal/model"
)

// Local is a session channel client bound directly to a Hub, for runners
// that share a process with the hub.
type Local struct {
	hub    *Hub
	logger *slog.Logger
}

func NewLocal(hub *Hub) *Local {
	return &Local{hub: hub, logger: hub.logger}
}

func (l *Local) Publish(_ context.Context, code string, snap model.Snapshot) error {
	_, err := l.hub.PublishJSON(SessionTopic(code), snap)
	return err
}

func (l *Local) Subscribe(ctx context.Context, code string) (<-chan model.Snapshot, error) {
	return relay[model.Snapshot](ctx, l.hub.Subscribe(SessionTopic(code)), l.logger), nil
}

func (l *Local) SubscribeJoins(ctx context.Context, code string) (<-chan model.JoinNotice, error) {
	return relay[model.JoinNotice](ctx, l.hub.Subscribe(JoinedTopic(code)), l.logger), nil
}

func (l *Local) Join(code string, notice model.JoinNotice) error {
	_, err := l.hub.PublishJSON(JoinedTopic(code), notice)
	return err
}

func relay[T any](ctx context.Context, sub *Subscription, logger *slog.Logger) <-chan T {
	out := make(chan T, cap(sub.ch))
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub.C():
				if !ok {
					return
				}
				var value T
				if err := json.Unmarshal(raw, &value); err != nil {
					logger.Warn("discarding malformed channel message", "topic", sub.Topic(), "error", err)
					continue
				}
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
