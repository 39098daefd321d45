package storeclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"focusflow/internal/model"
)

const DefaultRetryDelay = 3 * time.Second

type ChannelOptions struct {
	Clock      clockwork.Clock
	RetryDelay time.Duration
	Logger     *slog.Logger
	// HTTPClient must not set a Timeout; streams stay open indefinitely.
	HTTPClient *http.Client
}

// Channel is the session channel as seen over the server's SSE endpoints.
// Subscriptions (re)connect after a fixed delay until their context ends.
type Channel struct {
	client     *Client
	stream     *http.Client
	clock      clockwork.Clock
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewChannel(client *Client, opts ChannelOptions) *Channel {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Channel{
		client:     client,
		stream:     opts.HTTPClient,
		clock:      opts.Clock,
		retryDelay: opts.RetryDelay,
		logger:     opts.Logger,
	}
}

func (ch *Channel) Publish(ctx context.Context, code string, snap model.Snapshot) error {
	if snap.Origin == "" {
		snap.Origin = ch.client.ClientID()
	}
	return ch.client.do(ctx, http.MethodPost, channelPath(code), snap, nil)
}

func (ch *Channel) Subscribe(ctx context.Context, code string) (<-chan model.Snapshot, error) {
	return subscribe[model.Snapshot](ctx, ch, channelPath(code))
}

func (ch *Channel) SubscribeJoins(ctx context.Context, code string) (<-chan model.JoinNotice, error) {
	return subscribe[model.JoinNotice](ctx, ch, channelPath(code)+"/joined")
}

func channelPath(code string) string {
	return "/api/channel/session/" + url.PathEscape(code)
}

// subscribe reports a store rejection of the first connect (unknown code,
// bad token) to the caller. Transport failures and later disconnects are
// retried in the background after a fixed delay.
func subscribe[T any](ctx context.Context, ch *Channel, path string) (<-chan T, error) {
	body, err := ch.connect(ctx, path)
	if err != nil {
		if rejected(err) {
			return nil, err
		}
		ch.logger.Warn("channel subscribe failed, retrying", "path", path, "error", err, "retry_in", ch.retryDelay)
	}

	out := make(chan T)
	go func() {
		defer close(out)
		for {
			if body != nil {
				err := readEvents[T](ctx, body, out, ch.logger)
				_ = body.Close()
				if ctx.Err() != nil {
					return
				}
				ch.logger.Warn("channel stream ended, resubscribing", "path", path, "error", err, "retry_in", ch.retryDelay)
			}
			if body = ch.reconnect(ctx, path); body == nil {
				return
			}
		}
	}()
	return out, nil
}

// reconnect waits retryDelay between attempts until one succeeds. It
// returns nil once ctx ends.
func (ch *Channel) reconnect(ctx context.Context, path string) io.ReadCloser {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.clock.After(ch.retryDelay):
		}
		body, err := ch.connect(ctx, path)
		if err == nil {
			return body
		}
		if ctx.Err() != nil {
			return nil
		}
		ch.logger.Warn("channel resubscribe failed", "path", path, "error", err)
	}
}

func rejected(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) &&
		statusErr.StatusCode >= http.StatusBadRequest &&
		statusErr.StatusCode < http.StatusInternalServerError
}

func (ch *Channel) connect(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := ch.client.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := ch.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeStatusError(resp)
	}
	return resp.Body, nil
}

// readEvents decodes SSE data frames into out until the stream ends.
// Malformed frames are skipped.
func readEvents[T any](ctx context.Context, body io.Reader, out chan<- T, logger *slog.Logger) error {
	reader := bufio.NewReader(body)
	var data strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var msg T
			raw := data.String()
			data.Reset()
			if err := json.Unmarshal([]byte(raw), &msg); err != nil {
				logger.Warn("skipping malformed channel message", "error", err)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
