package channel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

const DefaultBuffer = 16

func SessionTopic(code string) string { return "session/" + code }

func JoinedTopic(code string) string { return "session/" + code + "/joined" }

// Hub is an in-process publish/subscribe fan-out keyed by topic. Delivery is
// best-effort: a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
	closed bool
}

type Subscription struct {
	hub   *Hub
	topic string
	ch    chan []byte
	once  sync.Once
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a subscriber on topic. The returned subscription's
// channel is closed by Close or when the hub shuts down.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		hub:   h,
		topic: topic,
		ch:    make(chan []byte, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish hands payload to every subscriber of topic and returns how many
// received it.
func (h *Hub) Publish(topic string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- payload:
			delivered++
		default:
			h.logger.Warn("channel subscriber full, dropping message", "topic", topic)
		}
	}
	return delivered
}

func (h *Hub) PublishJSON(topic string, value any) (int, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("encode %s message: %w", topic, err)
	}
	return h.Publish(topic, raw), nil
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.topics {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(h.topics, topic)
	}
}

func (s *Subscription) C() <-chan []byte { return s.ch }

func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if subs, ok := s.hub.topics[s.topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.hub.topics, s.topic)
		}
	}
	s.once.Do(func() { close(s.ch) })
}
