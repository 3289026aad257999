package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mirelio/echodesk/internal/models"
)

// Channel is a per-subscriber delivery conduit. Events arrive on Events()
// until the hub unregisters the channel, after which Events() is closed.
type Channel struct {
	id     string
	events chan models.DomainEvent
	once   sync.Once
}

func (c *Channel) ID() string { return c.id }

func (c *Channel) Events() <-chan models.DomainEvent { return c.events }

func (c *Channel) close() { c.once.Do(func() { close(c.events) }) }

// Hub fans domain events out to every registered channel. The registry is the
// only shared mutable structure between pipelines and subscriber connections;
// all operations on it are safe under concurrent use.
//
// Delivery is non-blocking best-effort per channel: a channel whose buffer is
// full is unregistered immediately so one slow consumer never stalls the
// rest. There is no replay; a new channel sees only events published after
// its subscription.
type Hub struct {
	mu       sync.Mutex
	channels map[string]*Channel

	buffer    int
	heartbeat time.Duration
	log       *logrus.Logger

	done     chan struct{}
	stopOnce sync.Once
}

func New(buffer int, heartbeat time.Duration, log *logrus.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if log == nil {
		log = logrus.New()
	}
	h := &Hub{
		channels:  make(map[string]*Channel),
		buffer:    buffer,
		heartbeat: heartbeat,
		log:       log,
		done:      make(chan struct{}),
	}
	go h.heartbeatLoop()
	return h
}

// Subscribe registers a new channel and immediately delivers a connected
// event on it.
func (h *Hub) Subscribe() *Channel {
	ch := &Channel{
		id:     uuid.NewString(),
		events: make(chan models.DomainEvent, h.buffer),
	}

	h.mu.Lock()
	h.channels[ch.id] = ch
	total := len(h.channels)
	h.mu.Unlock()

	ch.events <- models.DomainEvent{Kind: models.EventConnected, Timestamp: time.Now().UTC()}

	h.log.WithFields(logrus.Fields{"channel": ch.id, "total": total}).Info("live channel subscribed")
	return ch
}

func (h *Hub) Unsubscribe(ch *Channel) {
	if ch == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.channels[ch.id]
	if ok {
		delete(h.channels, ch.id)
	}
	total := len(h.channels)
	h.mu.Unlock()

	if ok {
		ch.close()
		h.log.WithFields(logrus.Fields{"channel": ch.id, "total": total}).Info("live channel unsubscribed")
	}
}

// Publish delivers ev to every registered channel. Sends happen under the
// registry lock so each channel observes events in publish order.
func (h *Hub) Publish(ev models.DomainEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	var dead []*Channel
	for _, ch := range h.channels {
		select {
		case ch.events <- ev:
		default:
			dead = append(dead, ch)
		}
	}
	for _, ch := range dead {
		delete(h.channels, ch.id)
	}
	h.mu.Unlock()

	for _, ch := range dead {
		ch.close()
		h.log.WithField("channel", ch.id).Warn("live channel dropped: send buffer full")
	}
}

func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.Publish(models.DomainEvent{Kind: models.EventHeartbeat, Timestamp: time.Now().UTC()})
		}
	}
}

// Close stops heartbeats and unregisters every channel.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	channels := make([]*Channel, 0, len(h.channels))
	for _, ch := range h.channels {
		channels = append(channels, ch)
	}
	h.channels = make(map[string]*Channel)
	h.mu.Unlock()

	for _, ch := range channels {
		ch.close()
	}
}

// Len reports the number of registered channels.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}
