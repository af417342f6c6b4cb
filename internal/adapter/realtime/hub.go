// Package realtime pushes domain events to connected websocket clients.
package realtime

import (
	"context"
	"sync"

	"linkpay/internal/core/domain"
	"linkpay/pkg/metrics"

	"github.com/rs/zerolog"
)

// Client is one live connection. Events arrive on Events until Done is closed.
type Client struct {
	actor  domain.Actor
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

// Events returns the client's buffered event channel.
func (c *Client) Events() <-chan domain.Event { return c.events }

// Done is closed when the hub drops the client.
func (c *Client) Done() <-chan struct{} { return c.done }

// Actor returns the party the client is subscribed as.
func (c *Client) Actor() domain.Actor { return c.actor }

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub is a registry of live clients keyed by party. It implements
// ports.EventPublisher for single-instance deployments and is the sink of
// the Redis event bus otherwise.
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.Actor]map[*Client]struct{}
	buffer  int
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewHub creates a hub whose clients buffer up to buffer events.
func NewHub(buffer int, m *metrics.Metrics, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		clients: make(map[domain.Actor]map[*Client]struct{}),
		buffer:  buffer,
		metrics: m,
		log:     log,
	}
}

// Register adds a client for actor. A party may hold several connections.
func (h *Hub) Register(actor domain.Actor) *Client {
	c := &Client{
		actor:  actor,
		events: make(chan domain.Event, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.clients[actor]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[actor] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.ClientConnected(1)
	return c
}

// Unregister removes the client. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()

	if removed {
		h.metrics.ClientConnected(-1)
	}
	c.close()
}

// Publish queues the event on every connection of its recipient. It never
// blocks: a client whose buffer is full is dropped.
func (h *Hub) Publish(_ context.Context, event domain.Event) {
	recipient := event.Recipient()

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[recipient] {
		select {
		case c.events <- event:
			h.metrics.EventDelivered(string(event.Type))
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.metrics.EventDropped()
		h.log.Warn().
			Str("party_type", string(recipient.Type)).
			Str("party_id", recipient.ID).
			Str("event", string(event.Type)).
			Msg("Dropping slow realtime client")
		h.Unregister(c)
	}
}

// Connected returns the number of live connections for actor.
func (h *Hub) Connected(actor domain.Actor) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[actor])
}

func (h *Hub) removeLocked(c *Client) bool {
	set, ok := h.clients[c.actor]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.actor)
	}
	return true
}
