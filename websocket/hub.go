package websocket

import (
	"context"
	"log"
	"sync"

	"podium/internal/realtime"
)

// Hub fans realtime events out to connected clients. Clients register under
// their owner key; events addressed to a key reach every connection that
// owner holds (multiple tabs), and events with no recipients broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]bool)}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.ownerKey]
	if !ok {
		conns = make(map[*Client]bool)
		h.clients[c.ownerKey] = conns
	}
	conns[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.ownerKey]
	if !ok {
		return
	}
	if conns[c] {
		delete(conns, c)
		close(c.send)
	}
	if len(conns) == 0 {
		delete(h.clients, c.ownerKey)
	}
}

// Dispatch forwards one event to its recipients. Slow clients are dropped
// rather than allowed to stall the hub.
func (h *Hub) Dispatch(event *realtime.Event) {
	data, err := realtime.MarshalEvent(event)
	if err != nil {
		log.Printf("websocket: failed to marshal event: %v", err)
		return
	}
	payload := []byte(data)

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(event.Recipients) == 0 {
		for _, conns := range h.clients {
			for c := range conns {
				c.trySend(payload)
			}
		}
		return
	}

	for _, key := range event.Recipients {
		for c := range h.clients[key] {
			c.trySend(payload)
		}
	}
}

// LocalPublisher delivers events straight to an in-process hub. Used when
// Redis is not configured and every client connects to this instance.
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(ctx context.Context, event *realtime.Event) error {
	p.hub.Dispatch(event)
	return nil
}

// Run consumes the Redis event channel and dispatches until ctx is
// canceled. When Redis is not configured the hub still serves directly
// dispatched events.
func (h *Hub) Run(ctx context.Context, pub *realtime.RedisPublisher) {
	if pub == nil {
		return
	}
	sub := pub.Subscribe(ctx)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event, err := realtime.UnmarshalEvent(msg.Payload)
				if err != nil {
					log.Printf("websocket: bad event on channel: %v", err)
					continue
				}
				h.Dispatch(event)
			}
		}
	}()
}
