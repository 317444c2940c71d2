package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/notiproof/backend/internal/event"
)

// Notification is the message pushed to widget connections. Type is
// "event.created" for new social-proof events and "visitor.count" for
// presence updates.
type Notification struct {
	Type      string               `json:"type"`
	WebsiteID string               `json:"website_id"`
	Count     int                  `json:"count,omitempty"`
	Event     *event.CanonicalEvent `json:"event,omitempty"`
}

// PresenceHook is called whenever a website's connection count changes. It
// runs on the hub goroutine and must not block.
type PresenceHook func(websiteID string, count int)

// Hub tracks widget connections per website and fans events out to them.
// Each open connection counts as one live visitor for its website. Safe for
// concurrent use.
type Hub struct {
	mu         sync.RWMutex
	websites   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan websiteMsg

	hooksMu sync.RWMutex
	hooks   []PresenceHook
}

type websiteMsg struct {
	websiteID string
	data      []byte
}

// NewHub allocates a Hub. Call Run in a goroutine to start the event loop.
func NewHub() *Hub {
	return &Hub{
		websites:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan websiteMsg, 256),
	}
}

// Run is the hub's main event loop. It must be executed in a dedicated
// goroutine for the lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.websites[client.WebsiteID] == nil {
				h.websites[client.WebsiteID] = make(map[*Client]struct{})
			}
			h.websites[client.WebsiteID][client] = struct{}{}
			count := len(h.websites[client.WebsiteID])
			h.mu.Unlock()
			h.presenceChanged(client.WebsiteID, count)

		case client := <-h.unregister:
			h.mu.Lock()
			count := -1
			if clients, ok := h.websites[client.WebsiteID]; ok {
				if _, present := clients[client]; present {
					delete(clients, client)
					close(client.send)
					count = len(clients)
					if count == 0 {
						delete(h.websites, client.WebsiteID)
					}
				}
			}
			h.mu.Unlock()
			if count >= 0 {
				h.presenceChanged(client.WebsiteID, count)
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.websites[msg.websiteID] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer: drop the message to avoid blocking.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Count returns the number of open connections for a website. This is the
// live-visitor figure the visitors pulse feature reports.
func (h *Hub) Count(websiteID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.websites[websiteID])
}

// OnPresenceChange registers a hook called on every join and leave.
func (h *Hub) OnPresenceChange(hook PresenceHook) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	h.hooks = append(h.hooks, hook)
}

func (h *Hub) presenceChanged(websiteID string, count int) {
	h.hooksMu.RLock()
	for _, hook := range h.hooks {
		hook(websiteID, count)
	}
	h.hooksMu.RUnlock()

	h.send(websiteID, Notification{Type: "visitor.count", WebsiteID: websiteID, Count: count})
}

// BroadcastEvent pushes a freshly ingested event to every widget connection
// for its website.
func (h *Hub) BroadcastEvent(websiteID string, ev event.CanonicalEvent) {
	h.send(websiteID, Notification{Type: "event.created", WebsiteID: websiteID, Event: &ev})
}

func (h *Hub) send(websiteID string, n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		log.Printf("ws: failed to marshal notification: %v", err)
		return
	}
	h.broadcast <- websiteMsg{websiteID: websiteID, data: data}
}

// Register enqueues a new client for addition to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister enqueues a client for removal from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}
