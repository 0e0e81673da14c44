package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
)

// activity is a notice raised by one client for an identity.
type activity struct {
	from   string
	notice domain.NoticePayload
}

// binding associates a client with the identity it has connected.
type binding struct {
	client  *Client
	address string
}

// Hub maintains the set of active clients and the recent activity of every
// identity they connect
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	addresses   map[string]string // client id -> connected address
	histories   map[string]*RingBuffer[domain.NoticePayload]
	historySize int
	log         *zap.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	bind       chan binding
	record     chan activity
	done       chan struct{}
}

// NewHub creates a new Hub keeping historySize notices per identity
func NewHub(historySize int, log *zap.Logger) *Hub {
	if historySize <= 0 {
		historySize = domain.MaxHistorySize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:     make(map[string]*Client),
		addresses:   make(map[string]string),
		histories:   make(map[string]*RingBuffer[domain.NoticePayload]),
		historySize: historySize,
		log:         log,
		broadcast:   make(chan []byte, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		bind:        make(chan binding, 64),
		record:      make(chan activity, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main event loop. When ctx ends every client is
// disconnected.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", zap.String("session", client.ID), zap.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			// Prevent double unregister
			if _, ok := h.clients[client.ID]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client.ID)
			delete(h.addresses, client.ID)
			client.closeSend()
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", zap.String("session", client.ID), zap.Int("clients", count))

		case b := <-h.bind:
			h.handleBind(b)

		case a := <-h.record:
			h.handleRecord(a)

		case message := <-h.broadcast:
			h.mu.Lock()
			for _, client := range h.clients {
				if !client.Send(message) {
					// Client buffer full, close connection and remove client
					client.closeSend()
					delete(h.clients, client.ID)
					delete(h.addresses, client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// handleBind records the client's identity and replays that identity's
// recent activity to it.
func (h *Hub) handleBind(b binding) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[b.client.ID]; !ok {
		return
	}
	if b.address == "" {
		delete(h.addresses, b.client.ID)
		return
	}
	h.addresses[b.client.ID] = b.address

	history, ok := h.histories[b.address]
	if !ok || history.Len() == 0 {
		return
	}
	data := encode(domain.MessageTypeActivity, domain.ActivityPayload{Notices: history.GetAll()})
	b.client.Send(data)
}

// handleRecord stores a notice in its identity's history and forwards it to
// the other sessions of that identity.
func (h *Hub) handleRecord(a activity) {
	address := a.notice.Address
	if address == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	history, ok := h.histories[address]
	if !ok {
		history = NewRingBuffer[domain.NoticePayload](h.historySize)
		h.histories[address] = history
	}
	history.Add(a.notice)

	data := encode(domain.MessageTypeActivity, domain.ActivityPayload{Notices: []domain.NoticePayload{a.notice}})
	for id, bound := range h.addresses {
		if id == a.from || bound != address {
			continue
		}
		if c, ok := h.clients[id]; ok {
			c.Send(data)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.closeSend()
		delete(h.clients, id)
	}
	h.addresses = make(map[string]string)
}
