package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
	"github.com/mmuslimabdulj/hero-arena/internal/herosync"
	"github.com/mmuslimabdulj/hero-arena/internal/identity"
	"github.com/mmuslimabdulj/hero-arena/internal/usecase"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Size of the outgoing message queue
	sendBuffer = 256
)

// Options carries the collaborators of a client session.
type Options struct {
	Identity       identity.Provider
	Tokens         *identity.SessionTokens
	MaxMessageSize int64
	// MessageRate limits incoming intents per second. Zero disables it.
	MessageRate float64
	Log         *zap.Logger
}

// Client is a single websocket connection and the hero session it drives
type Client struct {
	ID     string
	Player *domain.Player

	hub     *Hub
	conn    *websocket.Conn
	session *herosync.Synchronizer
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	intents sync.WaitGroup
}

// NewClient creates a Client whose hero session is backed by session.
// The client becomes the session's listener.
func NewClient(hub *Hub, conn *websocket.Conn, player *domain.Player, session *herosync.Synchronizer, opts Options) *Client {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = domain.MaxMessageSize
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:      player.ID.String(),
		Player:  player,
		hub:     hub,
		conn:    conn,
		session: session,
		opts:    opts,
		log:     log.With(zap.String("session", player.ID.String())),
		send:    make(chan []byte, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	if opts.MessageRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.MessageRate), int(opts.MessageRate*2)+1)
	}
	session.SetListener(c)
	return c
}

// Start runs the pumps and the reconcile loop. A non-empty restore address
// is connected before any browser intent is read.
func (c *Client) Start(restore string) {
	go c.WritePump()
	go c.session.Run(c.ctx)
	go func() {
		if restore != "" {
			c.connect(restore)
		} else {
			c.StateChanged(c.session.View())
		}
		c.ReadPump()
	}()
}

// ReadPump pumps intents from the websocket connection into the session
func (c *Client) ReadPump() {
	defer func() {
		c.cancel()
		c.hub.Unregister(c)
		c.conn.Close()
		c.intents.Wait()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}

		var incoming struct {
			Type    domain.MessageType `json:"type"`
			Payload json.RawMessage    `json:"payload"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Notice(domain.NoticePayload{Level: domain.NoticeError, Text: "Slow down"})
			continue
		}

		c.dispatch(incoming.Type, incoming.Payload)
	}
}

// dispatch routes one intent. Identity changes run inline so later intents
// observe them; ledger work runs off the read loop.
func (c *Client) dispatch(t domain.MessageType, payload json.RawMessage) {
	switch t {
	case domain.MessageTypeConnect:
		var p domain.ConnectPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
		c.connect(p.Address)

	case domain.MessageTypeDisconnect:
		c.disconnect()

	case domain.MessageTypeCreateHero:
		var p domain.CreateHeroPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
		name := usecase.SanitizeHeroName(p.Name)
		c.async("create_hero", func(ctx context.Context) error {
			return c.session.CreateHero(ctx, name)
		})

	case domain.MessageTypeBattle:
		c.async("battle", c.session.Battle)

	case domain.MessageTypeHeal:
		c.async("heal", c.session.Heal)

	case domain.MessageTypeRefresh:
		c.async("refresh", c.session.DiscoverExistingHero)

	case domain.MessageTypeDiscard:
		if err := c.session.Discard(); err != nil {
			c.log.Debug("discard rejected", zap.Error(err))
		}
	}
}

func (c *Client) async(name string, fn func(context.Context) error) {
	c.intents.Add(1)
	go func() {
		defer c.intents.Done()
		if err := fn(c.ctx); err != nil {
			level := zap.DebugLevel
			if errors.Is(err, herosync.ErrRemote) {
				level = zap.WarnLevel
			}
			c.log.Check(level, "intent failed").Write(zap.String("intent", name), zap.Error(err))
		}
	}()
}

func (c *Client) connect(address string) {
	addr, err := c.opts.Identity.Validate(address)
	if err != nil {
		c.Notice(domain.NoticePayload{Level: domain.NoticeError, Text: "That wallet cannot be used here"})
		c.log.Debug("identity rejected", zap.String("address", address), zap.Error(err))
		return
	}

	c.Player.Address = addr
	c.hub.Bind(c, addr)
	c.sendToken(addr)

	if err := c.session.Connect(c.ctx, addr); err != nil {
		c.log.Debug("connect failed", zap.Error(err))
	}
}

func (c *Client) disconnect() {
	c.Player.Address = ""
	c.hub.Bind(c, "")
	c.sendToken("")
	c.session.Disconnect()
}

// sendToken issues a reconnect token for address, or clears it.
func (c *Client) sendToken(address string) {
	if c.opts.Tokens == nil {
		return
	}
	token := ""
	if address != "" {
		var err error
		token, err = c.opts.Tokens.Issue(c.ID, address)
		if err != nil {
			c.log.Warn("issue session token", zap.Error(err))
			return
		}
	}
	c.Send(encode(domain.MessageTypeSessionToken, domain.SessionTokenPayload{Token: token}))
}

// StateChanged implements herosync.Listener
func (c *Client) StateChanged(v herosync.View) {
	p := v.Payload()
	if p.Hero != nil {
		p.Crest = usecase.CrestColor(p.Hero.ID)
	}
	c.Send(encode(domain.MessageTypeHeroState, p))
}

// Notice implements herosync.Listener
func (c *Client) Notice(n domain.NoticePayload) {
	c.Send(encode(domain.MessageTypeNotice, n))
	if n.Activity && n.Address != "" {
		c.hub.Record(c, n)
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a message for the client. It reports false when the queue is
// full or closed.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
