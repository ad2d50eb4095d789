package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/cricket-trumps/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Events queued for the hub loop before Notify starts dropping.
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one event pushed to a player.
type Message struct {
	GameID string `json:"game_id"`
	Player string `json:"player"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

// subscriber identifies the connections of one player in one game.
type subscriber struct {
	gameID string
	player string
}

func newSubscriber(gameID, player string) subscriber {
	return subscriber{
		gameID: strings.ToLower(strings.TrimSpace(gameID)),
		player: service.NormalizePlayer(player),
	}
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	sub  subscriber
}

// Hub maintains the set of active clients and delivers each event only to
// the player it was addressed to.
type Hub struct {
	// Registered clients by game and player
	clients map[subscriber]map[*Client]bool
	mu      sync.RWMutex

	// Outbound events from the game service
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	log *zap.Logger
}

var _ service.Notifier = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[subscriber]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Run starts the hub's event loop. It returns when ctx is done, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to events for
// player in gameID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID, player string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		sub:  newSubscriber(gameID, player),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Notify queues an event for one player. It never blocks; when the queue is
// full the event is dropped and logged.
func (h *Hub) Notify(gameID, player string, event service.Event) {
	sub := newSubscriber(gameID, player)
	message := &Message{
		GameID: sub.gameID,
		Player: sub.player,
		Event:  event.Type,
		Data:   event.Data,
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("websocket queue full, dropping event",
			zap.String("game_id", sub.gameID),
			zap.String("player", sub.player),
			zap.String("event", event.Type))
	}
}

// ClientCount returns how many connections are subscribed for player in
// gameID.
func (h *Hub) ClientCount(gameID, player string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[newSubscriber(gameID, player)])
}

// registerClient adds a client to its subscriber set
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.sub] == nil {
		h.clients[client.sub] = make(map[*Client]bool)
	}
	h.clients[client.sub][client] = true

	h.log.Debug("websocket client registered",
		zap.String("game_id", client.sub.gameID),
		zap.String("player", client.sub.player),
		zap.Int("clients", len(h.clients[client.sub])))
}

// unregisterClient removes a client and closes its send channel
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.sub]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.clients, client.sub)
	}

	h.log.Debug("websocket client unregistered",
		zap.String("game_id", client.sub.gameID),
		zap.String("player", client.sub.player),
		zap.Int("remaining", len(clients)))
}

// broadcastMessage sends a message to every connection of its subscriber
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("failed to marshal websocket message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub := subscriber{gameID: message.GameID, player: message.Player}
	for client := range h.clients[sub] {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Incoming messages are ignored; reading keeps pongs flowing.
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error", zap.Error(err))
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
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
