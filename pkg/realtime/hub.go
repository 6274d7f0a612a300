package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"idea-incubator-backend/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Authenticator resolves a bearer token to a user id.
type Authenticator func(token string) (userID string, err error)

// HubOptions 配置 Hub
type HubOptions struct {
	Authenticate   Authenticator
	AllowedOrigins []string
	SendBuffer     int
	// OnDrop is called when a slow client misses an event.
	OnDrop func(event string)
}

// Hub 管理 websocket 连接以及按用户划分的房间
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}

	upgrader websocket.Upgrader
	opts     HubOptions
	log      *logrus.Entry
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	once   sync.Once
}

// inbound is the only client → server message: a late "join" carrying a token.
type inbound struct {
	Event string `json:"event"`
	Token string `json:"token"`
}

// NewHub 创建 Hub
func NewHub(opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
		opts:    opts,
		log:     logging.Component("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range h.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the connection. A token in the `token` query parameter or
// the `jwt` cookie puts the client in its user room; anonymous clients only
// receive broadcasts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if c, err := r.Cookie("jwt"); err == nil {
			token = c.Value
		}
	}

	var userID string
	if token != "" && h.opts.Authenticate != nil {
		id, err := h.opts.Authenticate(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, h.opts.SendBuffer)}
	h.register(c, userID)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, userID)
	h.log.WithField("user_id", userID).Debug("🔌 websocket client connected")
}

func (h *Hub) joinLocked(c *client, userID string) {
	if userID == "" || c.userID == userID {
		return
	}
	h.leaveRoomLocked(c)
	c.userID = userID
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[userID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) leaveRoomLocked(c *client) {
	if c.userID == "" {
		return
	}
	if room, ok := h.rooms[c.userID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.userID)
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.leaveRoomLocked(c)
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast 发送给所有连接
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.deliver(c, event, msg)
	}
}

// SendToUser 发送给某个用户的所有连接
func (h *Hub) SendToUser(userID, event string, payload interface{}) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		h.deliver(c, event, msg)
	}
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, bool) {
	msg, err := json.Marshal(Event{Name: event, Payload: payload})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Warn("failed to encode realtime event")
		return nil, false
	}
	return msg, true
}

// deliver never blocks; a full queue drops the event for that client.
func (h *Hub) deliver(c *client, event string, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.WithField("event", event).WithField("user_id", c.userID).Debug("dropping event for slow client")
		if h.opts.OnDrop != nil {
			h.opts.OnDrop(event)
		}
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize 某个用户的连接数
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.rooms = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if json.Unmarshal(data, &msg) != nil || msg.Event != "join" || c.hub.opts.Authenticate == nil {
			continue
		}
		userID, err := c.hub.opts.Authenticate(msg.Token)
		if err != nil {
			continue
		}
		c.hub.mu.Lock()
		if _, ok := c.hub.clients[c]; ok {
			c.hub.joinLocked(c, userID)
		}
		c.hub.mu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
