package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// 이벤트 타입
const (
	EventSnapshot = "snapshot"
	EventStatus   = "status"
	EventClosed   = "session_closed"
)

// Event - 웹소켓으로 전송되는 메시지
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Mode      string    `json:"mode,omitempty"`
	State     string    `json:"state,omitempty"`
	Message   string    `json:"message,omitempty"`
	Snapshot  any       `json:"snapshot,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// 연결된 클라이언트 정보
type client struct {
	conn      *websocket.Conn
	sessionID string
	clientID  string
	send      chan []byte
}

// 세션별 구독자 목록
type room struct {
	id        string
	clients   map[string]*client
	createdAt time.Time
}

// Metrics - 허브 통계
type Metrics struct {
	Rooms            int       `json:"rooms"`
	Clients          int       `json:"clients"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
}

// Hub fans workflow events out to the websocket subscribers of a session.
type Hub struct {
	upgrader websocket.Upgrader

	mu               sync.Mutex
	rooms            map[string]*room
	totalConnections int
	startTime        time.Time
}

func New() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// 개발용 - 모든 origin 허용
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms:     make(map[string]*room),
		startTime: time.Now(),
	}
}

// ServeWS upgrades the request and subscribes the connection to sessionID.
// initial events are queued before any broadcast reaches the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial ...Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("[Hub] WebSocket upgrade failed")
		return err
	}

	c := &client{
		conn:      conn,
		sessionID: sessionID,
		clientID:  uuid.NewString(),
		send:      make(chan []byte, sendBuffer),
	}
	for _, ev := range initial {
		if data, err := encode(sessionID, ev); err == nil {
			c.send <- data
		}
	}

	h.addClient(c)
	log.Info().Str("session", sessionID).Str("client", c.clientID).Msg("🔍 [Hub] New WebSocket connection")

	go c.writePump()
	go c.readPump(h)
	return nil
}

// Broadcast sends ev to every subscriber of sessionID. Clients whose buffer
// is full are dropped.
func (h *Hub) Broadcast(sessionID string, ev Event) {
	data, err := encode(sessionID, ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("[Hub] Error marshaling event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for id, c := range rm.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("session", sessionID).Str("client", id).Msg("[Hub] slow client dropped")
			close(c.send)
			delete(rm.clients, id)
		}
	}
	if len(rm.clients) == 0 {
		delete(h.rooms, sessionID)
	}
}

// CloseSession notifies and disconnects every subscriber of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.Broadcast(sessionID, Event{Type: EventClosed})

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for id, c := range rm.clients {
		close(c.send)
		delete(rm.clients, id)
	}
	delete(h.rooms, sessionID)
	log.Info().Str("session", sessionID).Msg("🗑️ [Hub] session subscribers closed")
}

// Subscribers returns the number of live connections for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rm, ok := h.rooms[sessionID]; ok {
		return len(rm.clients)
	}
	return 0
}

// Metrics returns a point in time view of the hub.
func (h *Hub) Metrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := 0
	for _, rm := range h.rooms {
		clients += len(rm.clients)
	}
	return Metrics{
		Rooms:            len(h.rooms),
		Clients:          clients,
		TotalConnections: h.totalConnections,
		StartTime:        h.startTime,
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[c.sessionID]
	if !ok {
		rm = &room{id: c.sessionID, clients: make(map[string]*client), createdAt: time.Now()}
		h.rooms[c.sessionID] = rm
	}
	rm.clients[c.clientID] = c
	h.totalConnections++
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[c.sessionID]
	if !ok {
		return
	}
	if _, ok := rm.clients[c.clientID]; ok {
		close(c.send)
		delete(rm.clients, c.clientID)
	}
	if len(rm.clients) == 0 {
		delete(h.rooms, c.sessionID)
	}
}

func encode(sessionID string, ev Event) ([]byte, error) {
	ev.SessionID = sessionID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return json.Marshal(ev)
}

// readPump only watches for close and pong frames; clients drive the
// workflow through the HTTP API.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", c.clientID).Msg("[Hub] WebSocket error")
			}
			return
		}
	}
}

// 클라이언트로 메시지 쓰기
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("client", c.clientID).Msg("[Hub] WebSocket write error")
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
