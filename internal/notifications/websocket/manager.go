package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Manager owns the live websocket connections for the pool event feed.
// Clients subscribe to pool ids; broadcasts fan out to everyone, pool-scoped
// sends only to subscribers of that pool.
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	hub         *hub
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection is one websocket client.
type Connection struct {
	ID           string
	UserID       string
	poolIDs      map[string]struct{}
	conn         *websocket.Conn
	send         chan interface{}
	lastActivity time.Time
	mu           sync.Mutex
}

type hub struct {
	connections map[*Connection]bool
	broadcast   chan interface{}
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
}

// inbound is the only client-to-server message: a subscription update.
type inbound struct {
	Action  string   `json:"action"`
	PoolIDs []string `json:"pool_ids"`
}

func NewManager(logger *zap.Logger) *Manager {
	h := &hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan interface{}, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
	}
	m := &Manager{
		connections: make(map[string]*Connection),
		hub:         h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
	go m.run()
	return m
}

// HandleConnection upgrades an HTTP request to a websocket and starts its
// pumps. The caller passes the authenticated user id.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	if userID == "" {
		userID = uuid.New().String()
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		UserID:       userID,
		poolIDs:      make(map[string]struct{}),
		conn:         conn,
		send:         make(chan interface{}, sendBuffer),
		lastActivity: time.Now(),
	}

	m.hub.register <- connection
	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.hub.unregister <- conn
		conn.conn.Close()
	}()

	conn.conn.SetReadLimit(maxMessageSize)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inbound
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("websocket read failed",
					zap.String("connection_id", conn.ID),
					zap.Error(err))
			}
			return
		}

		conn.mu.Lock()
		conn.lastActivity = time.Now()
		switch msg.Action {
		case "subscribe":
			for _, id := range msg.PoolIDs {
				conn.poolIDs[id] = struct{}{}
			}
		case "unsubscribe":
			for _, id := range msg.PoolIDs {
				delete(conn.poolIDs, id)
			}
		}
		conn.mu.Unlock()
	}
}

func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteJSON(payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) run() {
	for {
		select {
		case conn := <-m.hub.register:
			m.hub.connections[conn] = true
			m.logger.Debug("websocket connected",
				zap.String("connection_id", conn.ID),
				zap.String("user_id", conn.UserID))

		case conn := <-m.hub.unregister:
			if _, ok := m.hub.connections[conn]; ok {
				delete(m.hub.connections, conn)
				close(conn.send)
				m.mu.Lock()
				delete(m.connections, conn.ID)
				m.mu.Unlock()
				m.logger.Debug("websocket disconnected",
					zap.String("connection_id", conn.ID))
			}

		case payload := <-m.hub.broadcast:
			for conn := range m.hub.connections {
				select {
				case conn.send <- payload:
				default:
					close(conn.send)
					delete(m.hub.connections, conn)
				}
			}

		case <-m.hub.stop:
			for conn := range m.hub.connections {
				close(conn.send)
				delete(m.hub.connections, conn)
			}
			return
		}
	}
}

// Broadcast queues a payload for every connected client.
func (m *Manager) Broadcast(payload interface{}) error {
	select {
	case m.hub.broadcast <- payload:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// SendToPool queues a payload for every client subscribed to the pool.
func (m *Manager) SendToPool(poolID string, payload interface{}) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for _, conn := range m.connections {
		conn.mu.Lock()
		_, subscribed := conn.poolIDs[poolID]
		conn.mu.Unlock()
		if !subscribed {
			continue
		}
		select {
		case conn.send <- payload:
			sent++
		default:
			// buffer full, drop for this client
		}
	}
	return sent
}

// ConnectionCount returns the number of live connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close tears down every connection.
func (m *Manager) Close() {
	close(m.hub.stop)

	m.mu.Lock()
	for _, conn := range m.connections {
		conn.conn.Close()
	}
	m.connections = make(map[string]*Connection)
	m.mu.Unlock()
}
