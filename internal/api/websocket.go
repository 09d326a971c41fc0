package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketMessage is the envelope for live dashboard updates
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// wsConnection is a single connected dashboard client
type wsConnection struct {
	id   string
	conn *websocket.Conn
	send chan WebSocketMessage
}

// WebSocketManager manages dashboard connections and broadcasts
type WebSocketManager struct {
	connections map[string]*wsConnection
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *logrus.Logger
	broadcast   chan WebSocketMessage
	register    chan *wsConnection
	unregister  chan *wsConnection
	done        chan struct{}
	stopOnce    sync.Once

	pingInterval   time.Duration
	writeTimeout   time.Duration
	readTimeout    time.Duration
	maxConnections int
}

// NewWebSocketManager creates a WebSocket manager
func NewWebSocketManager(logger *logrus.Logger) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]*wsConnection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:         logger,
		broadcast:      make(chan WebSocketMessage, 256),
		register:       make(chan *wsConnection),
		unregister:     make(chan *wsConnection),
		done:           make(chan struct{}),
		pingInterval:   30 * time.Second,
		writeTimeout:   10 * time.Second,
		readTimeout:    60 * time.Second,
		maxConnections: 32,
	}
}

// Start starts the manager loop
func (wsm *WebSocketManager) Start(ctx context.Context) {
	go wsm.run(ctx)
}

// Stop stops the manager
func (wsm *WebSocketManager) Stop() {
	wsm.stopOnce.Do(func() {
		close(wsm.done)
	})
}

// Broadcast queues a live update for all connected clients
func (wsm *WebSocketManager) Broadcast(v interface{}) {
	msg := WebSocketMessage{
		Type:      "update",
		Timestamp: time.Now().UTC(),
		Data:      v,
	}
	if data, ok := v.(map[string]interface{}); ok {
		if t, ok := data["type"].(string); ok {
			msg.Type = t
		}
	}

	select {
	case wsm.broadcast <- msg:
	default:
		wsm.logger.Warn("WebSocket broadcast buffer full, dropping message")
	}
}

func (wsm *WebSocketManager) run(ctx context.Context) {
	ticker := time.NewTicker(wsm.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wsm.done:
			return
		case conn := <-wsm.register:
			wsm.registerConnection(conn)
		case conn := <-wsm.unregister:
			wsm.unregisterConnection(conn)
		case message := <-wsm.broadcast:
			wsm.broadcastMessage(message)
		case <-ticker.C:
			wsm.pingConnections()
		}
	}
}

func (wsm *WebSocketManager) registerConnection(conn *wsConnection) {
	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()

	if len(wsm.connections) >= wsm.maxConnections {
		wsm.logger.WithField("connection_id", conn.id).Warn("Maximum WebSocket connections reached")
		conn.conn.Close()
		return
	}

	wsm.connections[conn.id] = conn
	wsm.logger.WithFields(logrus.Fields{
		"connection_id": conn.id,
		"total_conns":   len(wsm.connections),
	}).Info("WebSocket connection registered")
}

func (wsm *WebSocketManager) unregisterConnection(conn *wsConnection) {
	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()

	if _, exists := wsm.connections[conn.id]; exists {
		delete(wsm.connections, conn.id)
		close(conn.send)

		wsm.logger.WithFields(logrus.Fields{
			"connection_id": conn.id,
			"total_conns":   len(wsm.connections),
		}).Info("WebSocket connection unregistered")
	}
}

func (wsm *WebSocketManager) broadcastMessage(message WebSocketMessage) {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()

	for _, conn := range wsm.connections {
		select {
		case conn.send <- message:
		default:
			wsm.logger.WithField("connection_id", conn.id).Warn("Connection buffer full, dropping connection")
			go func(c *wsConnection) {
				wsm.unregister <- c
			}(conn)
		}
	}
}

func (wsm *WebSocketManager) pingConnections() {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()

	for _, conn := range wsm.connections {
		conn.conn.SetWriteDeadline(time.Now().Add(wsm.writeTimeout))
		if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			go func(c *wsConnection) {
				wsm.unregister <- c
			}(conn)
		}
	}
}

// HandleConnection upgrades the request and pumps messages until the
// client disconnects.
func (wsm *WebSocketManager) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsm.logger.WithField("error", err.Error()).Warn("WebSocket upgrade failed")
		return
	}

	wsConn := &wsConnection{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan WebSocketMessage, 64),
	}

	wsm.register <- wsConn

	go wsm.writePump(wsConn)
	go wsm.readPump(wsConn)
}

func (wsm *WebSocketManager) writePump(c *wsConnection) {
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsm.writeTimeout))
		if err := c.conn.WriteJSON(message); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (wsm *WebSocketManager) readPump(c *wsConnection) {
	defer func() {
		wsm.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsm.readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsm.readTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
