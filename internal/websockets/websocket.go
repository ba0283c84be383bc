package websockets

import (
	"context"
	"sync"
	"time"

	"labventory/config"
	"labventory/internal/events"
	"labventory/internal/models"
	"labventory/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING          = "ping"
	MESSAGE_TYPE_PONG          = "pong"
	MESSAGE_TYPE_ERROR         = "error"
	MESSAGE_TYPE_AUTH_REQUEST  = "auth_request"
	MESSAGE_TYPE_AUTH_RESPONSE = "auth_response"
	MESSAGE_TYPE_AUTH_SUCCESS  = "auth_success"
	MESSAGE_TYPE_AUTH_FAILURE  = "auth_failure"
	MESSAGE_TYPE_SUBSCRIBE     = "subscribe"
	MESSAGE_TYPE_UNSUBSCRIBE   = "unsubscribe"
	MESSAGE_TYPE_UNSUBSCRIBED  = "unsubscribed"
	MESSAGE_TYPE_SNAPSHOT      = "snapshot"
	MESSAGE_TYPE_CHANGE        = "change"
	MESSAGE_TYPE_ALERT         = "alert"
	PING_INTERVAL              = 30 * time.Second
	PONG_TIMEOUT               = 60 * time.Second
	WRITE_TIMEOUT              = 10 * time.Second
	MAX_MESSAGE_SIZE           = 1024 * 1024 // 1 MB
	SEND_CHANNEL_SIZE          = 64
	SYSTEM_CHANNEL             = "system"
)

type Message struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Channel    string         `json:"channel,omitempty"`
	Collection string         `json:"collection,omitempty"`
	Action     string         `json:"action,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

func newMessage(messageType string) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      messageType,
		Timestamp: time.Now(),
	}
}

// Authenticator turns a session token into the caller's current profile
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserProfile, error)
}

// SnapshotProvider loads the current records of a collection
type SnapshotProvider interface {
	Snapshot(ctx context.Context, channel events.Channel) (any, error)
}

type Client struct {
	ID         string
	UserID     uuid.UUID
	User       *models.UserProfile
	Connection *websocket.Conn
	Manager    *Manager
	Status     int

	subscriptions map[events.Channel]bool
	token         string
	closed        bool
	mu            sync.RWMutex
	send          chan Message
}

func newClient(m *Manager, conn *websocket.Conn) *Client {
	return &Client{
		ID:            uuid.New().String(),
		UserID:        uuid.Nil,
		Connection:    conn,
		Manager:       m,
		Status:        STATUS_UNAUTHENTICATED,
		subscriptions: make(map[events.Channel]bool),
		send:          make(chan Message, SEND_CHANNEL_SIZE),
	}
}

type Manager struct {
	hub       *Hub
	config    config.Config
	log       logger.Logger
	eventBus  *events.EventBus
	auth      Authenticator
	snapshots SnapshotProvider
}

func New(
	eventBus *events.EventBus,
	auth Authenticator,
	snapshots SnapshotProvider,
	config config.Config,
) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
		},
		config:    config,
		log:       log,
		eventBus:  eventBus,
		auth:      auth,
		snapshots: snapshots,
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	if err := manager.subscribeToEvents(); err != nil {
		return nil, err
	}

	return manager, nil
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	client := newClient(m, c)

	authRequest := newMessage(MESSAGE_TYPE_AUTH_REQUEST)
	authRequest.Channel = SYSTEM_CHANNEL
	authRequest.Action = "authenticate"

	if err := c.WriteJSON(authRequest); err != nil {
		log.Er("failed to send auth request", err)
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	log.Info("Auth request sent to client", "clientID", client.ID)
	m.hub.register <- client
	client.startAuthTimeout()

	go client.readPump()
	client.writePump()
}

// deliver queues a message without blocking. It reports false when the
// client is gone or its buffer is full.
func (c *Client) deliver(message Message) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Status == STATUS_AUTHENTICATED
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.Status = STATUS_CLOSED
	c.subscriptions = make(map[events.Channel]bool)
	close(c.send)
}

func (c *Client) closeConnection() {
	if c.Connection == nil {
		return
	}
	_ = c.Connection.Close()
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.hub.unregister <- c
		c.closeConnection()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			break
		}

		message.ID = uuid.New().String()
		message.Timestamp = time.Now()

		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == MESSAGE_TYPE_AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if !c.authenticated() {
		c.handleUnauthenticatedMessage(message)
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.deliver(newMessage(MESSAGE_TYPE_PONG))
	case MESSAGE_TYPE_SUBSCRIBE:
		c.handleSubscribe(message)
	case MESSAGE_TYPE_UNSUBSCRIBE:
		c.handleUnsubscribe(message)
	default:
		log.Warn("Unknown message type", "type", message.Type, "clientID", c.ID)
		c.sendError("unknown message type", message.Collection)
	}
}

func (c *Client) sendError(reason, collection string) {
	errMessage := newMessage(MESSAGE_TYPE_ERROR)
	errMessage.Collection = collection
	errMessage.Data = map[string]any{"reason": reason}
	c.deliver(errMessage)
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID, "type", message.Type)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
