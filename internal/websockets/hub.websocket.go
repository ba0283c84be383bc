package websockets

import (
	"sync"

	"labventory/internal/events"

	"github.com/google/uuid"
)

const (
	STATUS_UNAUTHENTICATED = iota
	STATUS_PENDING
	STATUS_AUTHENTICATED
	STATUS_CLOSED
)

type Hub struct {
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			m.unregisterClient(client)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.hub.mutex.Lock()
	m.hub.clients[client.ID] = client
	m.hub.mutex.Unlock()

	m.log.Function("registerClient").Debug("Client registered", "clientID", client.ID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.hub.mutex.Lock()
	delete(m.hub.clients, client.ID)
	m.hub.mutex.Unlock()

	client.close()

	m.log.Function("unregisterClient").Info(
		"Client unregistered",
		"clientID", client.ID,
		"userID", client.UserID,
	)
}

// clientsWhere snapshots the registered clients matching keep
func (m *Manager) clientsWhere(keep func(*Client) bool) []*Client {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	matched := make([]*Client, 0, len(m.hub.clients))
	for _, client := range m.hub.clients {
		if keep(client) {
			matched = append(matched, client)
		}
	}
	return matched
}

func (m *Manager) sendToClients(clients []*Client, message Message) int {
	log := m.log.Function("sendToClients")

	sent := 0
	for _, client := range clients {
		if client.deliver(message) {
			sent++
			continue
		}
		log.Warn("Client send channel full, dropping message", "clientID", client.ID, "type", message.Type)
	}
	return sent
}

// BroadcastToSubscribers sends message to every authenticated client subscribed
// to channel that may still watch it
func (m *Manager) BroadcastToSubscribers(channel events.Channel, message Message) int {
	return m.sendToClients(m.clientsWhere(func(c *Client) bool {
		return c.authenticated() && c.subscribed(channel) && c.canWatch(channel)
	}), message)
}

func (m *Manager) BroadcastToAuthenticated(message Message) int {
	return m.sendToClients(m.clientsWhere((*Client).authenticated), message)
}

func (m *Manager) SendMessageToUser(userID uuid.UUID, message Message) int {
	return m.sendToClients(m.clientsWhere(func(c *Client) bool {
		return c.authenticated() && c.userID() == userID
	}), message)
}

func (m *Manager) ClientCount() int {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()
	return len(m.hub.clients)
}
