package websockets

import (
	"context"
	"time"

	"labventory/internal/authz"
	"labventory/internal/events"

	"github.com/google/uuid"
)

const SNAPSHOT_TIMEOUT = 10 * time.Second

// collectionPermissions is the permission a client needs to watch each collection
var collectionPermissions = map[events.Channel]authz.Permission{
	events.EQUIPMENT_CHANNEL:   authz.EquipmentRead,
	events.CHEMICALS_CHANNEL:   authz.ChemicalRead,
	events.CHECKINOUT_CHANNEL:  authz.CheckInOutRead,
	events.MAINTENANCE_CHANNEL: authz.MaintenanceRead,
	events.USERS_CHANNEL:       authz.UsersManage,
}

func (c *Client) subscribed(channel events.Channel) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[channel]
}

func (c *Client) setSubscribed(channel events.Channel, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if on {
		c.subscriptions[channel] = true
	} else {
		delete(c.subscriptions, channel)
	}
}

func (c *Client) canWatch(channel events.Channel) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return authz.HasPermission(c.User, collectionPermissions[channel])
}

// handleSubscribe registers interest in a collection and answers with a snapshot.
// The subscription is recorded before the snapshot loads so no change in
// between is missed.
func (c *Client) handleSubscribe(message Message) {
	log := c.Manager.log.Function("handleSubscribe")

	channel, ok := events.ParseCollection(message.Collection)
	if !ok {
		c.sendError("unknown collection", message.Collection)
		return
	}

	if !c.refreshUser() {
		return
	}

	if !c.canWatch(channel) {
		log.Info("Subscription denied", "clientID", c.ID, "collection", channel)
		c.sendError("permission denied", message.Collection)
		return
	}

	c.setSubscribed(channel, true)

	ctx, cancel := context.WithTimeout(context.Background(), SNAPSHOT_TIMEOUT)
	defer cancel()

	records, err := c.Manager.snapshots.Snapshot(ctx, channel)
	if err != nil {
		log.Er("failed to load snapshot", err, "clientID", c.ID, "collection", channel)
		c.setSubscribed(channel, false)
		c.sendError("failed to load snapshot", message.Collection)
		return
	}

	snapshot := newMessage(MESSAGE_TYPE_SNAPSHOT)
	snapshot.Collection = channel.String()
	snapshot.Data = map[string]any{"records": records}
	if !c.deliver(snapshot) {
		log.Warn("Snapshot dropped", "clientID", c.ID, "collection", channel)
	}

	log.Info("Client subscribed", "clientID", c.ID, "collection", channel)
}

func (c *Client) handleUnsubscribe(message Message) {
	channel, ok := events.ParseCollection(message.Collection)
	if !ok {
		c.sendError("unknown collection", message.Collection)
		return
	}

	c.setSubscribed(channel, false)

	reply := newMessage(MESSAGE_TYPE_UNSUBSCRIBED)
	reply.Collection = channel.String()
	c.deliver(reply)
}

// subscribeToEvents forwards collection changes to subscribers and alerts to
// every authenticated client
func (m *Manager) subscribeToEvents() error {
	log := m.log.Function("subscribeToEvents")

	for _, channel := range events.CollectionChannels {
		if err := m.eventBus.Subscribe(channel, func(event events.Event) error {
			m.forwardChange(channel, event)
			return nil
		}); err != nil {
			return log.Err("failed to subscribe to collection events", err, "channel", channel)
		}
	}

	if err := m.eventBus.Subscribe(events.ALERTS_CHANNEL, func(event events.Event) error {
		m.forwardAlert(event)
		return nil
	}); err != nil {
		return log.Err("failed to subscribe to alerts", err)
	}

	return nil
}

func (m *Manager) forwardChange(channel events.Channel, event events.Event) {
	if channel == events.USERS_CHANNEL {
		m.refreshChangedUser(event)
	}

	change := newMessage(MESSAGE_TYPE_CHANGE)
	change.Collection = channel.String()
	change.Action = string(event.Type)
	change.Data = map[string]any{
		"eventId": event.ID,
		"id":      event.Data["id"],
		"record":  event.Data["record"],
	}
	if event.UserID != nil {
		change.UserID = event.UserID.String()
	}

	sent := m.BroadcastToSubscribers(channel, change)
	m.log.Function("forwardChange").Debug(
		"Change forwarded",
		"collection", channel,
		"eventID", event.ID,
		"clients", sent,
	)
}

// refreshChangedUser reloads every session of the user a users event names,
// before the event itself goes out
func (m *Manager) refreshChangedUser(event events.Event) {
	id, ok := event.Data["id"].(string)
	if !ok {
		return
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return
	}

	for _, client := range m.clientsWhere(func(c *Client) bool {
		return c.authenticated() && c.userID() == userID
	}) {
		client.refreshUser()
	}
}

func (m *Manager) forwardAlert(event events.Event) {
	alert := newMessage(MESSAGE_TYPE_ALERT)
	alert.Channel = events.ALERTS_CHANNEL.String()
	alert.Action = string(event.Type)
	alert.Data = event.Data

	sent := m.BroadcastToAuthenticated(alert)
	m.log.Function("forwardAlert").Info("Alert forwarded", "eventID", event.ID, "clients", sent)
}
