package websockets

import (
	"context"
	"time"

	"labventory/internal/authz"

	"github.com/google/uuid"
)

const AUTH_HANDSHAKE_TIMEOUT = 10 * time.Second

// startAuthTimeout drops clients that never answer the auth request
func (c *Client) startAuthTimeout() {
	log := c.Manager.log.Function("startAuthTimeout")

	time.AfterFunc(AUTH_HANDSHAKE_TIMEOUT, func() {
		c.mu.RLock()
		pending := c.Status == STATUS_UNAUTHENTICATED
		c.mu.RUnlock()
		if !pending {
			return
		}

		log.Warn("Client failed to authenticate within timeout, disconnecting",
			"clientID", c.ID,
			"timeout", AUTH_HANDSHAKE_TIMEOUT)
		c.sendAuthFailure("authentication_timeout", "Authentication timeout")
	})
}

func (c *Client) userID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.UserID
}

// handleAuthResponse validates the session token carried in data.token
func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	c.mu.Lock()
	if c.Status != STATUS_UNAUTHENTICATED {
		c.mu.Unlock()
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}
	c.Status = STATUS_PENDING
	c.mu.Unlock()

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		log.Warn("Invalid token in auth response", "clientID", c.ID)
		c.sendAuthFailure("authentication_failed", "Invalid token format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), AUTH_HANDSHAKE_TIMEOUT)
	defer cancel()

	user, err := c.Manager.auth.Authenticate(ctx, token)
	if err != nil {
		log.Info("WebSocket authentication failed", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("authentication_failed", "Authentication failed")
		return
	}

	c.mu.Lock()
	c.Status = STATUS_AUTHENTICATED
	c.UserID = user.ID
	c.User = user
	c.token = token
	c.mu.Unlock()

	log.Info("WebSocket client authenticated", "clientID", c.ID, "userID", user.ID, "role", user.Role)

	authSuccess := newMessage(MESSAGE_TYPE_AUTH_SUCCESS)
	authSuccess.Channel = SYSTEM_CHANNEL
	authSuccess.Action = "authenticated"
	authSuccess.UserID = user.ID.String()
	authSuccess.Data = map[string]any{
		"userId":      user.ID.String(),
		"role":        user.Role,
		"permissions": user.GrantedPermissions(),
	}
	c.deliver(authSuccess)
}

// refreshUser reloads the profile behind the session token so role changes
// reach an open socket. Subscriptions the current role no longer allows are
// dropped, and a session whose user is gone is failed.
func (c *Client) refreshUser() bool {
	log := c.Manager.log.Function("refreshUser")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), AUTH_HANDSHAKE_TIMEOUT)
	defer cancel()

	user, err := c.Manager.auth.Authenticate(ctx, token)
	if err != nil {
		log.Info("Session no longer valid", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("session_revoked", "Session is no longer valid")
		return false
	}

	c.mu.Lock()
	c.User = user
	for channel := range c.subscriptions {
		if !authz.HasPermission(user, collectionPermissions[channel]) {
			delete(c.subscriptions, channel)
			log.Info("Subscription revoked", "clientID", c.ID, "collection", channel, "role", user.Role)
		}
	}
	c.mu.Unlock()
	return true
}

func (c *Client) sendAuthFailure(action, reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	c.mu.Lock()
	if c.Status != STATUS_CLOSED {
		c.Status = STATUS_UNAUTHENTICATED
	}
	c.mu.Unlock()

	authFailure := newMessage(MESSAGE_TYPE_AUTH_FAILURE)
	authFailure.Channel = SYSTEM_CHANNEL
	authFailure.Action = action
	authFailure.Data = map[string]any{"reason": reason}
	c.deliver(authFailure)

	log.Info("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	time.AfterFunc(100*time.Millisecond, c.closeConnection)
}

func (c *Client) handleUnauthenticatedMessage(message Message) {
	c.Manager.log.Function("handleUnauthenticatedMessage").Warn(
		"Blocking message from unauthenticated client",
		"clientID", c.ID,
		"messageType", message.Type,
	)

	authFailure := newMessage(MESSAGE_TYPE_AUTH_FAILURE)
	authFailure.Channel = SYSTEM_CHANNEL
	authFailure.Action = "authentication_required"
	authFailure.Data = map[string]any{"reason": "Authentication required"}
	c.deliver(authFailure)
}
