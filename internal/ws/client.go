package ws

import (
	"encoding/json"
	"sync"
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Client represents one connected browser tab of a user.
type Client struct {
	ID     string
	UserID string
	conn   Conn

	mu sync.Mutex
}

// NewClient creates a new client wrapper.
func NewClient(id, userID string, conn Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
	}
}

// Send sends a message to the client.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteJSON(msg)
}

// SendError sends an error message to the client.
func (c *Client) SendError(code, message string) error {
	return c.Send(Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Receive reads a message from the client.
func (c *Client) Receive() (Message, error) {
	var raw struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := c.conn.ReadJSON(&raw); err != nil {
		return Message{}, err
	}

	msg := Message{Type: raw.Type}

	switch raw.Type {
	case MessageTypeRead:
		var payload ReadPayload
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return Message{}, err
		}

		msg.Payload = payload
	case MessageTypePing:
		// No payload.
	case MessageTypePong, MessageTypeNotification, MessageTypeError, MessageTypeReset:
		// Server-to-client messages - keep raw payload
		msg.Payload = raw.Payload
	}

	return msg, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Serve answers the client's messages until the connection fails.
// onRead is called for every notification the client marks as seen.
func (c *Client) Serve(onRead func(userID, notificationID string)) {
	for {
		msg, err := c.Receive()
		if err != nil {
			return
		}

		switch msg.Type {
		case MessageTypePing:
			_ = c.Send(Message{Type: MessageTypePong})
		case MessageTypeRead:
			payload, ok := msg.Payload.(ReadPayload)
			if !ok || payload.NotificationID == "" {
				_ = c.SendError(ErrorCodeInvalidMessage, "notificationId is required")

				continue
			}

			if onRead != nil {
				onRead(c.UserID, payload.NotificationID)
			}
		case MessageTypePong, MessageTypeNotification, MessageTypeError, MessageTypeReset:
			_ = c.SendError(ErrorCodeInvalidMessage, "unexpected message type")
		default:
			_ = c.SendError(ErrorCodeInvalidMessage, "unknown message type")
		}
	}
}
