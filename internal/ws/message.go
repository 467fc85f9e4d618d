package ws

import "time"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// Client to Server messages.
	MessageTypePing MessageType = "ping" // Client checks the connection
	MessageTypeRead MessageType = "read" // Client marks a notification as seen

	// Server to Client messages.
	MessageTypePong         MessageType = "pong"         // Server answers a ping
	MessageTypeNotification MessageType = "notification" // Server pushes an expiration alert
	MessageTypeError        MessageType = "error"        // Server reports an error
	MessageTypeReset        MessageType = "reset"        // Server reloaded the data set
)

// Message is the envelope for all WebSocket communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// NotificationPayload is an expiration alert for one document.
type NotificationPayload struct {
	ID                  string     `json:"id"`
	DocumentID          string     `json:"documentId"`
	DocumentName        string     `json:"documentName"`
	Message             string     `json:"message"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	DaysUntilExpiration int        `json:"daysUntilExpiration"`
	SentAt              time.Time  `json:"sentAt"`
}

// ReadPayload names the notification a client has seen.
type ReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// ErrorPayload reports an error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInternalError  = "internal_error"
)
