// Package wire defines the JSON frames exchanged over the live channel.
// Both the server gateway and the Go client session speak this schema.
package wire

import (
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
)

// Event names. Client-to-server events carry a client-assigned Seq when the
// caller expects a correlated response; server pushes use Seq 0.
const (
	// client -> server
	EventSendMessage     = "sendMessage"
	EventMarkAsRead      = "markAsRead"
	EventCheckUserStatus = "checkUserStatus"

	// server -> client
	EventConnected      = "connected"
	EventAck            = "ack"
	EventReceiveMessage = "receiveMessage"
	EventMessagesRead   = "messagesRead"
	EventUserStatus     = "userStatus"
	EventError          = "error"
)

// Presence status values carried by userStatus frames.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Error codes carried by failed acks and error frames.
const (
	CodeBadRequest  = "bad_request"
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodePersistence = "persistence_error"
)

// Frame is the single envelope for every event on the channel. Fields are
// populated per event; unused ones are omitted from the JSON.
type Frame struct {
	Event string `json:"event"`
	Seq   int64  `json:"seq,omitempty"`

	// sendMessage / markAsRead
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
	RecipientID    string `json:"recipientId,omitempty"`

	// checkUserStatus request and userStatus response/broadcast
	UserID string `json:"userId,omitempty"`
	Status string `json:"status,omitempty"`

	// receiveMessage push and successful send acks
	Message *chat.Message `json:"message,omitempty"`

	// ack outcome
	OK    bool   `json:"ok,omitempty"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// StatusOf maps an online flag to its wire value.
func StatusOf(online bool) string {
	if online {
		return StatusOnline
	}
	return StatusOffline
}
