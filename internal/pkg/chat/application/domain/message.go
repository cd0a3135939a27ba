package chat

import (
	"errors"
	"strings"
	"time"
)

// Role identifies which side of a conversation authored a message.
// The model is deliberately two-party: a conversation always joins one
// customer identity and one vendor identity, and authorship is tracked at
// that granularity rather than per account.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// Valid reports whether r is one of the two supported roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

// Other returns the opposite side of the conversation.
func (r Role) Other() Role {
	if r == RoleCustomer {
		return RoleVendor
	}
	return RoleCustomer
}

// Message is an immutable log entry in a conversation. Once persisted only
// IsRead may change, and only from false to true.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderRole     Role      `db:"sender_role" json:"senderRole"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	IsRead         bool      `db:"is_read" json:"isRead"`
}

// NewMessage validates and normalizes a message before persistence.
// The store assigns ID and may override CreatedAt with its own clock.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" {
		return nil, ErrInvalidConversation
	}
	if !m.SenderRole.Valid() {
		return nil, ErrInvalidRole
	}

	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return nil, ErrEmptyMessage
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.IsRead = false

	return &m, nil
}

// UnreadFor reports whether the message counts as unread for a viewer with
// the given role: it must come from the other side and still be unread.
func (m Message) UnreadFor(viewer Role) bool {
	return m.SenderRole != viewer && !m.IsRead
}

// Domain-level errors for chat behaviors.
var (
	ErrInvalidConversation = errors.New("chat: conversation id is required")
	ErrInvalidRole         = errors.New("chat: sender role must be customer or vendor")
	ErrEmptyMessage        = errors.New("chat: message content is empty")
)
