package repository

import (
	"context"
	"errors"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
)

// ErrNotFound is returned by adapters when a requested conversation does not
// exist, so callers can distinguish a bad identifier from a transport failure.
var ErrNotFound = errors.New("chat repository: not found")

// ChatRepository is the durable-store contract consumed by the messaging core.
// The store exclusively owns Conversation and Message persistence; everything
// above it (presence, fan-out, client view state) treats these calls as the
// source of truth and resyncs from them after any disconnect.
type ChatRepository interface {
	// CreateOrGetConversation resolves the conversation for a (customer, vendor)
	// pair, creating it on first use. Deterministic: the same pair always yields
	// the same conversation after first creation.
	CreateOrGetConversation(ctx context.Context, customerID, vendorID string) (chat.Conversation, error)

	// GetConversation fetches a conversation by id.
	GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error)

	// AppendMessage persists m, letting the store assign the id (monotonic per
	// conversation) and timestamp, and advances the owning conversation's
	// last-message snapshot in the same transaction. Returns the stored message.
	AppendMessage(ctx context.Context, m chat.Message) (chat.Message, error)

	// GetMessagesByConversation returns the conversation's message log ascending by id.
	GetMessagesByConversation(ctx context.Context, conversationID string) ([]chat.Message, error)

	// MarkMessagesRead flips is_read on every unread message in the conversation
	// not authored by the viewer's role. Idempotent; returns how many messages
	// actually changed.
	MarkMessagesRead(ctx context.Context, conversationID string, viewer chat.Role) (int64, error)

	// ListConversationsForUser returns the viewer's conversations descending by
	// last activity, each with the viewer-relative Unread flag populated.
	ListConversationsForUser(ctx context.Context, viewerID string, viewer chat.Role) ([]chat.Conversation, error)

	// CountUnread returns the total number of unread messages addressed to the
	// viewer across all of their conversations.
	CountUnread(ctx context.Context, viewerID string, viewer chat.Role) (int64, error)

	// SaveNotification records an in-app notification for a recipient.
	SaveNotification(ctx context.Context, n chat.Notification) error
}
