package adapter

import (
	"context"
	"errors"
	"time"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

// Ensure interface compliance at compile time
var _ repository.ChatRepository = (*PgChatRepository)(nil)

func (r *PgChatRepository) CreateOrGetConversation(ctx context.Context, customerID, vendorID string) (chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return chat.Conversation{}, errors.New("PgChatRepository: nil pool")
	}
	var c chat.Conversation
	// Upsert on the pair so concurrent first sends converge on one row.
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat.conversation (customer_id, vendor_id, created_at, last_message_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (customer_id, vendor_id)
		DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING id::text, customer_id, vendor_id, last_message, last_message_at, created_at
	`, customerID, vendorID).Scan(&c.ID, &c.CustomerID, &c.VendorID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt)
	return c, err
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return chat.Conversation{}, errors.New("PgChatRepository: nil pool")
	}
	var c chat.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, customer_id, vendor_id, last_message, last_message_at, created_at
		FROM chat.conversation
		WHERE id = $1::uuid
	`, conversationID).Scan(&c.ID, &c.CustomerID, &c.VendorID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Conversation{}, repository.ErrNotFound
	}
	return c, err
}

func (r *PgChatRepository) AppendMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if r == nil || r.pool == nil {
		return chat.Message{}, errors.New("PgChatRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return chat.Message{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_role, content, created_at, is_read)
		VALUES ($1::uuid, $2, $3, now(), false)
		RETURNING id, created_at
	`, m.ConversationID, m.SenderRole, m.Content).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return chat.Message{}, err
	}
	m.IsRead = false

	// Snapshot update rides the same transaction: a committed message is never
	// missing from its conversation's last-message preview.
	_, err = tx.Exec(ctx, `
		UPDATE chat.conversation
		SET last_message = $2, last_message_at = $3
		WHERE id = $1::uuid
	`, m.ConversationID, m.Content, m.CreatedAt)
	if err != nil {
		return chat.Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return chat.Message{}, err
	}
	return m, nil
}

func (r *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id::text, sender_role, content, created_at, is_read
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderRole, &m.Content, &m.CreatedAt, &m.IsRead); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgChatRepository) MarkMessagesRead(ctx context.Context, conversationID string, viewer chat.Role) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message
		SET is_read = true
		WHERE conversation_id = $1::uuid AND sender_role <> $2 AND is_read = false
	`, conversationID, viewer)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgChatRepository) ListConversationsForUser(ctx context.Context, viewerID string, viewer chat.Role) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}

	participantColumn := "customer_id"
	if viewer == chat.RoleVendor {
		participantColumn = "vendor_id"
	}

	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text, c.customer_id, c.vendor_id, c.last_message, c.last_message_at, c.created_at,
		       EXISTS (
		           SELECT 1 FROM chat.message m
		           WHERE m.conversation_id = c.id AND m.sender_role <> $2 AND m.is_read = false
		       ) AS unread
		FROM chat.conversation c
		WHERE c.`+participantColumn+` = $1
		ORDER BY c.last_message_at DESC
	`, viewerID, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.VendorID, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.Unread); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *PgChatRepository) CountUnread(ctx context.Context, viewerID string, viewer chat.Role) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgChatRepository: nil pool")
	}

	participantColumn := "customer_id"
	if viewer == chat.RoleVendor {
		participantColumn = "vendor_id"
	}

	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM chat.message m
		JOIN chat.conversation c ON c.id = m.conversation_id
		WHERE c.`+participantColumn+` = $1 AND m.sender_role <> $2 AND m.is_read = false
	`, viewerID, viewer).Scan(&count)
	return count, err
}

func (r *PgChatRepository) SaveNotification(ctx context.Context, n chat.Notification) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat.notification (recipient_id, conversation_id, preview, created_at)
		VALUES ($1, $2::uuid, $3, $4)
	`, n.RecipientID, n.ConversationID, n.Preview, createdAt)
	return err
}
