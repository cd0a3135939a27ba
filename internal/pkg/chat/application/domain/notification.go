package chat

import "time"

// Notification is the in-app "new message" record written for a recipient
// after a send commits. It is produced off the request path by a background
// task; losing one is acceptable, the message itself is already durable.
type Notification struct {
	ID             int64     `db:"id"`
	RecipientID    string    `db:"recipient_id"`
	ConversationID string    `db:"conversation_id"`
	Preview        string    `db:"preview"`
	CreatedAt      time.Time `db:"created_at"`
}

const previewLimit = 50

// PreviewOf truncates message content for notification display.
func PreviewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit-3]) + "..."
}
