package chat

import "time"

// Conversation is the durable thread between one customer and one vendor.
// It is created lazily on the first send between a pair and never deleted.
//
// LastMessage/LastMessageAt are a denormalized snapshot of the most recent
// message, kept so conversation lists render without joining the message log.
// Unread is viewer-relative and only populated when listing for a viewer.
type Conversation struct {
	ID            string    `db:"id" json:"id"`
	CustomerID    string    `db:"customer_id" json:"customerId"`
	VendorID      string    `db:"vendor_id" json:"vendorId"`
	LastMessage   string    `db:"last_message" json:"lastMessage"`
	LastMessageAt time.Time `db:"last_message_at" json:"lastMessageAt"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	Unread        bool      `db:"-" json:"unread"`
}

// PeerOf returns the counterpart identity for a viewer with the given role.
func (c Conversation) PeerOf(viewer Role) string {
	if viewer == RoleCustomer {
		return c.VendorID
	}
	return c.CustomerID
}

// Touch advances the last-message snapshot. The snapshot is monotonic: a
// message older than the current snapshot leaves it untouched, so replayed
// or out-of-order persistence callbacks cannot move the thread backwards
// in the conversation list.
func (c *Conversation) Touch(m Message) {
	if m.CreatedAt.Before(c.LastMessageAt) {
		return
	}
	c.LastMessage = m.Content
	c.LastMessageAt = m.CreatedAt
}
