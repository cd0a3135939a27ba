package controller

import (
	"encoding/json"

	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/wire"
)

// Fanout pushes committed events to live connections. Always a best-effort
// follow-up to a durable write: a dropped connection just fetches the state
// on its next load, so per-connection send errors are swallowed and one slow
// peer never delays the others (each connection buffers independently).
type Fanout struct {
	registry *realtime.Registry
}

func NewFanout(registry *realtime.Registry) *Fanout {
	return &Fanout{registry: registry}
}

// DeliverMessage pushes a persisted message to every connection of the
// recipient and to the sender's other sessions (multi-tab echo). The
// originating connection, if any, already got the message in its ack.
func (f *Fanout) DeliverMessage(msg chat.Message, recipientID, senderID, originConnID string) {
	frame := wire.Frame{Event: wire.EventReceiveMessage, Message: &msg}
	f.push(f.registry.ConnectionsFor(recipientID), frame, originConnID)
	if senderID != recipientID {
		f.push(f.registry.ConnectionsFor(senderID), frame, originConnID)
	}
}

// DeliverRead tells the other party's sessions that their messages in the
// conversation were read, so they flip receipt indicators without refetching.
func (f *Fanout) DeliverRead(conversationID, recipientID string) {
	frame := wire.Frame{Event: wire.EventMessagesRead, ConversationID: conversationID}
	f.push(f.registry.ConnectionsFor(recipientID), frame, "")
}

// DeliverStatus broadcasts a presence transition to everyone except the
// subject's own connections.
func (f *Fanout) DeliverStatus(userID string, online bool) {
	frame := wire.Frame{Event: wire.EventUserStatus, UserID: userID, Status: wire.StatusOf(online)}
	f.push(f.registry.AllExcept(userID), frame, "")
}

func (f *Fanout) push(conns []*realtime.Connection, frame wire.Frame, excludeConnID string) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	for _, c := range conns {
		if excludeConnID != "" && c.ID == excludeConnID {
			continue
		}
		_ = c.Send(payload)
	}
}
