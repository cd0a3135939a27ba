package client

import chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"

// MessageGroup is a run of consecutive messages from the same sender. The
// timestamp and read indicator are rendered once per group, after its last
// message. Display-only: the data model is untouched.
type MessageGroup struct {
	SenderRole chat.Role
	Messages   []chat.Message
}

// Last returns the message whose timestamp and receipt the group displays.
func (g MessageGroup) Last() chat.Message {
	return g.Messages[len(g.Messages)-1]
}

// GroupBySender splits an ordered message list into same-sender runs,
// preserving send order within and across groups.
func GroupBySender(msgs []chat.Message) []MessageGroup {
	var groups []MessageGroup
	for _, m := range msgs {
		if n := len(groups); n > 0 && groups[n-1].SenderRole == m.SenderRole {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, MessageGroup{SenderRole: m.SenderRole, Messages: []chat.Message{m}})
	}
	return groups
}
