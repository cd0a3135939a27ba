package task

import (
	"context"
	"encoding/json"
	"time"

	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// NewMessageTaskType is the queue task written after every committed send.
// The handler records an in-app notification for the recipient; it runs off
// the request path so a slow notification store never delays the send ack.
const NewMessageTaskType = "chat:new_message"

// NewMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type NewMessageTaskPayload struct {
	RecipientID    string `json:"recipientId"`
	ConversationID string `json:"conversationId"`
	Preview        string `json:"preview"`
}

// EnqueueNewMessage submits the notification task; best-effort from the
// caller's point of view (the message itself is already durable).
func EnqueueNewMessage(ctx context.Context, q qport.Client, p NewMessageTaskPayload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = q.Enqueue(ctx, qport.Task{Type: NewMessageTaskType, Payload: b},
		qport.EnqueueOption{Queue: "chat", MaxRetry: 5})
	return err
}

// RegisterNewMessageTask binds the task handler to the worker server.
func RegisterNewMessageTask(srv qport.Server, repo repository.ChatRepository) {
	srv.Register(NewMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p NewMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying cannot help
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		return repo.SaveNotification(ctx, chat.Notification{
			RecipientID:    p.RecipientID,
			ConversationID: p.ConversationID,
			Preview:        p.Preview,
		})
	})
}
