package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries a send request. ConversationID may be empty on
// first contact, in which case RecipientID (the peer's identity) is required
// so the conversation can be resolved or created for the pair.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	SenderRole     chat.Role
	RecipientID    string
	Content        string
}

// SendMessageOutput is returned synchronously to the caller as the send
// acknowledgment: the persisted message plus enough routing context for
// fan-out and notification.
type SendMessageOutput struct {
	Message      chat.Message
	Conversation chat.Conversation
	RecipientID  string
}

// SendMessageUseCase persists a message and resolves its delivery targets.
// Fan-out to live connections is the caller's follow-up, never a prerequisite:
// once this returns successfully the message is durable regardless of who is
// connected.
type SendMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewSendMessageUseCase(repo repository.ChatRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo}
}

// Execute validates, resolves the conversation, and persists the message.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if in.SenderID == "" {
		return nil, fmt.Errorf("%w: senderId is required", ErrValidation)
	}
	if !in.SenderRole.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrValidation, chat.ErrInvalidRole)
	}

	conv, err := uc.resolveConversation(ctx, in)
	if err != nil {
		return nil, err
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID: conv.ID,
		SenderRole:     in.SenderRole,
		Content:        in.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	stored, err := uc.Repo.AppendMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	conv.Touch(stored)

	return &SendMessageOutput{
		Message:      stored,
		Conversation: conv,
		RecipientID:  conv.PeerOf(in.SenderRole),
	}, nil
}

func (uc *SendMessageUseCase) resolveConversation(ctx context.Context, in SendMessageInput) (chat.Conversation, error) {
	if in.ConversationID != "" {
		conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
		if errors.Is(err, repository.ErrNotFound) {
			return chat.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, in.ConversationID)
		}
		if err != nil {
			return chat.Conversation{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return conv, nil
	}

	// First contact between the pair: lazily create the thread.
	if in.RecipientID == "" {
		return chat.Conversation{}, fmt.Errorf("%w: recipientId is required when conversationId is empty", ErrValidation)
	}
	customerID, vendorID := in.SenderID, in.RecipientID
	if in.SenderRole == chat.RoleVendor {
		customerID, vendorID = in.RecipientID, in.SenderID
	}
	conv, err := uc.Repo.CreateOrGetConversation(ctx, customerID, vendorID)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conv, nil
}
