package usecase

import (
	"context"
	"fmt"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch a conversation's message log.
type GetMessageInput struct {
	ConversationID string
}

// GetMessageUseCase fetches the full message log of a conversation, ascending
// by id, for initial page load and post-reconnect resync.
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversationId is required", ErrValidation)
	}
	msgs, err := uc.Repo.GetMessagesByConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
