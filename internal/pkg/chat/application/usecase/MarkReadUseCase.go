package usecase

import (
	"context"
	"fmt"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// MarkReadInput identifies the conversation being read and the viewer doing
// the reading; messages authored by the viewer's own role are untouched.
type MarkReadInput struct {
	ConversationID string
	ViewerRole     chat.Role
}

// MarkReadUseCase flips the unread messages of a conversation to read.
// Idempotent by construction: re-running on an already-read conversation
// changes zero rows, and callers use the returned count to decide whether a
// read-receipt broadcast has any observable effect. Both the HTTP path and
// the live-channel path run this, and they are safe to run redundantly.
type MarkReadUseCase struct {
	Repo repository.ChatRepository
}

func NewMarkReadUseCase(repo repository.ChatRepository) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo}
}

// Execute returns the number of messages that actually transitioned to read.
func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (int64, error) {
	if in.ConversationID == "" {
		return 0, fmt.Errorf("%w: conversationId is required", ErrValidation)
	}
	if !in.ViewerRole.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrValidation, chat.ErrInvalidRole)
	}
	changed, err := uc.Repo.MarkMessagesRead(ctx, in.ConversationID, in.ViewerRole)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return changed, nil
}
