package usecase

import (
	"context"
	"fmt"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// ListConversationsInput identifies the viewer whose conversation list is
// requested; the unread flag on each entry is relative to that viewer.
type ListConversationsInput struct {
	ViewerID   string
	ViewerRole chat.Role
}

// ListConversationsUseCase returns the viewer's threads ordered by most
// recent activity, each annotated with its last-message snapshot and
// viewer-relative unread flag.
type ListConversationsUseCase struct {
	Repo repository.ChatRepository
}

func NewListConversationsUseCase(repo repository.ChatRepository) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]chat.Conversation, error) {
	if in.ViewerID == "" {
		return nil, fmt.Errorf("%w: viewerId is required", ErrValidation)
	}
	if !in.ViewerRole.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrValidation, chat.ErrInvalidRole)
	}
	convs, err := uc.Repo.ListConversationsForUser(ctx, in.ViewerID, in.ViewerRole)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return convs, nil
}
