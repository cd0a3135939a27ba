package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	cacheport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/cache/port"
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

const (
	unreadKeyPrefix = "chat:unread:"
	unreadCacheTTL  = 30 * time.Second
)

// UnreadCountInput identifies the viewer whose unread total is requested.
type UnreadCountInput struct {
	ViewerID   string
	ViewerRole chat.Role
}

// UnreadCountUseCase serves the badge counter shown in the storefront header.
// It reads through an optional cache: the count is polled far more often than
// it changes, and a 30s staleness window is invisible next to the explicit
// invalidation on every send and mark-read.
type UnreadCountUseCase struct {
	Repo  repository.ChatRepository
	Cache cacheport.Cache // nil disables caching
}

func NewUnreadCountUseCase(repo repository.ChatRepository, cache cacheport.Cache) *UnreadCountUseCase {
	return &UnreadCountUseCase{Repo: repo, Cache: cache}
}

func (uc *UnreadCountUseCase) Execute(ctx context.Context, in UnreadCountInput) (int64, error) {
	if in.ViewerID == "" {
		return 0, fmt.Errorf("%w: viewerId is required", ErrValidation)
	}
	if !in.ViewerRole.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrValidation, chat.ErrInvalidRole)
	}

	key := unreadKeyPrefix + in.ViewerID
	if uc.Cache != nil {
		if v, err := uc.Cache.Get(ctx, key); err == nil {
			if n, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				return n, nil
			}
		} else if !errors.Is(err, cacheport.ErrMiss) {
			// Cache transport trouble: fall through to the store.
			_ = err
		}
	}

	count, err := uc.Repo.CountUnread(ctx, in.ViewerID, in.ViewerRole)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Cache != nil {
		_ = uc.Cache.Set(ctx, key, strconv.FormatInt(count, 10), unreadCacheTTL)
	}
	return count, nil
}

// Invalidate drops the cached count for a viewer. Called after any event
// that changes their unread set; best-effort, the TTL bounds staleness anyway.
func (uc *UnreadCountUseCase) Invalidate(ctx context.Context, viewerID string) {
	if uc.Cache == nil || viewerID == "" {
		return
	}
	_, _ = uc.Cache.Del(ctx, unreadKeyPrefix+viewerID)
}
