package v1

import (
	"github.com/gin-gonic/gin"

	cacheport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/cache/port"
	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	httpHandler "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/presentation/http"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(
	r *gin.Engine,
	repo repository.ChatRepository,
	registry *realtime.Registry,
	presence *realtime.Presence,
	queue qport.Client,
	cache cacheport.Cache,
) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, repo, registry, presence, queue, cache)
}
