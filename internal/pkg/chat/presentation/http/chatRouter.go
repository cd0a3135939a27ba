package http

import (
	"github.com/gin-gonic/gin"

	cacheport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/cache/port"
	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/usecase"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/presentation/controller"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// RegisterRoutes mounts the chat endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(
	g *gin.RouterGroup,
	repo repository.ChatRepository,
	registry *realtime.Registry,
	presence *realtime.Presence,
	queue qport.Client,
	cache cacheport.Cache,
) {
	unreadUC := usecase.NewUnreadCountUseCase(repo, cache)

	listCtl := controller.NewListConversationsController(repo)
	getMsgCtl := controller.NewGetMessageController(repo)
	sendCtl := controller.NewSendMessageController(repo, registry, queue, unreadUC)
	markReadCtl := controller.NewMarkReadController(repo, registry, unreadUC)
	unreadCtl := controller.NewUnreadCountController(unreadUC)
	socketCtl := controller.NewChatSocketController(repo, registry, presence, queue, unreadUC)

	// GET /api/v1/chat/conversations -> the viewer's conversation list
	g.GET("/chat/conversations", listCtl.Handle())

	// GET /api/v1/chat/conversation/:conversationId/messages -> message log
	g.GET("/chat/conversation/:conversationId/messages", getMsgCtl.Handle())

	// POST /api/v1/chat/conversation/:conversationId/read -> mark-read fallback
	g.POST("/chat/conversation/:conversationId/read", markReadCtl.Handle())

	// POST /api/v1/chat/messages -> HTTP send fallback
	g.POST("/chat/messages", sendCtl.Handle())

	// GET /api/v1/chat/unread-count -> unread badge counter
	g.GET("/chat/unread-count", unreadCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for the live channel
	g.GET("/chat/ws", socketCtl.Handle())
}
