package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/task"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/usecase"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// SendMessageController is the HTTP fallback send path, used by clients whose
// live channel is down. Same use case and same fan-out as the socket path, so
// connected peers still get the push even when the sender is offline-ish.
type SendMessageController struct {
	UC       *usecase.SendMessageUseCase
	fanout   *Fanout
	queue    qport.Client
	unreadUC *usecase.UnreadCountUseCase
}

func NewSendMessageController(repo repository.ChatRepository, registry *realtime.Registry, queue qport.Client, unreadUC *usecase.UnreadCountUseCase) *SendMessageController {
	return &SendMessageController{
		UC:       usecase.NewSendMessageUseCase(repo),
		fanout:   NewFanout(registry),
		queue:    queue,
		unreadUC: unreadUC,
	}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content" binding:"required"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		senderID, role, ok := viewerFrom(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: req.ConversationID,
			SenderID:       senderID,
			SenderRole:     role,
			RecipientID:    req.RecipientID,
			Content:        req.Content,
		})
		if err != nil {
			status := http.StatusBadRequest
			switch {
			case errors.Is(err, usecase.ErrPersistence):
				status = http.StatusInternalServerError
			case errors.Is(err, usecase.ErrNotFound):
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		// No originating socket connection to exclude on this path.
		h.fanout.DeliverMessage(out.Message, out.RecipientID, senderID, "")
		h.unreadUC.Invalidate(ctx, out.RecipientID)

		if h.queue != nil {
			_ = task.EnqueueNewMessage(ctx, h.queue, task.NewMessageTaskPayload{
				RecipientID:    out.RecipientID,
				ConversationID: out.Conversation.ID,
				Preview:        chat.PreviewOf(out.Message.Content),
			})
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":         out.Message,
			"conversation_id": out.Conversation.ID,
			"recipient_id":    out.RecipientID,
		})
	}
}
