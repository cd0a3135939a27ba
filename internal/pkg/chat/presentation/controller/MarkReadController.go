package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/usecase"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// MarkReadController is the HTTP half of the read-receipt synchronizer. It
// covers the window where a conversation is opened before the live channel
// connects; the socket path covers the rest, and both are safe to run
// redundantly.
type MarkReadController struct {
	UC       *usecase.MarkReadUseCase
	fanout   *Fanout
	unreadUC *usecase.UnreadCountUseCase
}

func NewMarkReadController(repo repository.ChatRepository, registry *realtime.Registry, unreadUC *usecase.UnreadCountUseCase) *MarkReadController {
	return &MarkReadController{
		UC:       usecase.NewMarkReadUseCase(repo),
		fanout:   NewFanout(registry),
		unreadUC: unreadUC,
	}
}

// markReadRequest optionally names the peer whose sessions should see the
// receipt update immediately.
type markReadRequest struct {
	RecipientID string `json:"recipient_id"`
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}
		viewerID, role, ok := viewerFrom(c)
		if !ok {
			return
		}

		var req markReadRequest
		_ = c.ShouldBindJSON(&req) // body is optional

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		changed, err := h.UC.Execute(ctx, usecase.MarkReadInput{ConversationID: conversationID, ViewerRole: role})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		h.unreadUC.Invalidate(ctx, viewerID)
		if changed > 0 && req.RecipientID != "" {
			h.fanout.DeliverRead(conversationID, req.RecipientID)
		}

		c.JSON(http.StatusOK, gin.H{"marked": changed})
	}
}
