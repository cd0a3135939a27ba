package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/realtime"
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/task"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/usecase"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/wire"
)

// ChatSocketController owns the live-channel endpoint: one websocket per
// client session, registered for presence and fan-out for as long as it lives.
type ChatSocketController struct {
	registry *realtime.Registry
	presence *realtime.Presence
	fanout   *Fanout
	queue    qport.Client // nil when the queue is unavailable; notifications are skipped

	sendUC     *usecase.SendMessageUseCase
	markReadUC *usecase.MarkReadUseCase
	unreadUC   *usecase.UnreadCountUseCase

	inflightTimeout time.Duration
}

func NewChatSocketController(
	repo repository.ChatRepository,
	registry *realtime.Registry,
	presence *realtime.Presence,
	queue qport.Client,
	unreadUC *usecase.UnreadCountUseCase,
) *ChatSocketController {
	ctl := &ChatSocketController{
		registry:        registry,
		presence:        presence,
		fanout:          NewFanout(registry),
		queue:           queue,
		sendUC:          usecase.NewSendMessageUseCase(repo),
		markReadUC:      usecase.NewMarkReadUseCase(repo),
		unreadUC:        unreadUC,
		inflightTimeout: 5 * time.Second,
	}
	// Presence transitions go out through the same fan-out as everything else.
	presence.SetNotify(ctl.fanout.DeliverStatus)
	return ctl
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades the HTTP connection and processes frames until the client
// disconnects. Identity is opaque and pre-validated upstream; the endpoint
// only requires it to be present.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		role := chat.Role(c.Query("role"))
		if userID == "" || !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and role (customer|vendor) are required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; nothing more to do.
			return
		}

		conn := realtime.NewConnection(userID, string(role), ws)
		conn.Start()
		ctl.registry.Register(conn)
		defer func() {
			// The only unregister call site: covers normal closes and drops alike.
			ctl.registry.Unregister(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.reply(conn, wire.Frame{Event: wire.EventConnected})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			var frame wire.Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, 0, wire.CodeBadRequest, "invalid payload")
				continue
			}

			switch frame.Event {
			case wire.EventSendMessage:
				ctl.handleSend(c, conn, role, frame)
			case wire.EventMarkAsRead:
				ctl.handleMarkRead(c, conn, role, frame)
			case wire.EventCheckUserStatus:
				ctl.handleCheckStatus(conn, frame)
			default:
				ctl.replyError(conn, frame.Seq, wire.CodeBadRequest, "unknown event")
			}
		}
	}
}

// handleSend persists the message and acks the caller with the stored copy.
// Fan-out targets are looked up only after the write commits; a persistence
// failure aborts the whole operation with no partial state.
func (ctl *ChatSocketController) handleSend(c *gin.Context, conn *realtime.Connection, role chat.Role, frame wire.Frame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	out, err := ctl.sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       conn.UserID,
		SenderRole:     role,
		RecipientID:    frame.RecipientID,
		Content:        frame.Content,
	})
	if err != nil {
		ctl.replyError(conn, frame.Seq, codeOf(err), err.Error())
		return
	}

	// Synchronous ack carries the persisted message; the client treats a
	// missing ack as an uncertain outcome and offers a manual retry.
	ctl.reply(conn, wire.Frame{
		Event:          wire.EventAck,
		Seq:            frame.Seq,
		OK:             true,
		ConversationID: out.Conversation.ID,
		Message:        &out.Message,
	})

	ctl.fanout.DeliverMessage(out.Message, out.RecipientID, conn.UserID, conn.ID)
	ctl.unreadUC.Invalidate(ctx, out.RecipientID)

	if ctl.queue != nil {
		_ = task.EnqueueNewMessage(ctx, ctl.queue, task.NewMessageTaskPayload{
			RecipientID:    out.RecipientID,
			ConversationID: out.Conversation.ID,
			Preview:        chat.PreviewOf(out.Message.Content),
		})
	}
}

// handleMarkRead runs the read-receipt synchronizer for the live path. The
// broadcast only goes out when rows actually changed, which makes redundant
// invocations observable no-ops.
func (ctl *ChatSocketController) handleMarkRead(c *gin.Context, conn *realtime.Connection, role chat.Role, frame wire.Frame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	changed, err := ctl.markReadUC.Execute(ctx, usecase.MarkReadInput{
		ConversationID: frame.ConversationID,
		ViewerRole:     role,
	})
	if err != nil {
		ctl.replyError(conn, frame.Seq, codeOf(err), err.Error())
		return
	}

	ctl.unreadUC.Invalidate(ctx, conn.UserID)

	if changed > 0 && frame.RecipientID != "" {
		ctl.fanout.DeliverRead(frame.ConversationID, frame.RecipientID)
	}
}

// handleCheckStatus answers a synchronous status request. Clients call this
// on connect to seed their presence view, closing the race against
// broadcasts emitted before they subscribed.
func (ctl *ChatSocketController) handleCheckStatus(conn *realtime.Connection, frame wire.Frame) {
	if frame.UserID == "" {
		ctl.replyError(conn, frame.Seq, wire.CodeBadRequest, "userId is required")
		return
	}
	ctl.reply(conn, wire.Frame{
		Event:  wire.EventUserStatus,
		Seq:    frame.Seq,
		UserID: frame.UserID,
		Status: wire.StatusOf(ctl.presence.IsOnline(frame.UserID)),
	})
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, frame wire.Frame) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, seq int64, code, message string) {
	event := wire.EventError
	if seq != 0 {
		event = wire.EventAck
	}
	ctl.reply(conn, wire.Frame{Event: event, Seq: seq, OK: false, Code: code, Error: message})
}

// codeOf maps use case errors onto wire error codes.
func codeOf(err error) string {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return wire.CodeValidation
	case errors.Is(err, usecase.ErrNotFound):
		return wire.CodeNotFound
	case errors.Is(err, usecase.ErrPersistence):
		return wire.CodePersistence
	default:
		return wire.CodeBadRequest
	}
}
