package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/wire"
)

// newWSServer runs handler for every websocket connection and returns the
// ws:// URL to dial.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startSession(t *testing.T, url string, cfg Config, h Handlers) *Session {
	t.Helper()
	cfg.URL = url
	if cfg.UserID == "" {
		cfg.UserID = "cust-1"
	}
	if cfg.Role == "" {
		cfg.Role = chat.RoleCustomer
	}

	connected := make(chan struct{}, 8)
	userOnConnect := h.OnConnect
	h.OnConnect = func() {
		if userOnConnect != nil {
			userOnConnect()
		}
		connected <- struct{}{}
	}

	s := NewSession(cfg, h)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	go func() { _ = s.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("session never connected")
	}
	return s
}

func TestSessionSendAcked(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		for {
			var f wire.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Event != wire.EventSendMessage {
				continue
			}
			_ = conn.WriteJSON(wire.Frame{
				Event:          wire.EventAck,
				Seq:            f.Seq,
				OK:             true,
				ConversationID: "conv-1",
				Message: &chat.Message{
					ID:             1,
					ConversationID: "conv-1",
					SenderRole:     chat.RoleCustomer,
					Content:        f.Content,
				},
			})
		}
	})

	s := startSession(t, url, Config{}, Handlers{})

	msg, outcome, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, SendOK, outcome)
	assert.Equal(t, "hello", msg.Content)

	// First contact: the ack told us which thread the server created.
	assert.Equal(t, "conv-1", s.ActiveConversation())
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, int64(1), s.Messages()[0].ID)
}

func TestSessionSendAckTimeoutIsUncertain(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		// Swallow everything: the ack never comes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := startSession(t, url, Config{AckTimeout: 50 * time.Millisecond}, Handlers{})

	_, outcome, err := s.Send(context.Background(), "lost?")
	assert.ErrorIs(t, err, ErrAckTimeout)
	assert.Equal(t, SendUncertain, outcome)
	assert.Empty(t, s.Messages(), "an unacked message must not appear in the thread")
}

func TestSessionSendRejected(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		for {
			var f wire.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Event == wire.EventSendMessage {
				_ = conn.WriteJSON(wire.Frame{
					Event: wire.EventAck,
					Seq:   f.Seq,
					Code:  wire.CodeValidation,
					Error: "message content is empty",
				})
			}
		}
	})

	s := startSession(t, url, Config{}, Handlers{})

	_, outcome, err := s.Send(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, SendFailed, outcome)
	assert.Contains(t, err.Error(), wire.CodeValidation)
}

func TestSessionCheckStatus(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		for {
			var f wire.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Event == wire.EventCheckUserStatus {
				_ = conn.WriteJSON(wire.Frame{
					Event:  wire.EventUserStatus,
					Seq:    f.Seq,
					UserID: f.UserID,
					Status: wire.StatusOnline,
				})
			}
		}
	})

	s := startSession(t, url, Config{}, Handlers{})

	online, err := s.CheckStatus(context.Background(), "vend-1")
	require.NoError(t, err)
	assert.True(t, online)
	assert.True(t, s.IsOnline("vend-1"))
	assert.False(t, s.IsOnline("vend-2"))
}

func TestSessionIncomingMessageOnActiveThread(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	reads := make(chan wire.Frame, 16)
	url := newWSServer(t, func(conn *websocket.Conn) {
		conns <- conn
		for {
			var f wire.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			reads <- f
		}
	})

	got := make(chan chat.Message, 1)
	s := startSession(t, url, Config{}, Handlers{
		OnMessage: func(m chat.Message) { got <- m },
	})
	conn := <-conns

	s.SetActiveConversation("conv-1", "vend-1", nil)

	require.NoError(t, conn.WriteJSON(wire.Frame{
		Event: wire.EventReceiveMessage,
		Message: &chat.Message{
			ID: 7, ConversationID: "conv-1", SenderRole: chat.RoleVendor, Content: "incoming",
		},
	}))

	select {
	case m := <-got:
		assert.Equal(t, "incoming", m.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}
	require.Len(t, s.Messages(), 1)

	// Viewing the thread is reading it: the session reports the read back.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-reads:
			if f.Event == wire.EventMarkAsRead && f.ConversationID == "conv-1" {
				return
			}
		case <-deadline:
			t.Fatal("no markAsRead after receiving into the active thread")
		}
	}
}

func TestSessionIncomingMessageOnOtherThreadIsStale(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	stale := make(chan string, 1)
	s := startSession(t, url, Config{}, Handlers{
		OnThreadStale: func(conversationID string) { stale <- conversationID },
	})
	conn := <-conns

	s.SetActiveConversation("conv-1", "vend-1", nil)

	require.NoError(t, conn.WriteJSON(wire.Frame{
		Event: wire.EventReceiveMessage,
		Message: &chat.Message{
			ID: 3, ConversationID: "conv-other", SenderRole: chat.RoleVendor, Content: "elsewhere",
		},
	}))

	select {
	case id := <-stale:
		assert.Equal(t, "conv-other", id)
	case <-time.After(2 * time.Second):
		t.Fatal("stale notification never fired")
	}
	assert.Empty(t, s.Messages(), "messages for other threads stay out of the active view")
}

func TestSessionReadReceiptFlipsActiveThread(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	read := make(chan string, 1)
	s := startSession(t, url, Config{}, Handlers{
		OnRead: func(conversationID string) { read <- conversationID },
	})
	conn := <-conns

	history := []chat.Message{
		{ID: 1, ConversationID: "conv-1", SenderRole: chat.RoleCustomer, Content: "sent", IsRead: false},
	}
	s.SetActiveConversation("conv-1", "vend-1", history)

	require.NoError(t, conn.WriteJSON(wire.Frame{
		Event:          wire.EventMessagesRead,
		ConversationID: "conv-1",
	}))

	select {
	case id := <-read:
		assert.Equal(t, "conv-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("read receipt never fired")
	}
	require.Len(t, s.Messages(), 1)
	assert.True(t, s.Messages()[0].IsRead)
}

func TestSessionPresenceBroadcast(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	type presence struct {
		userID string
		online bool
	}
	events := make(chan presence, 2)
	s := startSession(t, url, Config{}, Handlers{
		OnPresence: func(userID string, online bool) { events <- presence{userID, online} },
	})
	conn := <-conns

	require.NoError(t, conn.WriteJSON(wire.Frame{
		Event: wire.EventUserStatus, UserID: "vend-1", Status: wire.StatusOnline,
	}))
	require.NoError(t, conn.WriteJSON(wire.Frame{
		Event: wire.EventUserStatus, UserID: "vend-1", Status: wire.StatusOffline,
	}))

	for _, want := range []presence{{"vend-1", true}, {"vend-1", false}} {
		select {
		case ev := <-events:
			assert.Equal(t, want, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("presence event never fired")
		}
	}
	assert.False(t, s.IsOnline("vend-1"))
}

func TestSessionResyncReplaysAfterReconnect(t *testing.T) {
	type taggedFrame struct {
		conn  int64
		frame wire.Frame
	}
	frames := make(chan taggedFrame, 32)
	conns := make(chan *websocket.Conn, 2)
	var accepted atomic.Int64

	url := newWSServer(t, func(conn *websocket.Conn) {
		n := accepted.Add(1)
		conns <- conn
		for {
			var f wire.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			frames <- taggedFrame{conn: n, frame: f}
			if f.Event == wire.EventCheckUserStatus {
				_ = conn.WriteJSON(wire.Frame{
					Event:  wire.EventUserStatus,
					Seq:    f.Seq,
					UserID: f.UserID,
					Status: wire.StatusOnline,
				})
			}
		}
	})

	s := startSession(t, url, Config{
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 50 * time.Millisecond,
	}, Handlers{})
	first := <-conns

	s.SetActiveConversation("conv-1", "vend-1", nil)

	// Opening the thread already marks it read on the first connection.
	waitTagged := func(conn int64, event string) wire.Frame {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case tf := <-frames:
				if tf.conn == conn && tf.frame.Event == event {
					return tf.frame
				}
			case <-deadline:
				t.Fatalf("connection %d never sent %s", conn, event)
			}
		}
	}
	waitTagged(1, wire.EventMarkAsRead)

	// Drop the channel; a state change could slip past during the gap, so
	// the session must replay the handshake on its own after redialing.
	first.Close()
	<-conns

	mark := waitTagged(2, wire.EventMarkAsRead)
	assert.Equal(t, "conv-1", mark.ConversationID)
	check := waitTagged(2, wire.EventCheckUserStatus)
	assert.Equal(t, "vend-1", check.UserID)
}

func TestSessionReadReceiptLeavesPeerMessagesAlone(t *testing.T) {
	s := NewSession(Config{UserID: "cust-1", Role: chat.RoleCustomer}, Handlers{})
	s.active = "conv-1"
	s.messages = []chat.Message{
		{ID: 1, ConversationID: "conv-1", SenderRole: chat.RoleCustomer, IsRead: false},
		{ID: 2, ConversationID: "conv-1", SenderRole: chat.RoleVendor, IsRead: false},
		{ID: 3, ConversationID: "conv-1", SenderRole: chat.RoleCustomer, IsRead: false},
	}

	s.dispatch(wire.Frame{Event: wire.EventMessagesRead, ConversationID: "conv-1"})

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].IsRead, "the receipt covers our own messages")
	assert.True(t, msgs[2].IsRead)
	assert.False(t, msgs[1].IsRead, "what the peer wrote is read by viewing, not by their receipt")
}

func TestSessionReconnectsAfterDrop(t *testing.T) {
	var accepted atomic.Int64
	url := newWSServer(t, func(conn *websocket.Conn) {
		n := accepted.Add(1)
		if n == 1 {
			// Kill the first connection immediately.
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	s := startSession(t, url, Config{
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 50 * time.Millisecond,
	}, Handlers{})

	require.Eventually(t, func() bool {
		return accepted.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond, "session must redial after the drop")
	_ = s
}

func TestSendOutcomeString(t *testing.T) {
	assert.Equal(t, "success", SendOK.String())
	assert.Equal(t, "failed", SendFailed.String())
	assert.Equal(t, "uncertain", SendUncertain.String())
}
