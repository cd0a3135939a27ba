// Package client implements the session side of the live channel: connection
// lifecycle, acknowledgment-based sends, and reconciliation of presence and
// read state into local view state.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	"github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/wire"
)

// Defaults for the session lifecycle knobs.
const (
	DefaultAckTimeout   = 5 * time.Second
	DefaultReconnectMin = 500 * time.Millisecond
	DefaultReconnectMax = 30 * time.Second
)

// ErrAckTimeout reports that no acknowledgment arrived within the window.
// The outcome is uncertain: the message may or may not have persisted, so the
// session never resends on its own.
var ErrAckTimeout = errors.New("chat client: acknowledgment timeout")

// ErrNotConnected reports that the live channel is currently down.
var ErrNotConnected = errors.New("chat client: not connected")

// SendOutcome is the tri-state result of a send.
type SendOutcome int

const (
	SendOK        SendOutcome = iota // ack received, message durable
	SendFailed                       // server rejected or channel write failed; safe to retry
	SendUncertain                    // no ack in time; retry only on explicit user action
)

func (o SendOutcome) String() string {
	switch o {
	case SendOK:
		return "success"
	case SendFailed:
		return "failed"
	default:
		return "uncertain"
	}
}

// Config identifies the session and tunes its timing.
type Config struct {
	URL    string // websocket endpoint, identity carried in the query string
	UserID string
	Role   chat.Role

	AckTimeout   time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	Dialer *websocket.Dialer
}

// Handlers receive view-level events. All callbacks are optional and are
// invoked from the session's read goroutine without internal locks held.
type Handlers struct {
	OnConnect     func()                            // fired on every (re)connect, after resync was issued
	OnMessage     func(chat.Message)                // appended to the active thread
	OnThreadStale func(conversationID string)       // a non-active thread changed; refresh its list summary
	OnRead        func(conversationID string)       // the peer read our messages
	OnPresence    func(userID string, online bool)  // presence transition or status-check result
}

// Session owns one user's live channel. It reconnects on drop, replays the
// resync handshake (mark-read plus status check for the active thread), and
// keeps the local message list and presence set converged with the server.
type Session struct {
	cfg Config
	h   Handlers

	mu       sync.Mutex
	conn     *websocket.Conn
	wmu      sync.Mutex // serializes writes; gorilla allows one writer at a time
	messages []chat.Message
	presence map[string]bool
	active   string // active conversation id, "" when none
	peer     string // counterpart identity of the active thread

	seq     atomic.Int64
	pmu     sync.Mutex
	pending map[int64]chan wire.Frame

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession constructs a Session; call Run to connect.
func NewSession(cfg Config, h Handlers) *Session {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = DefaultReconnectMin
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = DefaultReconnectMax
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Session{
		cfg:      cfg,
		h:        h,
		presence: make(map[string]bool),
		pending:  make(map[int64]chan wire.Frame),
	}
}

// Run connects and keeps the channel alive until ctx is canceled or Close is
// called. Drops are recovered silently with exponential backoff; each
// reconnect re-issues the resync handshake so state that drifted during the
// gap converges without any user-visible action.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	done := s.done
	s.mu.Unlock()

	backoff := s.cfg.ReconnectMin
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		default:
		}

		conn, _, err := s.cfg.Dialer.DialContext(ctx, s.sessionURL(), nil)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-done:
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.cfg.ReconnectMax {
				backoff = s.cfg.ReconnectMax
			}
			continue
		}
		backoff = s.cfg.ReconnectMin

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.resync()
		if s.h.OnConnect != nil {
			s.h.OnConnect()
		}

		s.readLoop(conn, done)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
		s.failPending()
	}
}

// Close shuts the session down permanently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.done == nil {
			s.done = make(chan struct{})
		}
		close(s.done)
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
}

func (s *Session) sessionURL() string {
	return fmt.Sprintf("%s?user_id=%s&role=%s", s.cfg.URL, s.cfg.UserID, s.cfg.Role)
}

// resync replays the state handshake after every (re)connect: a broadcast
// missed during the gap is superseded by these explicit requests.
func (s *Session) resync() {
	s.mu.Lock()
	active, peer := s.active, s.peer
	s.mu.Unlock()

	if active != "" {
		s.MarkRead()
	}
	if peer != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AckTimeout)
			defer cancel()
			_, _ = s.CheckStatus(ctx, peer)
		}()
	}
}

// Send submits content for the active conversation and blocks for the ack.
// The caller disables further input until this returns; on SendUncertain the
// input stays populated and resending is left to an explicit user action.
func (s *Session) Send(ctx context.Context, content string) (chat.Message, SendOutcome, error) {
	s.mu.Lock()
	active, peer := s.active, s.peer
	s.mu.Unlock()

	resp, err := s.request(ctx, wire.Frame{
		Event:          wire.EventSendMessage,
		ConversationID: active,
		RecipientID:    peer,
		Content:        content,
	})
	if err != nil {
		if errors.Is(err, ErrAckTimeout) {
			return chat.Message{}, SendUncertain, err
		}
		return chat.Message{}, SendFailed, err
	}
	if !resp.OK || resp.Message == nil {
		return chat.Message{}, SendFailed, fmt.Errorf("chat client: send rejected: %s (%s)", resp.Error, resp.Code)
	}

	msg := *resp.Message
	s.mu.Lock()
	if s.active == "" {
		// First contact: the server created the thread lazily.
		s.active = resp.ConversationID
	}
	if msg.ConversationID == s.active {
		s.messages = append(s.messages, msg)
	}
	s.mu.Unlock()

	return msg, SendOK, nil
}

// SetActiveConversation switches the rendered thread and immediately runs the
// read flow for it: opening a conversation is what marks it read.
func (s *Session) SetActiveConversation(conversationID, peerID string, history []chat.Message) {
	s.mu.Lock()
	s.active = conversationID
	s.peer = peerID
	s.messages = append([]chat.Message(nil), history...)
	s.mu.Unlock()

	if conversationID != "" {
		s.MarkRead()
	}
}

// MarkRead notifies the server that the active thread was seen and flips the
// peer-authored messages locally. Fire-and-forget: both the live path and the
// HTTP fallback are idempotent, so running them redundantly is safe.
func (s *Session) MarkRead() {
	s.mu.Lock()
	active, peer := s.active, s.peer
	for i := range s.messages {
		if s.messages[i].SenderRole != s.cfg.Role {
			s.messages[i].IsRead = true
		}
	}
	s.mu.Unlock()

	if active == "" {
		return
	}
	_ = s.writeFrame(wire.Frame{
		Event:          wire.EventMarkAsRead,
		ConversationID: active,
		RecipientID:    peer,
	})
}

// CheckStatus asks the server whether userID is online and records the answer
// in the local presence set. Used to seed the presence view on connect, before
// any broadcast can have arrived.
func (s *Session) CheckStatus(ctx context.Context, userID string) (bool, error) {
	resp, err := s.request(ctx, wire.Frame{Event: wire.EventCheckUserStatus, UserID: userID})
	if err != nil {
		return false, err
	}
	online := resp.Status == wire.StatusOnline
	s.mu.Lock()
	s.presence[userID] = online
	s.mu.Unlock()
	if s.h.OnPresence != nil {
		s.h.OnPresence(userID, online)
	}
	return online, nil
}

// IsOnline returns the locally-known presence of userID.
func (s *Session) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence[userID]
}

// ActiveConversation returns the currently rendered thread id.
func (s *Session) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Messages returns a copy of the active thread in send order.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// request writes a frame with a fresh seq and blocks until the correlated
// response, the ack timeout, or ctx cancellation.
func (s *Session) request(ctx context.Context, f wire.Frame) (wire.Frame, error) {
	f.Seq = s.seq.Add(1)

	ch := make(chan wire.Frame, 1)
	s.pmu.Lock()
	s.pending[f.Seq] = ch
	s.pmu.Unlock()

	if err := s.writeFrame(f); err != nil {
		s.dropPending(f.Seq)
		return wire.Frame{}, err
	}

	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			// Channel died before the response arrived: the server may or may
			// not have processed the request.
			return wire.Frame{}, ErrAckTimeout
		}
		return resp, nil
	case <-timer.C:
		s.dropPending(f.Seq)
		return wire.Frame{}, ErrAckTimeout
	case <-ctx.Done():
		s.dropPending(f.Seq)
		return wire.Frame{}, ctx.Err()
	}
}

func (s *Session) dropPending(seq int64) {
	s.pmu.Lock()
	delete(s.pending, seq)
	s.pmu.Unlock()
}

// failPending wakes every in-flight request after a disconnect; their
// outcomes are uncertain by definition.
func (s *Session) failPending() {
	s.pmu.Lock()
	for seq, ch := range s.pending {
		close(ch)
		delete(s.pending, seq)
	}
	s.pmu.Unlock()
}

func (s *Session) writeFrame(f wire.Frame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return conn.WriteJSON(f)
}

func (s *Session) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		var f wire.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		s.dispatch(f)
	}
}

func (s *Session) dispatch(f wire.Frame) {
	// Correlated responses go to their waiting request.
	if f.Seq != 0 {
		s.pmu.Lock()
		ch, ok := s.pending[f.Seq]
		if ok {
			delete(s.pending, f.Seq)
		}
		s.pmu.Unlock()
		if ok {
			ch <- f
		}
		return
	}

	switch f.Event {
	case wire.EventReceiveMessage:
		if f.Message == nil {
			return
		}
		s.handleIncoming(*f.Message)

	case wire.EventMessagesRead:
		// The peer read what we sent; their own messages are governed by our
		// viewing, not by this receipt.
		s.mu.Lock()
		match := f.ConversationID == s.active
		if match {
			for i := range s.messages {
				if s.messages[i].SenderRole == s.cfg.Role {
					s.messages[i].IsRead = true
				}
			}
		}
		s.mu.Unlock()
		if match && s.h.OnRead != nil {
			s.h.OnRead(f.ConversationID)
		}

	case wire.EventUserStatus:
		online := f.Status == wire.StatusOnline
		s.mu.Lock()
		s.presence[f.UserID] = online
		s.mu.Unlock()
		if s.h.OnPresence != nil {
			s.h.OnPresence(f.UserID, online)
		}
	}
}

func (s *Session) handleIncoming(m chat.Message) {
	s.mu.Lock()
	active := m.ConversationID == s.active
	if active {
		s.messages = append(s.messages, m)
	}
	s.mu.Unlock()

	if active {
		// The viewer is looking at the thread right now, so seeing the
		// message and reading it are the same event.
		s.MarkRead()
		if s.h.OnMessage != nil {
			s.h.OnMessage(m)
		}
		return
	}
	if s.h.OnThreadStale != nil {
		s.h.OnThreadStale(m.ConversationID)
	}
}
