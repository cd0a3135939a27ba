package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// fakeRepo is an in-memory ChatRepository for use-case tests. Per-method
// error fields inject failures.
type fakeRepo struct {
	mu     sync.Mutex
	convs  map[string]chat.Conversation
	byPair map[string]string // "customerID/vendorID" -> conversation id
	msgs   map[string][]chat.Message
	notifs []chat.Notification
	nextID int64

	errCreate error
	errGet    error
	errAppend error
	errMark   error
	errList   error
	errCount  error

	countUnreadCalls int
}

var _ repository.ChatRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs:  make(map[string]chat.Conversation),
		byPair: make(map[string]string),
		msgs:   make(map[string][]chat.Message),
	}
}

func (f *fakeRepo) CreateOrGetConversation(_ context.Context, customerID, vendorID string) (chat.Conversation, error) {
	if f.errCreate != nil {
		return chat.Conversation{}, f.errCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	pair := customerID + "/" + vendorID
	if id, ok := f.byPair[pair]; ok {
		return f.convs[id], nil
	}
	conv := chat.Conversation{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		VendorID:   vendorID,
		CreatedAt:  time.Now().UTC(),
	}
	f.byPair[pair] = conv.ID
	f.convs[conv.ID] = conv
	return conv, nil
}

func (f *fakeRepo) GetConversation(_ context.Context, conversationID string) (chat.Conversation, error) {
	if f.errGet != nil {
		return chat.Conversation{}, f.errGet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[conversationID]
	if !ok {
		return chat.Conversation{}, repository.ErrNotFound
	}
	return conv, nil
}

func (f *fakeRepo) AppendMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	if f.errAppend != nil {
		return chat.Message{}, f.errAppend
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.convs[m.ConversationID]; !ok {
		return chat.Message{}, fmt.Errorf("conversation %s missing", m.ConversationID)
	}
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now().UTC()
	f.msgs[m.ConversationID] = append(f.msgs[m.ConversationID], m)

	conv := f.convs[m.ConversationID]
	conv.Touch(m)
	f.convs[m.ConversationID] = conv
	return m, nil
}

func (f *fakeRepo) GetMessagesByConversation(_ context.Context, conversationID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Message(nil), f.msgs[conversationID]...), nil
}

func (f *fakeRepo) MarkMessagesRead(_ context.Context, conversationID string, viewer chat.Role) (int64, error) {
	if f.errMark != nil {
		return 0, f.errMark
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed int64
	list := f.msgs[conversationID]
	for i := range list {
		if list[i].UnreadFor(viewer) {
			list[i].IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (f *fakeRepo) ListConversationsForUser(_ context.Context, viewerID string, viewer chat.Role) ([]chat.Conversation, error) {
	if f.errList != nil {
		return nil, f.errList
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Conversation
	for _, conv := range f.convs {
		if (viewer == chat.RoleCustomer && conv.CustomerID == viewerID) ||
			(viewer == chat.RoleVendor && conv.VendorID == viewerID) {
			for _, m := range f.msgs[conv.ID] {
				if m.UnreadFor(viewer) {
					conv.Unread = true
					break
				}
			}
			out = append(out, conv)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LastMessageAt.After(out[i].LastMessageAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) CountUnread(_ context.Context, viewerID string, viewer chat.Role) (int64, error) {
	if f.errCount != nil {
		return 0, f.errCount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countUnreadCalls++
	var n int64
	for id, conv := range f.convs {
		if (viewer == chat.RoleCustomer && conv.CustomerID != viewerID) ||
			(viewer == chat.RoleVendor && conv.VendorID != viewerID) {
			continue
		}
		for _, m := range f.msgs[id] {
			if m.UnreadFor(viewer) {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeRepo) SaveNotification(_ context.Context, n chat.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifs = append(f.notifs, n)
	return nil
}

func (f *fakeRepo) messageCount(conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs[conversationID])
}
