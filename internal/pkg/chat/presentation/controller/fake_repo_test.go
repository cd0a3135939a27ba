package controller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	qport "github.com/ahmedyasser1234/Fustan-sub001/internal/infrastructure/queue/port"
	chat "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/application/domain"
	repository "github.com/ahmedyasser1234/Fustan-sub001/internal/pkg/chat/persistence/repository/port"
)

// fakeRepo backs the gateway tests with an in-memory store.
type fakeRepo struct {
	mu     sync.Mutex
	convs  map[string]chat.Conversation
	byPair map[string]string
	msgs   map[string][]chat.Message
	notifs []chat.Notification
	nextID int64
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
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[conversationID]
	if !ok {
		return chat.Conversation{}, repository.ErrNotFound
	}
	return conv, nil
}

func (f *fakeRepo) AppendMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Conversation
	for id, conv := range f.convs {
		if (viewer == chat.RoleCustomer && conv.CustomerID != viewerID) ||
			(viewer == chat.RoleVendor && conv.VendorID != viewerID) {
			continue
		}
		for _, m := range f.msgs[id] {
			if m.UnreadFor(viewer) {
				conv.Unread = true
				break
			}
		}
		out = append(out, conv)
	}
	return out, nil
}

func (f *fakeRepo) CountUnread(_ context.Context, viewerID string, viewer chat.Role) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

// fakeQueue records enqueued tasks.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
}

var _ qport.Client = (*fakeQueue)(nil)

func (f *fakeQueue) Enqueue(_ context.Context, t qport.Task, _ ...qport.EnqueueOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return uuid.NewString(), nil
}

func (f *fakeQueue) Close() error { return nil }

func (f *fakeQueue) taskTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t.Type)
	}
	return out
}
