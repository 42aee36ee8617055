package memory

import (
	"context"
	"sort"
	"sync"

	domainmessaging "kloset/internal/domain/messaging"
	domainuser "kloset/internal/domain/user"
)

// ConversationRepository keeps conversations and their messages in memory.
type ConversationRepository struct {
	mu       sync.RWMutex
	byID     map[domainmessaging.ConversationID]*domainmessaging.Conversation
	byPair   map[domainmessaging.PairKey]domainmessaging.ConversationID
	messages map[domainmessaging.ConversationID][]*domainmessaging.Message
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		byID:     make(map[domainmessaging.ConversationID]*domainmessaging.Conversation),
		byPair:   make(map[domainmessaging.PairKey]domainmessaging.ConversationID),
		messages: make(map[domainmessaging.ConversationID][]*domainmessaging.Message),
	}
}

func (r *ConversationRepository) ConversationByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byID[id]; ok {
		return c, nil
	}
	return nil, domainmessaging.ErrNotFound
}

func (r *ConversationRepository) ConversationByPair(ctx context.Context, key domainmessaging.PairKey) (*domainmessaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byPair[key]; ok {
		if c, ok := r.byID[id]; ok {
			return c, nil
		}
	}
	return nil, domainmessaging.ErrNotFound
}

func (r *ConversationRepository) SaveConversation(ctx context.Context, c *domainmessaging.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	r.byPair[c.Key()] = c.ID
	return nil
}

func (r *ConversationRepository) ListConversations(ctx context.Context, member domainuser.ID) ([]*domainmessaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainmessaging.Conversation, 0)
	for _, c := range r.byID {
		if c.Participant(member) {
			matches = append(matches, c)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastMessageAt.After(matches[j].LastMessageAt)
	})
	return matches, nil
}

func (r *ConversationRepository) SaveMessage(ctx context.Context, m *domainmessaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	return nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, id domainmessaging.ConversationID, limit, offset int) ([]*domainmessaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.messages[id]
	ordered := make([]*domainmessaging.Message, len(all))
	copy(ordered, all)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SentAt.Before(ordered[j].SentAt)
	})
	if offset > len(ordered) {
		offset = len(ordered)
	}
	end := len(ordered)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ordered[offset:end], nil
}

var _ domainmessaging.Repository = (*ConversationRepository)(nil)
