package messaging

import (
	"context"
	"strings"
	"time"

	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/user"
)

var (
	ErrNotFound       = fault.NotFound("messaging: conversation not found")
	ErrNotParticipant = fault.Forbidden("messaging: caller is not in the conversation")
	ErrEmptyBody      = fault.Validation("messaging: message body is required")
	ErrSelfTalk       = fault.Validation("messaging: cannot start a conversation with yourself")
)

type ConversationID string

type MessageID string

// PairKey is the unordered participant pair; one conversation exists per
// pair regardless of who wrote first.
type PairKey string

func KeyFor(a, b user.ID) PairKey {
	if string(a) > string(b) {
		a, b = b, a
	}
	return PairKey(string(a) + "|" + string(b))
}

// Conversation ties two users together, optionally anchored to the listing
// or rental that prompted it.
type Conversation struct {
	ID           ConversationID
	Participants [2]user.ID
	ListingID    string
	RentalID     string

	LastMessageAt time.Time
	CreatedAt     time.Time
}

type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         user.ID
	Body           string
	ReadAt         *time.Time
	SentAt         time.Time
}

type Repository interface {
	ConversationByID(ctx context.Context, id ConversationID) (*Conversation, error)
	ConversationByPair(ctx context.Context, key PairKey) (*Conversation, error)
	SaveConversation(ctx context.Context, c *Conversation) error
	ListConversations(ctx context.Context, member user.ID) ([]*Conversation, error)

	SaveMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, id ConversationID, limit, offset int) ([]*Message, error)
}

type StartParams struct {
	ID        ConversationID
	Initiator user.ID
	Other     user.ID
	ListingID string
	RentalID  string
	Now       time.Time
}

func NewConversation(params StartParams) (*Conversation, error) {
	if params.Initiator == "" || params.Other == "" {
		return nil, fault.Validation("messaging: both participants are required")
	}
	if params.Initiator == params.Other {
		return nil, ErrSelfTalk
	}
	now := params.Now.UTC()
	return &Conversation{
		ID:           params.ID,
		Participants: [2]user.ID{params.Initiator, params.Other},
		ListingID:    params.ListingID,
		RentalID:     params.RentalID,
		CreatedAt:    now,
	}, nil
}

func (c *Conversation) Key() PairKey {
	return KeyFor(c.Participants[0], c.Participants[1])
}

func (c *Conversation) Participant(id user.ID) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// OtherParty returns the participant that is not id.
func (c *Conversation) OtherParty(id user.ID) user.ID {
	if c.Participants[0] == id {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Post appends a message from sender; only participants may write.
func (c *Conversation) Post(id MessageID, sender user.ID, body string, now time.Time) (*Message, error) {
	if !c.Participant(sender) {
		return nil, ErrNotParticipant
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	at := now.UTC()
	c.LastMessageAt = at
	return &Message{
		ID:             id,
		ConversationID: c.ID,
		Sender:         sender,
		Body:           body,
		SentAt:         at,
	}, nil
}
