package dto

import (
	"time"

	domainmessaging "kloset/internal/domain/messaging"
	domainuser "kloset/internal/domain/user"
)

type ConversationSummary struct {
	ID            string    `json:"id"`
	OtherPartyID  string    `json:"other_party_id"`
	ListingID     string    `json:"listing_id,omitempty"`
	RentalID      string    `json:"rental_id,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type ConversationCollection struct {
	Items []ConversationSummary `json:"items"`
}

type MessageDetail struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	SentAt         time.Time  `json:"sent_at"`
}

type MessageCollection struct {
	Items []MessageDetail `json:"items"`
}

func MapConversationSummary(c *domainmessaging.Conversation, viewer domainuser.ID) ConversationSummary {
	if c == nil {
		return ConversationSummary{}
	}
	return ConversationSummary{
		ID:            string(c.ID),
		OtherPartyID:  string(c.OtherParty(viewer)),
		ListingID:     c.ListingID,
		RentalID:      c.RentalID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
}

func MapMessageDetail(m *domainmessaging.Message) MessageDetail {
	if m == nil {
		return MessageDetail{}
	}
	return MessageDetail{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.Sender),
		Body:           m.Body,
		ReadAt:         m.ReadAt,
		SentAt:         m.SentAt,
	}
}
