package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainmessaging "kloset/internal/domain/messaging"
	domainuser "kloset/internal/domain/user"
)

type ConversationRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	conversations := db.Collection("agg_conversation")
	pairIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = conversations.Indexes().CreateOne(context.Background(), pairIdx)

	messages := db.Collection("agg_message")
	msgIdx := mongo.IndexModel{Keys: bson.D{
		{Key: "conversation_id", Value: 1},
		{Key: "sent_at", Value: 1},
	}}
	_, _ = messages.Indexes().CreateOne(context.Background(), msgIdx)

	return &ConversationRepository{conversations: conversations, messages: messages}
}

func (r *ConversationRepository) ConversationByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	var doc conversationDocument
	if err := r.conversations.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmessaging.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) ConversationByPair(ctx context.Context, key domainmessaging.PairKey) (*domainmessaging.Conversation, error) {
	var doc conversationDocument
	if err := r.conversations.FindOne(ctx, bson.M{"pair_key": string(key)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmessaging.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) SaveConversation(ctx context.Context, c *domainmessaging.Conversation) error {
	doc := newConversationDocument(c)
	opts := options.Update().SetUpsert(true)
	_, err := r.conversations.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *ConversationRepository) ListConversations(ctx context.Context, member domainuser.ID) ([]*domainmessaging.Conversation, error) {
	filter := bson.M{"participants": string(member)}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := r.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainmessaging.Conversation
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

func (r *ConversationRepository) SaveMessage(ctx context.Context, m *domainmessaging.Message) error {
	doc := messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.Sender),
		Body:           m.Body,
		SentAt:         m.SentAt.UnixMilli(),
	}
	if m.ReadAt != nil {
		ms := m.ReadAt.UnixMilli()
		doc.ReadAt = &ms
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.messages.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts)
	return err
}

func (r *ConversationRepository) ListMessages(ctx context.Context, id domainmessaging.ConversationID, limit, offset int) ([]*domainmessaging.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}})
	if offset > 0 {
		opts = opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.messages.Find(ctx, bson.M{"conversation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainmessaging.Message
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		msg := &domainmessaging.Message{
			ID:             domainmessaging.MessageID(doc.ID),
			ConversationID: domainmessaging.ConversationID(doc.ConversationID),
			Sender:         domainuser.ID(doc.SenderID),
			Body:           doc.Body,
			SentAt:         time.UnixMilli(doc.SentAt).UTC(),
		}
		if doc.ReadAt != nil {
			t := time.UnixMilli(*doc.ReadAt).UTC()
			msg.ReadAt = &t
		}
		out = append(out, msg)
	}
	return out, cursor.Err()
}

type conversationDocument struct {
	ID            string   `bson:"_id"`
	PairKey       string   `bson:"pair_key"`
	Participants  []string `bson:"participants"`
	ListingID     string   `bson:"listing_id,omitempty"`
	RentalID      string   `bson:"rental_id,omitempty"`
	LastMessageAt int64    `bson:"last_message_at"`
	CreatedAt     int64    `bson:"created_at"`
}

func newConversationDocument(c *domainmessaging.Conversation) conversationDocument {
	return conversationDocument{
		ID:            string(c.ID),
		PairKey:       string(c.Key()),
		Participants:  []string{string(c.Participants[0]), string(c.Participants[1])},
		ListingID:     c.ListingID,
		RentalID:      c.RentalID,
		LastMessageAt: c.LastMessageAt.UnixMilli(),
		CreatedAt:     c.CreatedAt.UnixMilli(),
	}
}

func (d conversationDocument) toAggregate() *domainmessaging.Conversation {
	c := &domainmessaging.Conversation{
		ID:            domainmessaging.ConversationID(d.ID),
		ListingID:     d.ListingID,
		RentalID:      d.RentalID,
		LastMessageAt: time.UnixMilli(d.LastMessageAt).UTC(),
		CreatedAt:     time.UnixMilli(d.CreatedAt).UTC(),
	}
	if len(d.Participants) == 2 {
		c.Participants = [2]domainuser.ID{domainuser.ID(d.Participants[0]), domainuser.ID(d.Participants[1])}
	}
	return c
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	Body           string `bson:"body"`
	ReadAt         *int64 `bson:"read_at,omitempty"`
	SentAt         int64  `bson:"sent_at"`
}

var _ domainmessaging.Repository = (*ConversationRepository)(nil)
