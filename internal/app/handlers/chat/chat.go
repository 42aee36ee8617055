package chat

import (
	"context"
	"errors"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	"kloset/internal/app/handlers/support"
	"kloset/internal/app/policies"
	"kloset/internal/app/queries"
	"kloset/internal/app/uow"
	domainmessaging "kloset/internal/domain/messaging"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"

	"github.com/google/uuid"
)

const (
	startConversationKey = "chat.start"
	sendMessageKey       = "chat.send"
	listConversationsKey = "chat.conversations"
	listMessagesKey      = "chat.messages"
)

var ErrUnitOfWorkRequired = errors.New("chat: unit of work required")

type StartConversationCommand struct {
	CommandID string
	Initiator string
	Other     string
	ListingID string
	RentalID  string
	Body      string
}

func (c StartConversationCommand) Key() string { return startConversationKey }

type StartConversationResult struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
}

// StartConversationHandler opens (or reuses) the conversation between two
// users; one conversation exists per pair.
type StartConversationHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Now        func() time.Time
}

func (h *StartConversationHandler) Handle(ctx context.Context, cmd StartConversationCommand) (*StartConversationResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	now := nowOrDefault(h.Now)
	initiator := domainuser.ID(cmd.Initiator)
	other := domainuser.ID(cmd.Other)
	if _, err := unit.Users().ByID(ctx, other); err != nil {
		return nil, err
	}

	conversation, err := unit.Conversations().ConversationByPair(ctx, domainmessaging.KeyFor(initiator, other))
	if err != nil && fault.KindOf(err) != fault.KindNotFound {
		return nil, err
	}
	if conversation == nil {
		conversation, err = domainmessaging.NewConversation(domainmessaging.StartParams{
			ID:        domainmessaging.ConversationID(cmd.CommandID),
			Initiator: initiator,
			Other:     other,
			ListingID: cmd.ListingID,
			RentalID:  cmd.RentalID,
			Now:       now,
		})
		if err != nil {
			return nil, err
		}
	}

	result := &StartConversationResult{ConversationID: string(conversation.ID)}
	if cmd.Body != "" {
		message, err := conversation.Post(domainmessaging.MessageID(uuid.NewString()), initiator, cmd.Body, now)
		if err != nil {
			return nil, err
		}
		if err := unit.Conversations().SaveMessage(ctx, message); err != nil {
			return nil, err
		}
		result.MessageID = string(message.ID)
	}
	if err := unit.Conversations().SaveConversation(ctx, conversation); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil && result.MessageID != "" {
		_ = h.Notifier.Notify(ctx, other, "New message", "You have a new message.")
	}

	return result, nil
}

type SendMessageCommand struct {
	CommandID      string
	ConversationID string
	Sender         string
	Body           string
}

func (c SendMessageCommand) Key() string { return sendMessageKey }

type SendMessageResult struct {
	MessageID string `json:"message_id"`
}

type SendMessageHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Now        func() time.Time
}

func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	conversation, err := unit.Conversations().ConversationByID(ctx, domainmessaging.ConversationID(cmd.ConversationID))
	if err != nil {
		return nil, err
	}
	sender := domainuser.ID(cmd.Sender)
	message, err := conversation.Post(domainmessaging.MessageID(cmd.CommandID), sender, cmd.Body, nowOrDefault(h.Now))
	if err != nil {
		return nil, err
	}
	if err := unit.Conversations().SaveMessage(ctx, message); err != nil {
		return nil, err
	}
	if err := unit.Conversations().SaveConversation(ctx, conversation); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		_ = h.Notifier.Notify(ctx, conversation.OtherParty(sender), "New message", "You have a new message.")
	}

	return &SendMessageResult{MessageID: string(message.ID)}, nil
}

type ListConversationsQuery struct {
	ViewerID string
}

func (q ListConversationsQuery) Key() string { return listConversationsKey }

type ListConversationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListConversationsHandler) Handle(ctx context.Context, q ListConversationsQuery) (*dto.ConversationCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	viewer := domainuser.ID(q.ViewerID)
	items, err := unit.Conversations().ListConversations(ctx, viewer)
	if err != nil {
		return nil, err
	}
	out := dto.ConversationCollection{Items: make([]dto.ConversationSummary, 0, len(items))}
	for _, c := range items {
		out.Items = append(out.Items, dto.MapConversationSummary(c, viewer))
	}
	return &out, nil
}

type ListMessagesQuery struct {
	ConversationID string
	ViewerID       string
	Limit          int
	Offset         int
}

func (q ListMessagesQuery) Key() string { return listMessagesKey }

type ListMessagesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMessagesHandler) Handle(ctx context.Context, q ListMessagesQuery) (*dto.MessageCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	conversation, err := unit.Conversations().ConversationByID(ctx, domainmessaging.ConversationID(q.ConversationID))
	if err != nil {
		return nil, err
	}
	if !conversation.Participant(domainuser.ID(q.ViewerID)) {
		return nil, domainmessaging.ErrNotParticipant
	}
	items, err := unit.Conversations().ListMessages(ctx, conversation.ID, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	out := dto.MessageCollection{Items: make([]dto.MessageDetail, 0, len(items))}
	for _, m := range items {
		out.Items = append(out.Items, dto.MapMessageDetail(m))
	}
	return &out, nil
}

func nowOrDefault(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[StartConversationCommand, *StartConversationResult] = (*StartConversationHandler)(nil)
var _ commands.Handler[SendMessageCommand, *SendMessageResult] = (*SendMessageHandler)(nil)
var _ queries.Handler[ListConversationsQuery, *dto.ConversationCollection] = (*ListConversationsHandler)(nil)
var _ queries.Handler[ListMessagesQuery, *dto.MessageCollection] = (*ListMessagesHandler)(nil)
