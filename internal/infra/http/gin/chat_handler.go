package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	chatapp "kloset/internal/app/handlers/chat"
	"kloset/internal/app/queries"
)

type ChatHTTP interface {
	Start(c *gin.Context)
	List(c *gin.Context)
	Send(c *gin.Context)
	Messages(c *gin.Context)
}

type ChatHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type startConversationRequest struct {
	OtherID   string `json:"other_id"`
	ListingID string `json:"listing_id"`
	RentalID  string `json:"rental_id"`
	Body      string `json:"body"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (h ChatHandler) Start(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := chatapp.StartConversationCommand{
		CommandID: uuid.NewString(),
		Initiator: user.ID,
		Other:     req.OtherID,
		ListingID: req.ListingID,
		RentalID:  req.RentalID,
		Body:      req.Body,
	}
	result, err := commands.Dispatch[chatapp.StartConversationCommand, *chatapp.StartConversationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ChatHandler) List(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := chatapp.ListConversationsQuery{ViewerID: user.ID}
	result, err := queries.Ask[chatapp.ListConversationsQuery, *dto.ConversationCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ChatHandler) Send(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := chatapp.SendMessageCommand{
		CommandID:      uuid.NewString(),
		ConversationID: c.Param("id"),
		Sender:         user.ID,
		Body:           req.Body,
	}
	result, err := commands.Dispatch[chatapp.SendMessageCommand, *chatapp.SendMessageResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ChatHandler) Messages(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := chatapp.ListMessagesQuery{
		ConversationID: c.Param("id"),
		ViewerID:       user.ID,
		Limit:          intQuery(c, "limit"),
		Offset:         intQuery(c, "offset"),
	}
	result, err := queries.Ask[chatapp.ListMessagesQuery, *dto.MessageCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ChatHTTP = ChatHandler{}
