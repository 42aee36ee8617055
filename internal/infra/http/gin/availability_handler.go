package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	availabilityapp "kloset/internal/app/handlers/availability"
	"kloset/internal/app/queries"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
}

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type blockDatesRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	q := availabilityapp.GetCalendarQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, *dto.Calendar](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req blockDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := availabilityapp.BlockDatesCommand{
		ListingID: c.Param("id"),
		ActorID:   user.ID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[availabilityapp.BlockDatesCommand, *availabilityapp.BlockDatesResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) Unblock(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := availabilityapp.UnblockDatesCommand{
		ListingID: c.Param("id"),
		ActorID:   user.ID,
		BlockID:   c.Param("blockID"),
	}
	result, err := commands.Dispatch[availabilityapp.UnblockDatesCommand, *availabilityapp.UnblockDatesResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
