package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	reviewapp "kloset/internal/app/handlers/reviews"
	trustapp "kloset/internal/app/handlers/trust"
	"kloset/internal/app/queries"
)

type ReviewHTTP interface {
	Submit(c *gin.Context)
	ListForUser(c *gin.Context)
	Summary(c *gin.Context)
	Trust(c *gin.Context)
}

type ReviewHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Type    string `json:"type"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h ReviewHandler) Submit(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := reviewapp.SubmitReviewCommand{
		CommandID: uuid.NewString(),
		RentalID:  c.Param("id"),
		Reviewer:  user.ID,
		Type:      req.Type,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	result, err := commands.Dispatch[reviewapp.SubmitReviewCommand, *reviewapp.SubmitReviewResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReviewHandler) ListForUser(c *gin.Context) {
	q := reviewapp.ListReviewsQuery{RevieweeID: c.Param("id"), Type: c.Query("type")}
	result, err := queries.Ask[reviewapp.ListReviewsQuery, *dto.ReviewCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReviewHandler) Summary(c *gin.Context) {
	q := reviewapp.ReviewSummaryQuery{RevieweeID: c.Param("id"), Type: c.Query("type")}
	result, err := queries.Ask[reviewapp.ReviewSummaryQuery, *dto.ReviewSummary](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReviewHandler) Trust(c *gin.Context) {
	q := trustapp.GetTrustSummaryQuery{UserID: c.Param("id")}
	result, err := queries.Ask[trustapp.GetTrustSummaryQuery, *dto.TrustSummary](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReviewHTTP = ReviewHandler{}
