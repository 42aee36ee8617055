package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	listingapp "kloset/internal/app/handlers/listings"
	"kloset/internal/app/queries"
)

type AdminHTTP interface {
	PendingListings(c *gin.Context)
	ApproveListing(c *gin.Context)
	RejectListing(c *gin.Context)
}

// AdminHandler serves the moderation queue. Role enforcement happens twice:
// the route requires the admin role and the command handlers re-check it.
type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AdminHandler) PendingListings(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	q := listingapp.ListPendingListingsQuery{
		ActorID: user.ID,
		Limit:   intQuery(c, "limit"),
		Offset:  intQuery(c, "offset"),
	}
	result, err := queries.Ask[listingapp.ListPendingListingsQuery, *dto.CatalogPage](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ApproveListing(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	cmd := listingapp.ApproveListingCommand{ListingID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[listingapp.ApproveListingCommand, *listingapp.ModerateListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) RejectListing(c *gin.Context) {
	user, ok := requireRole(c, "admin")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	cmd := listingapp.RejectListingCommand{ListingID: c.Param("id"), ActorID: user.ID, Reason: req.Reason}
	result, err := commands.Dispatch[listingapp.RejectListingCommand, *listingapp.ModerateListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
