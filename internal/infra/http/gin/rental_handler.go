package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	rentalapp "kloset/internal/app/handlers/rentals"
	"kloset/internal/app/queries"
)

type RentalHTTP interface {
	Request(c *gin.Context)
	Get(c *gin.Context)
	Mine(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
	Pickup(c *gin.Context)
	Return(c *gin.Context)
	Complete(c *gin.Context)
	Contract(c *gin.Context)
}

type RentalHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type requestRentalRequest struct {
	ListingID   string `json:"listing_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	AddCleaning bool   `json:"add_cleaning"`
	Notes       string `json:"notes"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h RentalHandler) Request(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req requestRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := rentalapp.RequestRentalCommand{
		CommandID:       uuid.NewString(),
		ListingID:       req.ListingID,
		RenterID:        user.ID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		AddCleaning:     req.AddCleaning,
		Notes:           req.Notes,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[rentalapp.RequestRentalCommand, *rentalapp.RequestRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h RentalHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := rentalapp.GetRentalQuery{RentalID: c.Param("id"), ViewerID: user.ID}
	result, err := queries.Ask[rentalapp.GetRentalQuery, *dto.RentalDetail](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Mine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := rentalapp.ListRentalsQuery{
		ViewerID: user.ID,
		AsOwner:  c.Query("role") == "owner",
		Statuses: c.QueryArray("status"),
		Limit:    intQuery(c, "limit"),
		Offset:   intQuery(c, "offset"),
	}
	result, err := queries.Ask[rentalapp.ListRentalsQuery, *dto.RentalCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Accept(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := rentalapp.AcceptRentalCommand{RentalID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[rentalapp.AcceptRentalCommand, *rentalapp.AcceptRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Reject(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	cmd := rentalapp.RejectRentalCommand{RentalID: c.Param("id"), ActorID: user.ID, Reason: req.Reason}
	result, err := commands.Dispatch[rentalapp.RejectRentalCommand, *rentalapp.RejectRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	cmd := rentalapp.CancelRentalCommand{RentalID: c.Param("id"), ActorID: user.ID, Reason: req.Reason}
	result, err := commands.Dispatch[rentalapp.CancelRentalCommand, *rentalapp.CancelRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Pickup(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := rentalapp.PickupRentalCommand{RentalID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[rentalapp.PickupRentalCommand, *rentalapp.ProgressRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Return(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := rentalapp.ReturnRentalCommand{RentalID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[rentalapp.ReturnRentalCommand, *rentalapp.ProgressRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Complete(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := rentalapp.CompleteRentalCommand{RentalID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[rentalapp.CompleteRentalCommand, *rentalapp.ProgressRentalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RentalHandler) Contract(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := rentalapp.GetContractQuery{RentalID: c.Param("id"), ViewerID: user.ID}
	result, err := queries.Ask[rentalapp.GetContractQuery, *rentalapp.ContractDocument](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", result.Body)
}

var _ RentalHTTP = RentalHandler{}
