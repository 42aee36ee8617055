package ginserver

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kloset/internal/app/commands"
	"kloset/internal/app/dto"
	listingapp "kloset/internal/app/handlers/listings"
	"kloset/internal/app/queries"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/dates"
)

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Mine(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Deactivate(c *gin.Context)
	Reactivate(c *gin.Context)
	Delete(c *gin.Context)
	AddPhoto(c *gin.Context)
	RemovePhoto(c *gin.Context)
}

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingImagePayload struct {
	URL          string `json:"url"`
	DisplayOrder int    `json:"display_order"`
}

type listingPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Brand       string `json:"brand"`
	Condition   string `json:"condition"`

	DailyRateCents int64  `json:"daily_rate_cents"`
	DepositCents   int64  `json:"deposit_cents"`
	SellPriceCents *int64 `json:"sell_price_cents"`
	Currency       string `json:"currency"`
	MinDays        int    `json:"min_days"`
	MaxDays        int    `json:"max_days"`

	Cleaned         bool                  `json:"cleaned"`
	SmokeFree       bool                  `json:"smoke_free"`
	PetFree         bool                  `json:"pet_free"`
	Modest          bool                  `json:"modest"`
	Tags            []string              `json:"tags"`
	Location        string                `json:"location"`
	Latitude        float64               `json:"latitude"`
	Longitude       float64               `json:"longitude"`
	PickupNotes     string                `json:"pickup_notes"`
	WomenOnlyPickup bool                  `json:"women_only_pickup"`
	Images          []listingImagePayload `json:"images"`
}

func (h ListingHandler) Catalog(c *gin.Context) {
	params := searchParamsFromQuery(c)
	result, err := queries.Ask[listingapp.SearchCatalogQuery, *dto.CatalogPage](c.Request.Context(), h.Queries, listingapp.SearchCatalogQuery{Params: params})
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	viewerID := ""
	if p, ok := currentPrincipal(c); ok {
		viewerID = p.ID
	}
	q := listingapp.GetListingQuery{ListingID: c.Param("id"), ViewerID: viewerID}
	result, err := queries.Ask[listingapp.GetListingQuery, *dto.ListingDetail](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Mine(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := listingapp.MyListingsQuery{
		OwnerID: user.ID,
		Limit:   intQuery(c, "limit"),
		Offset:  intQuery(c, "offset"),
	}
	result, err := queries.Ask[listingapp.MyListingsQuery, *dto.CatalogPage](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req listingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingapp.SubmitListingCommand{
		CommandID:       uuid.NewString(),
		OwnerID:         user.ID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Subcategory:     req.Subcategory,
		Size:            req.Size,
		Color:           req.Color,
		Brand:           req.Brand,
		Condition:       req.Condition,
		DailyRateCents:  req.DailyRateCents,
		DepositCents:    req.DepositCents,
		SellPriceCents:  req.SellPriceCents,
		Currency:        req.Currency,
		MinDays:         req.MinDays,
		MaxDays:         req.MaxDays,
		Cleaned:         req.Cleaned,
		SmokeFree:       req.SmokeFree,
		PetFree:         req.PetFree,
		Modest:          req.Modest,
		Tags:            req.Tags,
		Location:        req.Location,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		PickupNotes:     req.PickupNotes,
		WomenOnlyPickup: req.WomenOnlyPickup,
		Images:          mapImagePayloads(req.Images),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[listingapp.SubmitListingCommand, *listingapp.SubmitListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req listingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingapp.UpdateListingCommand{
		ListingID:       c.Param("id"),
		ActorID:         user.ID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Subcategory:     req.Subcategory,
		Size:            req.Size,
		Color:           req.Color,
		Brand:           req.Brand,
		Condition:       req.Condition,
		DailyRateCents:  req.DailyRateCents,
		DepositCents:    req.DepositCents,
		SellPriceCents:  req.SellPriceCents,
		Currency:        req.Currency,
		MinDays:         req.MinDays,
		MaxDays:         req.MaxDays,
		Cleaned:         req.Cleaned,
		SmokeFree:       req.SmokeFree,
		PetFree:         req.PetFree,
		Modest:          req.Modest,
		Tags:            req.Tags,
		Location:        req.Location,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		PickupNotes:     req.PickupNotes,
		WomenOnlyPickup: req.WomenOnlyPickup,
		Images:          mapImagePayloads(req.Images),
	}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, *listingapp.ManageListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Deactivate(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := listingapp.DeactivateListingCommand{ListingID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[listingapp.DeactivateListingCommand, *listingapp.ManageListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Reactivate(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := listingapp.ReactivateListingCommand{ListingID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[listingapp.ReactivateListingCommand, *listingapp.ManageListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Delete(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := listingapp.DeleteListingCommand{ListingID: c.Param("id"), ActorID: user.ID}
	if _, err := commands.Dispatch[listingapp.DeleteListingCommand, *listingapp.ManageListingResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ListingHandler) AddPhoto(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read photo"})
		return
	}
	cmd := listingapp.AddPhotoCommand{
		ListingID:   c.Param("id"),
		ActorID:     user.ID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	result, err := commands.Dispatch[listingapp.AddPhotoCommand, *listingapp.AddPhotoResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) RemovePhoto(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}
	cmd := listingapp.RemovePhotoCommand{ListingID: c.Param("id"), ActorID: user.ID, URL: url}
	result, err := commands.Dispatch[listingapp.RemovePhotoCommand, *listingapp.RemovePhotoResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondFault(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func mapImagePayloads(images []listingImagePayload) []listingapp.ListingImageInput {
	out := make([]listingapp.ListingImageInput, 0, len(images))
	for _, img := range images {
		out = append(out, listingapp.ListingImageInput{URL: img.URL, DisplayOrder: img.DisplayOrder})
	}
	return out
}

func searchParamsFromQuery(c *gin.Context) domainlisting.SearchParams {
	params := domainlisting.SearchParams{
		Query:         c.Query("q"),
		Category:      domainlisting.Category(c.Query("category")),
		Condition:     domainlisting.Condition(c.Query("condition")),
		Size:          c.Query("size"),
		Location:      c.Query("location"),
		PriceMinCents: int64Query(c, "price_min_cents"),
		PriceMaxCents: int64Query(c, "price_max_cents"),
		Sort:          domainlisting.CatalogSort(c.Query("sort")),
		Limit:         intQuery(c, "limit"),
		Offset:        intQuery(c, "offset"),
	}
	params.Cleaned = boolPtrQuery(c, "cleaned")
	params.SmokeFree = boolPtrQuery(c, "smoke_free")
	params.WomenOnlyPickup = boolPtrQuery(c, "women_only_pickup")
	params.Modest = boolPtrQuery(c, "modest")
	if tags := c.Query("tags"); tags != "" {
		params.Tags = strings.Split(tags, ",")
	}
	if from, err := dates.ParseDay(c.Query("available_from")); err == nil {
		params.AvailableFrom = from
	}
	if to, err := dates.ParseDay(c.Query("available_to")); err == nil {
		params.AvailableTo = to
	}
	return params
}

func intQuery(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}

func int64Query(c *gin.Context, key string) int64 {
	v, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return v
}

func boolPtrQuery(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

var _ ListingHTTP = ListingHandler{}
