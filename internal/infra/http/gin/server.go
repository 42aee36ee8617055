package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"kloset/internal/infra/config"
	"kloset/internal/infra/obs"
)

type Handlers struct {
	Auth         AuthHTTP
	Listing      ListingHTTP
	Rental       RentalHTTP
	Availability AvailabilityHTTP
	Review       ReviewHTTP
	Chat         ChatHTTP
	Admin        AdminHTTP

	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Catalog)
		api.POST("/listings", h.Listing.Create)
		api.GET("/listings/:id", h.Listing.Get)
		api.PUT("/listings/:id", h.Listing.Update)
		api.DELETE("/listings/:id", h.Listing.Delete)
		api.POST("/listings/:id/deactivate", h.Listing.Deactivate)
		api.POST("/listings/:id/reactivate", h.Listing.Reactivate)
		api.POST("/listings/:id/photos", h.Listing.AddPhoto)
		api.DELETE("/listings/:id/photos", h.Listing.RemovePhoto)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.POST("/listings/:id/blocks", h.Availability.Block)
		api.DELETE("/listings/:id/blocks/:blockID", h.Availability.Unblock)
	}
	if h.Rental != nil {
		api.POST("/rentals", h.Rental.Request)
		api.GET("/rentals/:id", h.Rental.Get)
		api.POST("/rentals/:id/accept", h.Rental.Accept)
		api.POST("/rentals/:id/reject", h.Rental.Reject)
		api.POST("/rentals/:id/cancel", h.Rental.Cancel)
		api.POST("/rentals/:id/pickup", h.Rental.Pickup)
		api.POST("/rentals/:id/return", h.Rental.Return)
		api.POST("/rentals/:id/complete", h.Rental.Complete)
		api.GET("/rentals/:id/contract", h.Rental.Contract)
	}
	if h.Review != nil {
		api.POST("/rentals/:id/reviews", h.Review.Submit)
		api.GET("/users/:id/reviews", h.Review.ListForUser)
		api.GET("/users/:id/reviews/summary", h.Review.Summary)
		api.GET("/users/:id/trust", h.Review.Trust)
	}
	if h.Chat != nil {
		api.POST("/conversations", h.Chat.Start)
		api.GET("/conversations", h.Chat.List)
		api.POST("/conversations/:id/messages", h.Chat.Send)
		api.GET("/conversations/:id/messages", h.Chat.Messages)
	}
	meGroup := api.Group("/me")
	if h.Listing != nil {
		meGroup.GET("/listings", h.Listing.Mine)
	}
	if h.Rental != nil {
		meGroup.GET("/rentals", h.Rental.Mine)
	}
	if h.Admin != nil {
		adminGroup := api.Group("/admin")
		adminGroup.GET("/listings/pending", h.Admin.PendingListings)
		adminGroup.POST("/listings/:id/approve", h.Admin.ApproveListing)
		adminGroup.POST("/listings/:id/reject", h.Admin.RejectListing)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
