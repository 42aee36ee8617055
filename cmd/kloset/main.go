package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kloset/internal/app/commands"
	availabilityapp "kloset/internal/app/handlers/availability"
	chatapp "kloset/internal/app/handlers/chat"
	listingapp "kloset/internal/app/handlers/listings"
	rentalapp "kloset/internal/app/handlers/rentals"
	reviewapp "kloset/internal/app/handlers/reviews"
	trustapp "kloset/internal/app/handlers/trust"
	"kloset/internal/app/middleware"
	appoutbox "kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/queries"
	"kloset/internal/app/schedule"
	authsvc "kloset/internal/app/services/auth"
	"kloset/internal/app/uow"
	domainauth "kloset/internal/domain/auth"
	"kloset/internal/domain/shared/money"
	domainuser "kloset/internal/domain/user"
	kafkabroker "kloset/internal/infra/broker/kafka"
	"kloset/internal/infra/config"
	"kloset/internal/infra/contracts"
	mongostore "kloset/internal/infra/db/mongo"
	ginserver "kloset/internal/infra/http/gin"
	"kloset/internal/infra/notify"
	"kloset/internal/infra/obs"
	infraoutbox "kloset/internal/infra/outbox"
	"kloset/internal/infra/payments"
	"kloset/internal/infra/security"
	"kloset/internal/infra/storage/memory"
	"kloset/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, cleanup, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if err := app.seedAdmin(ctx, logger); err != nil {
		logger.Warn("admin seed failed", "error", err)
	}

	for _, task := range app.background {
		go task(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	ready      func() error
	background []func(context.Context)
	auth       *authsvc.Service
	users      domainuser.Repository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, func(), error) {
	cleanup := func() {}

	var (
		uowFactory  uow.UoWFactory
		outboxStore appoutbox.Outbox
		idStore     middleware.IdempotencyStore
		usersRepo   domainuser.Repository
		sessions    domainauth.SessionStore
		ready       = func() error { return nil }
		mongoOutbox *infraoutbox.Store
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, cleanup, err
		}
		cleanup = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				logger.Error("mongo disconnect failed", "error", err)
			}
		}
		users := mongostore.NewUserRepository(client.DB)
		uowFactory = mongostore.Factory{
			DB:                client.DB,
			UsersRepo:         users,
			ListingsRepo:      mongostore.NewListingRepository(client.DB),
			AvailabilityRepo:  mongostore.NewAvailabilityRepository(client.DB),
			RentalsRepo:       mongostore.NewRentalRepository(client.DB),
			ReviewsRepo:       mongostore.NewReviewRepository(client.DB),
			ConversationsRepo: mongostore.NewConversationRepository(client.DB),
		}
		mongoOutbox = infraoutbox.NewStore(client.DB)
		outboxStore = mongoOutbox
		idStore = mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		usersRepo = users
		sessions = mongostore.NewSessionStore(client.DB)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		factory := memory.NewFactory()
		uowFactory = factory
		outboxStore = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
		usersRepo = factory.UsersRepo
		sessions = memory.NewSessionStore()
	}

	authService := &authsvc.Service{
		Users:      usersRepo,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	paymentsPort := payments.NewProcessor(logger)
	contractsPort := contracts.NewRenderer(logger)
	notifier := notify.NewLogNotifier(logger)

	var uploads policies.UploadsPort
	s3Client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
	if err != nil {
		logger.Warn("object storage unavailable, photo uploads disabled", "error", err)
		uploads = s3.NoopUploader{}
	} else {
		uploads = s3Client
	}

	cleaningFee, err := money.New(cfg.CleaningFeeCents, cfg.Currency)
	if err != nil {
		return application{}, cleanup, err
	}

	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()

	requestRental := &rentalapp.RequestRentalHandler{
		UoWFactory:      uowFactory,
		Payments:        paymentsPort,
		Outbox:          outboxStore,
		Encoder:         encoder,
		BaseCleaningFee: cleaningFee,
	}
	commands.RegisterHandler(commandBus, rentalapp.RequestRentalCommand{}.Key(), requestRental)

	acceptRental := &rentalapp.AcceptRentalHandler{
		UoWFactory: uowFactory,
		Payments:   paymentsPort,
		Contracts:  contractsPort,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, rentalapp.AcceptRentalCommand{}.Key(), acceptRental)

	rejectRental := &rentalapp.RejectRentalHandler{
		UoWFactory: uowFactory,
		Payments:   paymentsPort,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, rentalapp.RejectRentalCommand{}.Key(), rejectRental)

	cancelRental := &rentalapp.CancelRentalHandler{
		UoWFactory: uowFactory,
		Payments:   paymentsPort,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, rentalapp.CancelRentalCommand{}.Key(), cancelRental)

	progressRental := &rentalapp.ProgressRentalHandler{
		UoWFactory: uowFactory,
		Payments:   paymentsPort,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, rentalapp.PickupRentalCommand{}.Key(),
		commands.HandlerFunc[rentalapp.PickupRentalCommand, *rentalapp.ProgressRentalResult](progressRental.HandlePickup))
	commands.RegisterHandler(commandBus, rentalapp.ReturnRentalCommand{}.Key(),
		commands.HandlerFunc[rentalapp.ReturnRentalCommand, *rentalapp.ProgressRentalResult](progressRental.HandleReturn))
	commands.RegisterHandler(commandBus, rentalapp.CompleteRentalCommand{}.Key(),
		commands.HandlerFunc[rentalapp.CompleteRentalCommand, *rentalapp.ProgressRentalResult](progressRental.HandleComplete))

	submitListing := &listingapp.SubmitListingHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, listingapp.SubmitListingCommand{}.Key(), submitListing)

	manageListing := &listingapp.ManageListingHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, listingapp.UpdateListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.UpdateListingCommand, *listingapp.ManageListingResult](manageListing.HandleUpdate))
	commands.RegisterHandler(commandBus, listingapp.DeactivateListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.DeactivateListingCommand, *listingapp.ManageListingResult](manageListing.HandleDeactivate))
	commands.RegisterHandler(commandBus, listingapp.ReactivateListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.ReactivateListingCommand, *listingapp.ManageListingResult](manageListing.HandleReactivate))
	commands.RegisterHandler(commandBus, listingapp.DeleteListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.DeleteListingCommand, *listingapp.ManageListingResult](manageListing.HandleDelete))

	moderateListing := &listingapp.ModerateListingHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, listingapp.ApproveListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.ApproveListingCommand, *listingapp.ModerateListingResult](moderateListing.HandleApprove))
	commands.RegisterHandler(commandBus, listingapp.RejectListingCommand{}.Key(),
		commands.HandlerFunc[listingapp.RejectListingCommand, *listingapp.ModerateListingResult](moderateListing.HandleReject))

	photoHandler := &listingapp.PhotoHandler{
		UoWFactory: uowFactory,
		Uploads:    uploads,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, listingapp.AddPhotoCommand{}.Key(),
		commands.HandlerFunc[listingapp.AddPhotoCommand, *listingapp.AddPhotoResult](photoHandler.HandleAdd))
	commands.RegisterHandler(commandBus, listingapp.RemovePhotoCommand{}.Key(),
		commands.HandlerFunc[listingapp.RemovePhotoCommand, *listingapp.RemovePhotoResult](photoHandler.HandleRemove))

	blockDates := &availabilityapp.BlockDatesHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, availabilityapp.BlockDatesCommand{}.Key(), blockDates)

	unblockDates := &availabilityapp.UnblockDatesHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, availabilityapp.UnblockDatesCommand{}.Key(), unblockDates)

	submitReview := &reviewapp.SubmitReviewHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, reviewapp.SubmitReviewCommand{}.Key(), submitReview)

	startConversation := &chatapp.StartConversationHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
	}
	commands.RegisterHandler(commandBus, chatapp.StartConversationCommand{}.Key(), startConversation)

	sendMessage := &chatapp.SendMessageHandler{
		UoWFactory: uowFactory,
		Notifier:   notifier,
	}
	commands.RegisterHandler(commandBus, chatapp.SendMessageCommand{}.Key(), sendMessage)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(),
		&availabilityapp.GetCalendarHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(),
		&listingapp.GetListingHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, listingapp.SearchCatalogQuery{}.Key(),
		&listingapp.SearchCatalogHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, listingapp.ListPendingListingsQuery{}.Key(),
		&listingapp.ListPendingListingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, listingapp.MyListingsQuery{}.Key(),
		&listingapp.MyListingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, rentalapp.GetRentalQuery{}.Key(),
		&rentalapp.GetRentalHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, rentalapp.ListRentalsQuery{}.Key(),
		&rentalapp.ListRentalsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, rentalapp.GetContractQuery{}.Key(),
		&rentalapp.GetContractHandler{UoWFactory: uowFactory, Contracts: contractsPort})
	queries.RegisterHandler(queryBus, reviewapp.ListReviewsQuery{}.Key(),
		&reviewapp.ListReviewsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, reviewapp.ReviewSummaryQuery{}.Key(),
		&reviewapp.ReviewSummaryHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, trustapp.GetTrustSummaryQuery{}.Key(),
		&trustapp.GetTrustSummaryHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, chatapp.ListConversationsQuery{}.Key(),
		&chatapp.ListConversationsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, chatapp.ListMessagesQuery{}.Key(),
		&chatapp.ListMessagesHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	var background []func(context.Context)

	sweeper := &schedule.LateRentalSweeper{
		UoWFactory: uowFactory,
		Notifier:   notifier,
		Interval:   cfg.LateSweepInterval,
		Logger:     logger,
	}
	background = append(background, sweeper.Run)

	if mongoOutbox != nil && len(cfg.KafkaBrokers) > 0 {
		producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, cleanup, err
		}
		worker := &infraoutbox.Worker{
			Store:       mongoOutbox,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		background = append(background, func(ctx context.Context) {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
			_ = producer.Close()
		})
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaConsumerGroup != "" {
		consumer, err := kafkabroker.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, kafkabroker.EventTap{Logger: logger})
		if err != nil {
			return application{}, cleanup, err
		}
		topics := []string{
			cfg.KafkaTopicPrefix + "rental.events.v1",
			cfg.KafkaTopicPrefix + "listing.events.v1",
			cfg.KafkaTopicPrefix + "availability.events.v1",
		}
		background = append(background, func(ctx context.Context) {
			if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "error", err)
			}
			_ = consumer.Close()
		})
	}

	handlers := ginserver.Handlers{
		Auth:         ginserver.AuthHandler{Service: authService, Logger: logger},
		Listing:      ginserver.ListingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Rental:       ginserver.RentalHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Availability: ginserver.AvailabilityHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Review:       ginserver.ReviewHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Chat:         ginserver.ChatHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Admin:        ginserver.AdminHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},

		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}

	return application{
		handlers:   handlers,
		ready:      ready,
		background: background,
		auth:       authService,
		users:      usersRepo,
	}, cleanup, nil
}

// seedAdmin bootstraps a moderator account from ADMIN_EMAIL / ADMIN_PASSWORD.
// An existing account with that email is granted the admin role instead.
func (a application) seedAdmin(ctx context.Context, logger *slog.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	_, err := a.auth.Register(ctx, authsvc.RegisterParams{
		Email:    email,
		Name:     getenv("ADMIN_NAME", "Moderator"),
		Password: password,
	})
	if err != nil && !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		return err
	}

	user, err := a.users.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.HasRole(domainuser.RoleAdmin) {
		return nil
	}
	user.GrantRole(domainuser.RoleAdmin, time.Now())
	if err := a.users.Save(ctx, user); err != nil {
		return err
	}
	logger.Info("admin account ready", "user_id", user.ID)
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
