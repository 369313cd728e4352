package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	telegoBot "feedback-bot/bot"
	"feedback-bot/internal/auth"
	"feedback-bot/internal/callbacks"
	"feedback-bot/internal/catalog"
	"feedback-bot/internal/config"
	"feedback-bot/internal/database"
	"feedback-bot/internal/feedback"
	"feedback-bot/internal/handlers"
	"feedback-bot/internal/locales"
	"feedback-bot/internal/metrics"
	"feedback-bot/internal/personas"
	"feedback-bot/internal/rooms"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	locales.Init(cfg.DefaultLanguage)

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	var bot *telego.Bot
	if cfg.Debug {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to get bot info: %v", err)
	}
	log.Printf("Authorized as @%s", me.Username)

	registry := rooms.NewRegistry(store)
	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL:  cfg.CatalogURL,
		Username: cfg.CatalogUsername,
		Password: cfg.CatalogPassword,
		OTP:      cfg.CatalogOTP,
		Timeout:  cfg.CatalogTimeout,
	})

	virtualUsers, err := personas.Load(cfg.VirtualUsersFile)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to load virtual users: %v", err)
	}

	workflow := feedback.NewWorkflow(bot, store, registry, catalogClient, feedback.Options{
		FeedbackTag:     cfg.FeedbackTag,
		MovieRequestTag: cfg.MovieRequestTag,
		DisplayChatID:   cfg.DisplayChatID,
		CardDeleteDelay: cfg.CardDeleteDelay,
		Personas:        virtualUsers,
	})
	router := callbacks.NewRouter(bot, workflow, registry, catalogClient)

	adminChecker, err := auth.NewAdminChecker(bot, cfg.AdminIDs, registry)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create admin checker: %v", err)
	}

	messageHandler := handlers.NewMessageHandler(
		handlers.Options{
			FeedbackTag:     cfg.FeedbackTag,
			MovieRequestTag: cfg.MovieRequestTag,
			Version:         cfg.Version,
		},
		workflow,
		registry,
		store, // feature toggles
		catalogClient,
		adminChecker,
		store, // action log
	)

	if err := metrics.RegisterPendingGauge(func(ctx context.Context) (int64, error) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return 0, err
		}
		return stats.Pending, nil
	}); err != nil {
		log.Printf("Failed to register pending gauge: %v", err)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("Metrics server stopped: %v", err)
				sentry.CaptureException(err)
			}
		}()
	}

	go workflow.RunDailySummary(ctx, cfg.SummaryHour)

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	appBot, err := telegoBot.New(telegoBot.BotDeps{
		Bot:         bot,
		UpdatesChan: updates,
		Debug:       cfg.Debug,
		Username:    me.Username,
		RateLimit:   cfg.RateLimit,
		Handler:     messageHandler,
		Callbacks:   router,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Start returns once ctx is cancelled and in-flight updates are done.
	appBot.Start(ctx)
	log.Println("Bot shutdown complete.")
}

// openStore connects the configured storage backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, func()) {
	if cfg.StorageBackend == config.StorageMemory {
		return database.NewMemoryStore(), func() {}
	}

	client, db, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	store := database.NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create indexes: %v", err)
	}

	return store, func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Println("Disconnected from MongoDB.")
		}
	}
}
