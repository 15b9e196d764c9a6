package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/orgchat-service/internal/api/http"
	"github.com/spec-kit/orgchat-service/internal/api/http/handlers"
	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/observability"
	"github.com/spec-kit/orgchat-service/internal/persistence"
	"github.com/spec-kit/orgchat-service/internal/provider"
	"github.com/spec-kit/orgchat-service/internal/relay"
	"github.com/spec-kit/orgchat-service/internal/repository"
	"github.com/spec-kit/orgchat-service/internal/repository/memory"
	"github.com/spec-kit/orgchat-service/internal/service"
	"github.com/spec-kit/orgchat-service/internal/worker"
)

type repos struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	messages  repository.MessageRepository
	meetings  repository.MeetingRepository
	syncTasks repository.SyncTaskRepository
}

func openRepos(pg *persistence.Postgres) repos {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return repos{
			users:     repository.NewUserRepository(pool),
			companies: repository.NewCompanyRepository(pool),
			messages:  repository.NewMessageRepository(pool),
			meetings:  repository.NewMeetingRepository(pool),
			syncTasks: repository.NewSyncTaskRepository(pool),
		}
	}
	store := memory.New()
	return repos{
		users:     store.Users(),
		companies: store.Companies(),
		messages:  store.Messages(),
		meetings:  store.Meetings(),
		syncTasks: store.SyncTasks(),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	store := openRepos(pg)

	var tokenCache provider.TokenCache
	if client := redis.Handle(); client != nil && cfg.Provider.TokenCache {
		tokenCache = provider.NewRedisTokenCache(client, "")
	}
	meetingProvider := provider.New(cfg.Provider, tokenCache, logger)

	var presence relay.Presence = relay.NopPresence{}
	if client := redis.Handle(); client != nil {
		presence = relay.NewRedisPresence(client, "")
	}

	dispatcher := events.NewInMemoryDispatcher()
	syncService := service.NewSyncService(service.SyncDependencies{
		SyncTaskRepo:    store.syncTasks,
		UserRepo:        store.users,
		MeetingRepo:     store.meetings,
		ProviderEnabled: meetingProvider.Enabled(),
		Logger:          logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    store.users,
		CompanyRepo: store.companies,
		Sync:        syncService,
		Logger:      logger,
	})
	userService := service.NewUserService(*cfg, service.UserDependencies{
		UserRepo:    store.users,
		CompanyRepo: store.companies,
		Sync:        syncService,
		Logger:      logger,
	})
	companyService := service.NewCompanyService(service.CompanyDependencies{
		CompanyRepo: store.companies,
		UserRepo:    store.users,
		Logger:      logger,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		MessageRepo: store.messages,
		UserRepo:    store.users,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	meetingService := service.NewMeetingService(service.MeetingDependencies{
		MeetingRepo: store.meetings,
		UserRepo:    store.users,
		Sync:        syncService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	hub := relay.NewHub(relay.NewRegistry(), messageService, presence, logger, relay.Options{
		PingInterval:   cfg.Relay.PingInterval,
		WriteWait:      cfg.Relay.WriteWait,
		MaxFrameBytes:  cfg.Relay.MaxFrameBytes,
		SendBufferSize: cfg.Relay.SendBufferSize,
		Counter:        metrics,
	})
	service.NewNotificationService(dispatcher, hub, logger).RegisterHandlers()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())
	relayServer := &http.Server{
		Addr:              cfg.Relay.Addr,
		Handler:           relay.NewRouter(relay.NewHandler(hub, authMiddleware, cfg.App.CORSOrigins, logger), cfg.App.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	syncWorker := worker.NewSyncWorker(cfg.Outbox, worker.SyncDependencies{
		SyncTaskRepo: store.syncTasks,
		UserRepo:     store.users,
		MeetingRepo:  store.meetings,
		Provider:     meetingProvider,
		Metrics:      metrics,
		Logger:       logger,
	})

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.UploadLimitBytes + 1024*1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.CORSOrigins)

	deps := map[string]handlers.Pinger{}
	if pg.Enabled() {
		deps["postgres"] = pg
	}
	if redis.Handle() != nil {
		deps["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, deps),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Companies:      handlers.NewCompaniesHandler(companyService),
		Messages:       handlers.NewMessagesHandler(messageService),
		Meetings:       handlers.NewMeetingsHandler(meetingService),
		Sync:           handlers.NewSyncHandler(syncService, userService, presence),
		Provider:       handlers.NewProviderHandler(meetingProvider, cfg.App.UploadLimitBytes),
		AuthMiddleware: authMiddleware,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		logger.Info("relay listening", zap.String("addr", cfg.Relay.Addr))
		if err := relayServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return syncWorker.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = relayServer.Shutdown(shutdownCtx)
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service stopped", zap.Error(err))
	}
}
