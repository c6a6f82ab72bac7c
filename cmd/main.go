package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"confessionrelay/internal/config"
	"confessionrelay/internal/database"
	"confessionrelay/internal/handler"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/metrics"
	"confessionrelay/internal/middleware"
	"confessionrelay/internal/repository"
	"confessionrelay/internal/service"
	"confessionrelay/internal/service/s3"
	"confessionrelay/internal/telegram"
)

func main() {
	appConfig, err := config.NewConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(appConfig.Log.Mode, appConfig.Log.HashSalt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, appConfig.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", "driver", appConfig.Database.Driver, "error", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	metrics.Init()

	// Repositories
	userStatsRepo := repository.NewUserStatsRepository(db)
	confessionRepo := repository.NewConfessionRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)

	// Telegram
	tgClient, err := telegram.NewClient(
		appConfig.Telegram.Token,
		appConfig.Telegram.ChannelID,
		appConfig.Telegram.BotUsername,
		log,
	)
	if err != nil {
		log.Fatal("failed to connect to telegram", "error", err)
	}

	// Services
	clock := service.Clock(time.Now)

	var archiver service.Archiver
	if appConfig.S3.ArchiveEnabled() {
		s3Config, err := s3.NewConfig(appConfig.S3)
		if err != nil {
			log.Fatal("invalid S3 config", "error", err)
		}
		s3Client, err := s3.NewClient(ctx, s3Config)
		if err != nil {
			log.Fatal("failed to create S3 client", "error", err)
		}
		archiver = service.NewArchiveService(s3Client, tgClient, clock)
		log.Info("photo archive enabled", "bucket", s3Config.Bucket)
	}

	quotaService := service.NewQuotaService(userStatsRepo, appConfig.Policy.MaxConfessionsPerDay, clock)
	confessionService := service.NewConfessionService(confessionRepo, userStatsRepo, publicationRepo, clock)
	publicationService := service.NewPublicationService(
		publicationRepo,
		tgClient,
		archiver,
		service.PublicationOptions{
			MaxAttempts: appConfig.Publish.MaxAttempts,
			RetryAfter:  appConfig.Publish.RetryInterval,
		},
		clock,
		log,
	)
	submissionService := service.NewSubmissionService(
		quotaService,
		service.NewValidator(appConfig.Policy.MinWords, appConfig.Policy.MaxChars),
		confessionService,
		publicationService,
		log,
	)

	// Handlers
	botHandler := handler.NewBotHandler(
		tgClient,
		submissionService,
		confessionService,
		quotaService,
		handler.BotOptions{
			SupportUsername: appConfig.Telegram.SupportUsername,
			BotUsername:     appConfig.Telegram.BotUsername,
			AdminID:         appConfig.Telegram.AdminID,
			MaxPerDay:       appConfig.Policy.MaxConfessionsPerDay,
			MinWords:        appConfig.Policy.MinWords,
			MaxChars:        appConfig.Policy.MaxChars,
		},
		log,
	)
	statusHandler := handler.NewStatusHandler(
		confessionService,
		db,
		appConfig.Telegram.BotUsername,
		appConfig.Telegram.SupportUsername,
		log,
	)

	limiter := middleware.NewRateLimiter(rate.Limit(5), 30)
	go limiter.Cleanup(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler:           handler.NewRouter(statusHandler, limiter, appConfig.Metrics, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := handler.NewHealthServer(db, log)
	healthServer.Register(grpcServer)
	go healthServer.Run(ctx, 15*time.Second)

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", appConfig.Server.GRPCPort))
		if err != nil {
			log.Fatal("failed to listen for gRPC", "port", appConfig.Server.GRPCPort, "error", err)
		}
		log.Info("starting gRPC server", "port", appConfig.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("failed to serve gRPC", "error", err)
		}
	}()

	go func() {
		log.Info("starting HTTP server", "port", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start HTTP server", "error", err)
		}
	}()

	go publicationService.Run(ctx, appConfig.Publish.RetryInterval)

	poller := telegram.NewPoller(
		tgClient.API(),
		botHandler.HandleUpdate,
		appConfig.Telegram.PollTimeout,
		appConfig.Telegram.Workers,
		log,
	)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("telegram poller stopped", "error", err)
		}
	}()

	log.Info("confession relay started",
		"bot", appConfig.Telegram.BotUsername,
		"driver", appConfig.Database.Driver,
		"max_per_day", appConfig.Policy.MaxConfessionsPerDay,
		"min_words", appConfig.Policy.MinWords,
	)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	// The poller can be parked in a long poll for up to PollTimeout seconds.
	select {
	case <-pollerDone:
	case <-shutdownCtx.Done():
		log.Warn("telegram poller did not stop in time")
	}

	log.Info("server exited properly")
}
