package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtline/tournament-engine/brackets"
	"github.com/courtline/tournament-engine/config"
	"github.com/courtline/tournament-engine/db"
	"github.com/courtline/tournament-engine/handlers"
	"github.com/courtline/tournament-engine/repositories"
	"github.com/courtline/tournament-engine/routes"
	"github.com/courtline/tournament-engine/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	handlers.SetLogger(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	txRunner := repositories.NewTxRunner(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	stageRepo := repositories.NewPostgresStageRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	stageParticipantRepo := repositories.NewPostgresStageParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	activityRepo := repositories.NewPostgresActivityRepository(dbConn)
	logger.Info("repositories initialized")

	notifier := services.NewHubNotifier(wsHub)
	audit := services.NewAuditService(activityRepo, logger)
	emailSender := services.NewEmailService(cfg, logger)

	ratingService := services.NewRatingService(participantRepo, userRepo, logger)
	bracketService := services.NewBracketService(
		stageRepo, groupRepo, matchRepo, participantRepo, stageParticipantRepo, logger)
	matchService := services.NewMatchService(
		txRunner, matchRepo, stageRepo, groupRepo, participantRepo, tournamentRepo, userRepo,
		bracketService, ratingService, audit, notifier, emailSender, logger)
	stageService := services.NewStageService(
		txRunner, tournamentRepo, stageRepo, groupRepo, matchRepo, participantRepo,
		stageParticipantRepo, bracketService, audit, notifier, logger)
	tournamentService := services.NewTournamentService(
		txRunner, tournamentRepo, stageRepo, groupRepo, participantRepo, matchRepo,
		audit, notifier, logger)
	participantService := services.NewParticipantService(
		txRunner, participantRepo, tournamentRepo, userRepo, audit, notifier, emailSender, logger)
	standingsService := services.NewStandingsService(stageRepo, groupRepo, matchRepo, participantRepo)
	logger.Info("services initialized")

	router := routes.InitRoutes(routes.Handlers{
		Tournament:  handlers.NewTournamentHandler(tournamentService, stageService),
		Participant: handlers.NewParticipantHandler(participantService),
		Match:       handlers.NewMatchHandler(matchService),
		Standings:   handlers.NewStandingsHandler(standingsService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, logger),
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}
		logger.Info("server shut down")
	}
}
