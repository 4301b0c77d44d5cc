package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/config"
	"github.com/yshioka/equipmatch/internal/hub"
	"github.com/yshioka/equipmatch/internal/repository/mongodb"
	"github.com/yshioka/equipmatch/internal/repository/sheets"
	"github.com/yshioka/equipmatch/internal/scheduler"
	"github.com/yshioka/equipmatch/internal/server/handlers"
	"github.com/yshioka/equipmatch/internal/server/router"
	applicationsvc "github.com/yshioka/equipmatch/internal/service/applications"
	assetsvc "github.com/yshioka/equipmatch/internal/service/assets"
	loansvc "github.com/yshioka/equipmatch/internal/service/loans"
	matchingsvc "github.com/yshioka/equipmatch/internal/service/matching"
	"github.com/yshioka/equipmatch/internal/store"
	"github.com/yshioka/equipmatch/pkg/clients/notify"
	"github.com/yshioka/equipmatch/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	// The ledger source is optional: without spreadsheet credentials the
	// ledger windows simply open on empty datasets.
	var ledgerSource matchingsvc.LedgerSource
	if cfg.Sheets.CredentialsPath != "" {
		src, err := sheets.NewLedgerSource(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init ledger source", zap.Error(err))
		}
		ledgerSource = src
		baseLogger.Info("ledger spreadsheet source enabled")
	} else {
		baseLogger.Warn("sheets credentials missing, ledger windows start empty")
	}

	var notifyClient *notify.Client
	if cfg.Notify.WebhookURL != "" {
		notifyClient = notify.NewClient(cfg.Notify)
		baseLogger.Info("event webhook enabled")
	} else {
		baseLogger.Warn("notify webhook url missing, event notifications disabled")
	}

	messageHub := hub.New(cfg.Matching.Origin, cfg.Matching.InboxSize, baseLogger.Named("hub"))
	defer messageHub.Shutdown()
	sharedState := store.NewSharedState(baseLogger.Named("store.shared"))

	var matchNotifier matchingsvc.Notifier
	var loanNotifier loansvc.Notifier
	if notifyClient != nil {
		matchNotifier = notifyClient
		loanNotifier = notifyClient
	}

	matchingSvc := matchingsvc.NewService(messageHub, sharedState, mongoRepo, ledgerSource, mongoRepo, matchNotifier, cfg.Matching.Actor, baseLogger.Named("svc.matching"))
	assetSvc := assetsvc.NewService(mongoRepo, sharedState, baseLogger.Named("svc.assets"))
	applicationSvc := applicationsvc.NewService(mongoRepo, baseLogger.Named("svc.applications"))
	loanSvc := loansvc.NewService(mongoRepo, loanNotifier, baseLogger.Named("svc.loans"))

	matchingHandler := handlers.NewMatchingHandler(matchingSvc, baseLogger.Named("handlers.matching"))
	assetHandler := handlers.NewAssetHandler(assetSvc, matchingSvc, baseLogger.Named("handlers.assets"))
	applicationHandler := handlers.NewApplicationHandler(applicationSvc, baseLogger.Named("handlers.applications"))
	loanHandler := handlers.NewLoanHandler(loanSvc, baseLogger.Named("handlers.loans"))
	engine := router.New(matchingHandler, assetHandler, applicationHandler, loanHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, matchingSvc, loanSvc, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
