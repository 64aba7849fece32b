package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mealscan/config"
	"mealscan/handler"
	"mealscan/importer"
	"mealscan/mailer"
	"mealscan/photo"
	"mealscan/repo"
	"mealscan/scan"
	"mealscan/stats"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stores, sheets, photos := buildBackends(ctx, cfg)

	scanner := scan.New(stores, photos, cfg.PhotoTimeout)
	imp := importer.NewEngine(stores.Participants, cfg.ImportBatchSize)
	agg := stats.NewAggregator(stores.Participants, stores.Stats)
	dispatcher := mailer.NewDispatcher(
		stores,
		mailer.NewCouponRenderer(),
		mailer.NewResendTransport(cfg.ResendAPIKey, cfg.MailFrom),
		cfg.DispatchBatchSize,
	)

	api := &handler.API{
		Stores:     stores,
		Scanner:    scanner,
		Importer:   imp,
		Sheets:     sheets,
		Dispatcher: dispatcher,
		Aggregator: agg,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if cfg.ScanBotToken != "" {
		scanBot := handler.NewScanBotHandler(scanner)
		opts := []bot.Option{
			bot.WithDefaultHandler(scanBot.Handler),
		}
		b, err := bot.New(cfg.ScanBotToken, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("error creating scan bot")
		}
		go b.Start(ctx)
		log.Info().Msg("scanning-station bot started")
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	log.Info().Msg("service stopped")
}

// buildBackends wires the store and the Google-backed collaborators.
// Without a service account key everything runs on the in-memory store,
// which keeps local development and demos self-contained.
func buildBackends(ctx context.Context, cfg *config.Config) (repo.Stores, *importer.SheetFetcher, scan.PhotoResolver) {
	if cfg.ServiceAccountKeyPath == "" {
		log.Warn().Msg("no FIREBASE_SERVICE_ACCOUNT_KEY_PATH set, using in-memory store")
		return repo.NewMemoryStore().Stores(), nil, nil
	}

	fs, err := repo.NewFirestoreStore(ctx, cfg.ServiceAccountKeyPath, cfg.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing Firebase")
	}

	sheets, err := importer.NewSheetFetcher(ctx, cfg.ServiceAccountKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing sheets service")
	}

	lister, err := photo.NewDriveLister(ctx, cfg.ServiceAccountKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing drive service")
	}
	photos := photo.NewResolver(lister, cfg.PhotoCacheTTL)

	return fs.Stores(), sheets, photos
}
