// Command kharcha-worker consumes ledger events from RabbitMQ and mirrors
// them into a Google Sheet.
package main

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/cli"
	"kharcha/internal/log"
	gsheet "kharcha/internal/sheets/google"
	"kharcha/internal/worker"
)

func main() {
	cfg, logger, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		cli.Fatal(logger, "Worker configuration validation failed", err)
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting kharcha-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheetsClient, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(gctx, amqpClient)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		_ = amqpClient.Close()
		stop()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
