package main

import (
	"context"
	"errors"

	"kharcha/internal/amqp"
	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/config"
	"kharcha/internal/log"
	"kharcha/internal/services"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	svc     *services.LedgerService
	ping    backend.PingFunc
	closers []func() error
}

// appLoader builds an app for one command invocation.
type appLoader func(ctx context.Context) (*app, error)

// loadApp wires config, the ledger backend, inference, rates and the
// optional AMQP publisher.
func loadApp(ctx context.Context) (*app, error) {
	cfg, logger, err := cli.LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	be, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.ping = be.Ping
	if be.Cleanup != nil {
		a.closers = append(a.closers, func() error { return be.Cleanup() })
	}

	rates, err := cli.LoadRates(cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	inferrer, closeInferrer, err := cli.NewInferrer(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeInferrer)

	opts := []services.Option{
		services.WithRates(rates),
		services.WithStoreTimeout(cfg.StoreTimeout),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The ledger works without the mirror; events are simply not sent.
			logger.Warn("AMQP unavailable, ledger events will not be published", "error", err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			a.closers = append(a.closers, client.Close)
		}
	}

	a.svc = services.NewLedgerService(be.Store, inferrer, logger, opts...)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
