// Package worker mirrors ledger events into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"kharcha/internal/amqp"
	"kharcha/internal/log"
	"kharcha/internal/sheets"
)

// Consumer delivers ledger events to a handler until ctx is done.
type Consumer interface {
	ConsumeWithReconnect(ctx context.Context, handler amqp.Handler) error
}

// SyncWorker applies ledger events to a sheets mirror.
type SyncWorker struct {
	mirror sheets.Mirror
	logger *log.Logger
}

func NewSyncWorker(mirror sheets.Mirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events from c until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := c.ConsumeWithReconnect(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "Sync worker stopped")
		return nil
	}
	return err
}

// HandleEvent dispatches one event. A returned error requeues it.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Type {
	case amqp.EventEntriesCommitted:
		return w.handleCommitted(ctx, ev)
	case amqp.EventEntryDeleted:
		return w.handleDeleted(ctx, ev)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", "type", ev.Type)
		return nil
	}
}

func (w *SyncWorker) handleCommitted(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing committed entries",
		log.FieldOperation, log.OpSync,
		log.FieldCount, len(ev.Entries))

	if len(ev.Entries) == 0 {
		return nil
	}

	ref, err := w.mirror.AppendEntries(ctx, ev.Entries)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully mirrored entries",
		"sheets_ref", ref,
		"ids", ev.IDs)
	return nil
}

func (w *SyncWorker) handleDeleted(ctx context.Context, ev *amqp.LedgerEvent) error {
	total := 0
	for _, id := range ev.IDs {
		removed, err := w.mirror.DeleteEntry(ctx, id)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to delete mirrored entry",
				log.FieldEntryID, id,
				log.FieldError, err,
				"timestamp", ev.Timestamp)
			return fmt.Errorf("delete entry %s from sheets: %w", id, err)
		}
		if removed == 0 {
			w.logger.WarnContext(ctx, "Deleted entry had no mirrored row", log.FieldEntryID, id)
		}
		total += removed
	}

	w.logger.InfoContext(ctx, "Successfully deleted mirrored entries",
		"ids", ev.IDs,
		"rows", total)
	return nil
}
