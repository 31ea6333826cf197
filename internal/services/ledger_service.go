// Package services orchestrates the expense pipeline, the discretionary-spend
// guard, the ledger store and event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/analytics"
	"kharcha/internal/core"
	"kharcha/internal/currency"
	"kharcha/internal/guard"
	"kharcha/internal/inference"
	"kharcha/internal/ledger"
	"kharcha/internal/log"
	"kharcha/internal/pipeline"
)

// DefaultStoreTimeout bounds every ledger call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// Publisher announces ledger changes. Failures never undo a change.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Outcome says what a submission did.
type Outcome string

const (
	OutcomeCommentary Outcome = "commentary"
	OutcomeCommitted  Outcome = "committed"
	OutcomePending    Outcome = "pending_confirmation"
)

// SubmitResult is the answer to one piece of free-form text.
type SubmitResult struct {
	Outcome    Outcome            `json:"outcome"`
	Commentary string             `json:"commentary,omitempty"`
	Committed  []core.LedgerEntry `json:"committed,omitempty"`
	Pending    []core.LedgerEntry `json:"pending,omitempty"`
	Required   int                `json:"required,omitempty"`
	Current    int                `json:"current"`
}

// ConfirmResult is the answer to one confirm signal.
type ConfirmResult struct {
	Evaded    bool               `json:"evaded"`
	Offset    guard.Offset       `json:"offset"`
	Current   int                `json:"current"`
	Required  int                `json:"required"`
	Committed []core.LedgerEntry `json:"committed,omitempty"`
}

type LedgerService struct {
	store        ledger.Store
	inferrer     inference.Inferrer
	normalizer   *pipeline.Normalizer
	guard        *guard.Guard
	publisher    Publisher
	canonical    string
	storeTimeout time.Duration
	now          func() time.Time
	logger       *log.Logger
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithGuard(g *guard.Guard) Option {
	return func(s *LedgerService) { s.guard = g }
}

// WithRates sets the conversion table used by the normalizer and the
// canonical currency named in prompts.
func WithRates(t *currency.Table) Option {
	return func(s *LedgerService) {
		if t == nil {
			return
		}
		s.normalizer = pipeline.NewNormalizer(t, s.logger)
		s.canonical = t.CanonicalCode()
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithClock overrides the source of "today" for submissions.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store ledger.Store, inferrer inference.Inferrer, logger *log.Logger, opts ...Option) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentPipeline)
	s := &LedgerService{
		store:        store,
		inferrer:     inferrer,
		guard:        guard.New(),
		canonical:    currency.Canonical,
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
		logger:       logger,
	}
	s.normalizer = pipeline.NewNormalizer(nil, logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit turns text into ledger entries. Non-expense text yields commentary
// only; a large Want arms the guard instead of committing.
func (s *LedgerService) Submit(ctx context.Context, state guard.State, text string) (SubmitResult, guard.State, error) {
	if strings.TrimSpace(text) == "" {
		return SubmitResult{}, state, core.ErrEmptyInput
	}
	if !state.IsIdle() {
		return SubmitResult{}, state, core.ErrGuardBusy
	}

	today := core.DateOf(s.now())
	raw, err := s.inferrer.Infer(ctx, inference.ExtractionPrompt(text, today, s.canonical))
	if err != nil {
		s.logger.ErrorContext(ctx, "Inference failed",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		if errors.Is(err, core.ErrInferenceFailed) {
			return SubmitResult{}, state, err
		}
		return SubmitResult{}, state, fmt.Errorf("%w: %w", core.ErrInferenceFailed, err)
	}

	candidates, err := s.normalizer.Run(text, raw, today)
	if err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed inference response",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		return SubmitResult{}, state, err
	}

	result := SubmitResult{Outcome: OutcomeCommentary, Commentary: pipeline.Commentary(candidates)}

	expenses := pipeline.Expenses(candidates)
	if len(expenses) == 0 {
		return result, state, nil
	}

	batch, err := core.ValidateBatch(expenses)
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected expense batch",
			log.FieldOperation, log.OpSubmit,
			log.FieldError, err)
		return SubmitResult{}, state, err
	}

	if s.guard.ShouldArm(batch) {
		next, err := s.guard.Arm(state, batch)
		if err != nil {
			return SubmitResult{}, state, err
		}
		s.logger.InfoContext(ctx, "Guard armed",
			log.FieldOperation, log.OpSubmit,
			log.FieldAmount, batch[0].Amount.String(),
			log.FieldCount, len(batch))
		result.Outcome = OutcomePending
		result.Pending = next.Pending
		result.Required = next.Required
		result.Current = next.Current
		return result, next, nil
	}

	committed, err := s.commit(ctx, batch)
	if err != nil {
		return SubmitResult{}, state, err
	}
	result.Outcome = OutcomeCommitted
	result.Committed = committed
	return result, state, nil
}

// Confirm forwards a confirm signal to the guard.
func (s *LedgerService) Confirm(ctx context.Context, state guard.State) (ConfirmResult, guard.State, error) {
	out, next, err := s.guard.Confirm(ctx, state, s.commit)
	if err != nil {
		return ConfirmResult{}, next, err
	}
	if out.Evaded {
		s.logger.DebugContext(ctx, "Confirm evaded",
			log.FieldOperation, log.OpConfirm,
			log.FieldEvasions, out.Current)
	}
	return ConfirmResult{
		Evaded:    out.Evaded,
		Offset:    out.Offset,
		Current:   out.Current,
		Required:  out.Required,
		Committed: out.Committed,
	}, next, nil
}

// Cancel abandons a pending confirmation.
func (s *LedgerService) Cancel(ctx context.Context, state guard.State) guard.State {
	if state.IsArmed() {
		s.logger.InfoContext(ctx, "Pending batch discarded",
			log.FieldOperation, log.OpCancel,
			log.FieldCount, len(state.Pending))
	}
	return guard.Cancel(state)
}

func (s *LedgerService) commit(ctx context.Context, batch []core.LedgerEntry) ([]core.LedgerEntry, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	committed, err := s.store.Append(storeCtx, batch)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to append entries",
			log.FieldOperation, log.OpAppend,
			log.FieldError, err)
		return nil, fmt.Errorf("append entries: %w", err)
	}

	for _, e := range committed {
		s.logger.InfoContext(ctx, "Entry committed", log.NewFields().
			WithOperation(log.OpAppend).
			WithEntry(e).ToSlice()...)
	}

	s.publish(ctx, amqp.NewCommittedEvent(committed))
	return committed, nil
}

// Delete removes one entry. Unknown ids yield core.ErrNotFound.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(storeCtx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete entry %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEntryID, id)
	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

// List returns the ledger newest first.
func (s *LedgerService) List(ctx context.Context) ([]core.LedgerEntry, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	entries, err := s.store.Query(storeCtx)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return entries, nil
}

// Dashboard derives every analytics signal as of today.
func (s *LedgerService) Dashboard(ctx context.Context, today core.Date) (analytics.Summary, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(entries, today), nil
}

// Review asks the model for a short performance review of recent spending.
// An empty ledger gets a fixed answer without calling the model.
func (s *LedgerService) Review(ctx context.Context) (string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return inference.EmptyReview, nil
	}

	text, err := s.inferrer.Infer(ctx, inference.ReviewPrompt(entries, s.canonical))
	if err != nil {
		s.logger.ErrorContext(ctx, "Review failed",
			log.FieldOperation, log.OpReview,
			log.FieldError, err)
		return "", fmt.Errorf("%w: %w", core.ErrReviewUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}

// Today is the service's notion of the current date.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now())
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"ids", ev.IDs,
			log.FieldError, err)
	}
}
