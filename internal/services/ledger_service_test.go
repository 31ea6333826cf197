package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/currency"
	"kharcha/internal/guard"
	"kharcha/internal/inference"
	"kharcha/internal/ledger/memory"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) Append(context.Context, []core.LedgerEntry) ([]core.LedgerEntry, error) {
	return nil, f.err
}

func newService(t *testing.T, response string, opts ...Option) (*LedgerService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithPublisher(pub)}, opts...)
	return NewLedgerService(store, inference.Static(response), nil, opts...), store, pub
}

func TestSubmitCommitsSmallExpense(t *testing.T) {
	svc, store, pub := newService(t, "```json\n"+`[{"is_expense":true,"item_name":"Groceries","amount":45.5,"category":"Food","type":"Need","funny_comment":"eat well"}]`+"\n```")

	res, state, err := svc.Submit(context.Background(), guard.State{}, "groceries 45.50")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, "eat well", res.Commentary)
	require.Len(t, res.Committed, 1)
	assert.NotEmpty(t, res.Committed[0].ID)
	assert.Equal(t, core.NewDate(2025, 3, 14), res.Committed[0].Date)
	assert.True(t, state.IsIdle())
	assert.Equal(t, 1, store.Len())

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventEntriesCommitted, pub.events[0].Type)
	assert.Equal(t, []string{res.Committed[0].ID}, pub.events[0].IDs)
}

func TestSubmitCommentaryOnly(t *testing.T) {
	svc, store, pub := newService(t, `[{"is_expense":true,"item_name":"Pizza","amount":20,"funny_comment":"how much though?"}]`)

	res, state, err := svc.Submit(context.Background(), guard.State{}, "I had some pizza")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommentary, res.Outcome)
	assert.Equal(t, "how much though?", res.Commentary)
	assert.Empty(t, res.Committed)
	assert.True(t, state.IsIdle())
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, pub.events)
}

func TestSubmitArmsGuardForLargeWant(t *testing.T) {
	svc, store, pub := newService(t,
		`[{"item_name":"Shoes","amount":100,"currency":"USD","category":"Clothing","type":"Want"}]`,
		WithRates(currency.Default()))
	ctx := context.Background()

	res, state, err := svc.Submit(ctx, guard.State{}, "shoes for 100 usd")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, guard.DefaultRequiredEvasions, res.Required)
	require.Len(t, res.Pending, 1)
	assert.True(t, res.Pending[0].Amount.Equal(decimal.NewFromInt(140)))
	assert.Equal(t, "Shoes (100 USD)", res.Pending[0].ItemName)
	assert.True(t, state.IsArmed())
	assert.Equal(t, 0, store.Len())

	_, _, err = svc.Submit(ctx, state, "coffee 3")
	assert.ErrorIs(t, err, core.ErrGuardBusy)

	for i := 1; i <= guard.DefaultRequiredEvasions; i++ {
		var cr ConfirmResult
		cr, state, err = svc.Confirm(ctx, state)
		require.NoError(t, err)
		assert.True(t, cr.Evaded)
		assert.Equal(t, i, cr.Current)
		assert.Equal(t, 0, store.Len())
	}

	cr, state, err := svc.Confirm(ctx, state)
	require.NoError(t, err)
	assert.False(t, cr.Evaded)
	require.Len(t, cr.Committed, 1)
	assert.True(t, state.IsIdle())
	assert.Equal(t, 1, store.Len())
	require.Len(t, pub.events, 1)
}

func TestCancelDiscardsPendingBatch(t *testing.T) {
	svc, store, _ := newService(t, `[{"item_name":"Console","amount":500,"type":"Want"}]`)
	ctx := context.Background()

	_, state, err := svc.Submit(ctx, guard.State{}, "console 500")
	require.NoError(t, err)
	require.True(t, state.IsArmed())

	state = svc.Cancel(ctx, state)
	assert.True(t, state.IsIdle())
	assert.Equal(t, 0, store.Len())

	_, _, err = svc.Confirm(ctx, state)
	assert.ErrorIs(t, err, core.ErrGuardIdle)
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty text", func(t *testing.T) {
		svc, _, _ := newService(t, `[]`)
		_, _, err := svc.Submit(ctx, guard.State{}, "   ")
		assert.ErrorIs(t, err, core.ErrEmptyInput)
	})

	t.Run("malformed response", func(t *testing.T) {
		svc, store, _ := newService(t, `Sorry, I can't do that`)
		_, _, err := svc.Submit(ctx, guard.State{}, "coffee 3")
		assert.ErrorIs(t, err, core.ErrMalformedResponse)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("validation failure rejects whole batch", func(t *testing.T) {
		svc, store, _ := newService(t, `[{"item_name":"Gas","amount":40},{"item_name":"","amount":5}]`)
		_, _, err := svc.Submit(ctx, guard.State{}, "gas 40 and 5 for something")
		var ve *core.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, 1, ve.Index)
		assert.ErrorIs(t, err, core.ErrInvalidItemName)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("inference failure", func(t *testing.T) {
		store := memory.New()
		boom := errors.New("quota")
		svc := NewLedgerService(store, inference.Func(func(context.Context, string) (string, error) {
			return "", boom
		}), nil)
		_, _, err := svc.Submit(ctx, guard.State{}, "coffee 3")
		assert.ErrorIs(t, err, core.ErrInferenceFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("store failure", func(t *testing.T) {
		boom := errors.New("disk full")
		svc := NewLedgerService(failingStore{Store: memory.New(), err: boom}, inference.Static(`[{"item_name":"Tea","amount":3}]`), nil)
		_, state, err := svc.Submit(ctx, guard.State{}, "tea 3")
		assert.ErrorIs(t, err, boom)
		assert.True(t, state.IsIdle())
	})
}

func TestPublishFailureDoesNotFailCommit(t *testing.T) {
	svc, store, pub := newService(t, `[{"item_name":"Tea","amount":3}]`)
	pub.err = errors.New("broker down")

	res, _, err := svc.Submit(context.Background(), guard.State{}, "tea 3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, res.Outcome)
	assert.Equal(t, 1, store.Len())
}

func TestDeleteListAndDashboard(t *testing.T) {
	svc, store, pub := newService(t, `[]`)
	ctx := context.Background()

	committed, err := store.Append(ctx, []core.LedgerEntry{
		{ItemName: "Rent", Amount: decimal.NewFromInt(1200), Category: "Housing", Kind: core.Need, Date: core.NewDate(2025, 3, 13)},
		{ItemName: "Movie", Amount: decimal.NewFromInt(15), Category: "Fun", Kind: core.Want, Date: core.NewDate(2025, 3, 14)},
	})
	require.NoError(t, err)

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Movie", entries[0].ItemName)

	summary, err := svc.Dashboard(ctx, core.NewDate(2025, 3, 14))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Streak)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.Distribution.Need.Equal(decimal.NewFromInt(1200)))
	assert.True(t, summary.Distribution.Want.Equal(decimal.NewFromInt(15)))

	require.NoError(t, svc.Delete(ctx, committed[0].ID))
	assert.ErrorIs(t, svc.Delete(ctx, committed[0].ID), core.ErrNotFound)
	assert.Equal(t, 1, store.Len())

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventEntryDeleted, pub.events[0].Type)
	assert.Equal(t, []string{committed[0].ID}, pub.events[0].IDs)
}

func TestReview(t *testing.T) {
	ctx := context.Background()

	t.Run("empty ledger skips the model", func(t *testing.T) {
		called := false
		svc := NewLedgerService(memory.New(), inference.Func(func(context.Context, string) (string, error) {
			called = true
			return "", nil
		}), nil)
		text, err := svc.Review(ctx)
		require.NoError(t, err)
		assert.Equal(t, inference.EmptyReview, text)
		assert.False(t, called)
	})

	t.Run("uses the newest entries", func(t *testing.T) {
		store := memory.New()
		var batch []core.LedgerEntry
		for day := 1; day <= 25; day++ {
			batch = append(batch, core.LedgerEntry{
				ItemName: "item", Amount: decimal.NewFromInt(int64(day)), Category: "Misc",
				Kind: core.Want, Date: core.NewDate(2025, 3, day),
			})
		}
		_, err := store.Append(ctx, batch)
		require.NoError(t, err)

		var prompt string
		svc := NewLedgerService(store, inference.Func(func(_ context.Context, p string) (string, error) {
			prompt = p
			return "  Bas karo yaar.  ", nil
		}), nil)

		text, err := svc.Review(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Bas karo yaar.", text)
		assert.Equal(t, inference.ReviewWindow, strings.Count(prompt, " - Want"))
		assert.Contains(t, prompt, "item ($25.00) - Want")
		assert.NotContains(t, prompt, "item ($5.00) - Want")
	})

	t.Run("model failure", func(t *testing.T) {
		store := memory.New()
		_, err := store.Append(ctx, []core.LedgerEntry{{ItemName: "Tea", Amount: decimal.NewFromInt(3), Category: "Food", Kind: core.Need, Date: core.NewDate(2025, 3, 1)}})
		require.NoError(t, err)
		svc := NewLedgerService(store, inference.Func(func(context.Context, string) (string, error) {
			return "", errors.New("timeout")
		}), nil)
		_, err = svc.Review(ctx)
		assert.ErrorIs(t, err, core.ErrReviewUnavailable)
	})
}
