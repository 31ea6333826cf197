// Package guard implements the confirmation cycle for large discretionary
// spends. A batch whose first entry is a Want above the threshold is held as
// pending until the user has chased the confirm control around the screen
// enough times.
package guard

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

const (
	// DefaultRequiredEvasions is how many confirm signals are swallowed
	// before one commits.
	DefaultRequiredEvasions = 5
	// MaxOffset bounds each axis of a relocation, in pixels.
	MaxOffset = 150
)

// DefaultThreshold is the canonical amount a Want must exceed to arm the guard.
var DefaultThreshold = decimal.NewFromInt(100)

// Phase is the position of a session in the confirmation cycle.
type Phase string

const (
	Idle       Phase = "idle"
	Armed      Phase = "armed"
	Committing Phase = "committing"
)

// State is the guard state owned by one session. The zero value is Idle.
type State struct {
	Phase    Phase              `json:"phase"`
	Pending  []core.LedgerEntry `json:"pending,omitempty"`
	Required int                `json:"required,omitempty"`
	Current  int                `json:"current,omitempty"`
}

// IsIdle reports whether no cycle is in progress.
func (s State) IsIdle() bool {
	return s.Phase == "" || s.Phase == Idle
}

// IsArmed reports whether a batch is pending confirmation.
func (s State) IsArmed() bool {
	return s.Phase == Armed
}

// Offset is where the confirm control moves to, relative to its origin.
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Outcome describes what a confirm signal did. Exactly one of Evaded and
// Committed is meaningful.
type Outcome struct {
	Evaded    bool
	Offset    Offset
	Current   int
	Required  int
	Committed []core.LedgerEntry
}

// CommitFunc persists a pending batch and returns it with ids assigned.
type CommitFunc func(ctx context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error)

// Guard holds the arming policy and the source of relocation offsets. It has
// no per-session state and is safe for concurrent use.
type Guard struct {
	threshold decimal.Decimal
	required  int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Guard.
type Option func(*Guard)

// WithThreshold overrides the arming amount.
func WithThreshold(d decimal.Decimal) Option {
	return func(g *Guard) { g.threshold = d }
}

// WithRequiredEvasions overrides the number of swallowed signals.
func WithRequiredEvasions(n int) Option {
	return func(g *Guard) {
		if n >= 0 {
			g.required = n
		}
	}
}

// WithSeed makes offsets reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Guard) { g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// New creates a Guard with the default threshold and evasion count.
func New(opts ...Option) *Guard {
	seed := uint64(time.Now().UnixNano())
	g := &Guard{
		threshold: DefaultThreshold,
		required:  DefaultRequiredEvasions,
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldArm reports whether batch triggers the guard. Only the first entry
// is considered.
func (g *Guard) ShouldArm(batch []core.LedgerEntry) bool {
	if len(batch) == 0 {
		return false
	}
	first := batch[0]
	return first.Kind == core.Want && first.Amount.GreaterThan(g.threshold)
}

// Arm moves an idle state to Armed holding batch. It fails with
// core.ErrGuardBusy when a cycle is already in progress.
func (g *Guard) Arm(s State, batch []core.LedgerEntry) (State, error) {
	if !s.IsIdle() {
		return s, core.ErrGuardBusy
	}
	pending := make([]core.LedgerEntry, len(batch))
	copy(pending, batch)
	return State{Phase: Armed, Pending: pending, Required: g.required}, nil
}

// Confirm handles one confirm signal. While fewer than Required signals have
// been evaded it relocates the control and returns an Evaded outcome. After
// that it commits the pending batch through commit. The returned state is
// Idle after a commit attempt whether or not it succeeded.
func (g *Guard) Confirm(ctx context.Context, s State, commit CommitFunc) (Outcome, State, error) {
	switch s.Phase {
	case Armed:
	case Committing:
		return Outcome{}, s, core.ErrGuardBusy
	default:
		return Outcome{}, s, core.ErrGuardIdle
	}

	if s.Current < s.Required {
		next := s
		next.Current++
		return Outcome{
			Evaded:   true,
			Offset:   g.offset(),
			Current:  next.Current,
			Required: next.Required,
		}, next, nil
	}

	committing := State{Phase: Committing, Pending: s.Pending, Required: s.Required, Current: s.Current}
	committed, err := commit(ctx, committing.Pending)
	if err != nil {
		return Outcome{Current: s.Current, Required: s.Required}, State{Phase: Idle}, err
	}
	return Outcome{Committed: committed, Current: s.Current, Required: s.Required}, State{Phase: Idle}, nil
}

// Cancel abandons any cycle and discards its pending batch.
func Cancel(State) State {
	return State{Phase: Idle}
}

func (g *Guard) offset() Offset {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Offset{
		X: g.rng.IntN(2*MaxOffset+1) - MaxOffset,
		Y: g.rng.IntN(2*MaxOffset+1) - MaxOffset,
	}
}
