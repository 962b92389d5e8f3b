// Package confirm drives a single draft from evaluation to persistence.
//
// A Controller is the state machine
//
//	Idle -> Evaluated -> (AwaitingConfirmation | Rejected) -> (Submitted | Cancelled)
//
// Blocked and Denied outcomes go to Rejected and never reach persistence.
// Every other outcome waits for an explicit Confirm or Cancel. Editing the
// draft while a verdict is pending drops the verdict and returns to Idle, so a
// stale outcome is never honoured.
package confirm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/engine"
	"finanzas/internal/log"
)

// State of a review.
type State string

const (
	StateIdle                 State = "idle"
	StateEvaluated            State = "evaluated"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateRejected             State = "rejected"
	StateSubmitted            State = "submitted"
	StateCancelled            State = "cancelled"
)

type (
	Evaluator interface {
		Evaluate(d core.TransactionDraft, a core.Account) engine.Outcome
	}

	AccountSource interface {
		GetAccount(ctx context.Context, id string) (core.Account, error)
	}

	Persister interface {
		Persist(ctx context.Context, d core.TransactionDraft) (core.Transaction, error)
	}
)

// Deps are the collaborators of a controller.
type Deps struct {
	Evaluator Evaluator
	Accounts  AccountSource
	Persister Persister
	Logger    *log.Logger
	Now       func() time.Time
}

// Controller holds one review. All methods are safe for concurrent use; they
// are serialized so that a draft is persisted at most once.
type Controller struct {
	mu sync.Mutex

	id     string
	userID string
	deps   Deps
	logger *log.Logger

	state       State
	draft       *core.TransactionDraft
	outcome     *engine.Outcome
	failure     error
	transaction *core.Transaction

	lastActivity atomic.Int64
}

// Snapshot is a read-only copy of a controller.
type Snapshot struct {
	ID          string                 `json:"id"`
	State       State                  `json:"state"`
	Draft       *core.TransactionDraft `json:"draft,omitempty"`
	Outcome     *engine.Outcome        `json:"outcome,omitempty"`
	Failure     string                 `json:"failure,omitempty"`
	Transaction *core.Transaction      `json:"transaction,omitempty"`
}

// NewController returns an Idle controller for userID.
func NewController(id, userID string, deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	c := &Controller{
		id:     id,
		userID: userID,
		deps:   deps,
		logger: deps.Logger.WithComponent(log.ComponentReview).With(log.FieldReviewID, id, log.FieldUserID, userID),
		state:  StateIdle,
	}
	c.touch()
	return c
}

func (c *Controller) ID() string     { return c.id }
func (c *Controller) UserID() string { return c.userID }

// LastActivity is the time of the last action on the controller. It does not
// take the lock, so it can be read while a persistence call is in flight.
func (c *Controller) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{ID: c.id, State: c.state}
	if c.draft != nil {
		d := *c.draft
		s.Draft = &d
	}
	if c.outcome != nil {
		o := *c.outcome
		s.Outcome = &o
	}
	if c.failure != nil {
		s.Failure = c.failure.Error()
	}
	if c.transaction != nil {
		t := *c.transaction
		s.Transaction = &t
	}
	return s
}

// Review evaluates draft against the current account snapshot. It is only
// allowed from Idle. Blocked and Denied outcomes leave the controller in
// Rejected and are returned together with ErrBlocked or ErrDenied.
func (c *Controller) Review(ctx context.Context, draft core.TransactionDraft) (engine.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state != StateIdle {
		return engine.Outcome{}, invalidTransition("review", c.state)
	}

	if draft.Amount.GreaterThan(core.MaxAmount) {
		return engine.Outcome{}, core.ErrAmountTooLarge
	}
	draft.UserID = c.userID
	account, err := c.deps.Accounts.GetAccount(ctx, draft.AccountID)
	if err != nil {
		return engine.Outcome{}, fmt.Errorf("resolve account %q: %w", draft.AccountID, err)
	}

	outcome := c.deps.Evaluator.Evaluate(draft, account)
	c.draft = &draft
	c.outcome = &outcome
	c.failure = nil
	c.transition(StateEvaluated)

	switch outcome.Kind {
	case engine.Blocked:
		c.failure = fmt.Errorf("%w: %q", ErrBlocked, account.Name)
		c.transition(StateRejected)
	case engine.Denied:
		c.failure = fmt.Errorf("%w: short by %s", ErrDenied, outcome.Shortfall)
		c.transition(StateRejected)
	default:
		c.transition(StateAwaitingConfirmation)
	}

	c.logger.InfoContext(ctx, "Draft evaluated",
		append(log.NewFields().
			WithTransaction(draft.AccountID, draft.CategoryID, string(draft.Kind), draft.Amount.String()).
			WithOperation(log.OpReview).ToSlice(),
			log.FieldOutcome, string(outcome.Kind))...)

	return outcome, c.failure
}

// Confirm submits the draft under review. The persister is called exactly
// once with the draft as it was evaluated. A persister error moves the
// controller to Rejected and is returned as a *PersistenceFailure.
func (c *Controller) Confirm(ctx context.Context) (core.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state != StateAwaitingConfirmation {
		return core.Transaction{}, invalidTransition("confirm", c.state)
	}
	c.transition(StateSubmitted)

	tx, err := c.deps.Persister.Persist(ctx, *c.draft)
	c.touch()
	if err != nil {
		c.failure = &PersistenceFailure{Reason: err.Error(), Err: err}
		c.transition(StateRejected)
		c.logger.ErrorContext(ctx, "Transaction not recorded",
			log.NewFields().WithOperation(log.OpConfirm).WithError(err).ToSlice()...)
		return core.Transaction{}, c.failure
	}

	c.transaction = &tx
	c.logger.InfoContext(ctx, "Transaction confirmed",
		log.FieldTransaction, tx.ID, log.FieldOperation, log.OpConfirm)
	return tx, nil
}

// Cancel discards the draft awaiting confirmation and returns to Idle.
// It reports whether the cancellation was a safety stop.
func (c *Controller) Cancel() (safetyStop bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state != StateAwaitingConfirmation {
		return false, invalidTransition("cancel", c.state)
	}
	safetyStop = c.outcome != nil && c.outcome.SafetyStop
	c.transition(StateCancelled)
	c.reset()
	return safetyStop, nil
}

// Acknowledge closes a rejected review and returns to Idle.
func (c *Controller) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.state != StateRejected {
		return invalidTransition("acknowledge", c.state)
	}
	c.reset()
	return nil
}

// Edit replaces the draft. Any pending verdict is invalidated and the
// controller returns to Idle; call Review again to re-evaluate.
func (c *Controller) Edit(draft core.TransactionDraft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	switch c.state {
	case StateIdle, StateAwaitingConfirmation, StateRejected:
	default:
		return invalidTransition("edit", c.state)
	}
	draft.UserID = c.userID
	c.reset()
	c.draft = &draft
	return nil
}

// Revise is Edit followed by Review.
func (c *Controller) Revise(ctx context.Context, draft core.TransactionDraft) (engine.Outcome, error) {
	if err := c.Edit(draft); err != nil {
		return engine.Outcome{}, err
	}
	return c.Review(ctx, draft)
}

func (c *Controller) reset() {
	c.draft = nil
	c.outcome = nil
	c.failure = nil
	c.transition(StateIdle)
}

func (c *Controller) transition(to State) {
	c.logger.Debug("Review transition", "from", string(c.state), "to", string(to))
	c.state = to
}

func (c *Controller) touch() {
	c.lastActivity.Store(c.deps.Now().UnixNano())
}
