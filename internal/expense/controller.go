// Package expense owns the in-memory expense collection for the current
// session. After every successful mutation round-trip the cache reflects
// the server's view: add and update trigger a full reload, delete removes
// the record locally. Failures leave the cache untouched.
package expense

import (
	"context"
	"errors"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/gateway"
	"spendtrack/internal/log"
)

var (
	// ErrUnauthenticated rejects operations without an active credential
	// before any network call is made.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrStaleSession discards a result that arrived after the session it
	// was issued under ended.
	ErrStaleSession = errors.New("session changed while request was in flight")
	// ErrPending rejects a mutation while another is in flight.
	ErrPending = errors.New("a mutation is already in flight")
)

// API is the slice of the gateway the controller calls.
type API interface {
	ListExpenses(ctx context.Context, cred core.Credential) ([]core.Expense, error)
	AddExpense(ctx context.Context, cred core.Credential, draft core.Draft) (core.Expense, error)
	UpdateExpense(ctx context.Context, cred core.Credential, id string, draft core.Draft) (core.Expense, error)
	DeleteExpense(ctx context.Context, cred core.Credential, id string) error
}

// SessionSource provides the credential, the staleness epoch, and the
// clear hook invoked when the backend rejects the credential.
type SessionSource interface {
	Current() (core.Credential, bool)
	Epoch() uint64
	Clear(ctx context.Context) error
}

var _ API = (*gateway.Client)(nil)

type Controller struct {
	gateway API
	session SessionSource
	logger  *log.Logger

	mu    sync.Mutex
	cache []core.Expense
	busy  bool
}

func NewController(gw API, session SessionSource, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Controller{
		gateway: gw,
		session: session,
		logger:  logger.WithComponent(log.ComponentExpense),
	}
}

// Load fetches the full list and replaces the cache wholesale.
func (c *Controller) Load(ctx context.Context) error {
	cred, epoch, err := c.begin()
	if err != nil {
		return err
	}
	return c.reload(ctx, cred, epoch)
}

// Add validates and submits a draft, then reloads the collection so the
// cache matches the server's view.
func (c *Controller) Add(ctx context.Context, draft core.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	cred, epoch, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	created, err := c.gateway.AddExpense(ctx, cred, draft)
	if err != nil {
		return c.classify(ctx, err)
	}
	c.logger.InfoContext(ctx, "Expense created",
		log.FieldOperation, log.OpAdd,
		log.FieldExpenseID, created.ID,
		log.FieldCategory, created.Category.String(),
		log.FieldAmountCents, created.Amount.Cents)

	return c.reload(ctx, cred, epoch)
}

// Update submits a draft against an existing record, then reloads.
func (c *Controller) Update(ctx context.Context, id string, draft core.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	cred, epoch, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	if _, err := c.gateway.UpdateExpense(ctx, cred, id, draft); err != nil {
		return c.classify(ctx, err)
	}
	c.logger.InfoContext(ctx, "Expense updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldExpenseID, id)

	return c.reload(ctx, cred, epoch)
}

// Delete removes a record on the backend and drops it from the cache.
// On failure the record stays cached.
func (c *Controller) Delete(ctx context.Context, id string) error {
	cred, epoch, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	if err := c.gateway.DeleteExpense(ctx, cred, id); err != nil {
		return c.classify(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Epoch() != epoch {
		return ErrStaleSession
	}
	kept := c.cache[:0:0]
	for _, e := range c.cache {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	c.cache = kept

	c.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, id,
		log.FieldCount, len(c.cache))
	return nil
}

// Expenses returns a copy of the cached collection.
func (c *Controller) Expenses() []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Expense, len(c.cache))
	copy(out, c.cache)
	return out
}

// Summarize derives the aggregates from the current cache.
func (c *Controller) Summarize() core.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.Summarize(c.cache)
}

// begin snapshots the credential and epoch, failing fast when anonymous.
func (c *Controller) begin() (core.Credential, uint64, error) {
	cred, ok := c.session.Current()
	if !ok || cred.Empty() {
		return "", 0, ErrUnauthenticated
	}
	return cred, c.session.Epoch(), nil
}

// acquire is begin plus the single-mutation-in-flight guard.
func (c *Controller) acquire() (core.Credential, uint64, error) {
	cred, epoch, err := c.begin()
	if err != nil {
		return "", 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return "", 0, ErrPending
	}
	c.busy = true
	return cred, epoch, nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// reload replaces the cache with the server's list, unless the session
// moved on while the request was in flight.
func (c *Controller) reload(ctx context.Context, cred core.Credential, epoch uint64) error {
	expenses, err := c.gateway.ListExpenses(ctx, cred)
	if err != nil {
		return c.classify(ctx, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Epoch() != epoch {
		c.logger.InfoContext(ctx, "Discarding stale list result",
			log.FieldEpoch, epoch)
		return ErrStaleSession
	}
	c.cache = expenses

	c.logger.DebugContext(ctx, "Collection loaded",
		log.FieldOperation, log.OpList,
		log.FieldCount, len(expenses))
	return nil
}

// classify applies the auth-failure policy: a 401 on any authenticated
// call means the credential is dead, so the session is cleared.
func (c *Controller) classify(ctx context.Context, err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Kind == gateway.KindAuth {
		c.logger.WarnContext(ctx, "Credential rejected, clearing session",
			log.FieldStatusCode, gwErr.Status)
		if clearErr := c.session.Clear(ctx); clearErr != nil {
			c.logger.WarnContext(ctx, "Failed to clear session", log.FieldError, clearErr)
		}
		c.mu.Lock()
		c.cache = nil
		c.mu.Unlock()
	}
	return err
}
