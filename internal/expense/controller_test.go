package expense

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"spendtrack/internal/core"
	"spendtrack/internal/gateway"
)

// fakeAPI emulates the backend's expense collection so the consistency
// round-trip between cache and server can be checked directly.
type fakeAPI struct {
	records []core.Expense
	nextID  int

	failList   error
	failAdd    error
	failUpdate error
	failDelete error

	calls  int
	onList func() // runs before a list returns, e.g. to end the session mid-flight
}

func (f *fakeAPI) ListExpenses(ctx context.Context, cred core.Credential) ([]core.Expense, error) {
	f.calls++
	if f.onList != nil {
		f.onList()
	}
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]core.Expense, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeAPI) AddExpense(ctx context.Context, cred core.Credential, draft core.Draft) (core.Expense, error) {
	f.calls++
	if f.failAdd != nil {
		return core.Expense{}, f.failAdd
	}
	f.nextID++
	created := core.Expense{
		ID:       fmt.Sprintf("e%d", f.nextID),
		Title:    draft.Title,
		Category: draft.Category,
		Amount:   draft.Amount,
		Date:     draft.Date,
	}
	f.records = append(f.records, created)
	return created, nil
}

func (f *fakeAPI) UpdateExpense(ctx context.Context, cred core.Credential, id string, draft core.Draft) (core.Expense, error) {
	f.calls++
	if f.failUpdate != nil {
		return core.Expense{}, f.failUpdate
	}
	for i, e := range f.records {
		if e.ID == id {
			f.records[i] = core.Expense{ID: id, Title: draft.Title, Category: draft.Category, Amount: draft.Amount, Date: draft.Date}
			return f.records[i], nil
		}
	}
	return core.Expense{}, &gateway.Error{Status: 404, Message: "Expense not found", Kind: gateway.KindValidation}
}

func (f *fakeAPI) DeleteExpense(ctx context.Context, cred core.Credential, id string) error {
	f.calls++
	if f.failDelete != nil {
		return f.failDelete
	}
	for i, e := range f.records {
		if e.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return &gateway.Error{Status: 404, Message: "Expense not found", Kind: gateway.KindValidation}
}

type fakeSessionSource struct {
	cred    core.Credential
	active  bool
	epoch   uint64
	cleared int
}

func (f *fakeSessionSource) Current() (core.Credential, bool) {
	return f.cred, f.active
}

func (f *fakeSessionSource) Epoch() uint64 {
	return f.epoch
}

func (f *fakeSessionSource) Clear(ctx context.Context) error {
	f.cred = ""
	f.active = false
	f.epoch++
	f.cleared++
	return nil
}

func newTestController(api *fakeAPI) (*Controller, *fakeSessionSource) {
	session := &fakeSessionSource{cred: "tok", active: true, epoch: 1}
	return NewController(api, session, nil), session
}

func draft(title string, cat core.Category, cents int64) core.Draft {
	return core.Draft{Title: title, Category: cat, Amount: core.Money{Cents: cents}}
}

// requireRoundTrip asserts the cache equals what an immediate Load yields.
func requireRoundTrip(t *testing.T, c *Controller) {
	t.Helper()
	before := c.Expenses()
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("verification load: %v", err)
	}
	after := c.Expenses()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("cache diverged from server:\ncache:  %+v\nserver: %+v", before, after)
	}
}

func TestOperationsFailFastWhenAnonymous(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api, &fakeSessionSource{}, nil)
	ctx := context.Background()

	ops := map[string]func() error{
		"load":   func() error { return c.Load(ctx) },
		"add":    func() error { return c.Add(ctx, draft("a", core.Other, 1)) },
		"update": func() error { return c.Update(ctx, "e1", draft("a", core.Other, 1)) },
		"delete": func() error { return c.Delete(ctx, "e1") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
	if api.calls != 0 {
		t.Fatalf("anonymous operations must not hit the network, got %d calls", api.calls)
	}
}

func TestMutationConsistencyRoundTrip(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	requireRoundTrip(t, c)

	if err := c.Add(ctx, draft("lunch", core.FoodAndDining, 1000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	requireRoundTrip(t, c)

	if err := c.Add(ctx, draft("train", core.Travel, 2000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	requireRoundTrip(t, c)

	if err := c.Update(ctx, "e1", draft("long lunch", core.FoodAndDining, 1500)); err != nil {
		t.Fatalf("update: %v", err)
	}
	requireRoundTrip(t, c)

	if err := c.Delete(ctx, "e2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireRoundTrip(t, c)

	expenses := c.Expenses()
	if len(expenses) != 1 || expenses[0].Title != "long lunch" {
		t.Fatalf("unexpected final cache %+v", expenses)
	}
}

func TestDeleteFailureLeavesRecordCached(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)
	ctx := context.Background()

	if err := c.Add(ctx, draft("lunch", core.FoodAndDining, 1000)); err != nil {
		t.Fatalf("add: %v", err)
	}

	api.failDelete = &gateway.Error{Status: 500, Message: "boom", Kind: gateway.KindServer}
	err := c.Delete(ctx, "e1")
	if err == nil {
		t.Fatalf("expected delete failure")
	}
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected gateway error for display, got %v", err)
	}

	expenses := c.Expenses()
	if len(expenses) != 1 || expenses[0].ID != "e1" {
		t.Fatalf("record must stay cached after failed delete, got %+v", expenses)
	}
}

func TestFailedMutationLeavesCacheUnchanged(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)
	ctx := context.Background()

	if err := c.Add(ctx, draft("lunch", core.FoodAndDining, 1000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := c.Expenses()

	api.failAdd = &gateway.Error{Status: 400, Message: "title and amount are required", Kind: gateway.KindValidation}
	if err := c.Add(ctx, draft("x", core.Other, 1)); err == nil {
		t.Fatalf("expected add failure")
	}
	api.failUpdate = &gateway.Error{Status: 400, Kind: gateway.KindValidation}
	if err := c.Update(ctx, "e1", draft("y", core.Other, 1)); err == nil {
		t.Fatalf("expected update failure")
	}

	if !reflect.DeepEqual(before, c.Expenses()) {
		t.Fatalf("cache changed across failed mutations")
	}
}

func TestInvalidDraftRejectedLocally(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)

	if err := c.Add(context.Background(), draft("", core.Other, 1)); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("invalid draft must not hit the network")
	}
}

func TestStaleSessionResultDiscarded(t *testing.T) {
	api := &fakeAPI{records: []core.Expense{{ID: "e1", Title: "old", Category: core.Other, Amount: core.Money{Cents: 1}}}}
	c, session := newTestController(api)
	ctx := context.Background()

	// The session ends while the list request is in flight.
	api.onList = func() { session.epoch++ }

	err := c.Load(ctx)
	if !errors.Is(err, ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}
	if len(c.Expenses()) != 0 {
		t.Fatalf("stale result must not populate the cache, got %+v", c.Expenses())
	}
}

func TestAuthFailureClearsSession(t *testing.T) {
	api := &fakeAPI{failList: &gateway.Error{Status: 401, Kind: gateway.KindAuth}}
	c, session := newTestController(api)

	if err := c.Load(context.Background()); err == nil {
		t.Fatalf("expected auth failure")
	}
	if session.cleared != 1 {
		t.Fatalf("401 must clear the session, cleared=%d", session.cleared)
	}
	if len(c.Expenses()) != 0 {
		t.Fatalf("cache must be dropped with the session")
	}
}

func TestOverlappingMutationRejected(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)
	ctx := context.Background()

	if err := c.Add(ctx, draft("lunch", core.FoodAndDining, 1000)); err != nil {
		t.Fatalf("add: %v", err)
	}

	// A second mutation arriving while one is in flight is rejected.
	var overlapping error
	api.onList = func() { overlapping = c.Delete(ctx, "e1") }
	if err := c.Add(ctx, draft("coffee", core.FoodAndDining, 300)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !errors.Is(overlapping, ErrPending) {
		t.Fatalf("expected ErrPending for overlapping mutation, got %v", overlapping)
	}
}

func TestSummarizeOverCache(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)
	ctx := context.Background()

	for _, d := range []core.Draft{
		draft("lunch", core.FoodAndDining, 1000),
		draft("coffee", core.FoodAndDining, 500),
		draft("train", core.Travel, 2000),
	} {
		if err := c.Add(ctx, d); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	s := c.Summarize()
	if s.Count != 3 || s.Total.Cents != 3500 || s.Average.Cents != 1167 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.ByCategory[core.FoodAndDining].Cents != 1500 || s.ByCategory[core.Travel].Cents != 2000 {
		t.Fatalf("unexpected category sums %+v", s.ByCategory)
	}
}
