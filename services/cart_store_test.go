package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"cretan-guru/models"

	"github.com/shopspring/decimal"
)

// switchableUser simulates signing in and out between operations.
type switchableUser struct {
	mu   sync.Mutex
	user *models.AuthUser
	err  error
}

func (s *switchableUser) CurrentUser(context.Context) (*models.AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.err
}

func (s *switchableUser) signIn(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &models.AuthUser{ID: id}
}

type storeFixture struct {
	store     *CartStore
	repo      *fakeCartRepo
	recorder  *NotificationRecorder
	sessions  *MemoryStore
	users     *switchableUser
	publisher *fakePublisher
}

func newFixture(t *testing.T, products ...models.ProductRef) *storeFixture {
	t.Helper()
	f := &storeFixture{
		repo:      newFakeCartRepo(products...),
		recorder:  NewNotificationRecorder(),
		sessions:  NewMemoryStore(),
		users:     &switchableUser{},
		publisher: &fakePublisher{},
	}
	f.sessions.Set(models.SessionStorageKey, "6f1c0f0e-8d5e-4b8a-9f43-2a1d3c4b5e6f")
	f.store = NewCartStore(NewIdentityContext(f.users, f.sessions), f.repo, f.recorder, WithPublisher(f.publisher))
	return f
}

func (f *storeFixture) sessionOwner() models.OwnerKey {
	id, _ := f.sessions.Get(models.SessionStorageKey)
	return models.SessionOwner(id)
}

func (f *storeFixture) lastNotification(t *testing.T) models.Notification {
	t.Helper()
	items := f.recorder.Notifications()
	if len(items) == 0 {
		t.Fatal("expected a notification")
	}
	return items[len(items)-1]
}

func assertTotals(t *testing.T, state models.CartState) {
	t.Helper()
	amount := decimal.Zero
	quantity := 0
	for _, line := range state.Lines {
		amount = amount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		quantity += line.Quantity
	}
	if !state.TotalAmount.Equal(amount) {
		t.Fatalf("total amount %s does not match lines %s", state.TotalAmount, amount)
	}
	if state.TotalQuantity != quantity {
		t.Fatalf("total quantity %d does not match lines %d", state.TotalQuantity, quantity)
	}
}

func assertUnique(t *testing.T, state models.CartState) {
	t.Helper()
	seen := map[string]bool{}
	for _, line := range state.Lines {
		if seen[line.ProductID] {
			t.Fatalf("duplicate line for %s", line.ProductID)
		}
		if line.Quantity <= 0 {
			t.Fatalf("line %s held with quantity %d", line.ProductID, line.Quantity)
		}
		seen[line.ProductID] = true
	}
}

func TestAddItemMergesSameProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("p1", 10))

	for _, qty := range []int{2, 1, 4} {
		f.store.AddItem(ctx, product("p1", 10), qty)
	}

	state := f.store.State()
	if len(state.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(state.Lines))
	}
	if state.Lines[0].Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", state.Lines[0].Quantity)
	}
	if qty, _ := f.repo.quantity(f.sessionOwner(), "p1"); qty != 7 {
		t.Fatalf("expected persisted quantity 7, got %d", qty)
	}
	if n := f.repo.rowCount(f.sessionOwner()); n != 1 {
		t.Fatalf("expected one persisted row, got %d", n)
	}
}

func TestAddItemScenarioSameProductTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.AddItem(ctx, product("p1", 10), 2)
	f.store.AddItem(ctx, product("p1", 10), 1)

	state := f.store.State()
	if len(state.Lines) != 1 || state.Lines[0].ProductID != "p1" || state.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected lines %+v", state.Lines)
	}
	if !state.TotalAmount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total 30, got %s", state.TotalAmount)
	}
	if state.Lines[0].RemoteRowID == "" || state.Lines[0].Status != models.LineCommitted {
		t.Fatalf("expected committed line with row id, got %+v", state.Lines[0])
	}
}

func TestRemoveItemScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.AddItem(ctx, product("p1", 5), 1)
	f.store.AddItem(ctx, product("p2", 7), 1)
	f.store.RemoveItem(ctx, "p1")

	state := f.store.State()
	if len(state.Lines) != 1 || state.Lines[0].ProductID != "p2" || state.Lines[0].Quantity != 1 {
		t.Fatalf("unexpected lines %+v", state.Lines)
	}
	if !state.TotalAmount.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected total 7, got %s", state.TotalAmount)
	}
	if got := f.lastNotification(t); got.Level != models.NotifySuccess || !strings.Contains(got.Message, "removed") {
		t.Fatalf("expected removal notification, got %+v", got)
	}
	if _, ok := f.repo.quantity(f.sessionOwner(), "p1"); ok {
		t.Fatal("expected p1 row to be deleted remotely")
	}
}

func TestRemoveAbsentItemIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddItem(ctx, product("p1", 5), 2)
	before := f.store.State()
	calls := len(f.repo.calls)
	notes := len(f.recorder.Notifications())

	f.store.RemoveItem(ctx, "missing")

	after := f.store.State()
	if len(after.Lines) != len(before.Lines) || after.Lines[0] != before.Lines[0] {
		t.Fatalf("lines changed: %+v -> %+v", before.Lines, after.Lines)
	}
	if len(f.repo.calls) != calls || len(f.recorder.Notifications()) != notes {
		t.Fatal("expected no remote call and no notification")
	}
}

func TestUpdateQuantityCollapsesAtZeroOrBelow(t *testing.T) {
	for _, qty := range []int{0, -3} {
		ctx := context.Background()
		f := newFixture(t)
		f.store.AddItem(ctx, product("p1", 5), 2)
		f.store.AddItem(ctx, product("p2", 3), 1)

		f.store.UpdateQuantity(ctx, "p1", qty)

		state := f.store.State()
		if _, ok := state.Line("p1"); ok {
			t.Fatalf("quantity %d: expected p1 to be removed", qty)
		}
		if _, ok := f.repo.quantity(f.sessionOwner(), "p1"); ok {
			t.Fatalf("quantity %d: expected remote row to be deleted", qty)
		}
		assertTotals(t, state)
	}
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddItem(ctx, product("p1", 5), 2)

	f.store.UpdateQuantity(ctx, "p1", 6)

	line, _ := f.store.State().Line("p1")
	if line.Quantity != 6 || line.Status != models.LineCommitted {
		t.Fatalf("unexpected line %+v", line)
	}
	if qty, _ := f.repo.quantity(f.sessionOwner(), "p1"); qty != 6 {
		t.Fatalf("expected persisted quantity 6, got %d", qty)
	}

	calls := len(f.repo.calls)
	f.store.UpdateQuantity(ctx, "unknown", 4)
	if len(f.repo.calls) != calls {
		t.Fatal("updating an unknown product should not reach the repository")
	}
}

func TestAddItemQuantityDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.AddItem(ctx, product("p1", 5), 0)
	line, _ := f.store.State().Line("p1")
	if line.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", line.Quantity)
	}

	f.store.AddItem(ctx, product("p1", 5), -2)
	line, _ = f.store.State().Line("p1")
	if line.Quantity != 1 {
		t.Fatalf("negative add changed quantity to %d", line.Quantity)
	}
	if got := f.lastNotification(t); got.Level != models.NotifyError {
		t.Fatalf("expected rejection notification, got %+v", got)
	}
}

func TestAddItemRemoteFailureKeepsOptimisticLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.failUpsert = true

	f.store.AddItem(ctx, product("p1", 10), 2)

	state := f.store.State()
	line, ok := state.Line("p1")
	if !ok || line.Quantity != 2 {
		t.Fatalf("expected optimistic line to remain, got %+v", state.Lines)
	}
	if line.Status != models.LineFailed || line.RemoteRowID != "" {
		t.Fatalf("expected failed line without row id, got %+v", line)
	}
	if got := f.lastNotification(t); got.Level != models.NotifyError {
		t.Fatalf("expected failure notification, got %+v", got)
	}
	if len(f.publisher.topics) != 0 {
		t.Fatalf("expected no events for failed writes, got %v", f.publisher.topics)
	}
}

func TestOperationsUseUserKeyAfterSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.AddItem(ctx, product("p1", 10), 1)
	f.users.signIn("user-42")
	f.store.AddItem(ctx, product("p2", 10), 1)
	f.store.UpdateQuantity(ctx, "p2", 3)

	if _, ok := f.repo.quantity(f.sessionOwner(), "p1"); !ok {
		t.Fatal("expected anonymous add under the session key")
	}
	user := models.UserOwner("user-42")
	if qty, ok := f.repo.quantity(user, "p2"); !ok || qty != 3 {
		t.Fatalf("expected p2 under the user key with quantity 3, got %d %v", qty, ok)
	}
	if _, ok := f.repo.quantity(f.sessionOwner(), "p2"); ok {
		t.Fatal("signed-in write leaked into the session key")
	}
}

func TestIdentityFailureFallsBackToSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.users.err = errors.New("auth unreachable")
	f.users.user = &models.AuthUser{ID: "user-42"}

	f.store.AddItem(ctx, product("p1", 10), 1)

	if _, ok := f.repo.quantity(f.sessionOwner(), "p1"); !ok {
		t.Fatal("expected session key when the identity provider fails")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("p1", 10), product("p2", 4))
	f.repo.put(f.sessionOwner(), "p1", 2)
	f.repo.put(f.sessionOwner(), "p2", 5)

	if f.store.Loaded() {
		t.Fatal("store should start uninitialized")
	}
	f.store.Load(ctx)

	state := f.store.State()
	if !f.store.Loaded() || len(state.Lines) != 2 {
		t.Fatalf("expected two loaded lines, got %+v", state.Lines)
	}
	for _, line := range state.Lines {
		if line.Status != models.LineCommitted || line.RemoteRowID == "" {
			t.Fatalf("expected committed line with row id, got %+v", line)
		}
	}
	if !state.TotalAmount.Equal(decimal.NewFromInt(40)) || state.TotalQuantity != 7 {
		t.Fatalf("unexpected totals %s / %d", state.TotalAmount, state.TotalQuantity)
	}
}

func TestLoadFailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddItem(ctx, product("p1", 10), 2)
	f.repo.failSelect = true

	f.store.Load(ctx)

	if !f.store.Loaded() {
		t.Fatal("an attempted load still marks the store loaded")
	}
	if line, ok := f.store.State().Line("p1"); !ok || line.Quantity != 2 {
		t.Fatalf("expected prior state to survive, got %+v", f.store.State().Lines)
	}
	if got := f.lastNotification(t); got.Level != models.NotifyError {
		t.Fatalf("expected load failure notification, got %+v", got)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddItem(ctx, product("p1", 10), 2)
	f.store.AddItem(ctx, product("p2", 1), 1)

	f.store.Clear(ctx)

	state := f.store.State()
	if len(state.Lines) != 0 || !state.TotalAmount.IsZero() || state.TotalQuantity != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}
	if n := f.repo.rowCount(f.sessionOwner()); n != 0 {
		t.Fatalf("expected no persisted rows, got %d", n)
	}
}

func TestReconcileRevertsFailedMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddItem(ctx, product("p1", 10), 2)
	f.store.AddItem(ctx, product("p2", 5), 1)
	f.store.AddItem(ctx, product("p3", 1), 4)

	f.repo.failUpsert = true
	f.repo.failUpdate = true
	f.repo.failDelete = true
	f.store.AddItem(ctx, product("p4", 3), 1)
	f.store.AddItem(ctx, product("p1", 10), 5)
	f.store.UpdateQuantity(ctx, "p2", 9)
	f.store.RemoveItem(ctx, "p3")

	if reverted := f.store.Reconcile(); reverted != 4 {
		t.Fatalf("expected 4 reverted products, got %d", reverted)
	}

	state := f.store.State()
	want := map[string]int{"p1": 2, "p2": 1, "p3": 4}
	if len(state.Lines) != len(want) {
		t.Fatalf("unexpected lines after reconcile %+v", state.Lines)
	}
	for id, qty := range want {
		line, ok := state.Line(id)
		if !ok || line.Quantity != qty || line.Status != models.LineCommitted {
			t.Fatalf("expected %s x%d committed, got %+v", id, qty, line)
		}
	}
	assertTotals(t, state)

	if f.store.Reconcile() != 0 {
		t.Fatal("second reconcile should have nothing to revert")
	}
}

func TestLaterSuccessClearsFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.failUpsert = true
	f.store.AddItem(ctx, product("p1", 10), 1)

	f.repo.failUpsert = false
	f.store.AddItem(ctx, product("p1", 10), 1)

	if f.store.Reconcile() != 0 {
		t.Fatal("a successful rewrite of the line leaves nothing to revert")
	}
	if qty, _ := f.repo.quantity(f.sessionOwner(), "p1"); qty != 2 {
		t.Fatalf("expected persisted quantity 2, got %d", qty)
	}
}

func TestClearFailureThenReconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddItem(ctx, product("p1", 10), 2)
	f.repo.failClear = true

	f.store.Clear(ctx)
	if len(f.store.State().Lines) != 0 {
		t.Fatal("clear should empty memory even when the remote delete fails")
	}

	f.store.Reconcile()
	if line, ok := f.store.State().Line("p1"); !ok || line.Quantity != 2 {
		t.Fatalf("expected p1 restored, got %+v", f.store.State().Lines)
	}
}

func TestMergeSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, product("p1", 10), product("p2", 4))
	user := models.UserOwner("user-42")
	f.repo.put(f.sessionOwner(), "p1", 2)
	f.repo.put(f.sessionOwner(), "p2", 1)
	f.repo.put(user, "p1", 1)

	f.users.signIn("user-42")
	f.store.MergeSession(ctx)

	if n := f.repo.rowCount(f.sessionOwner()); n != 0 {
		t.Fatalf("expected session rows to be gone, got %d", n)
	}
	state := f.store.State()
	p1, _ := state.Line("p1")
	p2, _ := state.Line("p2")
	if len(state.Lines) != 2 || p1.Quantity != 3 || p2.Quantity != 1 {
		t.Fatalf("expected merged quantities p1=3 p2=1, got %+v", state.Lines)
	}
	if len(f.publisher.topics) != 1 || f.publisher.topics[0] != TopicCartMerged {
		t.Fatalf("expected one merge event, got %v", f.publisher.topics)
	}
}

func TestMergeSessionRequiresUser(t *testing.T) {
	f := newFixture(t)

	f.store.MergeSession(context.Background())

	for _, call := range f.repo.calls {
		if strings.HasPrefix(call, "merge") {
			t.Fatal("merge must not run for an anonymous visitor")
		}
	}
	if got := f.lastNotification(t); got.Level != models.NotifyError {
		t.Fatalf("expected error notification, got %+v", got)
	}
}

func TestEventsPublishedOnSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.AddItem(ctx, product("p1", 10), 1)
	f.store.UpdateQuantity(ctx, "p1", 2)
	f.store.RemoveItem(ctx, "p1")
	f.store.Clear(ctx)

	want := []string{TopicCartItemAdded, TopicCartItemUpdated, TopicCartItemRemoved, TopicCartCleared}
	if strings.Join(f.publisher.topics, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, f.publisher.topics)
	}
}

func TestInvariantsHoldAcrossMixedOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := []string{"p1", "p2", "p3"}

	for i := 0; i < 60; i++ {
		id := ids[i%len(ids)]
		switch i % 5 {
		case 0, 1:
			f.store.AddItem(ctx, product(id, int64(i%7+1)), i%3+1)
		case 2:
			f.store.UpdateQuantity(ctx, id, i%4-1)
		case 3:
			f.repo.failUpsert = !f.repo.failUpsert
			f.store.AddItem(ctx, product(id, 2), 1)
		case 4:
			f.store.RemoveItem(ctx, ids[(i+1)%len(ids)])
		}
		state := f.store.State()
		assertUnique(t, state)
		assertTotals(t, state)
	}
}
