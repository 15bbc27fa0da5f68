package services

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"cretan-guru/models"

	"github.com/shopspring/decimal"
)

var errRemoteDown = errors.New("remote unavailable")

type fakeRow struct {
	id       int
	quantity int
}

// fakeCartRepo keeps rows per owner and product; fail* flags simulate remote errors.
type fakeCartRepo struct {
	mu       sync.Mutex
	nextID   int
	rows     map[models.OwnerKey]map[string]*fakeRow
	order    map[models.OwnerKey][]string
	products map[string]models.ProductRef

	failSelect bool
	failUpsert bool
	failUpdate bool
	failDelete bool
	failClear  bool
	failMerge  bool

	calls []string
}

func newFakeCartRepo(products ...models.ProductRef) *fakeCartRepo {
	repo := &fakeCartRepo{
		rows:     map[models.OwnerKey]map[string]*fakeRow{},
		order:    map[models.OwnerKey][]string{},
		products: map[string]models.ProductRef{},
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeCartRepo) record(call string, owner models.OwnerKey) {
	r.calls = append(r.calls, call+" "+owner.String())
}

func (r *fakeCartRepo) put(owner models.OwnerKey, productID string, quantity int) *fakeRow {
	if r.rows[owner] == nil {
		r.rows[owner] = map[string]*fakeRow{}
	}
	row, ok := r.rows[owner][productID]
	if !ok {
		r.nextID++
		row = &fakeRow{id: r.nextID}
		r.rows[owner][productID] = row
		r.order[owner] = append(r.order[owner], productID)
	}
	row.quantity = quantity
	return row
}

func (r *fakeCartRepo) drop(owner models.OwnerKey, productID string) {
	delete(r.rows[owner], productID)
	kept := r.order[owner][:0]
	for _, id := range r.order[owner] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	r.order[owner] = kept
}

func (r *fakeCartRepo) quantity(owner models.OwnerKey, productID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[owner][productID]
	if !ok {
		return 0, false
	}
	return row.quantity, true
}

func (r *fakeCartRepo) rowCount(owner models.OwnerKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows[owner])
}

func (r *fakeCartRepo) SelectLinesForOwner(ctx context.Context, owner models.OwnerKey) ([]models.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("select", owner)
	if r.failSelect {
		return nil, errRemoteDown
	}
	lines := []models.CartLine{}
	for _, productID := range r.order[owner] {
		row := r.rows[owner][productID]
		p := r.products[productID]
		lines = append(lines, models.CartLine{
			ProductID:   productID,
			Name:        p.Name,
			ImageURL:    p.ImageURL,
			UnitPrice:   p.UnitPrice,
			Quantity:    row.quantity,
			RemoteRowID: strconv.Itoa(row.id),
		})
	}
	return lines, nil
}

func (r *fakeCartRepo) UpsertLine(ctx context.Context, owner models.OwnerKey, productID string, quantity int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("upsert", owner)
	if r.failUpsert {
		return "", errRemoteDown
	}
	return strconv.Itoa(r.put(owner, productID, quantity).id), nil
}

func (r *fakeCartRepo) UpdateLineQuantity(ctx context.Context, owner models.OwnerKey, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("update", owner)
	if r.failUpdate {
		return errRemoteDown
	}
	if _, ok := r.rows[owner][productID]; ok {
		r.put(owner, productID, quantity)
	}
	return nil
}

func (r *fakeCartRepo) DeleteLine(ctx context.Context, owner models.OwnerKey, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("delete", owner)
	if r.failDelete {
		return errRemoteDown
	}
	r.drop(owner, productID)
	return nil
}

func (r *fakeCartRepo) DeleteAllLines(ctx context.Context, owner models.OwnerKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("clear", owner)
	if r.failClear {
		return errRemoteDown
	}
	delete(r.rows, owner)
	delete(r.order, owner)
	return nil
}

func (r *fakeCartRepo) MergeOwner(ctx context.Context, from, to models.OwnerKey) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("merge", to)
	if r.failMerge {
		return 0, errRemoteDown
	}
	moved := 0
	for _, productID := range append([]string(nil), r.order[from]...) {
		qty := r.rows[from][productID].quantity
		if existing, ok := r.rows[to][productID]; ok {
			qty += existing.quantity
		}
		r.put(to, productID, qty)
		moved++
	}
	delete(r.rows, from)
	delete(r.order, from)
	return moved, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *fakePublisher) Publish(ctx context.Context, topic, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func product(id string, price int64) models.ProductRef {
	return models.ProductRef{ID: id, Name: id, ImageURL: "/images/" + id + ".jpg", UnitPrice: decimal.NewFromInt(price)}
}
