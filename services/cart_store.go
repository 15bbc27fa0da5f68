package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cretan-guru/models"

	"go.uber.org/zap"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartLineRepository persists cart lines for one owner key at a time.
type CartLineRepository interface {
	SelectLinesForOwner(ctx context.Context, owner models.OwnerKey) ([]models.CartLine, error)
	UpsertLine(ctx context.Context, owner models.OwnerKey, productID string, quantity int) (string, error)
	UpdateLineQuantity(ctx context.Context, owner models.OwnerKey, productID string, quantity int) error
	DeleteLine(ctx context.Context, owner models.OwnerKey, productID string) error
	DeleteAllLines(ctx context.Context, owner models.OwnerKey) error
	MergeOwner(ctx context.Context, from, to models.OwnerKey) (int, error)
}

type CartStoreOption func(*CartStore)

func WithLogger(logger *zap.Logger) CartStoreOption {
	return func(s *CartStore) { s.logger = logger }
}

func WithPublisher(publisher EventPublisher) CartStoreOption {
	return func(s *CartStore) { s.publisher = publisher }
}

// CartStore holds the visitor's cart in memory and mirrors every mutation to the
// repository. Mutations apply in memory first; a failed remote write is reported
// through the notifier and is not rolled back unless Reconcile is called.
type CartStore struct {
	identity  *IdentityContext
	repo      CartLineRepository
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger

	mu     sync.Mutex
	lines  []models.CartLine
	loaded bool
	seq    uint64
	// last mutation sequence per product; stale completions do not touch the line
	inflight map[string]uint64
	// line state before the first unsaved mutation; a nil entry means the line was absent
	preimages map[string]*models.CartLine
}

func NewCartStore(identity *IdentityContext, repo CartLineRepository, notifier Notifier, opts ...CartStoreOption) *CartStore {
	s := &CartStore{
		identity:  identity,
		repo:      repo,
		notifier:  notifier,
		publisher: NopPublisher{},
		logger:    zap.NewNop(),
		lines:     []models.CartLine{},
		inflight:  map[string]uint64{},
		preimages: map[string]*models.CartLine{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = MultiNotifier(nil)
	}
	return s
}

func (s *CartStore) State() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.NewCartState(s.lines)
}

func (s *CartStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Load replaces the in-memory lines with the owner's persisted lines. On a read
// failure the previous lines are kept.
func (s *CartStore) Load(ctx context.Context) {
	owner := s.identity.OwnerKey(ctx)
	lines, err := s.repo.SelectLinesForOwner(ctx, owner)

	s.mu.Lock()
	s.loaded = true
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("load cart failed", zap.String("owner", owner.String()), zap.Error(err))
		s.notify(models.NotifyError, "We could not load your cart")
		return
	}

	s.lines = make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		line.Status = models.LineCommitted
		s.lines = append(s.lines, line)
	}
	s.preimages = map[string]*models.CartLine{}
	s.mu.Unlock()
}

// AddItem merges quantity into the product's line. A zero quantity means one.
func (s *CartStore) AddItem(ctx context.Context, product models.ProductRef, quantity int) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || product.ID == "" {
		s.logger.Warn("add item rejected", zap.String("product_id", product.ID), zap.Int("quantity", quantity))
		s.notify(models.NotifyError, fmt.Sprintf("Could not add %s: %v", displayName(product.Name, product.ID), ErrInvalidQuantity))
		return
	}

	s.mu.Lock()
	before := s.snapshotLocked(product.ID)
	var total int
	if i := s.indexLocked(product.ID); i >= 0 {
		s.lines[i].Quantity += quantity
		s.lines[i].Status = models.LinePending
		total = s.lines[i].Quantity
	} else {
		s.lines = append(s.lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: product.UnitPrice,
			Quantity:  quantity,
			Status:    models.LinePending,
		})
		total = quantity
	}
	seq := s.beginLocked(product.ID)
	s.mu.Unlock()

	owner := s.identity.OwnerKey(ctx)
	rowID, err := s.repo.UpsertLine(ctx, owner, product.ID, total)
	if err != nil {
		s.fail(product.ID, seq, before)
		s.logger.Warn("upsert cart line failed",
			zap.String("owner", owner.String()), zap.String("product_id", product.ID), zap.Error(err))
		s.notify(models.NotifyError, fmt.Sprintf("Could not save %s to your cart", displayName(product.Name, product.ID)))
		return
	}

	s.commit(product.ID, seq, rowID)
	s.notify(models.NotifySuccess, fmt.Sprintf("%s added to cart", displayName(product.Name, product.ID)))
	s.publish(ctx, TopicCartItemAdded, owner, CartItemEvent{
		OwnerKind: string(owner.Kind),
		OwnerID:   owner.ID,
		ProductID: product.ID,
		Quantity:  total,
		Timestamp: time.Now(),
	})
}

// UpdateQuantity sets an existing line's quantity; quantity <= 0 removes the line.
// Unknown products are ignored.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID)
		return
	}

	s.mu.Lock()
	i := s.indexLocked(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	before := s.snapshotLocked(productID)
	s.lines[i].Quantity = quantity
	s.lines[i].Status = models.LinePending
	name := s.lines[i].Name
	seq := s.beginLocked(productID)
	s.mu.Unlock()

	owner := s.identity.OwnerKey(ctx)
	if err := s.repo.UpdateLineQuantity(ctx, owner, productID, quantity); err != nil {
		s.fail(productID, seq, before)
		s.logger.Warn("update cart line failed",
			zap.String("owner", owner.String()), zap.String("product_id", productID), zap.Error(err))
		s.notify(models.NotifyError, fmt.Sprintf("Could not update %s in your cart", displayName(name, productID)))
		return
	}

	s.commit(productID, seq, "")
	s.notify(models.NotifySuccess, fmt.Sprintf("%s quantity updated", displayName(name, productID)))
	s.publish(ctx, TopicCartItemUpdated, owner, CartItemEvent{
		OwnerKind: string(owner.Kind),
		OwnerID:   owner.ID,
		ProductID: productID,
		Quantity:  quantity,
		Timestamp: time.Now(),
	})
}

// RemoveItem drops the product's line. Removing an absent product is a no-op.
func (s *CartStore) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	i := s.indexLocked(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	before := s.snapshotLocked(productID)
	name := s.lines[i].Name
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	seq := s.beginLocked(productID)
	s.mu.Unlock()

	owner := s.identity.OwnerKey(ctx)
	if err := s.repo.DeleteLine(ctx, owner, productID); err != nil {
		s.fail(productID, seq, before)
		s.logger.Warn("delete cart line failed",
			zap.String("owner", owner.String()), zap.String("product_id", productID), zap.Error(err))
		s.notify(models.NotifyError, fmt.Sprintf("Could not remove %s from your cart", displayName(name, productID)))
		return
	}

	s.commit(productID, seq, "")
	s.notify(models.NotifySuccess, fmt.Sprintf("%s removed from cart", displayName(name, productID)))
	s.publish(ctx, TopicCartItemRemoved, owner, CartItemEvent{
		OwnerKind: string(owner.Kind),
		OwnerID:   owner.ID,
		ProductID: productID,
		Timestamp: time.Now(),
	})
}

// Clear empties the cart and deletes every persisted row for the owner.
func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	befores := make(map[string]*models.CartLine, len(s.lines))
	seqs := make(map[string]uint64, len(s.lines))
	for _, line := range s.lines {
		befores[line.ProductID] = s.snapshotLocked(line.ProductID)
	}
	// unsaved removals still have remote rows that this delete covers
	for productID := range s.preimages {
		if _, ok := befores[productID]; !ok {
			befores[productID] = nil
		}
	}
	for productID := range befores {
		seqs[productID] = s.beginLocked(productID)
	}
	s.lines = []models.CartLine{}
	s.mu.Unlock()

	owner := s.identity.OwnerKey(ctx)
	if err := s.repo.DeleteAllLines(ctx, owner); err != nil {
		for productID, before := range befores {
			s.fail(productID, seqs[productID], before)
		}
		s.logger.Warn("clear cart failed", zap.String("owner", owner.String()), zap.Error(err))
		s.notify(models.NotifyError, "Could not clear your cart")
		return
	}

	for productID := range befores {
		s.commit(productID, seqs[productID], "")
	}
	s.notify(models.NotifySuccess, "Cart cleared")
	s.publish(ctx, TopicCartCleared, owner, CartClearedEvent{
		OwnerKind: string(owner.Kind),
		OwnerID:   owner.ID,
		Timestamp: time.Now(),
	})
}

// MergeSession moves the anonymous session's persisted lines into the signed-in
// user's cart, summing quantities per product, then reloads.
func (s *CartStore) MergeSession(ctx context.Context) {
	user := s.identity.User(ctx)
	if user == nil {
		s.notify(models.NotifyError, "Sign in to keep your cart")
		return
	}
	sessionID, ok := s.identity.ExistingSessionID()
	if !ok {
		s.Load(ctx)
		return
	}

	moved, err := s.repo.MergeOwner(ctx, models.SessionOwner(sessionID), models.UserOwner(user.ID))
	if err != nil {
		s.logger.Warn("merge session cart failed",
			zap.String("session_id", sessionID), zap.String("user_id", user.ID), zap.Error(err))
		s.notify(models.NotifyError, "Could not move your guest cart to your account")
		s.Load(ctx)
		return
	}

	if moved > 0 {
		s.logger.Info("merged session cart", zap.String("user_id", user.ID), zap.Int("lines", moved))
		s.notify(models.NotifyInfo, fmt.Sprintf("Moved %d item(s) from your guest cart", moved))
		s.publish(ctx, TopicCartMerged, models.UserOwner(user.ID), CartMergedEvent{
			SessionID: sessionID,
			UserID:    user.ID,
			Lines:     moved,
			Timestamp: time.Now(),
		})
	}
	s.Load(ctx)
}

// Reconcile reverts every in-memory mutation whose remote write failed and
// reports how many products were restored.
func (s *CartStore) Reconcile() int {
	s.mu.Lock()
	reverted := 0
	for productID, before := range s.preimages {
		i := s.indexLocked(productID)
		switch {
		case before == nil && i >= 0:
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		case before != nil && i >= 0:
			restored := *before
			restored.Status = models.LineCommitted
			s.lines[i] = restored
		case before != nil:
			restored := *before
			restored.Status = models.LineCommitted
			s.lines = append(s.lines, restored)
		}
		s.inflight[productID] = s.nextSeqLocked()
		reverted++
	}
	s.preimages = map[string]*models.CartLine{}
	s.mu.Unlock()

	if reverted > 0 {
		s.notify(models.NotifyInfo, fmt.Sprintf("Reverted %d unsaved cart change(s)", reverted))
	}
	return reverted
}

func (s *CartStore) indexLocked(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *CartStore) snapshotLocked(productID string) *models.CartLine {
	if i := s.indexLocked(productID); i >= 0 {
		line := s.lines[i]
		return &line
	}
	return nil
}

func (s *CartStore) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *CartStore) beginLocked(productID string) uint64 {
	seq := s.nextSeqLocked()
	s.inflight[productID] = seq
	return seq
}

func (s *CartStore) commit(productID string, seq uint64, rowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[productID] != seq {
		return
	}
	delete(s.preimages, productID)
	if i := s.indexLocked(productID); i >= 0 {
		s.lines[i].Status = models.LineCommitted
		if rowID != "" {
			s.lines[i].RemoteRowID = rowID
		}
	}
}

func (s *CartStore) fail(productID string, seq uint64, before *models.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, recorded := s.preimages[productID]; !recorded {
		s.preimages[productID] = before
	}
	if s.inflight[productID] != seq {
		return
	}
	if i := s.indexLocked(productID); i >= 0 {
		s.lines[i].Status = models.LineFailed
	}
}

func (s *CartStore) notify(level models.NotificationLevel, message string) {
	s.notifier.Notify(models.Notification{Level: level, Message: message})
}

func (s *CartStore) publish(ctx context.Context, topic string, owner models.OwnerKey, event interface{}) {
	if err := s.publisher.Publish(ctx, topic, owner.String(), event); err != nil {
		s.logger.Warn("publish cart event failed", zap.String("topic", topic), zap.Error(err))
	}
}

func displayName(name, productID string) string {
	if name != "" {
		return name
	}
	return productID
}
