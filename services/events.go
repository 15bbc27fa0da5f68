package services

import (
	"context"
	"time"
)

const (
	TopicCartItemAdded   = "cart.item.added"
	TopicCartItemUpdated = "cart.item.updated"
	TopicCartItemRemoved = "cart.item.removed"
	TopicCartCleared     = "cart.cleared"
	TopicCartMerged      = "cart.merged"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

// CartItemEvent covers added, updated and removed lines.
type CartItemEvent struct {
	OwnerKind string    `json:"owner_kind"`
	OwnerID   string    `json:"owner_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

type CartClearedEvent struct {
	OwnerKind string    `json:"owner_kind"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CartMergedEvent struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Lines     int       `json:"lines"`
	Timestamp time.Time `json:"timestamp"`
}
