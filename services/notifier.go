package services

import (
	"sync"

	"cretan-guru/models"

	"go.uber.org/zap"
)

// Notifier is a fire-and-forget feedback channel; implementations must not block.
type Notifier interface {
	Notify(n models.Notification)
}

type NotificationRecorder struct {
	mu    sync.Mutex
	items []models.Notification
}

func NewNotificationRecorder() *NotificationRecorder {
	return &NotificationRecorder{items: []models.Notification{}}
}

func (r *NotificationRecorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *NotificationRecorder) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.items))
	copy(out, r.items)
	return out
}

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n models.Notification) {
	l.logger.Debug("notification", zap.String("level", string(n.Level)), zap.String("message", n.Message))
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n models.Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
