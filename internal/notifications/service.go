package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/notifications/websocket"
)

// Notifier receives pool lifecycle events. Implementations must not block the
// caller; publishing happens after the engine has already committed.
type Notifier interface {
	PoolEvent(ctx context.Context, event Event)
}

// Service is the production Notifier: it logs each event and fans it out over
// the websocket feed, both to pool subscribers and the firehose broadcast.
type Service struct {
	wsManager *websocket.Manager
	logger    *zap.Logger
}

func NewService(wsManager *websocket.Manager, logger *zap.Logger) *Service {
	return &Service{wsManager: wsManager, logger: logger}
}

func (s *Service) PoolEvent(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.logger.Info("pool event",
		zap.String("type", string(event.Type)),
		zap.String("pool_id", event.PoolID.String()),
		zap.String("invoice_id", event.InvoiceID.String()))

	if s.wsManager == nil {
		return
	}
	s.wsManager.SendToPool(event.PoolID.String(), event)
	if err := s.wsManager.Broadcast(event); err != nil {
		s.logger.Warn("event broadcast dropped", zap.Error(err))
	}
}

// Close shuts down the websocket feed.
func (s *Service) Close() {
	if s.wsManager != nil {
		s.wsManager.Close()
	}
}

// NopNotifier discards every event. Used in tests and workers that do not
// serve a feed.
type NopNotifier struct{}

func (NopNotifier) PoolEvent(ctx context.Context, event Event) {}
