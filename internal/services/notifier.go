package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/internal/infrastructure/buffer"
	"github.com/kazilink/backend/usecase"
)

// ChannelHealth abstracts the connection monitor functionality.
type ChannelHealth interface {
	IsOnline() bool
}

// NotifierConfig controls buffering and redelivery of notifications.
type NotifierConfig struct {
	ChannelPrefix string
	Interval      time.Duration
	BatchSize     int
	MaxRetries    int
}

// Notifier publishes notification events over Redis pub/sub. Delivery is
// best-effort: when the publish fails the event is parked in the Bolt
// buffer and a cron-driven drain retries it once Redis is reachable.
type Notifier struct {
	redis   *redislib.Client
	store   *buffer.Store
	monitor ChannelHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     NotifierConfig
}

func NewNotifier(
	redis *redislib.Client,
	store *buffer.Store,
	monitor ChannelHealth,
	logger *zap.Logger,
	cfg NotifierConfig,
) *Notifier {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "notify"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &Notifier{
		redis:   redis,
		store:   store,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = n.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := n.Drain(ctx); err != nil {
			n.logger.Error("notification drain failed", zap.Error(err))
		}
	})

	return n
}

var _ usecase.Notifier = (*Notifier)(nil)

// Notify publishes the event, falling back to the durable buffer when
// the channel is down. The returned error reports a total failure
// (publish and buffer both unavailable); callers treat it as loggable.
func (n *Notifier) Notify(ctx context.Context, event domain.Notification) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if n.monitor == nil || n.monitor.IsOnline() {
		if err := n.publish(ctx, event); err == nil {
			return nil
		} else {
			n.logger.Warn("publish failed, buffering notification",
				zap.String("event", string(event.Type)),
				zap.Error(err))
		}
	}

	if n.store == nil {
		return fmt.Errorf("notification channel unavailable and no buffer configured")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.store.Enqueue(buffer.Event{
		RecipientID: event.RecipientID,
		Type:        string(event.Type),
		Payload:     payload,
		Priority:    eventPriority(event.Type),
	})
}

// Start launches the redelivery scheduler.
func (n *Notifier) Start() {
	if n == nil || n.cron == nil {
		return
	}
	n.cron.Start()
	n.logger.Info("notifier started")
}

// Stop gracefully stops the scheduler.
func (n *Notifier) Stop(ctx context.Context) {
	if n == nil || n.cron == nil {
		return
	}
	stopCtx := n.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	n.logger.Info("notifier stopped")
}

// Drain republishes buffered events synchronously.
func (n *Notifier) Drain(ctx context.Context) error {
	if n == nil || n.store == nil {
		return nil
	}
	if n.monitor != nil && !n.monitor.IsOnline() {
		n.logger.Debug("skipping notification drain (offline)")
		return nil
	}

	events, err := n.store.GetBatch(n.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, buffered := range events {
		var event domain.Notification
		if err := json.Unmarshal(buffered.Payload, &event); err != nil {
			n.logger.Warn("dropping undecodable buffered notification", zap.String("event_id", buffered.ID))
			_ = n.store.Remove(buffered)
			continue
		}

		if err := n.publish(ctx, event); err != nil {
			n.logger.Error("failed to redeliver notification",
				zap.String("event_id", buffered.ID),
				zap.String("event", buffered.Type),
				zap.Error(err))

			buffered.Retries++
			if buffered.Retries >= n.cfg.MaxRetries {
				n.logger.Warn("dropping notification (max retries reached)", zap.String("event_id", buffered.ID))
				_ = n.store.Remove(buffered)
				continue
			}

			if err := n.store.Remove(buffered); err != nil {
				n.logger.Warn("failed to remove buffered notification", zap.Error(err))
			}
			if err := n.store.Requeue(buffered); err != nil {
				n.logger.Error("failed to requeue notification", zap.Error(err))
			}
			continue
		}

		if err := n.store.Remove(buffered); err != nil {
			n.logger.Warn("failed to purge delivered notification", zap.Error(err))
		}
	}
	return nil
}

func (n *Notifier) publish(ctx context.Context, event domain.Notification) error {
	if n.redis == nil {
		return fmt.Errorf("redis client not configured")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s:%s", n.cfg.ChannelPrefix, event.RecipientID)
	return n.redis.Publish(ctx, channel, payload).Err()
}

// eventPriority orders buffered redelivery: award outcomes go before
// informational events.
func eventPriority(t domain.EventType) int {
	switch t {
	case domain.EventApplicationAccepted:
		return 1
	case domain.EventApplicationRejected:
		return 2
	default:
		return 3
	}
}
