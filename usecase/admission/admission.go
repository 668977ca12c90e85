// Package admission implements the admission controller: it validates a
// tasker's bid against eligibility and capacity rules and admits it into
// the application store.
package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository"
	"github.com/kazilink/backend/usecase"
)

// Config carries the marketplace validation floors.
type Config struct {
	MinPrice      float64
	MinMessageLen int
}

const (
	defaultMinPrice      = 100
	defaultMinMessageLen = 20
)

type Controller struct {
	tasks    repository.TaskRepository
	apps     repository.ApplicationRepository
	notifier usecase.Notifier
	logger   *zap.Logger
	cfg      Config
}

func New(tasks repository.TaskRepository, apps repository.ApplicationRepository, notifier usecase.Notifier, logger *zap.Logger, cfg Config) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = usecase.NopNotifier{}
	}
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = defaultMinPrice
	}
	if cfg.MinMessageLen <= 0 {
		cfg.MinMessageLen = defaultMinMessageLen
	}
	return &Controller{
		tasks:    tasks,
		apps:     apps,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Submit admits a new application for taskID on behalf of taskerID.
//
// Preconditions are checked in order, each short-circuiting with its own
// error: task exists, not the tasker's own task, task open, no prior
// application by this tasker, capacity not exhausted, price and message
// valid. The checks against this method's initial read are advisory;
// the store's Admit re-verifies status, uniqueness and capacity under a
// task-level lock immediately before the insert, so two concurrent
// submissions can never overshoot the cap.
func (c *Controller) Submit(ctx context.Context, taskID, taskerID string, proposedPrice float64, message string) (*domain.Application, error) {
	task, err := c.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ClientID == taskerID {
		return nil, domain.ErrSelfApplication
	}
	if !task.IsOpen() {
		return nil, domain.ErrTaskNotAccepting
	}
	if _, err := c.apps.GetByTaskAndTasker(ctx, taskID, taskerID); err == nil {
		return nil, domain.ErrDuplicateApplication
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}
	if task.MaxApplications != nil {
		active, err := c.apps.CountActive(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if active >= *task.MaxApplications {
			return nil, domain.ErrCapacityExceeded
		}
	}
	if err := c.validate(proposedPrice, message); err != nil {
		return nil, err
	}

	app, err := c.apps.Admit(ctx, &domain.Application{
		TaskID:        taskID,
		TaskerID:      taskerID,
		ProposedPrice: proposedPrice,
		Message:       strings.TrimSpace(message),
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("application admitted",
		zap.String("task_id", taskID),
		zap.String("tasker_id", taskerID),
		zap.String("application_id", app.ID))

	c.emit(ctx, domain.Notification{
		Type:          domain.EventNewApplication,
		RecipientID:   task.ClientID,
		ActorID:       taskerID,
		TaskID:        taskID,
		ApplicationID: app.ID,
		CreatedAt:     time.Now(),
	})

	return app, nil
}

func (c *Controller) validate(proposedPrice float64, message string) error {
	if proposedPrice < c.cfg.MinPrice {
		return domain.WrapError(domain.ErrCodeInvalid,
			fmt.Sprintf("proposed price must be at least %.0f", c.cfg.MinPrice),
			domain.ErrInvalidPayload)
	}
	if len(strings.TrimSpace(message)) < c.cfg.MinMessageLen {
		return domain.WrapError(domain.ErrCodeInvalid,
			fmt.Sprintf("message must be at least %d characters", c.cfg.MinMessageLen),
			domain.ErrInvalidPayload)
	}
	return nil
}

func (c *Controller) emit(ctx context.Context, event domain.Notification) {
	if err := c.notifier.Notify(ctx, event); err != nil {
		c.logger.Warn("notification dispatch failed",
			zap.String("event", string(event.Type)),
			zap.String("recipient", event.RecipientID),
			zap.Error(err))
	}
}
