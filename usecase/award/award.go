// Package award implements the accept/reject transaction: a client
// selects one winning application, which forecloses every competing
// pending application and advances the task to in_progress.
package award

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository"
	"github.com/kazilink/backend/usecase"
)

type Controller struct {
	tasks    repository.TaskRepository
	apps     repository.ApplicationRepository
	notifier usecase.Notifier
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, apps repository.ApplicationRepository, notifier usecase.Notifier, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = usecase.NopNotifier{}
	}
	return &Controller{
		tasks:    tasks,
		apps:     apps,
		notifier: notifier,
		logger:   logger,
	}
}

// Accept awards the task to the given application on behalf of the
// task's owner. The winner flip, the bulk rejection of every other
// pending application and the task's move to in_progress commit as one
// store transaction; a concurrent accept on a sibling application
// observes the flipped task and fails with ErrTaskAlreadyResolved.
// Notifications go out only after the transaction commits and their
// failure is logged, never surfaced.
func (c *Controller) Accept(ctx context.Context, applicationID, actingClientID string) error {
	app, err := c.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	task, err := c.tasks.GetByID(ctx, app.TaskID)
	if err != nil {
		return err
	}
	if task.ClientID != actingClientID {
		return domain.ErrForbidden
	}

	outcome, err := c.apps.Accept(ctx, applicationID, domain.BulkRejectionMessage)
	if err != nil {
		return err
	}

	c.logger.Info("application accepted",
		zap.String("task_id", task.ID),
		zap.String("application_id", applicationID),
		zap.String("tasker_id", outcome.Winner.TaskerID),
		zap.Int("rejected", len(outcome.Rejected)))

	now := time.Now()
	c.emit(ctx, domain.Notification{
		Type:          domain.EventApplicationAccepted,
		RecipientID:   outcome.Winner.TaskerID,
		ActorID:       actingClientID,
		TaskID:        task.ID,
		ApplicationID: applicationID,
		CreatedAt:     now,
	})
	for _, rejected := range outcome.Rejected {
		c.emit(ctx, domain.Notification{
			Type:          domain.EventApplicationRejected,
			RecipientID:   rejected.TaskerID,
			ActorID:       actingClientID,
			TaskID:        task.ID,
			ApplicationID: rejected.ApplicationID,
			Message:       domain.BulkRejectionMessage,
			CreatedAt:     now,
		})
	}

	return nil
}

// Reject resolves a single pending application to rejected with the
// supplied message, or the default courteous one when empty. The task
// and its remaining applications are untouched, and the freed slot is
// available to new applicants while the task stays open.
func (c *Controller) Reject(ctx context.Context, applicationID, actingClientID, rejectionMessage string) error {
	app, err := c.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	task, err := c.tasks.GetByID(ctx, app.TaskID)
	if err != nil {
		return err
	}
	if task.ClientID != actingClientID {
		return domain.ErrForbidden
	}

	if rejectionMessage == "" {
		rejectionMessage = domain.DefaultRejectionMessage
	}
	if err := c.apps.Reject(ctx, applicationID, rejectionMessage); err != nil {
		return err
	}

	c.logger.Info("application rejected",
		zap.String("task_id", task.ID),
		zap.String("application_id", applicationID))

	c.emit(ctx, domain.Notification{
		Type:          domain.EventApplicationRejected,
		RecipientID:   app.TaskerID,
		ActorID:       actingClientID,
		TaskID:        task.ID,
		ApplicationID: applicationID,
		Message:       rejectionMessage,
		CreatedAt:     time.Now(),
	})

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
