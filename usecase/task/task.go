// Package task covers the client-facing task lifecycle outside the
// award path: creation, edits while open, cancellation and completion.
package task

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository"
	"github.com/kazilink/backend/usecase"
)

type UseCase struct {
	tasks    repository.TaskRepository
	apps     repository.ApplicationRepository
	notifier usecase.Notifier
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, apps repository.ApplicationRepository, notifier usecase.Notifier, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = usecase.NopNotifier{}
	}
	return &UseCase{
		tasks:    tasks,
		apps:     apps,
		notifier: notifier,
		logger:   logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

// CreateTask posts a new open task owned by clientID.
func (uc *UseCase) CreateTask(ctx context.Context, clientID string, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	task.ClientID = clientID
	return uc.tasks.Create(ctx, task)
}

// EditTask updates a task's client-editable fields. Only the owner may
// edit, and only while the task is open.
func (uc *UseCase) EditTask(ctx context.Context, actingClientID string, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	current, err := uc.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if current.ClientID != actingClientID {
		return nil, domain.ErrForbidden
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}
	if err := uc.tasks.UpdateFields(ctx, task); err != nil {
		return nil, err
	}
	task.ClientID = current.ClientID
	task.Status = current.Status
	return task, nil
}

// CancelTask moves an open or in-progress task to cancelled.
func (uc *UseCase) CancelTask(ctx context.Context, taskID, actingClientID string) (*domain.Task, error) {
	current, err := uc.owned(ctx, taskID, actingClientID)
	if err != nil {
		return nil, err
	}

	task, err := uc.tasks.Transition(ctx, taskID, current.Status, domain.TaskStatusCancelled)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("task cancelled", zap.String("task_id", taskID))
	return task, nil
}

// CompleteTask moves an in-progress task to completed, stamps the
// completion time and notifies the assigned tasker.
func (uc *UseCase) CompleteTask(ctx context.Context, taskID, actingClientID string) (*domain.Task, error) {
	if _, err := uc.owned(ctx, taskID, actingClientID); err != nil {
		return nil, err
	}

	task, err := uc.tasks.Transition(ctx, taskID, domain.TaskStatusInProgress, domain.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("task completed",
		zap.String("task_id", taskID),
		zap.String("tasker_id", task.AssignedTaskerID))

	if task.AssignedTaskerID != "" {
		if err := uc.notifier.Notify(ctx, domain.Notification{
			Type:        domain.EventTaskCompleted,
			RecipientID: task.AssignedTaskerID,
			ActorID:     actingClientID,
			TaskID:      taskID,
			CreatedAt:   time.Now(),
		}); err != nil {
			uc.logger.Warn("notification dispatch failed",
				zap.String("event", string(domain.EventTaskCompleted)),
				zap.Error(err))
		}
	}

	return task, nil
}

// ListApplications returns a task's applications. The owner sees all of
// them; a tasker sees only their own.
func (uc *UseCase) ListApplications(ctx context.Context, taskID, actorID string) ([]domain.Application, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	apps, err := uc.apps.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ClientID == actorID {
		return apps, nil
	}
	var own []domain.Application
	for _, app := range apps {
		if app.TaskerID == actorID {
			own = append(own, app)
		}
	}
	return own, nil
}

// ApplicationCount returns the live pending+accepted count for a task.
func (uc *UseCase) ApplicationCount(ctx context.Context, taskID string) (int, error) {
	if _, err := uc.tasks.GetByID(ctx, taskID); err != nil {
		return 0, err
	}
	return uc.apps.CountActive(ctx, taskID)
}

// ListTaskerApplications returns every application a tasker has made.
func (uc *UseCase) ListTaskerApplications(ctx context.Context, taskerID string) ([]domain.Application, error) {
	return uc.apps.ListByTasker(ctx, taskerID)
}

func (uc *UseCase) owned(ctx context.Context, taskID, actingClientID string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ClientID != actingClientID {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

func validateTask(task *domain.Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return domain.WrapError(domain.ErrCodeInvalid, "title is required", domain.ErrInvalidPayload)
	}
	if task.Budget <= 0 {
		return domain.WrapError(domain.ErrCodeInvalid, "budget must be positive", domain.ErrInvalidPayload)
	}
	if task.MaxApplications != nil && *task.MaxApplications <= 0 {
		return domain.WrapError(domain.ErrCodeInvalid, "max_applications must be positive", domain.ErrInvalidPayload)
	}
	return nil
}
