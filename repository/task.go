package repository

import (
	"context"

	"github.com/kazilink/backend/domain"
)

type TaskFilter struct {
	ClientID string
	Status   string
	Category string
	County   string
	Limit    int
	Offset   int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// UpdateFields persists client-editable fields. The write is
	// conditional on the task still being open; a resolved task yields
	// domain.ErrTaskNotAccepting.
	UpdateFields(ctx context.Context, task *domain.Task) error
	// Transition conditionally moves the task between lifecycle states.
	// The from-status guard and the write are one store operation; a task
	// no longer in the expected source state yields
	// domain.ErrInvalidStateTransition.
	Transition(ctx context.Context, id string, from, to domain.TaskStatus) (*domain.Task, error)
}
