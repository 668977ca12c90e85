package repository

import (
	"context"

	"github.com/kazilink/backend/domain"
)

// RejectedApplicant identifies one application bulk-rejected during an award.
type RejectedApplicant struct {
	ApplicationID string
	TaskerID      string
}

// AwardOutcome describes the result of a committed accept transaction.
type AwardOutcome struct {
	Winner   *domain.Application
	Task     *domain.Task
	Rejected []RejectedApplicant
}

// ApplicationRepository owns application records. Admit, Accept and
// Reject are the store's atomic primitives: each re-verifies its guards
// and applies its writes as a single indivisible operation, so
// concurrent calls on the same task serialize rather than race.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	GetByTaskAndTasker(ctx context.Context, taskID, taskerID string) (*domain.Application, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Application, error)
	ListByTasker(ctx context.Context, taskerID string) ([]domain.Application, error)
	// CountActive returns the number of pending+accepted applications for
	// a task. Rejected applications do not consume capacity.
	CountActive(ctx context.Context, taskID string) (int, error)

	// Admit inserts a new pending application after re-checking, under a
	// task-level lock, that the task is still open, the tasker has not
	// already applied, and capacity is not exhausted. Returns
	// domain.ErrTaskNotAccepting, domain.ErrDuplicateApplication or
	// domain.ErrCapacityExceeded accordingly, with nothing inserted.
	Admit(ctx context.Context, app *domain.Application) (*domain.Application, error)

	// Accept resolves the award in one transaction: mark the target
	// application accepted, bulk-reject every other pending application
	// on the task with the supplied message, and move the task to
	// in_progress with the winner assigned. Fails with
	// domain.ErrTaskAlreadyResolved or domain.ErrApplicationResolved,
	// leaving every record untouched.
	Accept(ctx context.Context, applicationID, rejectionMessage string) (*AwardOutcome, error)

	// Reject resolves a single pending application to rejected. Does not
	// touch the task or sibling applications.
	Reject(ctx context.Context, applicationID, rejectionMessage string) error
}
