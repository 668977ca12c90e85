// Package memory provides mutex-guarded in-memory implementations of the
// store interfaces. The single lock plays the role the task row lock
// plays in Postgres: admissions and awards on any task serialize, which
// keeps the capacity and single-winner invariants testable without a
// database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository"
)

type Store struct {
	mu           sync.Mutex
	tasks        map[string]*domain.Task
	applications map[string]*domain.Application
}

func NewStore() *Store {
	return &Store{
		tasks:        make(map[string]*domain.Task),
		applications: make(map[string]*domain.Application),
	}
}

// Tasks returns the task-repository view of the store.
func (s *Store) Tasks() repository.TaskRepository {
	return &taskStore{s}
}

// Applications returns the application-repository view of the store.
func (s *Store) Applications() repository.ApplicationRepository {
	return &applicationStore{s}
}

func (s *Store) activeCountLocked(taskID string) int {
	count := 0
	for _, app := range s.applications {
		if app.TaskID == taskID && app.Status.CountsTowardsCapacity() {
			count++
		}
	}
	return count
}

type taskStore struct {
	store *Store
}

func (t *taskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.getLocked(id)
}

func (t *taskStore) getLocked(id string) (*domain.Task, error) {
	task, ok := t.store.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (t *taskStore) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var tasks []domain.Task
	for _, task := range t.store.tasks {
		if filter.ClientID != "" && task.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && string(task.Status) != filter.Status {
			continue
		}
		if filter.Category != "" && string(task.Category) != filter.Category {
			continue
		}
		if filter.County != "" && task.County != filter.County {
			continue
		}
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (t *taskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now()
	task.Status = domain.TaskStatusOpen
	task.CreatedAt = now
	task.UpdatedAt = now

	stored := *task
	t.store.tasks[task.ID] = &stored
	return task, nil
}

func (t *taskStore) UpdateFields(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	current, ok := t.store.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if current.Status != domain.TaskStatusOpen {
		return domain.ErrTaskNotAccepting
	}

	current.Title = task.Title
	current.Description = task.Description
	current.Category = task.Category
	current.Budget = task.Budget
	current.County = task.County
	current.Town = task.Town
	current.SpecificLocation = task.SpecificLocation
	current.IsUrgent = task.IsUrgent
	current.HasInsurance = task.HasInsurance
	current.MaxApplications = task.MaxApplications
	current.UpdatedAt = time.Now()
	task.UpdatedAt = current.UpdatedAt
	return nil
}

func (t *taskStore) Transition(ctx context.Context, id string, from, to domain.TaskStatus) (*domain.Task, error) {
	if err := domain.ValidateTransition(from, to); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	current, ok := t.store.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if current.Status != from {
		return nil, domain.WrapError(domain.ErrCodeInvalidTransition,
			"task is not in status "+string(from), domain.ErrInvalidStateTransition)
	}

	current.Status = to
	current.UpdatedAt = time.Now()
	if to == domain.TaskStatusCompleted {
		completed := current.UpdatedAt
		current.CompletedAt = &completed
	}
	copied := *current
	return &copied, nil
}

type applicationStore struct {
	store *Store
}

func (a *applicationStore) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	app, ok := a.store.applications[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	copied := *app
	return &copied, nil
}

func (a *applicationStore) GetByTaskAndTasker(ctx context.Context, taskID, taskerID string) (*domain.Application, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	for _, app := range a.store.applications {
		if app.TaskID == taskID && app.TaskerID == taskerID {
			copied := *app
			return &copied, nil
		}
	}
	return nil, domain.ErrApplicationNotFound
}

func (a *applicationStore) ListByTask(ctx context.Context, taskID string) ([]domain.Application, error) {
	return a.listWhere(func(app *domain.Application) bool { return app.TaskID == taskID })
}

func (a *applicationStore) ListByTasker(ctx context.Context, taskerID string) ([]domain.Application, error) {
	return a.listWhere(func(app *domain.Application) bool { return app.TaskerID == taskerID })
}

func (a *applicationStore) listWhere(match func(*domain.Application) bool) ([]domain.Application, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	var apps []domain.Application
	for _, app := range a.store.applications {
		if match(app) {
			apps = append(apps, *app)
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.Before(apps[j].CreatedAt)
	})
	return apps, nil
}

func (a *applicationStore) CountActive(ctx context.Context, taskID string) (int, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return a.store.activeCountLocked(taskID), nil
}

func (a *applicationStore) Admit(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	if app == nil {
		return nil, domain.ErrInvalidPayload
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	task, ok := a.store.tasks[app.TaskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if task.Status != domain.TaskStatusOpen {
		return nil, domain.ErrTaskNotAccepting
	}
	for _, existing := range a.store.applications {
		if existing.TaskID == app.TaskID && existing.TaskerID == app.TaskerID {
			return nil, domain.ErrDuplicateApplication
		}
	}
	if task.MaxApplications != nil && a.store.activeCountLocked(app.TaskID) >= *task.MaxApplications {
		return nil, domain.ErrCapacityExceeded
	}

	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Status = domain.ApplicationStatusPending
	app.CreatedAt = time.Now()

	stored := *app
	a.store.applications[app.ID] = &stored
	return app, nil
}

func (a *applicationStore) Accept(ctx context.Context, applicationID, rejectionMessage string) (*repository.AwardOutcome, error) {
	if rejectionMessage == "" {
		rejectionMessage = domain.BulkRejectionMessage
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	app, ok := a.store.applications[applicationID]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	task, ok := a.store.tasks[app.TaskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if task.Status != domain.TaskStatusOpen {
		return nil, domain.ErrTaskAlreadyResolved
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.ErrApplicationResolved
	}

	app.Status = domain.ApplicationStatusAccepted

	outcome := &repository.AwardOutcome{}
	for _, other := range a.store.applications {
		if other.TaskID == task.ID && other.ID != app.ID && other.Status == domain.ApplicationStatusPending {
			other.Status = domain.ApplicationStatusRejected
			other.RejectionMessage = rejectionMessage
			outcome.Rejected = append(outcome.Rejected, repository.RejectedApplicant{
				ApplicationID: other.ID,
				TaskerID:      other.TaskerID,
			})
		}
	}

	task.Status = domain.TaskStatusInProgress
	task.AssignedTaskerID = app.TaskerID
	task.UpdatedAt = time.Now()

	winner := *app
	flipped := *task
	outcome.Winner = &winner
	outcome.Task = &flipped
	return outcome, nil
}

func (a *applicationStore) Reject(ctx context.Context, applicationID, rejectionMessage string) error {
	if rejectionMessage == "" {
		rejectionMessage = domain.DefaultRejectionMessage
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	app, ok := a.store.applications[applicationID]
	if !ok {
		return domain.ErrApplicationNotFound
	}
	if app.Status != domain.ApplicationStatusPending {
		return domain.ErrApplicationResolved
	}

	app.Status = domain.ApplicationStatusRejected
	app.RejectionMessage = rejectionMessage
	return nil
}
