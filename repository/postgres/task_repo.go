package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository"
)

const taskColumns = `id, client_id, title, description, category, budget, county, town,
	specific_location, is_urgent, has_insurance, max_applications, status,
	assigned_tasker_id, created_at, updated_at, completed_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR client_id = $1)
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR category = $3)
	  AND ($4 = '' OR county = $4)
	ORDER BY created_at DESC
	LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		filter.ClientID, filter.Status, filter.Category, filter.County,
		clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.Status = domain.TaskStatusOpen

	const query = `
	INSERT INTO tasks (id, client_id, title, description, category, budget, county, town,
		specific_location, is_urgent, has_insurance, max_applications, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.ClientID,
		task.Title,
		task.Description,
		task.Category,
		task.Budget,
		task.County,
		nullString(task.Town),
		nullString(task.SpecificLocation),
		task.IsUrgent,
		task.HasInsurance,
		task.MaxApplications,
		task.Status,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) UpdateFields(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	// The status guard rides in the WHERE clause so an edit racing an
	// award cannot land on a resolved task.
	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		category = $4,
		budget = $5,
		county = $6,
		town = $7,
		specific_location = $8,
		is_urgent = $9,
		has_insurance = $10,
		max_applications = $11,
		updated_at = NOW()
	WHERE id = $1 AND status = 'open'
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Category,
		task.Budget,
		task.County,
		nullString(task.Town),
		nullString(task.SpecificLocation),
		task.IsUrgent,
		task.HasInsurance,
		task.MaxApplications,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyMiss(ctx, task.ID)
		}
		return err
	}

	return nil
}

func (r *taskRepository) Transition(ctx context.Context, id string, from, to domain.TaskStatus) (*domain.Task, error) {
	if err := domain.ValidateTransition(from, to); err != nil {
		return nil, err
	}

	query := `
	UPDATE tasks
	SET status = $3,
		completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE completed_at END,
		updated_at = NOW()
	WHERE id = $1 AND status = $2
	RETURNING ` + taskColumns

	task, err := scanTask(r.pool.QueryRow(ctx, query, id, from, to))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			// Either the task is gone or it left the expected source state
			// between the caller's read and this write.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domain.WrapError(domain.ErrCodeInvalidTransition,
				"task is not in status "+string(from), domain.ErrInvalidStateTransition)
		}
		return nil, err
	}
	return task, nil
}

// classifyMiss distinguishes a missing task from a resolved one after a
// guarded update touched zero rows.
func (r *taskRepository) classifyMiss(ctx context.Context, id string) error {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !task.IsOpen() {
		return domain.ErrTaskNotAccepting
	}
	return domain.ErrTaskNotFound
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
