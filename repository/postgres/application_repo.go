package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository"
)

const applicationColumns = `id, task_id, tasker_id, proposed_price, message, status,
	rejection_message, created_at`

const uniqueViolation = "23505"

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository returns a Postgres-backed implementation of
// ApplicationRepository. Admission and award concurrency is settled at
// this layer: both lock the parent task row before writing, so all
// admissions and awards on one task serialize while unrelated tasks
// proceed independently.
func NewApplicationRepository(pool *pgxpool.Pool) repository.ApplicationRepository {
	return &applicationRepository{pool: pool}
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM task_applications WHERE id = $1`
	return scanApplication(r.pool.QueryRow(ctx, query, id))
}

func (r *applicationRepository) GetByTaskAndTasker(ctx context.Context, taskID, taskerID string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM task_applications WHERE task_id = $1 AND tasker_id = $2`
	return scanApplication(r.pool.QueryRow(ctx, query, taskID, taskerID))
}

func (r *applicationRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM task_applications WHERE task_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, taskID)
}

func (r *applicationRepository) ListByTasker(ctx context.Context, taskerID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM task_applications WHERE tasker_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, taskerID)
}

func (r *applicationRepository) list(ctx context.Context, query string, arg interface{}) ([]domain.Application, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func (r *applicationRepository) CountActive(ctx context.Context, taskID string) (int, error) {
	const query = `
	SELECT COUNT(*) FROM task_applications
	WHERE task_id = $1 AND status IN ('pending', 'accepted')
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, taskID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *applicationRepository) Admit(ctx context.Context, app *domain.Application) (*domain.Application, error) {
	if app == nil {
		return nil, domain.ErrInvalidPayload
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Status = domain.ApplicationStatusPending

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the task row so the count below and the insert behave as
		// one unit against concurrent admissions on the same task.
		const lockQuery = `SELECT status, max_applications FROM tasks WHERE id = $1 FOR UPDATE`

		var status domain.TaskStatus
		var maxApplications *int
		if err := tx.QueryRow(ctx, lockQuery, app.TaskID).Scan(&status, &maxApplications); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTaskNotFound
			}
			return err
		}
		if status != domain.TaskStatusOpen {
			return domain.ErrTaskNotAccepting
		}

		if maxApplications != nil {
			const countQuery = `
			SELECT COUNT(*) FROM task_applications
			WHERE task_id = $1 AND status IN ('pending', 'accepted')
			`
			var active int
			if err := tx.QueryRow(ctx, countQuery, app.TaskID).Scan(&active); err != nil {
				return err
			}
			if active >= *maxApplications {
				return domain.ErrCapacityExceeded
			}
		}

		const insertQuery = `
		INSERT INTO task_applications (id, task_id, tasker_id, proposed_price, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
		`
		if err := tx.QueryRow(ctx, insertQuery,
			app.ID,
			app.TaskID,
			app.TaskerID,
			app.ProposedPrice,
			app.Message,
			app.Status,
		).Scan(&app.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateApplication
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *applicationRepository) Accept(ctx context.Context, applicationID, rejectionMessage string) (*repository.AwardOutcome, error) {
	if rejectionMessage == "" {
		rejectionMessage = domain.BulkRejectionMessage
	}

	outcome := &repository.AwardOutcome{}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the application and its task together; a concurrent accept
		// on the same task blocks here and then sees the flipped status.
		const lockQuery = `
		SELECT a.id, a.task_id, a.tasker_id, a.proposed_price, a.message, a.status,
			a.rejection_message, a.created_at, t.status
		FROM task_applications a
		JOIN tasks t ON t.id = a.task_id
		WHERE a.id = $1
		FOR UPDATE OF a, t
		`
		var app domain.Application
		var rejection *string
		var taskStatus domain.TaskStatus
		if err := tx.QueryRow(ctx, lockQuery, applicationID).Scan(
			&app.ID,
			&app.TaskID,
			&app.TaskerID,
			&app.ProposedPrice,
			&app.Message,
			&app.Status,
			&rejection,
			&app.CreatedAt,
			&taskStatus,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrApplicationNotFound
			}
			return err
		}

		if taskStatus != domain.TaskStatusOpen {
			return domain.ErrTaskAlreadyResolved
		}
		if app.Status != domain.ApplicationStatusPending {
			return domain.ErrApplicationResolved
		}

		const acceptQuery = `UPDATE task_applications SET status = 'accepted' WHERE id = $1`
		if _, err := tx.Exec(ctx, acceptQuery, applicationID); err != nil {
			return err
		}
		app.Status = domain.ApplicationStatusAccepted
		outcome.Winner = &app

		const rejectQuery = `
		UPDATE task_applications
		SET status = 'rejected', rejection_message = $3
		WHERE task_id = $1 AND status = 'pending' AND id <> $2
		RETURNING id, tasker_id
		`
		rows, err := tx.Query(ctx, rejectQuery, app.TaskID, applicationID, rejectionMessage)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var rejected repository.RejectedApplicant
			if err := rows.Scan(&rejected.ApplicationID, &rejected.TaskerID); err != nil {
				return err
			}
			outcome.Rejected = append(outcome.Rejected, rejected)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		taskQuery := `
		UPDATE tasks
		SET status = 'in_progress', assigned_tasker_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns

		task, err := scanTask(tx.QueryRow(ctx, taskQuery, app.TaskID, app.TaskerID))
		if err != nil {
			return err
		}
		outcome.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (r *applicationRepository) Reject(ctx context.Context, applicationID, rejectionMessage string) error {
	if rejectionMessage == "" {
		rejectionMessage = domain.DefaultRejectionMessage
	}

	const query = `
	UPDATE task_applications
	SET status = 'rejected', rejection_message = $2
	WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.pool.Exec(ctx, query, applicationID, rejectionMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, applicationID); err != nil {
			return err
		}
		return domain.ErrApplicationResolved
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
