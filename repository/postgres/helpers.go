package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kazilink/backend/domain"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var (
		town      *string
		location  *string
		assigned  *string
		completed *time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.ClientID,
		&task.Title,
		&task.Description,
		&task.Category,
		&task.Budget,
		&task.County,
		&town,
		&location,
		&task.IsUrgent,
		&task.HasInsurance,
		&task.MaxApplications,
		&task.Status,
		&assigned,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	if town != nil {
		task.Town = *town
	}
	if location != nil {
		task.SpecificLocation = *location
	}
	if assigned != nil {
		task.AssignedTaskerID = *assigned
	}
	task.CompletedAt = completed

	return &task, nil
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var app domain.Application
	var rejection *string

	if err := row.Scan(
		&app.ID,
		&app.TaskID,
		&app.TaskerID,
		&app.ProposedPrice,
		&app.Message,
		&app.Status,
		&rejection,
		&app.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}

	if rejection != nil {
		app.RejectionMessage = *rejection
	}

	return &app, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
