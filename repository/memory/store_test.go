package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kazilink/backend/domain"
)

func newOpenTask(t *testing.T, s *Store, max *int) *domain.Task {
	t.Helper()
	task, err := s.Tasks().Create(context.Background(), &domain.Task{
		ClientID:        "client-1",
		Title:           "Trim the hedge",
		Category:        domain.CategoryGardening,
		Budget:          900,
		County:          "Kiambu",
		MaxApplications: max,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return task
}

func pending(t *testing.T, s *Store, taskID, taskerID string) *domain.Application {
	t.Helper()
	app, err := s.Applications().Admit(context.Background(), &domain.Application{
		TaskID:        taskID,
		TaskerID:      taskerID,
		ProposedPrice: 800,
		Message:       "I garden in this neighbourhood every week.",
	})
	if err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	return app
}

func TestAdmitGuards(t *testing.T) {
	s := NewStore()
	one := 1
	task := newOpenTask(t, s, &one)
	ctx := context.Background()

	if _, err := s.Applications().Admit(ctx, &domain.Application{TaskID: "missing", TaskerID: "x"}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}

	pending(t, s, task.ID, "tasker-a")

	if _, err := s.Applications().Admit(ctx, &domain.Application{TaskID: task.ID, TaskerID: "tasker-a"}); !errors.Is(err, domain.ErrDuplicateApplication) {
		t.Errorf("expected ErrDuplicateApplication, got %v", err)
	}
	if _, err := s.Applications().Admit(ctx, &domain.Application{TaskID: task.ID, TaskerID: "tasker-b"}); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	if _, err := s.Tasks().Transition(ctx, task.ID, domain.TaskStatusOpen, domain.TaskStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := s.Applications().Admit(ctx, &domain.Application{TaskID: task.ID, TaskerID: "tasker-c"}); !errors.Is(err, domain.ErrTaskNotAccepting) {
		t.Errorf("expected ErrTaskNotAccepting, got %v", err)
	}
}

func TestAcceptOutcome(t *testing.T) {
	s := NewStore()
	task := newOpenTask(t, s, nil)
	ctx := context.Background()

	winner := pending(t, s, task.ID, "tasker-a")
	loserB := pending(t, s, task.ID, "tasker-b")
	loserC := pending(t, s, task.ID, "tasker-c")

	outcome, err := s.Applications().Accept(ctx, winner.ID, "")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if outcome.Winner.ID != winner.ID || outcome.Winner.Status != domain.ApplicationStatusAccepted {
		t.Errorf("unexpected winner: %+v", outcome.Winner)
	}
	if outcome.Task.Status != domain.TaskStatusInProgress || outcome.Task.AssignedTaskerID != "tasker-a" {
		t.Errorf("unexpected task state: %+v", outcome.Task)
	}
	if len(outcome.Rejected) != 2 {
		t.Fatalf("expected 2 rejected applicants, got %d", len(outcome.Rejected))
	}
	seen := map[string]bool{}
	for _, r := range outcome.Rejected {
		seen[r.ApplicationID] = true
	}
	if !seen[loserB.ID] || !seen[loserC.ID] {
		t.Errorf("rejected set incomplete: %+v", outcome.Rejected)
	}

	// a second accept on the same task is rejected with no change
	if _, err := s.Applications().Accept(ctx, loserB.ID, ""); !errors.Is(err, domain.ErrTaskAlreadyResolved) {
		t.Errorf("expected ErrTaskAlreadyResolved, got %v", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	task := newOpenTask(t, s, nil)
	ctx := context.Background()

	fetched, err := s.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	fetched.Status = domain.TaskStatusCompleted

	again, _ := s.Tasks().GetByID(ctx, task.ID)
	if again.Status != domain.TaskStatusOpen {
		t.Error("mutating a returned task must not affect the store")
	}
}

func TestTransitionGuard(t *testing.T) {
	s := NewStore()
	task := newOpenTask(t, s, nil)
	ctx := context.Background()

	if _, err := s.Tasks().Transition(ctx, task.ID, domain.TaskStatusInProgress, domain.TaskStatusCompleted); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected guard to reject stale source state, got %v", err)
	}
	if _, err := s.Tasks().Transition(ctx, task.ID, domain.TaskStatusOpen, domain.TaskStatusCompleted); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("expected illegal transition to fail, got %v", err)
	}
}
