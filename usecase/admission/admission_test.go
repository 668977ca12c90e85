package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository/memory"
	"github.com/kazilink/backend/usecase"
)

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Notification
	fail   bool
}

func (n *recordingNotifier) Notify(ctx context.Context, event domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("channel down")
	}
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) byType(t domain.EventType) []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Notification
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var _ usecase.Notifier = (*recordingNotifier)(nil)

func maxApps(n int) *int { return &n }

func setup(t *testing.T) (*memory.Store, *recordingNotifier, *Controller) {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	ctrl := New(store.Tasks(), store.Applications(), notifier, nil, Config{})
	return store, notifier, ctrl
}

func openTask(t *testing.T, store *memory.Store, clientID string, max *int) *domain.Task {
	t.Helper()
	task, err := store.Tasks().Create(context.Background(), &domain.Task{
		ClientID:        clientID,
		Title:           "Fix kitchen sink",
		Category:        domain.CategoryPlumbing,
		Budget:          1500,
		County:          "Nairobi",
		MaxApplications: max,
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func TestSubmit(t *testing.T) {
	store, notifier, ctrl := setup(t)
	task := openTask(t, store, "client-1", nil)

	app, err := ctrl.Submit(context.Background(), task.ID, "tasker-1", 1200, "I have five years of plumbing experience.")
	if err != nil {
		t.Fatalf("expected admission to succeed, got %v", err)
	}
	if app.ID == "" {
		t.Error("expected application ID to be set")
	}
	if app.Status != domain.ApplicationStatusPending {
		t.Errorf("expected status pending, got %s", app.Status)
	}

	events := notifier.byType(domain.EventNewApplication)
	if len(events) != 1 {
		t.Fatalf("expected 1 new_application event, got %d", len(events))
	}
	if events[0].RecipientID != "client-1" {
		t.Errorf("event should go to the task owner, got %s", events[0].RecipientID)
	}
}

func TestSubmitTaskNotFound(t *testing.T) {
	_, _, ctrl := setup(t)

	_, err := ctrl.Submit(context.Background(), "missing", "tasker-1", 1200, "A perfectly reasonable cover message.")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestSubmitOwnTask(t *testing.T) {
	store, _, ctrl := setup(t)
	task := openTask(t, store, "client-1", nil)

	_, err := ctrl.Submit(context.Background(), task.ID, "client-1", 1200, "Trying to apply to my own task here.")
	if !errors.Is(err, domain.ErrSelfApplication) {
		t.Errorf("expected ErrSelfApplication, got %v", err)
	}

	// the rule holds regardless of task state
	if _, err := store.Tasks().Transition(context.Background(), task.ID, domain.TaskStatusOpen, domain.TaskStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	_, err = ctrl.Submit(context.Background(), task.ID, "client-1", 1200, "Trying to apply to my own task here.")
	if !errors.Is(err, domain.ErrSelfApplication) {
		t.Errorf("expected ErrSelfApplication after cancel, got %v", err)
	}
}

func TestSubmitClosedTask(t *testing.T) {
	store, _, ctrl := setup(t)
	task := openTask(t, store, "client-1", nil)
	if _, err := store.Tasks().Transition(context.Background(), task.ID, domain.TaskStatusOpen, domain.TaskStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err := ctrl.Submit(context.Background(), task.ID, "tasker-1", 1200, "A perfectly reasonable cover message.")
	if !errors.Is(err, domain.ErrTaskNotAccepting) {
		t.Errorf("expected ErrTaskNotAccepting, got %v", err)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	store, _, ctrl := setup(t)
	task := openTask(t, store, "client-1", nil)

	if _, err := ctrl.Submit(context.Background(), task.ID, "tasker-1", 1200, "A perfectly reasonable cover message."); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	_, err := ctrl.Submit(context.Background(), task.ID, "tasker-1", 1300, "Second attempt with a better price offer.")
	if !errors.Is(err, domain.ErrDuplicateApplication) {
		t.Errorf("expected ErrDuplicateApplication, got %v", err)
	}

	apps, err := store.Applications().ListByTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("expected exactly one application row, got %d", len(apps))
	}
}

func TestSubmitValidation(t *testing.T) {
	store, _, ctrl := setup(t)
	task := openTask(t, store, "client-1", nil)

	cases := []struct {
		name    string
		price   float64
		message string
	}{
		{"price below floor", 50, "A perfectly reasonable cover message."},
		{"message too short", 1200, "Hi, pick me!"},
		{"whitespace padding does not count", 1200, "      brief note                  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ctrl.Submit(context.Background(), task.ID, "tasker-1", tc.price, tc.message)
			if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	// no record was created by the failed attempts
	apps, _ := store.Applications().ListByTask(context.Background(), task.ID)
	if len(apps) != 0 {
		t.Errorf("expected no applications after failed validation, got %d", len(apps))
	}
}

func TestCapacityBoundary(t *testing.T) {
	store, _, ctrl := setup(t)
	task := openTask(t, store, "client-1", maxApps(2))
	ctx := context.Background()

	appA, err := ctrl.Submit(ctx, task.ID, "tasker-a", 1200, "First applicant with plumbing experience.")
	if err != nil {
		t.Fatalf("tasker A admission failed: %v", err)
	}
	if _, err := ctrl.Submit(ctx, task.ID, "tasker-b", 1300, "Second applicant with plumbing experience."); err != nil {
		t.Fatalf("tasker B admission failed: %v", err)
	}

	_, err = ctrl.Submit(ctx, task.ID, "tasker-c", 1400, "Third applicant bounced off the application cap.")
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	// rejecting A frees a slot while the task remains open
	if err := store.Applications().Reject(ctx, appA.ID, ""); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if _, err := ctrl.Submit(ctx, task.ID, "tasker-c", 1400, "Third applicant trying again after a slot freed."); err != nil {
		t.Errorf("expected admission after freed slot, got %v", err)
	}

	count, err := store.Applications().CountActive(ctx, task.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected active count 2, got %d", count)
	}
}

func TestConcurrentSubmissionsRespectCapacity(t *testing.T) {
	store, _, ctrl := setup(t)
	const capLimit = 5
	const contenders = 20
	task := openTask(t, store, "client-1", maxApps(capLimit))

	var wg sync.WaitGroup
	wg.Add(contenders)
	errs := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		go func(idx int) {
			defer wg.Done()
			_, err := ctrl.Submit(context.Background(), task.ID,
				fmt.Sprintf("tasker-%d", idx), 1200,
				"Concurrent applicant with a long enough message.")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	admitted, capped := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, domain.ErrCapacityExceeded):
			capped++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if admitted != capLimit {
		t.Errorf("expected %d admissions, got %d", capLimit, admitted)
	}
	if capped != contenders-capLimit {
		t.Errorf("expected %d capacity rejections, got %d", contenders-capLimit, capped)
	}

	count, _ := store.Applications().CountActive(context.Background(), task.ID)
	if count != capLimit {
		t.Errorf("active count %d exceeds capacity %d", count, capLimit)
	}
}

func TestNotifierFailureDoesNotFailAdmission(t *testing.T) {
	store := memory.NewStore()
	notifier := &recordingNotifier{fail: true}
	ctrl := New(store.Tasks(), store.Applications(), notifier, nil, Config{})
	task := openTask(t, store, "client-1", nil)

	if _, err := ctrl.Submit(context.Background(), task.ID, "tasker-1", 1200, "A perfectly reasonable cover message."); err != nil {
		t.Errorf("admission must survive notification failure, got %v", err)
	}
}
