package award

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kazilink/backend/domain"
	"github.com/kazilink/backend/repository/memory"
	"github.com/kazilink/backend/usecase"
)

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

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	ctrl     *Controller
	task     *domain.Task
	apps     map[string]*domain.Application
}

// newFixture creates an open task owned by client-1 with pending
// applications from the given taskers.
func newFixture(t *testing.T, taskers ...string) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	ctrl := New(store.Tasks(), store.Applications(), notifier, nil)

	ctx := context.Background()
	task, err := store.Tasks().Create(ctx, &domain.Task{
		ClientID: "client-1",
		Title:    "Paint two bedrooms",
		Category: domain.CategoryPainting,
		Budget:   5000,
		County:   "Nairobi",
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	apps := make(map[string]*domain.Application, len(taskers))
	for _, tasker := range taskers {
		app, err := store.Applications().Admit(ctx, &domain.Application{
			TaskID:        task.ID,
			TaskerID:      tasker,
			ProposedPrice: 4500,
			Message:       "I can start this week and finish in two days.",
		})
		if err != nil {
			t.Fatalf("failed to admit %s: %v", tasker, err)
		}
		apps[tasker] = app
	}

	return &fixture{store: store, notifier: notifier, ctrl: ctrl, task: task, apps: apps}
}

func TestAccept(t *testing.T) {
	f := newFixture(t, "tasker-a", "tasker-b", "tasker-c")
	ctx := context.Background()

	if err := f.ctrl.Accept(ctx, f.apps["tasker-a"].ID, "client-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	task, err := f.store.Tasks().GetByID(ctx, f.task.ID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if task.Status != domain.TaskStatusInProgress {
		t.Errorf("expected task in_progress, got %s", task.Status)
	}
	if task.AssignedTaskerID != "tasker-a" {
		t.Errorf("expected tasker-a assigned, got %q", task.AssignedTaskerID)
	}

	apps, err := f.store.Applications().ListByTask(ctx, f.task.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	accepted, rejected, pending := 0, 0, 0
	for _, app := range apps {
		switch app.Status {
		case domain.ApplicationStatusAccepted:
			accepted++
		case domain.ApplicationStatusRejected:
			rejected++
			if app.RejectionMessage != domain.BulkRejectionMessage {
				t.Errorf("bulk-rejected application missing default message: %q", app.RejectionMessage)
			}
		case domain.ApplicationStatusPending:
			pending++
		}
	}
	if accepted != 1 || rejected != 2 || pending != 0 {
		t.Errorf("expected 1 accepted / 2 rejected / 0 pending, got %d/%d/%d", accepted, rejected, pending)
	}

	if got := f.notifier.byType(domain.EventApplicationAccepted); len(got) != 1 || got[0].RecipientID != "tasker-a" {
		t.Errorf("expected one acceptance notification to tasker-a, got %+v", got)
	}
	if got := f.notifier.byType(domain.EventApplicationRejected); len(got) != 2 {
		t.Errorf("expected two rejection notifications, got %d", len(got))
	}
}

func TestAcceptNotOwner(t *testing.T) {
	f := newFixture(t, "tasker-a")

	err := f.ctrl.Accept(context.Background(), f.apps["tasker-a"].ID, "client-2")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	// no mutation happened
	app, _ := f.store.Applications().GetByID(context.Background(), f.apps["tasker-a"].ID)
	if app.Status != domain.ApplicationStatusPending {
		t.Errorf("application must stay pending after forbidden accept, got %s", app.Status)
	}
}

func TestAcceptMissingApplication(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Accept(context.Background(), "missing", "client-1")
	if !errors.Is(err, domain.ErrApplicationNotFound) {
		t.Errorf("expected ErrApplicationNotFound, got %v", err)
	}
}

func TestAcceptAfterResolve(t *testing.T) {
	f := newFixture(t, "tasker-a", "tasker-b")
	ctx := context.Background()

	if err := f.ctrl.Accept(ctx, f.apps["tasker-a"].ID, "client-1"); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	// B's application was bulk-rejected; accepting it must fail and
	// change nothing.
	err := f.ctrl.Accept(ctx, f.apps["tasker-b"].ID, "client-1")
	if !errors.Is(err, domain.ErrTaskAlreadyResolved) && !errors.Is(err, domain.ErrApplicationResolved) {
		t.Errorf("expected resolution conflict, got %v", err)
	}

	app, _ := f.store.Applications().GetByID(ctx, f.apps["tasker-b"].ID)
	if app.Status != domain.ApplicationStatusRejected {
		t.Errorf("terminal status must not change, got %s", app.Status)
	}
	task, _ := f.store.Tasks().GetByID(ctx, f.task.ID)
	if task.AssignedTaskerID != "tasker-a" {
		t.Errorf("assignment must not change, got %q", task.AssignedTaskerID)
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	f := newFixture(t, "tasker-a", "tasker-b")

	var wg sync.WaitGroup
	wg.Add(2)
	errs := make([]error, 2)
	targets := []string{f.apps["tasker-a"].ID, f.apps["tasker-b"].ID}

	for i := range targets {
		go func(idx int) {
			defer wg.Done()
			errs[idx] = f.ctrl.Accept(context.Background(), targets[idx], "client-1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrTaskAlreadyResolved) || errors.Is(err, domain.ErrApplicationResolved):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one accept to succeed, got %d", succeeded)
	}

	apps, _ := f.store.Applications().ListByTask(context.Background(), f.task.ID)
	accepted := 0
	for _, app := range apps {
		if app.Status == domain.ApplicationStatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("single-winner invariant violated: %d accepted", accepted)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t, "tasker-a", "tasker-b")
	ctx := context.Background()

	if err := f.ctrl.Reject(ctx, f.apps["tasker-a"].ID, "client-1", "We went with a closer tasker."); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	app, _ := f.store.Applications().GetByID(ctx, f.apps["tasker-a"].ID)
	if app.Status != domain.ApplicationStatusRejected {
		t.Errorf("expected rejected, got %s", app.Status)
	}
	if app.RejectionMessage != "We went with a closer tasker." {
		t.Errorf("expected custom rejection message, got %q", app.RejectionMessage)
	}

	// siblings and the task are untouched
	other, _ := f.store.Applications().GetByID(ctx, f.apps["tasker-b"].ID)
	if other.Status != domain.ApplicationStatusPending {
		t.Errorf("sibling application must remain pending, got %s", other.Status)
	}
	task, _ := f.store.Tasks().GetByID(ctx, f.task.ID)
	if task.Status != domain.TaskStatusOpen {
		t.Errorf("task must remain open after a single reject, got %s", task.Status)
	}

	if got := f.notifier.byType(domain.EventApplicationRejected); len(got) != 1 || got[0].RecipientID != "tasker-a" {
		t.Errorf("expected one rejection notification to tasker-a, got %+v", got)
	}
}

func TestRejectDefaultMessage(t *testing.T) {
	f := newFixture(t, "tasker-a")
	ctx := context.Background()

	if err := f.ctrl.Reject(ctx, f.apps["tasker-a"].ID, "client-1", ""); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	app, _ := f.store.Applications().GetByID(ctx, f.apps["tasker-a"].ID)
	if app.RejectionMessage != domain.DefaultRejectionMessage {
		t.Errorf("expected default rejection message, got %q", app.RejectionMessage)
	}
}

func TestRejectTerminalIsFinal(t *testing.T) {
	f := newFixture(t, "tasker-a")
	ctx := context.Background()

	if err := f.ctrl.Reject(ctx, f.apps["tasker-a"].ID, "client-1", ""); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if err := f.ctrl.Reject(ctx, f.apps["tasker-a"].ID, "client-1", ""); !errors.Is(err, domain.ErrApplicationResolved) {
		t.Errorf("expected ErrApplicationResolved on double reject, got %v", err)
	}
	err := f.ctrl.Accept(ctx, f.apps["tasker-a"].ID, "client-1")
	if !errors.Is(err, domain.ErrApplicationResolved) {
		t.Errorf("a rejected application can never be accepted, got %v", err)
	}
}

func TestNotifierFailureDoesNotFailAward(t *testing.T) {
	f := newFixture(t, "tasker-a", "tasker-b")
	f.notifier.fail = true

	if err := f.ctrl.Accept(context.Background(), f.apps["tasker-a"].ID, "client-1"); err != nil {
		t.Errorf("award must survive notification failure, got %v", err)
	}
	task, _ := f.store.Tasks().GetByID(context.Background(), f.task.ID)
	if task.Status != domain.TaskStatusInProgress {
		t.Errorf("transition must be durable despite notifier failure, got %s", task.Status)
	}
}
