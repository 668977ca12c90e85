package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "buffer.db"), "notifications")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueAndDrain(t *testing.T) {
	store := openTestStore(t)

	payload, _ := json.Marshal(map[string]string{"task_id": "t-1"})
	for i, typ := range []string{"new_application", "application_accepted", "application_rejected"} {
		err := store.Enqueue(Event{
			RecipientID: "user-1",
			Type:        typ,
			Payload:     payload,
			Priority:    3 - i,
		})
		if err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}

	if n, _ := store.Size(); n != 3 {
		t.Fatalf("expected 3 buffered events, got %d", n)
	}

	batch, err := store.GetBatch(10)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 events in batch, got %d", len(batch))
	}
	// lower priority value drains first
	if batch[0].Type != "application_rejected" {
		t.Errorf("expected priority-1 event first, got %s", batch[0].Type)
	}

	for _, event := range batch {
		if err := store.Remove(event); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
	}
	if n, _ := store.Size(); n != 0 {
		t.Errorf("expected empty buffer after drain, got %d", n)
	}
}

func TestGetBatchHonorsLimit(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Enqueue(Event{RecipientID: "user-1", Type: "new_application"}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	batch, err := store.GetBatch(2)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("expected batch of 2, got %d", len(batch))
	}
	if n, _ := store.Size(); n != 5 {
		t.Errorf("GetBatch must not remove events, size is %d", n)
	}
}

func TestRequeueBumpsTimestamp(t *testing.T) {
	store := openTestStore(t)

	stale := Event{RecipientID: "user-1", Type: "task_completed", Timestamp: time.Now().Add(-time.Hour)}
	if err := store.Enqueue(stale); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	batch, _ := store.GetBatch(1)
	if len(batch) != 1 {
		t.Fatalf("expected 1 event, got %d", len(batch))
	}
	event := batch[0]
	event.Retries++

	if err := store.Remove(event); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := store.Requeue(event); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}

	batch, _ = store.GetBatch(1)
	if len(batch) != 1 {
		t.Fatalf("expected requeued event, got %d", len(batch))
	}
	if batch[0].Retries != 1 {
		t.Errorf("expected retry count 1, got %d", batch[0].Retries)
	}
	if !batch[0].Timestamp.After(stale.Timestamp) {
		t.Error("requeue should refresh the event timestamp")
	}
}

func TestCleanupRemovesOldEvents(t *testing.T) {
	store := openTestStore(t)

	old := Event{RecipientID: "user-1", Type: "new_application", Timestamp: time.Now().Add(-48 * time.Hour)}
	fresh := Event{RecipientID: "user-1", Type: "new_application"}
	if err := store.Enqueue(old); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := store.Enqueue(fresh); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := store.Cleanup(time.Now().Add(-24 * time.Hour)); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if n, _ := store.Size(); n != 1 {
		t.Errorf("expected 1 surviving event, got %d", n)
	}
}
