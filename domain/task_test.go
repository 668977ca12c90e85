package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{"award open task", TaskStatusOpen, TaskStatusInProgress, true},
		{"cancel open task", TaskStatusOpen, TaskStatusCancelled, true},
		{"complete assigned task", TaskStatusInProgress, TaskStatusCompleted, true},
		{"cancel assigned task", TaskStatusInProgress, TaskStatusCancelled, true},
		{"complete open task skips award", TaskStatusOpen, TaskStatusCompleted, false},
		{"reopen assigned task", TaskStatusInProgress, TaskStatusOpen, false},
		{"award completed task", TaskStatusCompleted, TaskStatusInProgress, false},
		{"cancel completed task", TaskStatusCompleted, TaskStatusCancelled, false},
		{"revive cancelled task", TaskStatusCancelled, TaskStatusOpen, false},
		{"complete cancelled task", TaskStatusCancelled, TaskStatusCompleted, false},
		{"self transition", TaskStatusOpen, TaskStatusOpen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(TaskStatusOpen, TaskStatusInProgress); err != nil {
		t.Fatalf("expected legal transition, got %v", err)
	}

	err := ValidateTransition(TaskStatusCompleted, TaskStatusInProgress)
	if err == nil {
		t.Fatal("expected error for transition out of terminal state")
	}
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
	if !IsDomainError(err, ErrCodeInvalidTransition) {
		t.Errorf("expected code %s, got %v", ErrCodeInvalidTransition, err)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusCompleted, TaskStatusCancelled} {
		if !IsTerminalStatus(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []TaskStatus{TaskStatusOpen, TaskStatusInProgress} {
		if IsTerminalStatus(s) {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
	if IsTerminalStatus(TaskStatus("disputed")) {
		t.Error("unknown status must not be treated as terminal")
	}
}

func TestApplicationStatusCapacity(t *testing.T) {
	if !ApplicationStatusPending.CountsTowardsCapacity() {
		t.Error("pending applications consume a slot")
	}
	if !ApplicationStatusAccepted.CountsTowardsCapacity() {
		t.Error("accepted applications consume a slot")
	}
	if ApplicationStatusRejected.CountsTowardsCapacity() {
		t.Error("rejected applications must free their slot")
	}
}

func TestDomainErrorMatching(t *testing.T) {
	wrapped := WrapError(ErrCodeCapacityExceeded, "task xyz is full", ErrCapacityExceeded)
	if !errors.Is(wrapped, ErrCapacityExceeded) {
		t.Error("wrapped error should match its sentinel")
	}
	if errors.Is(wrapped, ErrDuplicateApplication) {
		t.Error("wrapped error must not match a different sentinel")
	}
}
