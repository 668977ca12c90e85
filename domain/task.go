package domain

import "time"

// TaskStatus tracks a task through its lifecycle.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskCategory classifies the kind of work a task asks for.
type TaskCategory string

const (
	CategoryCleaning    TaskCategory = "cleaning"
	CategoryDelivery    TaskCategory = "delivery"
	CategoryHandyman    TaskCategory = "handyman"
	CategoryPlumbing    TaskCategory = "plumbing"
	CategoryElectrical  TaskCategory = "electrical"
	CategoryPainting    TaskCategory = "painting"
	CategoryMoving      TaskCategory = "moving"
	CategoryGardening   TaskCategory = "gardening"
	CategoryTechSupport TaskCategory = "tech_support"
	CategoryTutoring    TaskCategory = "tutoring"
	CategoryOther       TaskCategory = "other"
)

// Task is a unit of work posted by a client. It accepts applications
// from taskers while open; awarding one application assigns the task.
type Task struct {
	ID               string       `json:"id"`
	ClientID         string       `json:"client_id"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Category         TaskCategory `json:"category"`
	Budget           float64      `json:"budget"`
	County           string       `json:"county"`
	Town             string       `json:"town,omitempty"`
	SpecificLocation string       `json:"specific_location,omitempty"`
	IsUrgent         bool         `json:"is_urgent"`
	HasInsurance     bool         `json:"has_insurance"`
	// MaxApplications caps concurrently outstanding (pending or accepted)
	// applications. Nil means unlimited.
	MaxApplications  *int       `json:"max_applications,omitempty"`
	Status           TaskStatus `json:"status"`
	AssignedTaskerID string     `json:"assigned_tasker_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func (t *Task) IsOpen() bool {
	return t != nil && t.Status == TaskStatusOpen
}

// taskTransitions is the authoritative transition table. Editing fields
// while open is not a transition; award, cancel and complete are.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted:  nil,
	TaskStatusCancelled:  nil,
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TaskStatus) bool {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed error for illegal status moves so
// callers fail before touching the store.
func ValidateTransition(from, to TaskStatus) error {
	if !CanTransition(from, to) {
		return WrapError(ErrCodeInvalidTransition, string(from)+" -> "+string(to), ErrInvalidStateTransition)
	}
	return nil
}

// IsTerminalStatus reports whether a status admits no further transitions.
func IsTerminalStatus(s TaskStatus) bool {
	transitions, known := taskTransitions[s]
	return known && len(transitions) == 0
}
