package domain

import "time"

// ApplicationStatus is the resolution state of a tasker's bid.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Default rejection copy shown to taskers when the client does not write
// their own message.
const (
	BulkRejectionMessage = "Thank you for your application. The client has selected another tasker for this task. We encourage you to keep applying to other opportunities!"

	DefaultRejectionMessage = "Thank you for your application. We have decided to move forward with another candidate."
)

// Application is a tasker's bid (price + message) against one task.
// A tasker applies to a given task at most once; once accepted or
// rejected the record is immutable.
type Application struct {
	ID               string            `json:"id"`
	TaskID           string            `json:"task_id"`
	TaskerID         string            `json:"tasker_id"`
	ProposedPrice    float64           `json:"proposed_price"`
	Message          string            `json:"message"`
	Status           ApplicationStatus `json:"status"`
	RejectionMessage string            `json:"rejection_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (a *Application) IsPending() bool {
	return a != nil && a.Status == ApplicationStatusPending
}

// IsResolved reports whether the application reached a terminal status.
func (a *Application) IsResolved() bool {
	return a != nil && a.Status != ApplicationStatusPending
}

// CountsTowardsCapacity reports whether a status consumes an admission
// slot. Rejected applications free their slot while the task stays open.
func (s ApplicationStatus) CountsTowardsCapacity() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusAccepted
}
