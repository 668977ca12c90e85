package domain

import "time"

// EventType names the outbound notifications the controllers emit after
// a state transition commits.
type EventType string

const (
	EventNewApplication      EventType = "new_application"
	EventApplicationAccepted EventType = "application_accepted"
	EventApplicationRejected EventType = "application_rejected"
	EventTaskCompleted       EventType = "task_completed"
)

// Notification is the payload handed to the notification collaborator.
// Delivery is best-effort: a failed send never rolls back the state
// transition that produced it.
type Notification struct {
	Type          EventType `json:"type"`
	RecipientID   string    `json:"recipient_id"`
	ActorID       string    `json:"actor_id,omitempty"`
	TaskID        string    `json:"task_id,omitempty"`
	ApplicationID string    `json:"application_id,omitempty"`
	Message       string    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
