package transport

type TaskRequest struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Budget           float64 `json:"budget"`
	County           string  `json:"county"`
	Town             string  `json:"town"`
	SpecificLocation string  `json:"specific_location"`
	IsUrgent         bool    `json:"is_urgent"`
	HasInsurance     bool    `json:"has_insurance"`
	MaxApplications  *int    `json:"max_applications"`
}

type ApplicationRequest struct {
	TaskID        string  `json:"task_id"`
	ProposedPrice float64 `json:"proposed_price"`
	Message       string  `json:"message"`
}

type RejectRequest struct {
	RejectionMessage string `json:"rejection_message"`
}
