package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Buffer     bool      `json:"buffer"`
	Buffered   int       `json:"buffered_events"`
	LastCheck  time.Time `json:"last_check"`
}
