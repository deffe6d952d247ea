package types

import "time"

// Patient represents a simulated patient record
type Patient struct {
	ID           string    `json:"id" db:"id"`
	OrgID        string    `json:"org_id" db:"org_id"`
	Name         string    `json:"name" db:"name"`
	DateOfBirth  string    `json:"date_of_birth" db:"date_of_birth"`
	Gender       string    `json:"gender" db:"gender"`
	Presentation string    `json:"presentation" db:"presentation"`
	// Observations holds the patient's current vitals and findings as
	// free-form key/value data, stored as jsonb.
	Observations map[string]interface{} `json:"observations" db:"observations"`
	IsDeleted    bool                   `json:"is_deleted" db:"is_deleted"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
}

// ObservationUpdate mutates a patient's current observations during a
// session and triggers a refresh broadcast to the session room.
type ObservationUpdate struct {
	SessionID    string                 `json:"session_id"`
	Observations map[string]interface{} `json:"observations"`
	Notify       bool                   `json:"notify"`
	Message      string                 `json:"message,omitempty"`
}
