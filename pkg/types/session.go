package types

import "time"

// SessionState represents the lifecycle state of a simulated clinical
// session. The transition active -> ended is one-way and terminal.
type SessionState string

const (
	SessionActive SessionState = "active"
	SessionEnded  SessionState = "ended"
)

// Session represents a simulated clinical session around a single patient
type Session struct {
	ID              string       `json:"id" db:"id"`
	OrgID           string       `json:"org_id" db:"org_id"`
	PatientID       string       `json:"patient_id" db:"patient_id"`
	CreatedBy       string       `json:"created_by" db:"created_by"`
	Name            string       `json:"name" db:"name"`
	State           SessionState `json:"state" db:"state"`
	StartTime       time.Time    `json:"start_time" db:"start_time"`
	EndTime         *time.Time   `json:"end_time,omitempty" db:"end_time"`
	DurationMinutes int          `json:"duration_minutes" db:"duration_minutes"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// RoomID returns the realtime room identifier for this session
func (s *Session) RoomID() string {
	return SessionRoomID(s.ID)
}

// SessionRoomPrefix prefixes every session room identifier on the
// realtime layer. Connections in at most one such room are considered
// locked into that session.
const SessionRoomPrefix = "session_"

// SessionRoomID derives the room identifier for a session id
func SessionRoomID(sessionID string) string {
	return SessionRoomPrefix + sessionID
}

// OrgRoomID derives the organisation-wide broadcast room identifier
func OrgRoomID(orgID string) string {
	return "org_" + orgID
}

// Participant is the ephemeral, derived view of a roster member relative
// to a session room. It is recomputed on every reconciliation and never
// persisted.
type Participant struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	InRoom bool     `json:"in_room"`
}

// ParticipantListPayload is the participantListUpdate wire payload. Seq
// increases monotonically per room so receivers can discard broadcasts
// that arrive out of order.
type ParticipantListPayload struct {
	RoomID       string        `json:"room_id"`
	Seq          uint64        `json:"seq"`
	Participants []Participant `json:"participants"`
}

// CreateSessionRequest carries the session creation parameters
type CreateSessionRequest struct {
	PatientID       string `json:"patient_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// AddParticipantRequest invites a user into a running session
type AddParticipantRequest struct {
	UserID string                 `json:"user_id"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// AddParticipantResult reports the terminal outcome of an invitation.
// Added false with no error means the target had no live connection.
type AddParticipantResult struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Added     bool   `json:"added"`
}
