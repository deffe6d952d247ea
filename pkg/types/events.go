package types

// Realtime event names. These are the wire contract consumed by deployed
// clients and must not be renamed.
const (
	EventSessionStarted  = "session:started"
	EventSessionEnded    = "session:ended"
	EventSessionRemoved  = "session:removed"
	EventParticipantList = "participantListUpdate"
	// EventParticipantAdd keeps the historical misspelling; clients
	// subscribe to this exact string.
	EventParticipantAdd           = "paticipantAdd"
	EventUserJoined               = "userJoined"
	EventPatientNotificationPopup = "patientNotificationPopup"
	EventRefreshPatientData       = "refreshPatientData"
)

// SessionEventPayload is the common payload for session boundary events
type SessionEventPayload struct {
	SessionID string `json:"session_id"`
	PatientID string `json:"patient_id,omitempty"`
	Name      string `json:"name,omitempty"`
	By        string `json:"by,omitempty"`
}
