package types

// Push provider error codes that mark a device token as permanently
// invalid. Tokens failing with one of these are cleared from the user
// record so the registration self-heals.
const (
	PushErrNotRegistered       = "NotRegistered"
	PushErrInvalidRegistration = "InvalidRegistration"
	PushErrMismatchSenderID    = "MismatchSenderId"
)

// PushResult is the provider's verdict for a single delivery attempt
type PushResult struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
}

// TokenInvalid reports whether the failure means the token is dead
// rather than the delivery being transiently unlucky.
func (r *PushResult) TokenInvalid() bool {
	switch r.ErrorCode {
	case PushErrNotRegistered, PushErrInvalidRegistration, PushErrMismatchSenderID:
		return true
	}
	return false
}

// PushMessage is one outbound push notification
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
