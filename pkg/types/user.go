package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RoleAdmin    UserRole = "Admin"
	RoleFaculty  UserRole = "Faculty"
	RoleObserver UserRole = "Observer"
	RoleUser     UserRole = "User"
)

// User represents an organisation member
type User struct {
	ID          string     `json:"id" db:"id"`
	OrgID       string     `json:"org_id" db:"org_id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	Role        UserRole   `json:"role" db:"role"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	DeviceToken *string    `json:"device_token,omitempty" db:"device_token"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// UserClaims represents JWT token claims attached to requests and
// realtime connections
type UserClaims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	OrgID  string   `json:"org_id"`
}

// UserUpdates represents updates to user information
type UserUpdates struct {
	Name  *string   `json:"name,omitempty"`
	Email *string   `json:"email,omitempty"`
	Role  *UserRole `json:"role,omitempty"`
}

// DeviceTokenRequest registers a push token for a user's device
type DeviceTokenRequest struct {
	Token string `json:"token"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}
