package interfaces

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// UserRepository owns the organisation roster
type UserRepository interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	Update(ctx context.Context, id string, updates *types.UserUpdates) error
	SoftDelete(ctx context.Context, id string) error

	// GetRoster returns the organisation's non-deleted users who have
	// logged in at least once, the candidate universe for reconciliation.
	GetRoster(ctx context.Context, orgID string) ([]*types.User, error)
	GetByRole(ctx context.Context, orgID string, role types.UserRole) ([]*types.User, error)

	MarkLogin(ctx context.Context, id string) error
	SetDeviceToken(ctx context.Context, id string, token *string) error
	GetDeviceTokens(ctx context.Context, userIDs []string) (map[string]string, error)
	ClearDeviceToken(ctx context.Context, token string) error
}

// PatientRepository owns simulated patient records
type PatientRepository interface {
	Create(ctx context.Context, patient *types.Patient) (*types.Patient, error)
	GetByID(ctx context.Context, id string) (*types.Patient, error)
	ListByOrg(ctx context.Context, orgID string) ([]*types.Patient, error)
	UpdateObservations(ctx context.Context, id string, observations map[string]interface{}) error
	SoftDelete(ctx context.Context, id string) error
}
