package directory

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/interfaces"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Service is the organisation directory: user records, login marking
// and device registrations. Reconciliation and availability both read
// the roster this service maintains.
type Service struct {
	users     interfaces.UserRepository
	validator *auth.TokenValidator
	logger    *logger.Logger
}

// NewService creates a directory service
func NewService(users interfaces.UserRepository, validator *auth.TokenValidator, log *logger.Logger) *Service {
	return &Service{
		users:     users,
		validator: validator,
		logger:    log,
	}
}

// CreateUser registers a new organisation member
func (s *Service) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Audit(user.ID, "create", "user", true, map[string]interface{}{"org_id": user.OrgID, "role": string(user.Role)})
	return user, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, id string) (*types.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateUser applies partial updates to a user record
func (s *Service) UpdateUser(ctx context.Context, id string, updates *types.UserUpdates) (*types.User, error) {
	if err := s.users.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// DeleteUser soft-deletes a user; the row stays for audit but drops out
// of the roster, reconciliation and availability.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Audit(id, "delete", "user", true, nil)
	return nil
}

// GetRoster returns the organisation roster used as the participant
// candidate universe.
func (s *Service) GetRoster(ctx context.Context, orgID string) ([]*types.User, error) {
	return s.users.GetRoster(ctx, orgID)
}

// RecordLogin stamps the user's last-login marker and issues a fresh
// access token. The marker doubles as the availability freshness signal.
func (s *Service) RecordLogin(ctx context.Context, userID string) (*types.AuthToken, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.MarkLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	token, err := s.validator.GenerateToken(user)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to issue access token", err)
	}

	s.logger.WithUserID(user.ID).Info("User logged in")
	return token, nil
}

// RegisterDevice stores the user's current push token, replacing any
// earlier one.
func (s *Service) RegisterDevice(ctx context.Context, userID, token string) error {
	if token == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "token is required", nil)
	}
	return s.users.SetDeviceToken(ctx, userID, &token)
}

// UnregisterDevice removes the user's push token, e.g. on logout
func (s *Service) UnregisterDevice(ctx context.Context, userID string) error {
	return s.users.SetDeviceToken(ctx, userID, nil)
}

func validateUser(user *types.User) error {
	details := map[string]interface{}{}
	if user.OrgID == "" {
		details["org_id"] = "required"
	}
	if user.Name == "" {
		details["name"] = "required"
	}
	if user.Email == "" {
		details["email"] = "required"
	}
	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "invalid user", details)
	}
	return nil
}
