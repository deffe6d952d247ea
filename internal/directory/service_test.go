package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, updates *types.UserUpdates) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) GetRoster(ctx context.Context, orgID string) ([]*types.User, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByRole(ctx context.Context, orgID string, role types.UserRole) ([]*types.User, error) {
	args := m.Called(ctx, orgID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.User), args.Error(1)
}

func (m *MockUserRepository) MarkLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) SetDeviceToken(ctx context.Context, id string, token *string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUserRepository) GetDeviceTokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockUserRepository) ClearDeviceToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func newTestService(users *MockUserRepository) *Service {
	validator := auth.NewTokenValidator(&config.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenTTL: 3600,
		Issuer:         "test",
		Audience:       "test",
	})
	return NewService(users, validator, logger.New("error"))
}

func TestCreateUserDefaultsRole(t *testing.T) {
	users := new(MockUserRepository)
	users.On("Create", mock.Anything, mock.AnythingOfType("*types.User")).Return(nil)

	created, err := newTestService(users).CreateUser(context.Background(), &types.User{
		OrgID: "o1",
		Name:  "alice",
		Email: "alice@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, created.Role)
}

func TestCreateUserValidation(t *testing.T) {
	users := new(MockUserRepository)

	_, err := newTestService(users).CreateUser(context.Background(), &types.User{Name: "alice"})
	require.Error(t, err)

	perr, ok := types.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, perr.Type)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRecordLoginMarksAndIssuesToken(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, "u1").Return(&types.User{
		ID: "u1", OrgID: "o1", Name: "alice", Email: "alice@example.org", Role: types.RoleFaculty,
	}, nil)
	users.On("MarkLogin", mock.Anything, "u1").Return(nil)

	token, err := newTestService(users).RecordLogin(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	users.AssertExpectations(t)
}

func TestRecordLoginUnknownUser(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByID", mock.Anything, "missing").
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "user not found"))

	_, err := newTestService(users).RecordLogin(context.Background(), "missing")
	perr, ok := types.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeNotFound, perr.Type)
	users.AssertNotCalled(t, "MarkLogin", mock.Anything, mock.Anything)
}

func TestRegisterDeviceRequiresToken(t *testing.T) {
	users := new(MockUserRepository)

	err := newTestService(users).RegisterDevice(context.Background(), "u1", "")
	require.Error(t, err)
	users.AssertNotCalled(t, "SetDeviceToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnregisterDeviceClearsToken(t *testing.T) {
	users := new(MockUserRepository)
	users.On("SetDeviceToken", mock.Anything, "u1", (*string)(nil)).Return(nil)

	require.NoError(t, newTestService(users).UnregisterDevice(context.Background(), "u1"))
	users.AssertExpectations(t)
}
