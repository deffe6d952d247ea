package ward

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// MockWardRepository is a mock implementation of WardRepository
type MockWardRepository struct {
	mock.Mock
}

func (m *MockWardRepository) Create(ctx context.Context, ws *types.WardSession) error {
	args := m.Called(ctx, ws)
	return args.Error(0)
}

func (m *MockWardRepository) GetByID(ctx context.Context, id string) (*types.WardSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WardSession), args.Error(1)
}

func (m *MockWardRepository) MarkCompleted(ctx context.Context, id string) (*types.WardSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.WardSession), args.Error(1)
}

func (m *MockWardRepository) ListActiveByOrg(ctx context.Context, orgID string) ([]*types.WardSession, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.WardSession), args.Error(1)
}

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

// fakeTransport tracks direct emissions keyed by user for assertions
type fakeTransport struct {
	mu       sync.Mutex
	online   map[string]string // userID -> connID
	direct   map[string][]interface{}
	roomSent map[string][]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		online:   make(map[string]string),
		direct:   make(map[string][]interface{}),
		roomSent: make(map[string][]string),
	}
}

func (f *fakeTransport) setOnline(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = "conn-" + userID
}

func (f *fakeTransport) EmitToRoom(roomID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomSent[roomID] = append(f.roomSent[roomID], event)
	return nil
}

func (f *fakeTransport) EmitToConnection(connID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct[connID] = append(f.direct[connID], payload)
	return nil
}

func (f *fakeTransport) JoinRoom(connID, roomID string) error  { return nil }
func (f *fakeTransport) LeaveRoom(connID, roomID string) error { return nil }
func (f *fakeTransport) Disconnect(connID string) error        { return nil }

func (f *fakeTransport) ListConnectionsInRoom(roomID string) ([]types.ConnectionSnapshot, error) {
	return nil, nil
}

func (f *fakeTransport) ListAllConnections() ([]types.ConnectionSnapshot, error) {
	return nil, nil
}

func (f *fakeTransport) FindUserConnection(userID string) (*types.ConnectionSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	connID, ok := f.online[userID]
	if !ok {
		return nil, false
	}
	return &types.ConnectionSnapshot{ID: connID, User: &types.UserClaims{UserID: userID}}, true
}

// stubDispatcher records push targets and signals completion
type stubDispatcher struct {
	mu      sync.Mutex
	targets []string
	done    chan struct{}
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{done: make(chan struct{}, 4)}
}

func (s *stubDispatcher) DispatchToUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string) {
	s.mu.Lock()
	s.targets = append(s.targets, userIDs...)
	s.mu.Unlock()
	s.done <- struct{}{}
}

func (s *stubDispatcher) waitForDispatch(t *testing.T) []string {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("push dispatch never happened")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]string, len(s.targets))
	copy(result, s.targets)
	sort.Strings(result)
	return result
}

type fixture struct {
	service   *Service
	wards     *MockWardRepository
	users     *MockUserRepository
	transport *fakeTransport
	push      *stubDispatcher
}

func newFixture() *fixture {
	f := &fixture{
		wards:     new(MockWardRepository),
		users:     new(MockUserRepository),
		transport: newFakeTransport(),
		push:      newStubDispatcher(),
	}
	f.service = NewService(f.wards, f.users, f.transport, f.push, logger.New("error"))
	return f
}

var adminClaims = &types.UserClaims{UserID: "u-starter", Role: types.RoleAdmin, OrgID: "o1"}

func sampleAssignments() types.WardAssignments {
	return types.WardAssignments{
		Faculty:   []string{"u5"},
		Observers: []string{"u7"},
		Zones: map[string]types.ZoneAssignment{
			"zone1": {UserID: "u9", PatientIDs: []string{"p101"}},
		},
	}
}

func TestStartWardSessionTargetSet(t *testing.T) {
	f := newFixture()

	f.wards.On("Create", mock.Anything, mock.AnythingOfType("*types.WardSession")).Return(nil)
	f.users.On("GetByRole", mock.Anything, "o1", types.RoleAdmin).
		Return([]*types.User{{ID: "u-admin", Role: types.RoleAdmin}}, nil)

	ws, err := f.service.StartWardSession(context.Background(), &types.StartWardSessionRequest{
		WardID:          "w1",
		DurationMinutes: 60,
		Assignments:     sampleAssignments(),
	}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, types.WardSessionActive, ws.Status)

	// Everyone is offline here, so the full target set lands on the
	// push batch: every assigned user plus the org admin.
	targets := f.push.waitForDispatch(t)
	assert.Equal(t, []string{"u-admin", "u5", "u7", "u9"}, targets)
}

func TestStartWardSessionOnlineTargetsGetZone(t *testing.T) {
	f := newFixture()
	f.transport.setOnline("u9")
	f.transport.setOnline("u5")

	f.wards.On("Create", mock.Anything, mock.AnythingOfType("*types.WardSession")).Return(nil)
	f.users.On("GetByRole", mock.Anything, "o1", types.RoleAdmin).
		Return([]*types.User{}, nil)

	_, err := f.service.StartWardSession(context.Background(), &types.StartWardSessionRequest{
		WardID:      "w1",
		Assignments: sampleAssignments(),
	}, adminClaims)
	require.NoError(t, err)

	require.Len(t, f.transport.direct["conn-u9"], 1)
	payload := f.transport.direct["conn-u9"][0].(*types.WardSessionStartedPayload)
	assert.Equal(t, "zone1", payload.Zone)

	facultyPayload := f.transport.direct["conn-u5"][0].(*types.WardSessionStartedPayload)
	assert.Equal(t, "faculty", facultyPayload.Zone)

	// Only the offline observer is pushed.
	targets := f.push.waitForDispatch(t)
	assert.Equal(t, []string{"u7"}, targets)
}

func TestStartWardSessionValidation(t *testing.T) {
	f := newFixture()

	_, err := f.service.StartWardSession(context.Background(), &types.StartWardSessionRequest{}, adminClaims)
	require.Error(t, err)

	perr, ok := types.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, perr.Type)
	f.wards.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEndWardSessionIdempotent(t *testing.T) {
	f := newFixture()

	completed := &types.WardSession{ID: "ws1", OrgID: "o1", Status: types.WardSessionCompleted}
	f.wards.On("GetByID", mock.Anything, "ws1").Return(completed, nil)

	ws, err := f.service.EndWardSession(context.Background(), "ws1")
	require.NoError(t, err)
	assert.Equal(t, types.WardSessionCompleted, ws.Status)
	f.wards.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
}

func TestGetAvailableUsersExcludesBusyAndStale(t *testing.T) {
	f := newFixture()

	recent := time.Now().Add(-time.Minute)
	stale := time.Now().Add(-7 * time.Hour)

	f.wards.On("ListActiveByOrg", mock.Anything, "o1").Return([]*types.WardSession{
		{ID: "ws1", Status: types.WardSessionActive, Assignments: sampleAssignments()},
	}, nil)
	f.users.On("GetRoster", mock.Anything, "o1").Return([]*types.User{
		{ID: "u9", LastLoginAt: &recent},  // busy in zone1, recent login
		{ID: "u10", LastLoginAt: &recent}, // free, recent login
		{ID: "u11", LastLoginAt: &stale},  // free but stale
	}, nil)

	available, err := f.service.GetAvailableUsers(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "u10", available[0].ID, "busy takes precedence over recency, staleness over freedom")
}

func TestGetAvailableUsersNoActiveWardSessions(t *testing.T) {
	f := newFixture()

	recent := time.Now().Add(-time.Hour)
	f.wards.On("ListActiveByOrg", mock.Anything, "o1").Return([]*types.WardSession{}, nil)
	f.users.On("GetRoster", mock.Anything, "o1").Return([]*types.User{
		{ID: "u1", LastLoginAt: &recent},
	}, nil)

	available, err := f.service.GetAvailableUsers(context.Background(), "o1")
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestEndWardSessionNotFound(t *testing.T) {
	f := newFixture()

	f.wards.On("GetByID", mock.Anything, "missing").
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("ward session not found: %s", "missing")))

	_, err := f.service.EndWardSession(context.Background(), "missing")
	perr, ok := types.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeNotFound, perr.Type)
}
