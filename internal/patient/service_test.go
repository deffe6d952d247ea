package patient

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// MockPatientRepository is a mock implementation of PatientRepository
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *types.Patient) (*types.Patient, error) {
	args := m.Called(ctx, patient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockPatientRepository) ListByOrg(ctx context.Context, orgID string) ([]*types.Patient, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Patient), args.Error(1)
}

func (m *MockPatientRepository) UpdateObservations(ctx context.Context, id string, observations map[string]interface{}) error {
	args := m.Called(ctx, id, observations)
	return args.Error(0)
}

func (m *MockPatientRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *types.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*types.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Session), args.Error(1)
}

func (m *MockSessionRepository) MarkEnded(ctx context.Context, id string) (*types.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Session), args.Error(1)
}

func (m *MockSessionRepository) ListByOrg(ctx context.Context, orgID string, state types.SessionState) ([]*types.Session, error) {
	args := m.Called(ctx, orgID, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Session), args.Error(1)
}

// recordingTransport captures room broadcasts
type recordingTransport struct {
	mu     sync.Mutex
	events []struct {
		Room  string
		Event string
	}
}

func (r *recordingTransport) EmitToRoom(roomID, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, struct {
		Room  string
		Event string
	}{roomID, event})
	return nil
}

func (r *recordingTransport) EmitToConnection(connID, event string, payload interface{}) error {
	return nil
}
func (r *recordingTransport) JoinRoom(connID, roomID string) error  { return nil }
func (r *recordingTransport) LeaveRoom(connID, roomID string) error { return nil }
func (r *recordingTransport) Disconnect(connID string) error        { return nil }
func (r *recordingTransport) ListConnectionsInRoom(roomID string) ([]types.ConnectionSnapshot, error) {
	return nil, nil
}
func (r *recordingTransport) ListAllConnections() ([]types.ConnectionSnapshot, error) {
	return nil, nil
}
func (r *recordingTransport) FindUserConnection(userID string) (*types.ConnectionSnapshot, bool) {
	return nil, false
}

func activeSession() *types.Session {
	return &types.Session{ID: "s1", OrgID: "o1", PatientID: "p1", State: types.SessionActive}
}

func newTestService(patients *MockPatientRepository, sessions *MockSessionRepository, transport *recordingTransport) *Service {
	return NewService(patients, sessions, transport, logger.New("error"))
}

func TestUpdateObservationsBroadcastsRefresh(t *testing.T) {
	patients := new(MockPatientRepository)
	sessions := new(MockSessionRepository)
	transport := &recordingTransport{}

	observations := map[string]interface{}{"hr": 110.0}
	sessions.On("GetByID", mock.Anything, "s1").Return(activeSession(), nil)
	patients.On("UpdateObservations", mock.Anything, "p1", observations).Return(nil)

	err := newTestService(patients, sessions, transport).UpdateObservations(context.Background(), "p1", &types.ObservationUpdate{
		SessionID:    "s1",
		Observations: observations,
	})
	require.NoError(t, err)

	require.Len(t, transport.events, 1)
	assert.Equal(t, "session_s1", transport.events[0].Room)
	assert.Equal(t, types.EventRefreshPatientData, transport.events[0].Event)
}

func TestUpdateObservationsWithPopup(t *testing.T) {
	patients := new(MockPatientRepository)
	sessions := new(MockSessionRepository)
	transport := &recordingTransport{}

	sessions.On("GetByID", mock.Anything, "s1").Return(activeSession(), nil)
	patients.On("UpdateObservations", mock.Anything, "p1", mock.Anything).Return(nil)

	err := newTestService(patients, sessions, transport).UpdateObservations(context.Background(), "p1", &types.ObservationUpdate{
		SessionID:    "s1",
		Observations: map[string]interface{}{"bp": "80/40"},
		Notify:       true,
		Message:      "Patient deteriorating",
	})
	require.NoError(t, err)

	require.Len(t, transport.events, 2)
	assert.Equal(t, types.EventRefreshPatientData, transport.events[0].Event)
	assert.Equal(t, types.EventPatientNotificationPopup, transport.events[1].Event)
}

func TestUpdateObservationsRejectsEndedSession(t *testing.T) {
	patients := new(MockPatientRepository)
	sessions := new(MockSessionRepository)
	transport := &recordingTransport{}

	ended := activeSession()
	ended.State = types.SessionEnded
	sessions.On("GetByID", mock.Anything, "s1").Return(ended, nil)

	err := newTestService(patients, sessions, transport).UpdateObservations(context.Background(), "p1", &types.ObservationUpdate{
		SessionID:    "s1",
		Observations: map[string]interface{}{},
	})

	perr, ok := types.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeConflict, perr.Type)
	patients.AssertNotCalled(t, "UpdateObservations", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateObservationsWrongPatient(t *testing.T) {
	patients := new(MockPatientRepository)
	sessions := new(MockSessionRepository)
	transport := &recordingTransport{}

	sessions.On("GetByID", mock.Anything, "s1").Return(activeSession(), nil)

	err := newTestService(patients, sessions, transport).UpdateObservations(context.Background(), "p-other", &types.ObservationUpdate{
		SessionID:    "s1",
		Observations: map[string]interface{}{},
	})

	perr, ok := types.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeValidation, perr.Type)
	assert.Empty(t, transport.events)
}

func TestCreatePatientValidation(t *testing.T) {
	patients := new(MockPatientRepository)
	sessions := new(MockSessionRepository)

	_, err := newTestService(patients, sessions, &recordingTransport{}).CreatePatient(context.Background(), &types.Patient{})
	require.Error(t, err)
	patients.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
