package session

import (
	"context"
	"time"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/interfaces"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

const pushDispatchTimeout = 30 * time.Second

// Service manages the lifecycle of simulated clinical sessions. It
// implements interfaces.SessionService.
type Service struct {
	sessions   interfaces.SessionRepository
	users      interfaces.UserRepository
	patients   interfaces.PatientRepository
	transport  interfaces.Transport
	reconciler interfaces.ParticipantReconciler
	push       interfaces.PushDispatcher
	logger     *logger.Logger
}

// NewService creates a session service
func NewService(
	sessions interfaces.SessionRepository,
	users interfaces.UserRepository,
	patients interfaces.PatientRepository,
	transport interfaces.Transport,
	reconciler interfaces.ParticipantReconciler,
	push interfaces.PushDispatcher,
	log *logger.Logger,
) *Service {
	return &Service{
		sessions:   sessions,
		users:      users,
		patients:   patients,
		transport:  transport,
		reconciler: reconciler,
		push:       push,
		logger:     log,
	}
}

// CreateSession starts a new session around a patient, announces it to
// the organisation room and pushes to registered devices.
func (s *Service) CreateSession(ctx context.Context, req *types.CreateSessionRequest, claims *types.UserClaims) (*types.Session, error) {
	if err := validateCreateSession(req); err != nil {
		return nil, err
	}

	patient, err := s.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	creator, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	session := &types.Session{
		OrgID:           claims.OrgID,
		PatientID:       patient.ID,
		CreatedBy:       creator.ID,
		Name:            req.Name,
		State:           types.SessionActive,
		StartTime:       time.Now(),
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.transport.EmitToRoom(types.OrgRoomID(claims.OrgID), types.EventSessionStarted, &types.SessionEventPayload{
		SessionID: session.ID,
		PatientID: session.PatientID,
		Name:      session.Name,
		By:        creator.ID,
	})

	go s.pushSessionStarted(session, creator)

	s.logger.WithSessionID(session.ID).WithField("org_id", claims.OrgID).Info("Session created")
	return session, nil
}

// pushSessionStarted notifies the rest of the organisation off the
// request path. Failures are the dispatcher's problem, never the
// caller's.
func (s *Service) pushSessionStarted(session *types.Session, creator *types.User) {
	ctx, cancel := context.WithTimeout(context.Background(), pushDispatchTimeout)
	defer cancel()

	roster, err := s.users.GetRoster(ctx, session.OrgID)
	if err != nil {
		s.logger.WithSessionID(session.ID).WithError(err).Warn("Skipping session push, roster unavailable")
		return
	}

	var targets []string
	for _, user := range roster {
		if user.ID != creator.ID {
			targets = append(targets, user.ID)
		}
	}

	s.push.DispatchToUsers(ctx, targets, "Session started", creator.Name+" started session "+session.Name, map[string]string{
		"session_id": session.ID,
		"event":      types.EventSessionStarted,
	})
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// AddParticipant invites a user into a running session. If the target
// has a live connection it is joined to the session room, told directly,
// and the participant list is recomputed. An offline target is a valid
// terminal outcome, reported as added=false, not an error.
func (s *Service) AddParticipant(ctx context.Context, sessionID string, req *types.AddParticipantRequest, claims *types.UserClaims) (*types.AddParticipantResult, error) {
	if req.UserID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "user_id is required", nil)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == types.SessionEnded {
		return nil, types.NewConflictError(types.ErrCodeConflict, "session already ended")
	}

	target, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	result := &types.AddParticipantResult{
		SessionID: session.ID,
		UserID:    target.ID,
	}

	conn, found := s.transport.FindUserConnection(target.ID)
	if !found {
		s.logger.WithSessionID(session.ID).WithField("user_id", target.ID).Info("Invited participant is offline")
		return result, nil
	}

	roomID := session.RoomID()
	if err := s.transport.JoinRoom(conn.ID, roomID); err != nil {
		return nil, types.NewTransportUnavailableError("cannot join participant to session room", err)
	}

	s.transport.EmitToConnection(conn.ID, types.EventParticipantAdd, map[string]interface{}{
		"session_id": session.ID,
		"patient_id": session.PatientID,
		"added_by":   claims.UserID,
		"meta":       req.Meta,
	})
	s.transport.EmitToRoom(roomID, types.EventUserJoined, map[string]interface{}{
		"user_id": target.ID,
		"name":    target.Name,
	})

	if _, err := s.reconciler.Reconcile(ctx, roomID, session.OrgID); err != nil {
		return nil, err
	}

	result.Added = true
	return result, nil
}

// EndSession closes a session. Ending an already ended session is a
// success that changes nothing in the store, because callers retry end
// requests without knowing whether an earlier one landed. The room
// eviction runs on every call, so a retry after a transient transport
// failure still clears the room.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*types.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State != types.SessionEnded {
		session, err = s.sessions.MarkEnded(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		s.transport.EmitToRoom(session.RoomID(), types.EventSessionEnded, &types.SessionEventPayload{
			SessionID: session.ID,
		})
	}

	// The transport keeps room membership alive past the logical end of
	// the session, so evict everyone explicitly.
	roomID := session.RoomID()
	connections, err := s.transport.ListConnectionsInRoom(roomID)
	if err != nil {
		return nil, types.NewTransportUnavailableError("cannot enumerate session room for eviction", err)
	}
	for _, conn := range connections {
		if err := s.transport.LeaveRoom(conn.ID, roomID); err != nil {
			s.logger.WithRoom(roomID).WithField("conn_id", conn.ID).WithError(err).Warn("Failed to evict connection")
		}
	}

	s.logger.WithSessionID(session.ID).Info("Session ended")
	return session, nil
}

// EndUserSession forcibly removes one participant from a session, admin
// kick style. The target's connection is told, evicted from the room and
// closed outright, so a client cannot keep rendering stale session
// state. Disconnect returns only once the transport has applied the
// removal, so the recomputed list cannot still contain the evictee. A
// target with no live connection is not an error; the current list is
// recomputed and returned as-is.
func (s *Service) EndUserSession(ctx context.Context, sessionID, userID string) ([]types.Participant, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roomID := session.RoomID()

	if conn, found := s.transport.FindUserConnection(userID); found && conn.InRoom(roomID) {
		s.transport.EmitToConnection(conn.ID, types.EventSessionRemoved, &types.SessionEventPayload{
			SessionID: session.ID,
		})
		if err := s.transport.LeaveRoom(conn.ID, roomID); err != nil {
			s.logger.WithRoom(roomID).WithField("user_id", userID).WithError(err).Warn("Failed to remove participant from room")
		}
		if err := s.transport.Disconnect(conn.ID); err != nil {
			return nil, types.NewTransportUnavailableError("cannot disconnect removed participant", err)
		}
		s.logger.WithSessionID(session.ID).WithField("user_id", userID).Info("Participant removed from session")
	}

	return s.reconciler.Reconcile(ctx, roomID, session.OrgID)
}

func validateCreateSession(req *types.CreateSessionRequest) error {
	details := map[string]interface{}{}
	if req.PatientID == "" {
		details["patient_id"] = "required"
	}
	if req.Name == "" {
		details["name"] = "required"
	}
	if req.DurationMinutes < 0 {
		details["duration_minutes"] = "must not be negative"
	}
	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "invalid session request", details)
	}
	return nil
}
