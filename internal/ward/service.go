package ward

import (
	"context"
	"time"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/interfaces"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// availabilityWindow bounds how stale a last login may be before a user
// stops being offered as available. It approximates "currently on
// shift"; it is not a presence check.
const availabilityWindow = 6 * time.Hour

const pushDispatchTimeout = 30 * time.Second

// Service manages ward training exercises. It implements
// interfaces.WardService.
type Service struct {
	wards     interfaces.WardRepository
	users     interfaces.UserRepository
	transport interfaces.Transport
	push      interfaces.PushDispatcher
	logger    *logger.Logger
}

// NewService creates a ward service
func NewService(
	wards interfaces.WardRepository,
	users interfaces.UserRepository,
	transport interfaces.Transport,
	push interfaces.PushDispatcher,
	log *logger.Logger,
) *Service {
	return &Service{
		wards:     wards,
		users:     users,
		transport: transport,
		push:      push,
		logger:    log,
	}
}

// StartWardSession persists a new ACTIVE ward session and notifies its
// target set: everyone referenced in the assignments plus the
// organisation's admins. Online targets get a direct session:started
// event carrying their resolved zone; offline targets get a push batch.
func (s *Service) StartWardSession(ctx context.Context, req *types.StartWardSessionRequest, claims *types.UserClaims) (*types.WardSession, error) {
	if err := validateStartRequest(req); err != nil {
		return nil, err
	}

	ws := &types.WardSession{
		OrgID:           claims.OrgID,
		WardID:          req.WardID,
		StartedBy:       claims.UserID,
		Status:          types.WardSessionActive,
		Assignments:     req.Assignments,
		StartTime:       time.Now(),
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.wards.Create(ctx, ws); err != nil {
		return nil, err
	}

	targets, err := s.notificationTargets(ctx, ws)
	if err != nil {
		// The exercise is already persisted; a broken target lookup
		// must not roll it back.
		s.logger.WithOrgID(ws.OrgID).WithError(err).Warn("Ward session started without notification targets")
		return ws, nil
	}

	var offline []string
	for _, userID := range targets {
		conn, found := s.transport.FindUserConnection(userID)
		if !found {
			offline = append(offline, userID)
			continue
		}

		zone, _ := ws.Assignments.ZoneFor(userID)
		s.transport.EmitToConnection(conn.ID, types.EventSessionStarted, &types.WardSessionStartedPayload{
			WardSessionID:   ws.ID,
			WardID:          ws.WardID,
			Zone:            zone,
			DurationMinutes: ws.DurationMinutes,
		})
	}

	if len(offline) > 0 {
		go s.pushWardStarted(ws, offline)
	}

	s.logger.WithOrgID(ws.OrgID).WithField("ward_session_id", ws.ID).Info("Ward session started")
	return ws, nil
}

// notificationTargets is the union of every user referenced in the
// assignments plus the organisation's admins.
func (s *Service) notificationTargets(ctx context.Context, ws *types.WardSession) ([]string, error) {
	targets := ws.Assignments.UserRefs()
	seen := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		seen[id] = struct{}{}
	}

	admins, err := s.users.GetByRole(ctx, ws.OrgID, types.RoleAdmin)
	if err != nil {
		return nil, err
	}
	for _, admin := range admins {
		if _, ok := seen[admin.ID]; !ok {
			seen[admin.ID] = struct{}{}
			targets = append(targets, admin.ID)
		}
	}
	return targets, nil
}

func (s *Service) pushWardStarted(ws *types.WardSession, targets []string) {
	ctx, cancel := context.WithTimeout(context.Background(), pushDispatchTimeout)
	defer cancel()

	s.push.DispatchToUsers(ctx, targets, "Ward session started", "A ward exercise you are assigned to is underway", map[string]string{
		"ward_session_id": ws.ID,
		"ward_id":         ws.WardID,
		"event":           types.EventSessionStarted,
	})
}

// EndWardSession completes a ward session. Completing a completed one is
// a no-op success.
func (s *Service) EndWardSession(ctx context.Context, wardSessionID string) (*types.WardSession, error) {
	ws, err := s.wards.GetByID(ctx, wardSessionID)
	if err != nil {
		return nil, err
	}
	if ws.Status == types.WardSessionCompleted {
		return ws, nil
	}

	ws, err = s.wards.MarkCompleted(ctx, wardSessionID)
	if err != nil {
		return nil, err
	}

	s.transport.EmitToRoom(types.OrgRoomID(ws.OrgID), types.EventSessionEnded, map[string]string{
		"ward_session_id": ws.ID,
		"ward_id":         ws.WardID,
	})

	s.logger.WithOrgID(ws.OrgID).WithField("ward_session_id", ws.ID).Info("Ward session completed")
	return ws, nil
}

// GetWardSession retrieves a ward session by ID
func (s *Service) GetWardSession(ctx context.Context, wardSessionID string) (*types.WardSession, error) {
	return s.wards.GetByID(ctx, wardSessionID)
}

// GetAvailableUsers returns the organisation's users who can be pulled
// into a new exercise: not referenced in any non-completed ward
// session's assignments, not deleted, and seen within the freshness
// window.
func (s *Service) GetAvailableUsers(ctx context.Context, orgID string) ([]*types.User, error) {
	active, err := s.wards.ListActiveByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	busy := make(map[string]struct{})
	for _, ws := range active {
		for _, id := range ws.Assignments.UserRefs() {
			busy[id] = struct{}{}
		}
	}

	roster, err := s.users.GetRoster(ctx, orgID)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-availabilityWindow)
	available := make([]*types.User, 0, len(roster))
	for _, user := range roster {
		if _, isBusy := busy[user.ID]; isBusy {
			continue
		}
		if user.LastLoginAt == nil || user.LastLoginAt.Before(cutoff) {
			continue
		}
		available = append(available, user)
	}
	return available, nil
}

func validateStartRequest(req *types.StartWardSessionRequest) error {
	details := map[string]interface{}{}
	if req.WardID == "" {
		details["ward_id"] = "required"
	}
	if req.DurationMinutes < 0 {
		details["duration_minutes"] = "must not be negative"
	}
	if len(req.Assignments.UserRefs()) == 0 {
		details["assignments"] = "at least one assigned user is required"
	}
	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "invalid ward session request", details)
	}
	return nil
}
