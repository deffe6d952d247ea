package interfaces

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// SessionService manages the lifecycle of simulated clinical sessions
type SessionService interface {
	CreateSession(ctx context.Context, req *types.CreateSessionRequest, claims *types.UserClaims) (*types.Session, error)
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	AddParticipant(ctx context.Context, sessionID string, req *types.AddParticipantRequest, claims *types.UserClaims) (*types.AddParticipantResult, error)
	EndSession(ctx context.Context, sessionID string) (*types.Session, error)
	EndUserSession(ctx context.Context, sessionID, userID string) ([]types.Participant, error)
}

// ParticipantReconciler recomputes the authoritative participant list of
// a session room and pushes it to every connection in that room.
type ParticipantReconciler interface {
	Reconcile(ctx context.Context, roomID, orgID string) ([]types.Participant, error)
}

// SessionRepository persists session rows
type SessionRepository interface {
	Create(ctx context.Context, session *types.Session) error
	GetByID(ctx context.Context, id string) (*types.Session, error)
	MarkEnded(ctx context.Context, id string) (*types.Session, error)
	ListByOrg(ctx context.Context, orgID string, state types.SessionState) ([]*types.Session, error)
}
