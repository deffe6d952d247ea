package interfaces

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// WardService manages ward training exercises and staff availability
type WardService interface {
	StartWardSession(ctx context.Context, req *types.StartWardSessionRequest, claims *types.UserClaims) (*types.WardSession, error)
	EndWardSession(ctx context.Context, wardSessionID string) (*types.WardSession, error)
	GetWardSession(ctx context.Context, wardSessionID string) (*types.WardSession, error)
	GetAvailableUsers(ctx context.Context, orgID string) ([]*types.User, error)
}

// WardRepository persists ward session rows
type WardRepository interface {
	Create(ctx context.Context, ws *types.WardSession) error
	GetByID(ctx context.Context, id string) (*types.WardSession, error)
	MarkCompleted(ctx context.Context, id string) (*types.WardSession, error)
	ListActiveByOrg(ctx context.Context, orgID string) ([]*types.WardSession, error)
}
