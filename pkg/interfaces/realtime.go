package interfaces

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Transport is the room-based realtime layer consumed by the session and
// ward services. It is always injected, never reached through a package
// singleton, so tests can substitute an in-memory fake.
//
// Disconnect returns only after the connection has been removed from the
// registry and every room it belonged to; a reconciliation started after
// Disconnect returns can no longer observe the evicted connection.
type Transport interface {
	EmitToRoom(roomID, event string, payload interface{}) error
	EmitToConnection(connID, event string, payload interface{}) error
	JoinRoom(connID, roomID string) error
	LeaveRoom(connID, roomID string) error
	Disconnect(connID string) error

	ListConnectionsInRoom(roomID string) ([]types.ConnectionSnapshot, error)
	ListAllConnections() ([]types.ConnectionSnapshot, error)
	FindUserConnection(userID string) (*types.ConnectionSnapshot, bool)
}

// PushSender is the outbound push-notification provider. Token-level
// failures are reported through the result, not the error: a non-nil
// error means the attempt itself could not be made.
type PushSender interface {
	Send(ctx context.Context, msg *types.PushMessage) (*types.PushResult, error)
}

// PushDispatcher fans a notification out to a set of users, resolving
// device tokens and clearing the ones the provider rejects as invalid.
// Delivery failures are never escalated to the caller.
type PushDispatcher interface {
	DispatchToUsers(ctx context.Context, userIDs []string, title, body string, data map[string]string)
}
