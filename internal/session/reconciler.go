package session

import (
	"context"
	"sync"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/interfaces"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/monitoring"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Reconciler computes the authoritative participant list of a session
// room and broadcasts it to the room. It implements
// interfaces.ParticipantReconciler.
//
// The list merges the organisation roster with live transport state: a
// roster member appears iff they are either free (no live session room)
// or locked into this very room. A user parked in a different session
// room is never listed, so one person cannot show up in two concurrent
// sessions.
type Reconciler struct {
	transport interfaces.Transport
	users     interfaces.UserRepository
	logger    *logger.Logger
	metrics   *monitoring.MetricsCollector

	// seq is monotonic per room; receivers discard broadcasts whose
	// sequence number is below the highest seen.
	mu   sync.Mutex
	seqs map[string]uint64
}

// NewReconciler creates a participant reconciler
func NewReconciler(transport interfaces.Transport, users interfaces.UserRepository, log *logger.Logger, metrics *monitoring.MetricsCollector) *Reconciler {
	return &Reconciler{
		transport: transport,
		users:     users,
		logger:    log,
		metrics:   metrics,
		seqs:      make(map[string]uint64),
	}
}

// Reconcile recomputes the participant list for roomID bounded by the
// organisation's roster, broadcasts it into the room and returns it.
//
// Transport enumeration failure is fatal for the attempt: an empty room
// and an unavailable transport must not look alike to callers.
func (r *Reconciler) Reconcile(ctx context.Context, roomID, orgID string) ([]types.Participant, error) {
	connections, err := r.transport.ListAllConnections()
	if err != nil {
		r.metrics.RecordReconciliation("transport_unavailable")
		return nil, types.NewTransportUnavailableError("cannot enumerate live connections", err)
	}

	currentRoom := userRoomMapping(connections)

	roster, err := r.users.GetRoster(ctx, orgID)
	if err != nil {
		r.metrics.RecordReconciliation("roster_failed")
		return nil, err
	}

	participants := make([]types.Participant, 0, len(roster))
	for _, user := range roster {
		// room is "" for users who are offline or connected without a
		// session room; both count as free.
		room := currentRoom[user.ID]
		if room != "" && room != roomID {
			continue
		}
		participants = append(participants, types.Participant{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Role:   user.Role,
			InRoom: room == roomID,
		})
	}

	payload := &types.ParticipantListPayload{
		RoomID:       roomID,
		Seq:          r.nextSeq(roomID),
		Participants: participants,
	}

	// Best-effort broadcast; a dropped frame is repaired by the next
	// reconciliation.
	if err := r.transport.EmitToRoom(roomID, types.EventParticipantList, payload); err != nil {
		r.logger.WithRoom(roomID).WithError(err).Warn("Participant list broadcast failed")
	}

	r.metrics.RecordReconciliation("success")
	r.logger.Broadcast(roomID, types.EventParticipantList, payload.Seq, len(participants))
	return participants, nil
}

func (r *Reconciler) nextSeq(roomID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[roomID]++
	return r.seqs[roomID]
}

// userRoomMapping derives each connected user's current session room.
// A user is assumed to sit in at most one session room; when live state
// disagrees, the lexically smallest room wins so concurrent
// reconciliations agree on the pick.
func userRoomMapping(connections []types.ConnectionSnapshot) map[string]string {
	mapping := make(map[string]string)
	for i := range connections {
		conn := &connections[i]
		if conn.User == nil {
			continue
		}

		room, ok := conn.SessionRoom()
		if !ok {
			continue
		}
		if existing, seen := mapping[conn.User.UserID]; !seen || room < existing {
			mapping[conn.User.UserID] = room
		}
	}
	return mapping
}
