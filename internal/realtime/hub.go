package realtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/monitoring"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// RoomEventFunc is invoked after a connection joins or leaves a session
// room, and for each session room a disconnecting connection is evicted
// from. It runs outside the hub lock, so handlers may call back into the
// hub freely.
type RoomEventFunc func(connID, roomID string, joined bool)

// Hub is the websocket connection registry and room fan-out layer. It
// implements interfaces.Transport.
//
// All state is guarded by a single RWMutex. Disconnect removes the
// connection from the registry and its rooms before returning, so any
// listing started afterwards cannot observe the evicted connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	rooms map[string]map[string]*Connection

	roomEvent RoomEventFunc

	logger  *logger.Logger
	metrics *monitoring.MetricsCollector

	sendQueueSize   int
	pingInterval    time.Duration
	writeTimeout    time.Duration
	pongTimeout     time.Duration
	maxMessageBytes int64
}

// NewHub creates an empty hub configured from the realtime section
func NewHub(cfg *config.RealtimeConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *Hub {
	return &Hub{
		conns:           make(map[string]*Connection),
		rooms:           make(map[string]map[string]*Connection),
		logger:          log,
		metrics:         metrics,
		sendQueueSize:   cfg.SendQueueSize,
		pingInterval:    time.Duration(cfg.PingIntervalSec) * time.Second,
		writeTimeout:    time.Duration(cfg.WriteTimeoutSec) * time.Second,
		pongTimeout:     time.Duration(cfg.PongTimeoutSec) * time.Second,
		maxMessageBytes: int64(cfg.MaxMessageBytes),
	}
}

// SetRoomEventHandler installs the session-room membership hook. Must be
// called before the hub accepts connections.
func (h *Hub) SetRoomEventHandler(fn RoomEventFunc) {
	h.roomEvent = fn
}

// register admits an upgraded socket into the hub, places it in its
// organisation room and starts its pumps.
func (h *Hub) register(ws *websocket.Conn, claims *types.UserClaims) *Connection {
	conn := &Connection{
		id:     uuid.New().String(),
		claims: claims,
		ws:     ws,
		send:   make(chan envelope, h.sendQueueSize),
		hub:    h,
	}

	orgRoom := types.OrgRoomID(claims.OrgID)

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.addToRoomLocked(conn, orgRoom)
	total := len(h.conns)
	h.mu.Unlock()

	h.metrics.SetActiveConnections(total)
	h.logger.WithUserID(claims.UserID).WithField("conn_id", conn.id).Info("Connection registered")

	go conn.writePump()
	go conn.readPump()

	return conn
}

// EmitToRoom delivers an event to every connection in a room. Unknown
// rooms are a no-op. Connections with a full send queue miss the event.
func (h *Hub) EmitToRoom(roomID, event string, payload interface{}) error {
	h.mu.RLock()
	members := make([]*Connection, 0, len(h.rooms[roomID]))
	for _, conn := range h.rooms[roomID] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, conn := range members {
		if !conn.enqueue(event, payload) {
			dropped++
		}
	}

	h.metrics.RecordBroadcast(event)
	if dropped > 0 {
		h.logger.WithRoom(roomID).WithField("event", event).Warnf("Dropped event for %d slow connections", dropped)
	}
	return nil
}

// EmitToConnection delivers an event to a single connection
func (h *Hub) EmitToConnection(connID, event string, payload interface{}) error {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("connection not found: %s", connID)
	}
	if !conn.enqueue(event, payload) {
		return fmt.Errorf("send queue full for connection %s", connID)
	}
	return nil
}

// JoinRoom places a connection into a room
func (h *Hub) JoinRoom(connID, roomID string) error {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("connection not found: %s", connID)
	}
	h.addToRoomLocked(conn, roomID)
	h.mu.Unlock()

	h.logger.WithRoom(roomID).WithField("conn_id", connID).Debug("Joined room")
	h.notifyRoomEvent(connID, roomID, true)
	return nil
}

// LeaveRoom removes a connection from a room. Leaving a room the
// connection is not in is a no-op.
func (h *Hub) LeaveRoom(connID, roomID string) error {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("connection not found: %s", connID)
	}
	h.removeFromRoomLocked(conn, roomID)
	h.mu.Unlock()

	h.notifyRoomEvent(connID, roomID, false)
	return nil
}

// Disconnect evicts a connection from the registry and every room it
// belongs to, then closes the socket. Idempotent: disconnecting an
// unknown connection returns nil. By the time it returns, no listing can
// observe the connection.
func (h *Hub) Disconnect(connID string) error {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return nil
	}

	var sessionRooms []string
	for roomID, members := range h.rooms {
		if _, in := members[connID]; in {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
			if strings.HasPrefix(roomID, types.SessionRoomPrefix) {
				sessionRooms = append(sessionRooms, roomID)
			}
		}
	}
	delete(h.conns, connID)
	total := len(h.conns)
	h.mu.Unlock()

	conn.close()
	h.metrics.SetActiveConnections(total)
	h.logger.WithField("conn_id", connID).Info("Connection disconnected")

	sort.Strings(sessionRooms)
	for _, roomID := range sessionRooms {
		h.notifyRoomEvent(connID, roomID, false)
	}
	return nil
}

// ListConnectionsInRoom returns snapshots of a room's current members
func (h *Hub) ListConnectionsInRoom(roomID string) ([]types.ConnectionSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshots := make([]types.ConnectionSnapshot, 0, len(h.rooms[roomID]))
	for _, conn := range h.rooms[roomID] {
		snapshots = append(snapshots, h.snapshotLocked(conn))
	}
	return snapshots, nil
}

// ListAllConnections returns snapshots of every live connection
func (h *Hub) ListAllConnections() ([]types.ConnectionSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshots := make([]types.ConnectionSnapshot, 0, len(h.conns))
	for _, conn := range h.conns {
		snapshots = append(snapshots, h.snapshotLocked(conn))
	}
	return snapshots, nil
}

// FindUserConnection returns a snapshot of the user's live connection.
// When the user holds several, the one with the lexically smallest ID
// wins so repeated lookups agree.
func (h *Hub) FindUserConnection(userID string) (*types.ConnectionSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var best *Connection
	for _, conn := range h.conns {
		if conn.claims == nil || conn.claims.UserID != userID {
			continue
		}
		if best == nil || conn.id < best.id {
			best = conn
		}
	}
	if best == nil {
		return nil, false
	}

	snapshot := h.snapshotLocked(best)
	return &snapshot, true
}

func (h *Hub) addToRoomLocked(conn *Connection, roomID string) {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Connection)
		h.rooms[roomID] = members
	}
	members[conn.id] = conn
}

func (h *Hub) removeFromRoomLocked(conn *Connection, roomID string) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, conn.id)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) snapshotLocked(conn *Connection) types.ConnectionSnapshot {
	var rooms []string
	for roomID, members := range h.rooms {
		if _, in := members[conn.id]; in {
			rooms = append(rooms, roomID)
		}
	}
	sort.Strings(rooms)

	return types.ConnectionSnapshot{
		ID:    conn.id,
		User:  conn.claims,
		Rooms: rooms,
	}
}

func (h *Hub) notifyRoomEvent(connID, roomID string, joined bool) {
	if h.roomEvent == nil || !strings.HasPrefix(roomID, types.SessionRoomPrefix) {
		return
	}
	h.roomEvent(connID, roomID, joined)
}

// handleClientMessage services join/leave requests read off the socket.
// Clients may only self-serve session rooms; everything else is assigned
// server-side.
func (h *Hub) handleClientMessage(conn *Connection, msg *clientMessage) {
	switch msg.Event {
	case "joinRoom":
		if !strings.HasPrefix(msg.Room, types.SessionRoomPrefix) {
			h.logger.WithRoom(msg.Room).WithField("conn_id", conn.id).Debug("Refused join outside session rooms")
			return
		}
		h.JoinRoom(conn.id, msg.Room)
	case "leaveRoom":
		if !strings.HasPrefix(msg.Room, types.SessionRoomPrefix) {
			return
		}
		h.LeaveRoom(conn.id, msg.Room)
	default:
		h.logger.WithField("conn_id", conn.id).WithField("event", msg.Event).Debug("Ignoring unknown client event")
	}
}
