package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// emittedEvent records one fan-out for later assertions
type emittedEvent struct {
	Target  string
	Event   string
	Payload interface{}
}

// fakeTransport is an in-memory Transport for tests
type fakeTransport struct {
	mu       sync.Mutex
	conns    map[string]*types.ConnectionSnapshot
	roomSent []emittedEvent
	connSent []emittedEvent
	failList bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: make(map[string]*types.ConnectionSnapshot)}
}

func (f *fakeTransport) addConnection(connID, userID string, rooms ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[connID] = &types.ConnectionSnapshot{
		ID:    connID,
		User:  &types.UserClaims{UserID: userID},
		Rooms: rooms,
	}
}

func (f *fakeTransport) EmitToRoom(roomID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomSent = append(f.roomSent, emittedEvent{Target: roomID, Event: event, Payload: payload})
	return nil
}

func (f *fakeTransport) EmitToConnection(connID, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connSent = append(f.connSent, emittedEvent{Target: connID, Event: event, Payload: payload})
	return nil
}

func (f *fakeTransport) JoinRoom(connID, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connID]
	if !ok {
		return fmt.Errorf("connection not found: %s", connID)
	}
	if !conn.InRoom(roomID) {
		conn.Rooms = append(conn.Rooms, roomID)
	}
	return nil
}

func (f *fakeTransport) LeaveRoom(connID, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[connID]
	if !ok {
		return fmt.Errorf("connection not found: %s", connID)
	}
	var rooms []string
	for _, room := range conn.Rooms {
		if room != roomID {
			rooms = append(rooms, room)
		}
	}
	conn.Rooms = rooms
	return nil
}

func (f *fakeTransport) Disconnect(connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, connID)
	return nil
}

func (f *fakeTransport) ListConnectionsInRoom(roomID string) ([]types.ConnectionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, fmt.Errorf("registry offline")
	}
	var result []types.ConnectionSnapshot
	for _, conn := range f.conns {
		if conn.InRoom(roomID) {
			result = append(result, *conn)
		}
	}
	return result, nil
}

func (f *fakeTransport) ListAllConnections() ([]types.ConnectionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, fmt.Errorf("registry offline")
	}
	result := make([]types.ConnectionSnapshot, 0, len(f.conns))
	for _, conn := range f.conns {
		result = append(result, *conn)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTransport) FindUserConnection(userID string) (*types.ConnectionSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *types.ConnectionSnapshot
	for _, conn := range f.conns {
		if conn.User == nil || conn.User.UserID != userID {
			continue
		}
		if best == nil || conn.ID < best.ID {
			best = conn
		}
	}
	if best == nil {
		return nil, false
	}
	snapshot := *best
	return &snapshot, true
}

func (f *fakeTransport) roomEvents(roomID string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []emittedEvent
	for _, evt := range f.roomSent {
		if evt.Target == roomID {
			result = append(result, evt)
		}
	}
	return result
}

func (f *fakeTransport) connEvents(connID string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []emittedEvent
	for _, evt := range f.connSent {
		if evt.Target == connID {
			result = append(result, evt)
		}
	}
	return result
}
