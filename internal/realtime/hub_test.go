package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/monitoring"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

func newTestHub() *Hub {
	cfg := &config.RealtimeConfig{
		SendQueueSize:   8,
		PingIntervalSec: 30,
		WriteTimeoutSec: 10,
		PongTimeoutSec:  60,
		MaxMessageBytes: 65536,
	}
	return NewHub(cfg, logger.New("error"), monitoring.NewMetricsCollector("test"))
}

// addConn inserts a connection without a live socket; pumps never start,
// so outbound events stay readable on the send queue.
func addConn(h *Hub, id string, claims *types.UserClaims, rooms ...string) *Connection {
	conn := &Connection{
		id:     id,
		claims: claims,
		send:   make(chan envelope, h.sendQueueSize),
		hub:    h,
	}
	h.mu.Lock()
	h.conns[id] = conn
	for _, room := range rooms {
		h.addToRoomLocked(conn, room)
	}
	h.mu.Unlock()
	return conn
}

func TestJoinRoomAndList(t *testing.T) {
	hub := newTestHub()
	addConn(hub, "c1", &types.UserClaims{UserID: "u1"}, "org_o1")

	require.NoError(t, hub.JoinRoom("c1", "session_s1"))

	members, err := hub.ListConnectionsInRoom("session_s1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "c1", members[0].ID)
	assert.Equal(t, []string{"org_o1", "session_s1"}, members[0].Rooms)
}

func TestJoinRoomUnknownConnection(t *testing.T) {
	hub := newTestHub()

	err := hub.JoinRoom("missing", "session_s1")
	assert.Error(t, err)
}

func TestLeaveRoomNotMemberIsNoOp(t *testing.T) {
	hub := newTestHub()
	addConn(hub, "c1", &types.UserClaims{UserID: "u1"}, "org_o1")

	require.NoError(t, hub.LeaveRoom("c1", "session_s1"))

	all, err := hub.ListAllConnections()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"org_o1"}, all[0].Rooms)
}

func TestDisconnectEvictsBeforeReturning(t *testing.T) {
	hub := newTestHub()
	addConn(hub, "c1", &types.UserClaims{UserID: "u1"}, "org_o1", "session_s1")

	require.NoError(t, hub.Disconnect("c1"))

	all, err := hub.ListAllConnections()
	require.NoError(t, err)
	assert.Empty(t, all)

	members, err := hub.ListConnectionsInRoom("session_s1")
	require.NoError(t, err)
	assert.Empty(t, members)

	_, found := hub.FindUserConnection("u1")
	assert.False(t, found)
}

func TestDisconnectUnknownConnectionIsIdempotent(t *testing.T) {
	hub := newTestHub()

	assert.NoError(t, hub.Disconnect("missing"))
	assert.NoError(t, hub.Disconnect("missing"))
}

func TestDisconnectNotifiesSessionRoomsOnly(t *testing.T) {
	hub := newTestHub()

	var events []string
	hub.SetRoomEventHandler(func(connID, roomID string, joined bool) {
		assert.False(t, joined)
		events = append(events, roomID)
	})

	addConn(hub, "c1", &types.UserClaims{UserID: "u1"}, "org_o1", "session_s2", "session_s1")
	require.NoError(t, hub.Disconnect("c1"))

	assert.Equal(t, []string{"session_s1", "session_s2"}, events)
}

func TestRoomEventFiltersNonSessionRooms(t *testing.T) {
	hub := newTestHub()

	fired := 0
	hub.SetRoomEventHandler(func(connID, roomID string, joined bool) {
		fired++
	})

	addConn(hub, "c1", &types.UserClaims{UserID: "u1"})
	require.NoError(t, hub.JoinRoom("c1", "org_o1"))
	assert.Zero(t, fired)

	require.NoError(t, hub.JoinRoom("c1", "session_s1"))
	assert.Equal(t, 1, fired)
}

func TestFindUserConnectionPicksSmallestID(t *testing.T) {
	hub := newTestHub()
	claims := &types.UserClaims{UserID: "u1"}
	addConn(hub, "c2", claims)
	addConn(hub, "c1", claims)
	addConn(hub, "c3", &types.UserClaims{UserID: "u2"})

	snapshot, found := hub.FindUserConnection("u1")
	require.True(t, found)
	assert.Equal(t, "c1", snapshot.ID)
}

func TestEmitToRoomReachesMembersOnly(t *testing.T) {
	hub := newTestHub()
	inRoom := addConn(hub, "c1", &types.UserClaims{UserID: "u1"}, "session_s1")
	outside := addConn(hub, "c2", &types.UserClaims{UserID: "u2"}, "org_o1")

	require.NoError(t, hub.EmitToRoom("session_s1", types.EventSessionEnded, map[string]string{"session_id": "s1"}))

	select {
	case msg := <-inRoom.send:
		assert.Equal(t, types.EventSessionEnded, msg.Event)
	default:
		t.Fatal("expected event on room member queue")
	}

	select {
	case <-outside.send:
		t.Fatal("event leaked outside the room")
	default:
	}
}

func TestEmitToRoomUnknownRoomIsNoOp(t *testing.T) {
	hub := newTestHub()

	assert.NoError(t, hub.EmitToRoom("session_missing", types.EventSessionEnded, nil))
}

func TestEmitToConnection(t *testing.T) {
	hub := newTestHub()
	conn := addConn(hub, "c1", &types.UserClaims{UserID: "u1"})

	require.NoError(t, hub.EmitToConnection("c1", types.EventSessionStarted, nil))
	msg := <-conn.send
	assert.Equal(t, types.EventSessionStarted, msg.Event)

	assert.Error(t, hub.EmitToConnection("missing", types.EventSessionStarted, nil))
}

func TestClientJoinRestrictedToSessionRooms(t *testing.T) {
	hub := newTestHub()
	conn := addConn(hub, "c1", &types.UserClaims{UserID: "u1"})

	hub.handleClientMessage(conn, &clientMessage{Event: "joinRoom", Room: "org_other"})
	all, err := hub.ListAllConnections()
	require.NoError(t, err)
	assert.Empty(t, all[0].Rooms)

	hub.handleClientMessage(conn, &clientMessage{Event: "joinRoom", Room: "session_s1"})
	all, err = hub.ListAllConnections()
	require.NoError(t, err)
	assert.Equal(t, []string{"session_s1"}, all[0].Rooms)
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	hub := newTestHub()
	conn := addConn(hub, "c1", &types.UserClaims{UserID: "u1"}, "session_s1")

	conn.close()
	conn.close()

	assert.False(t, conn.enqueue(types.EventSessionStarted, nil))
	assert.Error(t, hub.EmitToConnection("c1", types.EventSessionStarted, nil))
	assert.NoError(t, hub.EmitToRoom("session_s1", types.EventSessionStarted, nil))
}

func TestConcurrentEmitAndDisconnect(t *testing.T) {
	hub := newTestHub()

	// Broadcasts enqueue after the hub lock is released, so they can
	// land on a connection a concurrent Disconnect is tearing down. The
	// closed queue must drop the event, never take it.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					hub.EmitToRoom("session_s1", types.EventSessionStarted, nil)
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("c%d", i)
		addConn(hub, id, &types.UserClaims{UserID: "u1"}, "session_s1")
		require.NoError(t, hub.Disconnect(id))
	}

	close(done)
	wg.Wait()
}
