package types

import "sort"

// ConnectionSnapshot is a point-in-time view of one live realtime
// connection: its identifier, the authenticated user carried by it (nil
// for unauthenticated connections), and the rooms it belongs to.
type ConnectionSnapshot struct {
	ID    string      `json:"id"`
	User  *UserClaims `json:"user,omitempty"`
	Rooms []string    `json:"rooms"`
}

// SessionRoom returns the session room this connection is locked into,
// if any. A connection is assumed to belong to at most one session room;
// when it belongs to several, the lexically smallest wins so that every
// reconciliation makes the same pick.
func (c *ConnectionSnapshot) SessionRoom() (string, bool) {
	var rooms []string
	for _, room := range c.Rooms {
		if len(room) > len(SessionRoomPrefix) && room[:len(SessionRoomPrefix)] == SessionRoomPrefix {
			rooms = append(rooms, room)
		}
	}
	if len(rooms) == 0 {
		return "", false
	}
	sort.Strings(rooms)
	return rooms[0], true
}

// InRoom reports whether the connection currently belongs to roomID
func (c *ConnectionSnapshot) InRoom(roomID string) bool {
	for _, room := range c.Rooms {
		if room == roomID {
			return true
		}
	}
	return false
}
