package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// envelope is the wire frame for every server-to-client event
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// clientMessage is the wire frame for client-to-server requests
type clientMessage struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
}

// Connection is one live websocket attached to the hub. Outbound events
// go through a buffered send queue drained by a single writer goroutine;
// a full queue drops the event rather than blocking the hub.
type Connection struct {
	id     string
	claims *types.UserClaims
	ws     *websocket.Conn
	send   chan envelope

	hub *Hub

	// sendMu serializes enqueue against close: the hub fans events out
	// after releasing its own lock, so a broadcast may race a disconnect
	// and must never send on a closed channel.
	sendMu sync.Mutex
	closed bool
}

func (c *Connection) enqueue(event string, payload interface{}) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- envelope{Event: event, Data: payload}:
		return true
	default:
		return false
	}
}

// close tears down the writer goroutine and the underlying socket. Safe
// to call more than once.
func (c *Connection) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump drains the send queue onto the socket and keeps the
// connection alive with periodic pings. It owns all writes.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				c.hub.logger.WithError(err).Warn("Dropping unmarshalable event")
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes client requests until the socket dies, then evicts
// the connection from the hub.
func (c *Connection) readPump() {
	defer c.hub.Disconnect(c.id)

	c.ws.SetReadLimit(c.hub.maxMessageBytes)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.hub.pongTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithField("conn_id", c.id).WithError(err).Debug("Connection closed unexpectedly")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.WithField("conn_id", c.id).Debug("Ignoring malformed client message")
			continue
		}

		c.hub.handleClientMessage(c, &msg)
	}
}
