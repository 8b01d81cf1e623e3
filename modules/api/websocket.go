package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	commandTimeout = 10 * time.Second
	maxFrameBytes  = 64 * 1024
)

// wsPeer is the outbound half of a websocket connection. Events are queued
// on send and written by writePump, so Send never blocks the broadcaster.
type wsPeer struct {
	id        string
	conn      *websocket.Conn
	send      chan session.Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ session.Peer = (*wsPeer)(nil)

func newWSPeer(conn *websocket.Conn, buffer int) *wsPeer {
	return &wsPeer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan session.Event, buffer),
		done: make(chan struct{}),
	}
}

func (p *wsPeer) ID() string {
	return p.id
}

func (p *wsPeer) Send(evt session.Event) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.send <- evt:
		return true
	default:
		return false
	}
}

func (p *wsPeer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// writePump writes queued events and keepalive pings until the peer is
// closed or a write fails. On exit it unblocks the reader.
func (p *wsPeer) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.SetReadDeadline(time.Now())
	}()

	for {
		select {
		case evt := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(evt); err != nil {
				log.Printf("[api] Write to %s failed: %v", p.id, err)
				p.Close()
				return
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				p.Close()
				return
			}
		case <-p.done:
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handleWebSocket handles WebSocket connections at /ws. Each connection
// gets its own session; frames are dispatched to it in arrival order.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	identity, _ := c.Locals(IdentityContextKey).(domain.Identity)
	idle := m.config.IdleTimeout

	peer := newWSPeer(c, m.config.SendBuffer)
	sess := m.sessions.Open(identity, peer)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		peer.writePump(idle * 9 / 10)
	}()

	defer func() {
		sess.Disconnect(context.Background())
		peer.Close()
		<-writerDone
		log.Printf("[api] WebSocket connection closed: %s (%s, room %q)", peer.ID(), identity, sess.RoomID())
	}()

	log.Printf("[api] WebSocket connection opened: %s (%s)", peer.ID(), identity)

	c.SetReadLimit(maxFrameBytes)
	_ = c.SetReadDeadline(time.Now().Add(idle))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Read error from %s: %v", peer.ID(), err)
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(idle))

		var cmd session.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			peer.Send(session.ErrorEvent(session.ErrInvalidFrame))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		err = sess.Handle(ctx, cmd)
		cancel()
		if err != nil {
			peer.Send(session.ErrorEvent(err))
		}
	}
}
