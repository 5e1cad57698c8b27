package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/drawparty/drawparty/game/coordinator"
	"github.com/drawparty/drawparty/game/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to the peer with this period.
	pingPeriod = 5 * time.Second

	// How long without any liveness response before the peer is declared
	// dead. Must be greater than pingPeriod.
	clientTimeout = 10 * time.Second

	// Time allowed for the coordinator to acknowledge registration.
	connectTimeout = 5 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer per session. Broadcasts to a session with a full
	// buffer are dropped; delivery is best-effort.
	sendBufferSize = 256

	// getIDCommand is the reserved text command answered locally by the
	// session without reaching the coordinator.
	getIDCommand = "GET_ID"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the API layer's CORS middleware.
		return true
	},
}

// outMessage is one frame queued for the write pump.
type outMessage struct {
	messageType int
	data        []byte
}

// Session is the per-connection actor. It owns nothing but its connection,
// its outbound queue, and its heartbeat clock; all game state lives behind
// the coordinator.
type Session struct {
	id       uuid.UUID
	username string
	roomID   uuid.UUID
	coord    *coordinator.Coordinator
	conn     *websocket.Conn
	send     chan outMessage
}

// Serve upgrades the request and runs the session until the connection dies.
// sessionID resumes an existing identity when non-nil; otherwise a fresh one
// is assigned. Registration with the coordinator must succeed before any
// frame is processed; on failure the connection is closed immediately.
func Serve(coord *coordinator.Coordinator, w http.ResponseWriter, r *http.Request, roomID, sessionID uuid.UUID, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	s := &Session{
		id:       sessionID,
		username: username,
		roomID:   roomID,
		coord:    coord,
		conn:     conn,
		send:     make(chan outMessage, sendBufferSize),
	}

	ctx, cancel := context.WithTimeout(r.Context(), connectTimeout)
	defer cancel()

	if _, err := coord.Connect(ctx, s.id, s.roomID, s.username, s); err != nil {
		log.Printf("session %s registration failed: %v", s.id, err)
		conn.Close()
		return
	}

	go s.writePump()
	s.readPump()
}

// Deliver implements coordinator.Outbound. It queues the envelope as a text
// frame without blocking; if the session's buffer is full the message is
// dropped and the heartbeat will eventually reap the dead peer.
func (s *Session) Deliver(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case s.send <- outMessage{websocket.TextMessage, data}:
	default:
	}
}

// readPump reads frames until the connection fails, the peer closes, or the
// liveness deadline passes. Whatever the exit cause, the coordinator is told
// to disconnect this session.
func (s *Session) readPump() {
	defer func() {
		s.coord.Disconnect(s.id, s.roomID)
		s.conn.Close()
		log.Printf("session %s disconnected from room %s", s.id, s.roomID)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(clientTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(clientTimeout))
		return nil
	})
	s.conn.SetPingHandler(func(appData string) error {
		// Peers may probe us too; answer and count it as liveness.
		s.conn.SetReadDeadline(time.Now().Add(clientTimeout))
		return s.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("session %s read error: %v", s.id, err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			// Binary frames are opaque; echo them back unexamined.
			select {
			case s.send <- outMessage{websocket.BinaryMessage, message}:
			default:
			}
		case websocket.TextMessage:
			s.handleText(message)
		}
	}
}

// handleText answers the reserved identity command locally and forwards
// everything else to the coordinator.
func (s *Session) handleText(message []byte) {
	if string(message) == getIDCommand {
		env := protocol.Envelope{
			Type:    protocol.Data(protocol.DataUserID),
			Content: s.id.String(),
		}
		select {
		case s.send <- outMessage{websocket.TextMessage, env.Encode()}:
		default:
		}
		return
	}
	s.coord.HandleMessage(s.id, s.roomID, message)
}

// writePump drains the outbound queue and keeps the heartbeat going. One
// goroutine per connection does all the writing, so frames from the
// coordinator stay ordered.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			// The queue is never closed; the pump exits on write failure
			// once readPump has torn down the connection.
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(msg.messageType, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
