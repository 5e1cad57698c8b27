package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/drawparty/drawparty/game/protocol"
	"github.com/drawparty/drawparty/game/room"
)

// requestBuffer bounds the coordinator's inbox. Sessions block on a full
// inbox rather than dropping requests, so ordering is preserved.
const requestBuffer = 256

var (
	// ErrClosed is returned when the coordinator's event loop has stopped.
	ErrClosed = errors.New("coordinator closed")
)

// Outbound is the delivery handle a connection session registers with the
// coordinator. Deliver must never block: slow or dead peers are the
// heartbeat's problem, not the coordinator's.
type Outbound interface {
	Deliver(env protocol.Envelope)
}

// Coordinator is the single authority over all rooms and all live session
// handles. Every operation goes through one request channel drained by Run,
// so all state mutation and fan-out is serialized: no other locking exists
// or is needed.
type Coordinator struct {
	sessions map[uuid.UUID]Outbound
	rooms    map[uuid.UUID]*room.Room
	requests chan any
	done     chan struct{}
}

// New creates a coordinator. Run must be started before any session
// connects.
func New() *Coordinator {
	return &Coordinator{
		sessions: make(map[uuid.UUID]Outbound),
		rooms:    make(map[uuid.UUID]*room.Room),
		requests: make(chan any, requestBuffer),
		done:     make(chan struct{}),
	}
}

// SeedRoom pre-provisions an empty waiting room under the given id, owned by
// a throwaway identity. Only valid before Run starts; used for the fixed
// demo room and for tests.
func (c *Coordinator) SeedRoom(id uuid.UUID) {
	r := room.New(uuid.New(), id, "")
	for _, p := range r.Players {
		p.Active = false
	}
	c.rooms[id] = r
}

// Request types processed by Run. Reply channels are buffered so the loop
// never blocks on a caller that gave up.

type connectRequest struct {
	user     uuid.UUID
	roomID   uuid.UUID
	username string
	out      Outbound
	reply    chan room.Player
}

type disconnectRequest struct {
	user   uuid.UUID
	roomID uuid.UUID
}

type userMessageRequest struct {
	user   uuid.UUID
	roomID uuid.UUID
	raw    []byte
}

type roomDetailsRequest struct {
	roomID uuid.UUID
	reply  chan []byte
}

type playerDetailsRequest struct {
	user   uuid.UUID
	roomID uuid.UUID
	reply  chan []byte
}

// Run drains the request channel until the context is cancelled. All
// handlers run on this single goroutine; within one room, broadcasts go out
// in the order their originating requests were processed.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.requests:
			switch req := req.(type) {
			case connectRequest:
				c.handleConnect(req)
			case disconnectRequest:
				c.handleDisconnect(req)
			case userMessageRequest:
				c.handleUserMessage(req)
			case roomDetailsRequest:
				req.reply <- c.marshalRoom(req.roomID)
			case playerDetailsRequest:
				req.reply <- c.marshalPlayer(req.user, req.roomID)
			}
		}
	}
}

// submit enqueues a request unless the loop has stopped or the caller's
// context expired.
func (c *Coordinator) submit(ctx context.Context, req any) error {
	select {
	case c.requests <- req:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers the session's outbound handle, joins the user to the
// room (creating it if unknown, with the user as owner), and broadcasts
// PlayerJoined to the rest of the room. It blocks until the coordinator has
// acknowledged the registration; sessions must abort on error.
func (c *Coordinator) Connect(ctx context.Context, user, roomID uuid.UUID, username string, out Outbound) (room.Player, error) {
	req := connectRequest{
		user:     user,
		roomID:   roomID,
		username: username,
		out:      out,
		reply:    make(chan room.Player, 1),
	}
	if err := c.submit(ctx, req); err != nil {
		return room.Player{}, err
	}
	select {
	case p := <-req.reply:
		return p, nil
	case <-c.done:
		return room.Player{}, ErrClosed
	case <-ctx.Done():
		return room.Player{}, ctx.Err()
	}
}

// Disconnect removes the session entry and updates the room: the player is
// flagged inactive, and if nobody active remains, the room is closed.
// Fire-and-forget; safe to call repeatedly.
func (c *Coordinator) Disconnect(user, roomID uuid.UUID) {
	select {
	case c.requests <- disconnectRequest{user: user, roomID: roomID}:
	case <-c.done:
	}
}

// HandleMessage routes one raw envelope from a session. Fire-and-forget;
// undecodable envelopes are dropped inside the loop.
func (c *Coordinator) HandleMessage(user, roomID uuid.UUID, raw []byte) {
	select {
	case c.requests <- userMessageRequest{user: user, roomID: roomID, raw: raw}:
	case <-c.done:
	}
}

// RoomDetails returns the serialized room snapshot, or nil if the room does
// not exist.
func (c *Coordinator) RoomDetails(ctx context.Context, roomID uuid.UUID) ([]byte, error) {
	req := roomDetailsRequest{roomID: roomID, reply: make(chan []byte, 1)}
	if err := c.submit(ctx, req); err != nil {
		return nil, err
	}
	select {
	case data := <-req.reply:
		return data, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PlayerDetails returns the serialized player snapshot for the given room
// and user, or nil if either is unknown.
func (c *Coordinator) PlayerDetails(ctx context.Context, user, roomID uuid.UUID) ([]byte, error) {
	req := playerDetailsRequest{user: user, roomID: roomID, reply: make(chan []byte, 1)}
	if err := c.submit(ctx, req); err != nil {
		return nil, err
	}
	select {
	case data := <-req.reply:
		return data, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handleConnect registers the outbound handle, performs the join, notifies
// the rest of the room, and acks the session.
func (c *Coordinator) handleConnect(req connectRequest) {
	c.sessions[req.user] = req.out

	r, ok := c.rooms[req.roomID]
	if !ok {
		r = room.New(req.user, req.roomID, req.username)
		c.rooms[req.roomID] = r
		log.Printf("room %s created by %s", req.roomID, req.user)
	}
	player := r.Join(req.user, req.username)

	c.broadcast(req.roomID, protocol.Game(protocol.GamePlayerJoined), protocol.PlayerMovement{
		Enter:  true,
		UserID: req.user,
		Player: *player,
	}, &req.user)

	req.reply <- *player
}

// handleDisconnect tears down the session entry and the player's active
// flag. The room is removed once its last active player is gone; the
// PlayerLeft broadcast after removal is then naturally a no-op.
func (c *Coordinator) handleDisconnect(req disconnectRequest) {
	if _, ok := c.sessions[req.user]; !ok {
		return
	}
	delete(c.sessions, req.user)

	var left room.Player
	if r, ok := c.rooms[req.roomID]; ok {
		r.Deactivate(req.user)
		if p, ok := r.Players[req.user]; ok {
			left = *p
		}
		if r.ActiveCount() == 0 {
			delete(c.rooms, req.roomID)
			log.Printf("room %s closed", req.roomID)
		}
	}

	c.broadcast(req.roomID, protocol.Game(protocol.GamePlayerLeft), protocol.PlayerMovement{
		Enter:  false,
		UserID: req.user,
		Player: left,
	}, &req.user)
}

// handleUserMessage routes one envelope by type. Game-family lifecycle
// variants are decoded and applied to the room; everything else is relayed
// verbatim to the rest of the room, excluding the sender.
func (c *Coordinator) handleUserMessage(req userMessageRequest) {
	var env protocol.Envelope
	if err := json.Unmarshal(req.raw, &env); err != nil {
		return
	}

	if env.Type.Family == protocol.FamilyGame {
		switch env.Type.Variant {
		case protocol.GameStartGame:
			c.startGame(env, req.roomID)
			return
		case protocol.GameEndTurn:
			c.endTurn(env, req.roomID)
			return
		case protocol.GameGuess:
			c.validateGuess(env, req.roomID)
			return
		}
	}

	c.relay(req.roomID, env, &req.user)
}

// startGame applies an owner's start request and announces the first turn to
// the whole room. Non-owner requests change nothing and announce nothing.
func (c *Coordinator) startGame(env protocol.Envelope, roomID uuid.UUID) {
	var msg protocol.StartGame
	if err := json.Unmarshal([]byte(env.Content), &msg); err != nil {
		return
	}
	r, ok := c.rooms[roomID]
	if !ok {
		return
	}
	snapshot, started := r.StartGame(msg.UserID, msg.State)
	if !started {
		return
	}
	c.broadcast(roomID, protocol.Game(protocol.GameNewTurn), snapshot, nil)
}

// endTurn advances the turn and announces NewTurn, or EndGame when the last
// round finished, in which case the room is removed.
func (c *Coordinator) endTurn(env protocol.Envelope, roomID uuid.UUID) {
	var msg protocol.EndTurn
	if err := json.Unmarshal([]byte(env.Content), &msg); err != nil {
		return
	}
	r, ok := c.rooms[roomID]
	if !ok {
		return
	}
	snapshot, ended, changed := r.EndTurn(msg.UserID)
	if !changed {
		return
	}
	if ended {
		c.broadcast(roomID, protocol.Game(protocol.GameEndGame), snapshot, nil)
		delete(c.rooms, roomID)
		log.Printf("room %s finished after %d rounds", roomID, snapshot.State.TotalRounds)
		return
	}
	c.broadcast(roomID, protocol.Game(protocol.GameNewTurn), snapshot, nil)
}

// validateGuess scores the guess and broadcasts the verdict to the whole
// room, sender included.
func (c *Coordinator) validateGuess(env protocol.Envelope, roomID uuid.UUID) {
	var msg protocol.UserGuess
	if err := json.Unmarshal([]byte(env.Content), &msg); err != nil {
		return
	}
	r, ok := c.rooms[roomID]
	if !ok {
		return
	}
	correct := r.ValidateGuess(msg.UserID, msg.Content)
	c.broadcast(roomID, protocol.Game(protocol.GameGuessResult), protocol.GuessResult{
		UserID:   msg.UserID,
		Username: msg.Username,
		Content:  msg.Content,
		Correct:  correct,
	}, nil)
}

// relay forwards an envelope unchanged to everyone else in the room.
func (c *Coordinator) relay(roomID uuid.UUID, env protocol.Envelope, exclude *uuid.UUID) {
	r, ok := c.rooms[roomID]
	if !ok {
		return
	}
	c.deliverAll(r, env, exclude)
}

// broadcast serializes the payload and fans it out under the given type to
// the room's players with live sessions.
func (c *Coordinator) broadcast(roomID uuid.UUID, t protocol.MessageType, payload any, exclude *uuid.UUID) {
	env, err := protocol.NewEnvelope(t, payload)
	if err != nil {
		return
	}
	r, ok := c.rooms[roomID]
	if !ok {
		return
	}
	c.deliverAll(r, env, exclude)
}

// deliverAll pushes the envelope to every player of the room that has a live
// session entry, skipping the excluded sender. Players without a session
// (disconnected-but-retained) are silently skipped.
func (c *Coordinator) deliverAll(r *room.Room, env protocol.Envelope, exclude *uuid.UUID) {
	for _, id := range r.TurnOrder() {
		if exclude != nil && id == *exclude {
			continue
		}
		if out, ok := c.sessions[id]; ok {
			out.Deliver(env)
		}
	}
}

// marshalRoom serializes the room snapshot, or nil when unknown.
func (c *Coordinator) marshalRoom(roomID uuid.UUID) []byte {
	r, ok := c.rooms[roomID]
	if !ok {
		return nil
	}
	data, err := json.Marshal(r.Snapshot())
	if err != nil {
		return nil
	}
	return data
}

// marshalPlayer serializes the player snapshot, or nil when unknown.
func (c *Coordinator) marshalPlayer(user, roomID uuid.UUID) []byte {
	r, ok := c.rooms[roomID]
	if !ok {
		return nil
	}
	p, ok := r.Players[user]
	if !ok {
		return nil
	}
	data, err := json.Marshal(protocol.PlayerDetails{UserID: user, Player: *p})
	if err != nil {
		return nil
	}
	return data
}
