package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/drawparty/drawparty/game/protocol"
	"github.com/drawparty/drawparty/game/room"
)

// captureOutbound records everything the coordinator delivers to a session.
type captureOutbound struct {
	mu   sync.Mutex
	envs []protocol.Envelope
}

func (o *captureOutbound) Deliver(env protocol.Envelope) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.envs = append(o.envs, env)
}

func (o *captureOutbound) take() []protocol.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	envs := o.envs
	o.envs = nil
	return envs
}

func startCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c
}

// sync flushes the coordinator's inbox: the details lookup goes through the
// same FIFO channel, so once it answers, every prior request was processed.
func (c *Coordinator) sync(t *testing.T, roomID uuid.UUID) []byte {
	t.Helper()
	data, err := c.RoomDetails(context.Background(), roomID)
	if err != nil {
		t.Fatalf("RoomDetails failed: %v", err)
	}
	return data
}

func connect(t *testing.T, c *Coordinator, roomID uuid.UUID, username string) (uuid.UUID, *captureOutbound) {
	t.Helper()
	user := uuid.New()
	out := &captureOutbound{}
	if _, err := c.Connect(context.Background(), user, roomID, username, out); err != nil {
		t.Fatalf("Connect failed for %s: %v", username, err)
	}
	return user, out
}

func rawEnvelope(t *testing.T, typ protocol.MessageType, payload any) []byte {
	t.Helper()
	env, err := protocol.NewEnvelope(typ, payload)
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	return env.Encode()
}

func decodeRoom(t *testing.T, data []byte) *room.Room {
	t.Helper()
	var r room.Room
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Room decode failed: %v", err)
	}
	return &r
}

func TestConnectCreatesRoomWithOwner(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	user, _ := connect(t, c, roomID, "alice")

	data := c.sync(t, roomID)
	if data == nil {
		t.Fatal("Room was not created on first join")
	}
	r := decodeRoom(t, data)
	if r.Owner != user {
		t.Errorf("Expected owner %s, got %s", user, r.Owner)
	}
	if r.Status != room.StatusWaiting {
		t.Errorf("Expected status %s, got %s", room.StatusWaiting, r.Status)
	}
	if len(r.Players) != 1 {
		t.Errorf("Expected 1 player, got %d", len(r.Players))
	}
}

func TestJoinBroadcastExcludesJoiner(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	_, outA := connect(t, c, roomID, "alice")
	userB, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)

	envsA := outA.take()
	if len(envsA) != 1 {
		t.Fatalf("Expected 1 event for the existing player, got %d", len(envsA))
	}
	if envsA[0].Type != protocol.Game(protocol.GamePlayerJoined) {
		t.Fatalf("Expected PlayerJoined, got %+v", envsA[0].Type)
	}

	var movement protocol.PlayerMovement
	if err := json.Unmarshal([]byte(envsA[0].Content), &movement); err != nil {
		t.Fatalf("PlayerMovement decode failed: %v", err)
	}
	if !movement.Enter {
		t.Error("Expected enter=true")
	}
	if movement.UserID != userB {
		t.Errorf("Expected joiner %s, got %s", userB, movement.UserID)
	}
	if movement.Player.Username != "bob" {
		t.Errorf("Expected player snapshot for bob, got %q", movement.Player.Username)
	}

	if envs := outB.take(); len(envs) != 0 {
		t.Errorf("Joiner received its own join event: %+v", envs)
	}
}

func TestStartGameBroadcastsNewTurn(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	owner, outA := connect(t, c, roomID, "alice")
	_, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)
	outA.take()
	outB.take()

	c.HandleMessage(owner, roomID, rawEnvelope(t, protocol.Game(protocol.GameStartGame), protocol.StartGame{
		UserID: owner,
		RoomID: roomID,
		State:  room.GameState{TotalRounds: 2, CurrentRound: 1},
	}))
	c.sync(t, roomID)

	for name, out := range map[string]*captureOutbound{"alice": outA, "bob": outB} {
		envs := out.take()
		if len(envs) != 1 {
			t.Fatalf("Expected 1 event for %s, got %d", name, len(envs))
		}
		if envs[0].Type != protocol.Game(protocol.GameNewTurn) {
			t.Fatalf("Expected NewTurn for %s, got %+v", name, envs[0].Type)
		}
		r := decodeRoom(t, []byte(envs[0].Content))
		if r.Status != room.StatusStarted {
			t.Errorf("Expected STARTED, got %s", r.Status)
		}
		if r.State.CurrentRound != 1 || r.State.CurrentlyDrawing != 0 {
			t.Errorf("Unexpected round state: round %d index %d",
				r.State.CurrentRound, r.State.CurrentlyDrawing)
		}
	}
}

func TestStartGameByNonOwnerProducesNoBroadcast(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	_, outA := connect(t, c, roomID, "alice")
	userB, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)
	outA.take()
	outB.take()

	c.HandleMessage(userB, roomID, rawEnvelope(t, protocol.Game(protocol.GameStartGame), protocol.StartGame{
		UserID: userB,
		RoomID: roomID,
		State:  room.GameState{TotalRounds: 2, CurrentRound: 1},
	}))
	data := c.sync(t, roomID)

	if r := decodeRoom(t, data); r.Status != room.StatusWaiting {
		t.Errorf("Non-owner start changed status to %s", r.Status)
	}
	if envs := outA.take(); len(envs) != 0 {
		t.Errorf("Non-owner start produced broadcast: %+v", envs)
	}
	if envs := outB.take(); len(envs) != 0 {
		t.Errorf("Non-owner start produced broadcast to requester: %+v", envs)
	}
}

func TestFullGameLifecycle(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	owner, outA := connect(t, c, roomID, "alice")
	_, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)

	c.HandleMessage(owner, roomID, rawEnvelope(t, protocol.Game(protocol.GameStartGame), protocol.StartGame{
		UserID: owner,
		RoomID: roomID,
		State:  room.GameState{TotalRounds: 2, CurrentRound: 1},
	}))
	order := decodeRoom(t, c.sync(t, roomID)).TurnOrder()
	outA.take()
	outB.take()

	endTurn := func(user uuid.UUID) {
		c.HandleMessage(user, roomID, rawEnvelope(t, protocol.Game(protocol.GameEndTurn), protocol.EndTurn{
			UserID: user,
			RoomID: roomID,
		}))
	}

	// Round 1: both players draw once.
	endTurn(order[0])
	r := decodeRoom(t, c.sync(t, roomID))
	if r.State.CurrentlyDrawing != 1 {
		t.Fatalf("Expected drawing index 1, got %d", r.State.CurrentlyDrawing)
	}
	endTurn(order[1])
	r = decodeRoom(t, c.sync(t, roomID))
	if r.State.CurrentRound != 2 || r.State.CurrentlyDrawing != 0 {
		t.Fatalf("Expected round 2 index 0, got round %d index %d",
			r.State.CurrentRound, r.State.CurrentlyDrawing)
	}

	// Round 2: the final end turn finishes the game and removes the room.
	endTurn(order[0])
	endTurn(order[1])
	if data := c.sync(t, roomID); data != nil {
		t.Error("Room still present after game end")
	}

	envs := outB.take()
	if len(envs) == 0 {
		t.Fatal("No events delivered during the game")
	}
	last := envs[len(envs)-1]
	if last.Type != protocol.Game(protocol.GameEndGame) {
		t.Errorf("Expected final EndGame, got %+v", last.Type)
	}
	for _, env := range envs[:len(envs)-1] {
		if env.Type != protocol.Game(protocol.GameNewTurn) {
			t.Errorf("Expected NewTurn before the end, got %+v", env.Type)
		}
	}
	if len(outA.take()) != len(envs) {
		t.Error("Players saw different event streams")
	}
}

func TestGuessBroadcastsVerdictToEveryone(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	owner, outA := connect(t, c, roomID, "alice")
	userB, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)

	c.HandleMessage(owner, roomID, rawEnvelope(t, protocol.Game(protocol.GameStartGame), protocol.StartGame{
		UserID: owner,
		RoomID: roomID,
		State:  room.GameState{TotalRounds: 1, CurrentRound: 1},
	}))
	c.sync(t, roomID)
	outA.take()
	outB.take()

	c.HandleMessage(userB, roomID, rawEnvelope(t, protocol.Game(protocol.GameGuess), protocol.UserGuess{
		UserID:   userB,
		Username: "bob",
		Content:  room.PlaceholderWord,
	}))
	data := c.sync(t, roomID)

	for name, out := range map[string]*captureOutbound{"alice": outA, "bob": outB} {
		envs := out.take()
		if len(envs) != 1 {
			t.Fatalf("Expected 1 verdict for %s, got %d", name, len(envs))
		}
		var result protocol.GuessResult
		if err := json.Unmarshal([]byte(envs[0].Content), &result); err != nil {
			t.Fatalf("GuessResult decode failed: %v", err)
		}
		if !result.Correct {
			t.Error("Expected correct verdict")
		}
		if result.Username != "bob" {
			t.Errorf("Expected username bob, got %q", result.Username)
		}
	}

	r := decodeRoom(t, data)
	if r.Players[userB].Score == 0 {
		t.Error("Correct guess did not increase the score")
	}
}

func TestRelayExcludesSender(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	userA, outA := connect(t, c, roomID, "alice")
	_, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)
	outA.take()
	outB.take()

	// Draw events pass through untouched; the payload is opaque.
	raw := protocol.Envelope{
		Type:    protocol.Relay(protocol.RelayDraw),
		Content: `{"x":12,"y":7,"color":3,"size":2,"beginning":true,"end":false}`,
	}.Encode()
	c.HandleMessage(userA, roomID, raw)
	c.sync(t, roomID)

	envs := outB.take()
	if len(envs) != 1 {
		t.Fatalf("Expected 1 relayed event, got %d", len(envs))
	}
	if envs[0].Type != protocol.Relay(protocol.RelayDraw) {
		t.Errorf("Relay type mangled: %+v", envs[0].Type)
	}
	if envs[0].Content != `{"x":12,"y":7,"color":3,"size":2,"beginning":true,"end":false}` {
		t.Errorf("Relay content mangled: %s", envs[0].Content)
	}
	if envs := outA.take(); len(envs) != 0 {
		t.Errorf("Sender received its own relay: %+v", envs)
	}
}

func TestRelayOrderingIsFIFO(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	userA, _ := connect(t, c, roomID, "alice")
	_, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)
	outB.take()

	const n = 50
	for i := 0; i < n; i++ {
		env := protocol.Envelope{
			Type:    protocol.Relay(protocol.RelayText),
			Content: fmt.Sprintf("msg-%d", i),
		}
		c.HandleMessage(userA, roomID, env.Encode())
	}
	c.sync(t, roomID)

	envs := outB.take()
	if len(envs) != n {
		t.Fatalf("Expected %d events, got %d", n, len(envs))
	}
	for i, env := range envs {
		if want := fmt.Sprintf("msg-%d", i); env.Content != want {
			t.Fatalf("Out of order at %d: got %s", i, env.Content)
		}
	}
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	userA, outA := connect(t, c, roomID, "alice")
	_, outB := connect(t, c, roomID, "bob")
	c.sync(t, roomID)
	outA.take()
	outB.take()

	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("not json at all")},
		{"unknown family", []byte(`{"msg_type":{"Admin":"Shutdown"},"content":""}`)},
		{"bad lifecycle payload", []byte(`{"msg_type":{"Game":"StartGame"},"content":"not json"}`)},
		{"bad guess payload", []byte(`{"msg_type":{"Game":"Guess"},"content":"{"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.HandleMessage(userA, roomID, tt.raw)
			c.sync(t, roomID)
			if envs := outB.take(); len(envs) != 0 {
				t.Errorf("Malformed message produced events: %+v", envs)
			}
		})
	}

	// The coordinator must still be healthy.
	if data := c.sync(t, roomID); data == nil {
		t.Error("Room lost after malformed traffic")
	}
}

func TestDisconnectKeepsPlayerAndRoom(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	_, outA := connect(t, c, roomID, "alice")
	userB, _ := connect(t, c, roomID, "bob")
	c.sync(t, roomID)
	outA.take()

	c.Disconnect(userB, roomID)
	data := c.sync(t, roomID)
	if data == nil {
		t.Fatal("Room removed while a player is still active")
	}
	r := decodeRoom(t, data)
	p, ok := r.Players[userB]
	if !ok {
		t.Fatal("Disconnected player was removed")
	}
	if p.Active {
		t.Error("Disconnected player still active")
	}

	envs := outA.take()
	if len(envs) != 1 {
		t.Fatalf("Expected 1 PlayerLeft event, got %d", len(envs))
	}
	if envs[0].Type != protocol.Game(protocol.GamePlayerLeft) {
		t.Errorf("Expected PlayerLeft, got %+v", envs[0].Type)
	}
	var movement protocol.PlayerMovement
	if err := json.Unmarshal([]byte(envs[0].Content), &movement); err != nil {
		t.Fatalf("PlayerMovement decode failed: %v", err)
	}
	if movement.Enter {
		t.Error("Expected enter=false")
	}
	if movement.UserID != userB {
		t.Errorf("Expected leaver %s, got %s", userB, movement.UserID)
	}
}

func TestLastActiveDisconnectRemovesRoom(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	userA, _ := connect(t, c, roomID, "alice")
	userB, _ := connect(t, c, roomID, "bob")
	c.sync(t, roomID)

	c.Disconnect(userB, roomID)
	if data := c.sync(t, roomID); data == nil {
		t.Fatal("Room removed too early")
	}
	c.Disconnect(userA, roomID)
	if data := c.sync(t, roomID); data != nil {
		t.Error("Room still present after the last active player left")
	}

	// Repeated disconnects are harmless.
	c.Disconnect(userA, roomID)
	if data := c.sync(t, roomID); data != nil {
		t.Error("Repeated disconnect resurrected the room")
	}
}

func TestRejoinPreservesScore(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	owner, _ := connect(t, c, roomID, "alice")
	userB, _ := connect(t, c, roomID, "bob")
	c.sync(t, roomID)

	// Bob earns some points.
	c.HandleMessage(owner, roomID, rawEnvelope(t, protocol.Game(protocol.GameStartGame), protocol.StartGame{
		UserID: owner,
		RoomID: roomID,
		State:  room.GameState{TotalRounds: 3, CurrentRound: 1},
	}))
	c.HandleMessage(userB, roomID, rawEnvelope(t, protocol.Game(protocol.GameGuess), protocol.UserGuess{
		UserID:   userB,
		Username: "bob",
		Content:  room.PlaceholderWord,
	}))
	score := decodeRoom(t, c.sync(t, roomID)).Players[userB].Score
	if score == 0 {
		t.Fatal("Setup failed: no points awarded")
	}

	c.Disconnect(userB, roomID)
	c.sync(t, roomID)

	// Reconnect with the same identity.
	out := &captureOutbound{}
	if _, err := c.Connect(context.Background(), userB, roomID, "bob", out); err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	r := decodeRoom(t, c.sync(t, roomID))
	if len(r.Players) != 2 {
		t.Errorf("Rejoin duplicated the player: %d entries", len(r.Players))
	}
	p := r.Players[userB]
	if !p.Active {
		t.Error("Rejoined player not active")
	}
	if p.Score != score {
		t.Errorf("Rejoin lost the score: expected %d, got %d", score, p.Score)
	}
}

func TestDisconnectedPlayerIsSkippedByBroadcast(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	userA, _ := connect(t, c, roomID, "alice")
	_, outB := connect(t, c, roomID, "bob")
	userC, outC := connect(t, c, roomID, "carol")
	c.sync(t, roomID)

	c.Disconnect(userC, roomID)
	c.sync(t, roomID)
	outB.take()
	outC.take()

	env := protocol.Envelope{Type: protocol.Relay(protocol.RelayText), Content: "hi"}
	c.HandleMessage(userA, roomID, env.Encode())
	c.sync(t, roomID)

	if envs := outB.take(); len(envs) != 1 {
		t.Errorf("Expected the active player to receive 1 event, got %d", len(envs))
	}
	if envs := outC.take(); len(envs) != 0 {
		t.Errorf("Disconnected player received events: %+v", envs)
	}
}

func TestSeedRoomIsJoinable(t *testing.T) {
	c := New()
	roomID := uuid.New()
	c.SeedRoom(roomID)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	if data := c.sync(t, roomID); data == nil {
		t.Fatal("Seeded room not found")
	}

	user, _ := connect(t, c, roomID, "alice")
	r := decodeRoom(t, c.sync(t, roomID))
	if p, ok := r.Players[user]; !ok || !p.Active {
		t.Error("Join to seeded room failed")
	}
}

func TestPlayerDetails(t *testing.T) {
	c := startCoordinator(t)
	roomID := uuid.New()

	user, _ := connect(t, c, roomID, "alice")
	c.sync(t, roomID)

	data, err := c.PlayerDetails(context.Background(), user, roomID)
	if err != nil {
		t.Fatalf("PlayerDetails failed: %v", err)
	}
	var details protocol.PlayerDetails
	if err := json.Unmarshal(data, &details); err != nil {
		t.Fatalf("PlayerDetails decode failed: %v", err)
	}
	if details.UserID != user || details.Player.Username != "alice" {
		t.Errorf("Unexpected details: %+v", details)
	}

	if data, _ := c.PlayerDetails(context.Background(), uuid.New(), roomID); data != nil {
		t.Error("Expected nil for unknown player")
	}
	if data, _ := c.PlayerDetails(context.Background(), user, uuid.New()); data != nil {
		t.Error("Expected nil for unknown room")
	}
}

func TestClosedCoordinatorRejectsConnect(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	cancel()

	// Wait for the loop to exit.
	<-c.done

	out := &captureOutbound{}
	if _, err := c.Connect(context.Background(), uuid.New(), uuid.New(), "alice", out); err == nil {
		t.Error("Expected error connecting to a stopped coordinator")
	}
}
