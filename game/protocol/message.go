package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/drawparty/drawparty/game/room"
)

// Message families. The wire discriminant is a one-key JSON object mapping
// the family to the variant, e.g. {"Relay":"Draw"} or {"Game":"StartGame"}.
const (
	FamilyRelay = "Relay"
	FamilyGame  = "Game"
	FamilyData  = "Data"
)

// Relay variants are passed through verbatim; the server never inspects
// their content.
const (
	RelayInfo = "Info"
	RelayDraw = "Draw"
	RelayText = "Text"
)

// Game variants carry lifecycle events interpreted by the coordinator.
const (
	GameStartGame    = "StartGame"
	GameGameState    = "GameState"
	GamePlayerJoined = "PlayerJoined"
	GamePlayerLeft   = "PlayerLeft"
	GameGuess        = "Guess"
	GameGuessResult  = "GuessResult"
	GameEndTurn      = "EndTurn"
	GameNewTurn      = "NewTurn"
	GameEndGame      = "EndGame"
)

// Data variants are session-level control messages.
const (
	DataUserID = "UserID"
)

// MessageType is the tagged discriminant of an envelope: a family plus the
// variant within it.
type MessageType struct {
	Family  string
	Variant string
}

// Relay builds a relay-family message type.
func Relay(variant string) MessageType { return MessageType{FamilyRelay, variant} }

// Game builds a game-family message type.
func Game(variant string) MessageType { return MessageType{FamilyGame, variant} }

// Data builds a data-family message type.
func Data(variant string) MessageType { return MessageType{FamilyData, variant} }

// MarshalJSON encodes the type as its one-key wire form, {family: variant}.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{t.Family: t.Variant})
}

// UnmarshalJSON decodes the one-key wire form. Anything other than exactly
// one key with a known family is rejected.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if len(obj) != 1 {
		return fmt.Errorf("message type must have exactly one family, got %d", len(obj))
	}
	for family, variant := range obj {
		switch family {
		case FamilyRelay, FamilyGame, FamilyData:
			t.Family = family
			t.Variant = variant
		default:
			return fmt.Errorf("unknown message family %q", family)
		}
	}
	return nil
}

// Envelope is the outer wire wrapper. Content is the serialized form of the
// concrete payload for Type, so the coordinator can route by type without
// decoding payloads it does not act on.
type Envelope struct {
	Type    MessageType `json:"msg_type"`
	Content string      `json:"content"`
}

// NewEnvelope serializes the payload and wraps it under the given type.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Content: string(content)}, nil
}

// Encode serializes the envelope for the wire. Falls back to an empty object
// if marshaling fails, which it cannot for well-formed envelopes.
func (e Envelope) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// PlayerMovement announces a player entering or leaving a room. Player is a
// snapshot of the affected entry; on leave it is zero-valued.
type PlayerMovement struct {
	Enter  bool        `json:"enter"`
	UserID uuid.UUID   `json:"user_id"`
	Player room.Player `json:"player"`
}

// StartGame asks the coordinator to start the requester's room with the
// proposed round configuration.
type StartGame struct {
	UserID uuid.UUID      `json:"user_id"`
	RoomID uuid.UUID      `json:"room_id"`
	State  room.GameState `json:"state"`
}

// EndTurn asks the coordinator to advance the turn past the requester.
type EndTurn struct {
	UserID uuid.UUID `json:"user_id"`
	RoomID uuid.UUID `json:"room_id"`
}

// UserGuess carries one guess attempt at the current word.
type UserGuess struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
}

// GuessResult is the verdict broadcast for every guess, correct or not.
type GuessResult struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Correct  bool      `json:"correct"`
}

// PlayerDetails pairs a player snapshot with its identity for the read-only
// lookup boundary.
type PlayerDetails struct {
	UserID uuid.UUID   `json:"user_id"`
	Player room.Player `json:"player"`
}
