package room

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle phase of a room
type Status string

const (
	// StatusWaiting is the initial phase; players may join freely
	StatusWaiting Status = "WAITING"
	// StatusStarted means a game is in progress
	StatusStarted Status = "STARTED"
	// StatusOver is terminal; the coordinator discards the room
	StatusOver Status = "OVER"

	// DefaultTotalRounds is used for rooms that have not been configured yet
	DefaultTotalRounds = 3

	// PlaceholderWord replaces whatever secret word the owner proposed.
	// Word selection is a client concern for now.
	PlaceholderWord = "default"

	// RoundBudgetSeconds is the scoring window for a turn. A correct guess
	// after the budget has elapsed awards zero points.
	RoundBudgetSeconds = 60
)

// Player is one participant of a room. Players are never removed on
// disconnect (unless the whole room goes away); they are flagged inactive so
// a rejoin with the same identity picks up the previous score.
type Player struct {
	Username  string `json:"username"`
	Score     uint   `json:"score"`
	PrevScore uint   `json:"prev_score"`
	Active    bool   `json:"active"`
}

// GameState holds the round bookkeeping for a room. CurrentlyDrawing is an
// index into the room's ordered player sequence, not a player identity.
type GameState struct {
	TotalRounds      uint   `json:"total_rounds"`
	CurrentRound     uint   `json:"current_round"`
	CurrentlyDrawing uint   `json:"currently_drawing"`
	Title            string `json:"title"`
	CorrectWord      string `json:"correct_word"`
	RoundStartTime   int64  `json:"round_start_time"` // unix milliseconds
}

// DefaultGameState returns the state a freshly created room starts with.
func DefaultGameState() GameState {
	return GameState{
		TotalRounds:      DefaultTotalRounds,
		CurrentRound:     1,
		CurrentlyDrawing: 0,
		Title:            "Default room",
		CorrectWord:      PlaceholderWord,
		RoundStartTime:   time.Now().UnixMilli(),
	}
}

// Room is one game session. All mutation happens through the coordinator,
// which owns every Room exclusively; none of the methods on Room are safe for
// concurrent use on their own.
type Room struct {
	ID      uuid.UUID             `json:"room_id"`
	Status  Status                `json:"status"`
	Players map[uuid.UUID]*Player `json:"players"`
	Owner   uuid.UUID             `json:"owner"`
	State   GameState             `json:"state"`
}
