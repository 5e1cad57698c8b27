package room

import (
	"bytes"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New creates a room in the WAITING state with the given owner as its sole
// player. The owner is fixed for the lifetime of the room and is the only
// player allowed to start the game.
func New(owner, id uuid.UUID, ownerUsername string) *Room {
	return &Room{
		ID:     id,
		Status: StatusWaiting,
		Players: map[uuid.UUID]*Player{
			owner: {Username: ownerUsername, Active: true},
		},
		Owner: owner,
		State: DefaultGameState(),
	}
}

// Join adds the user to the room, or reactivates them if they were already a
// member. An existing player keeps their score and username; the supplied
// username only applies to first-time joins. The returned player is the
// room's own entry.
func (r *Room) Join(user uuid.UUID, username string) *Player {
	if p, ok := r.Players[user]; ok {
		p.Active = true
		return p
	}
	p := &Player{Username: username, Active: true}
	r.Players[user] = p
	return p
}

// Deactivate flags the player as inactive, keeping their entry (and score)
// around for a possible rejoin. Unknown users are ignored.
func (r *Room) Deactivate(user uuid.UUID) {
	if p, ok := r.Players[user]; ok {
		p.Active = false
	}
}

// ActiveCount reports how many players are currently flagged active.
func (r *Room) ActiveCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Active {
			n++
		}
	}
	return n
}

// TurnOrder returns the player identities in the room's turn sequence: total
// byte order of the UUIDs. This mirrors the ordered-map semantics of the
// player set, so the sequence is stable regardless of join order.
func (r *Room) TurnOrder() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// Drawer returns the identity of the player whose turn it is. ok is false if
// the drawing index is out of range for the current player set.
func (r *Room) Drawer() (uuid.UUID, bool) {
	order := r.TurnOrder()
	idx := int(r.State.CurrentlyDrawing)
	if idx >= len(order) {
		return uuid.Nil, false
	}
	return order[idx], true
}

// StartGame transitions the room to STARTED. Only the owner may start; any
// other requester is a silent no-op and the second return is false. The
// proposed state supplies the round configuration, but the secret word is
// overridden with the placeholder and the round clock restarts now. The
// returned room is a snapshot safe to hand to broadcast.
func (r *Room) StartGame(requester uuid.UUID, proposed GameState) (*Room, bool) {
	if requester != r.Owner {
		return nil, false
	}
	r.Status = StatusStarted
	r.State = proposed
	r.State.CorrectWord = PlaceholderWord
	r.State.RoundStartTime = time.Now().UnixMilli()
	return r.Snapshot(), true
}

// ValidateGuess checks the guess against the secret word. A guess is correct
// iff its trimmed text equals the word exactly (case-sensitive). On a correct
// guess the guesser's previous score is saved and the turn award added; an
// incorrect guess changes nothing. Unknown guessers still get a verdict but
// no score change.
func (r *Room) ValidateGuess(user uuid.UUID, guess string) bool {
	if strings.TrimSpace(guess) != r.State.CorrectWord {
		return false
	}
	if p, ok := r.Players[user]; ok {
		p.PrevScore = p.Score
		p.Score += r.turnAward(time.Now())
	}
	return true
}

// turnAward computes the points for a correct guess at the given time:
// a 60-second budget scaled to 100 points, in whole seconds, never negative.
func (r *Room) turnAward(now time.Time) uint {
	elapsed := (now.UnixMilli() - r.State.RoundStartTime) / 1000
	if elapsed < 0 || elapsed >= RoundBudgetSeconds {
		return 0
	}
	return uint((RoundBudgetSeconds - elapsed) * 100 / RoundBudgetSeconds)
}

// EndTurn advances the turn sequence. Only the current drawer may end their
// turn; any other requester is a silent no-op with changed=false. If players
// remain after the current index the drawing index advances; otherwise a new
// round begins, and once all rounds are exhausted the room goes to OVER and
// ended is true. The returned room is a snapshot of the updated state.
func (r *Room) EndTurn(requester uuid.UUID) (snapshot *Room, ended, changed bool) {
	drawer, ok := r.Drawer()
	if !ok || drawer != requester {
		return nil, false, false
	}
	switch {
	case int(r.State.CurrentlyDrawing)+1 < len(r.Players):
		r.State.CurrentlyDrawing++
	case r.State.CurrentRound+1 <= r.State.TotalRounds:
		r.State.CurrentRound++
		r.State.CurrentlyDrawing = 0
	default:
		r.Status = StatusOver
		ended = true
	}
	return r.Snapshot(), ended, true
}

// Snapshot returns a deep copy of the room, decoupled from further mutation
// by the coordinator. Broadcast payloads are built from snapshots so fan-out
// never races with the next request.
func (r *Room) Snapshot() *Room {
	players := make(map[uuid.UUID]*Player, len(r.Players))
	for id, p := range r.Players {
		cp := *p
		players[id] = &cp
	}
	return &Room{
		ID:      r.ID,
		Status:  r.Status,
		Players: players,
		Owner:   r.Owner,
		State:   r.State,
	}
}
