// Package room provides the game state machine for a single drawing room.
//
// The room package implements:
//   - Player membership with disconnect/rejoin semantics
//   - Turn rotation across an ordered player sequence
//   - Round counting and game completion
//   - Guess validation and time-based scoring
//
// Core Types:
//
// Room holds one game session: its players, its owner, its lifecycle Status
// (WAITING, STARTED, OVER) and the per-round GameState. Player carries the
// score bookkeeping that survives a disconnect. All operations mutate the
// receiver in place and return snapshots for broadcasting.
//
// Turn Order:
//
// The drawing turn walks the player identities in total UUID byte order, the
// room's stable ordered-map sequence. The currently drawing player is
// addressed by index (GameState.CurrentlyDrawing), so the index invariant
// 0 <= index < len(players) is maintained by EndTurn.
//
// Scoring:
//
// A correct guess awards floor((60 - elapsed_seconds) * 100 / 60) points
// against the running round clock, clamped to zero once the 60-second budget
// has passed.
//
// Concurrency:
//
// Room has no internal locking. The coordinator owns every room exclusively
// and serializes all access; nothing else may touch a Room.
package room
