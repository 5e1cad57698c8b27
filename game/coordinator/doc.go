// Package coordinator implements the serialized registry that owns every
// room and every live connection handle.
//
// The coordinator package implements:
//   - Session registration (Connect) with a blocking acknowledgment
//   - Disconnect handling with player retention and room teardown
//   - Message routing: lifecycle events to the room state machine,
//     everything else relayed verbatim
//   - Ordered fan-out broadcast to a room's live sessions
//   - Read-only room and player lookups for the REST boundary
//
// Concurrency Model:
//
// The coordinator is a single-writer event loop. Connection sessions never
// touch shared state; they submit requests into one channel, and Run applies
// them one at a time on one goroutine. That single serialization point is
// the entire correctness story: room state needs no locks, and within a room
// broadcast order always matches the order requests were processed.
//
// Two sessions racing to submit are ordered arbitrarily but
// deterministically by the channel; there is no further guarantee between
// them.
//
// Delivery:
//
// Broadcast is fire-and-forget. Deliver on an Outbound handle must not
// block; a slow or dead peer is detected by the session's own heartbeat, not
// by the coordinator. Players without a live session entry are skipped, so
// delivery is at-most-once, best-effort.
//
// Usage:
//
//	coord := coordinator.New()
//	go coord.Run(ctx)
//
//	player, err := coord.Connect(ctx, userID, roomID, "alice", outbound)
//	if err != nil {
//		// registration failed; the session must terminate
//	}
package coordinator
