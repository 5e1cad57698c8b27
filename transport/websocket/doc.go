// Package websocket provides the per-connection session actor for the
// drawparty coordinator.
//
// The websocket package implements:
//   - Connection upgrade and identity assignment (fresh or resumed)
//   - Registration with the coordinator before any frame is processed
//   - Frame translation between the wire and coordinator messages
//   - Heartbeat-based liveness detection
//
// Architecture:
//
// Each connection gets one Session with two goroutines: a read pump that
// turns incoming frames into coordinator requests, and a write pump that is
// the only writer on the connection. The session never touches room state;
// it talks exclusively to the coordinator, and the coordinator pushes
// envelopes back through the session's buffered outbound queue.
//
// Frame Handling:
//
// Text frames carry JSON envelopes and are forwarded to the coordinator raw,
// except for the reserved "GET_ID" command, which is answered locally with a
// Data/UserID envelope. Binary frames are echoed back unexamined. A close
// frame or any protocol error ends the session.
//
// Liveness:
//
// The write pump pings every 5 seconds. If nothing proving liveness arrives
// for 10 seconds the read deadline expires, the read pump exits, and the
// session unconditionally reports a disconnect to the coordinator. Every
// exit path, whatever the cause, reports that disconnect.
//
// Usage:
//
//	websocket.Serve(coord, w, r, roomID, sessionID, username)
package websocket
