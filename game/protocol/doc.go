// Package protocol defines the wire contract shared by the coordinator, the
// WebSocket transport, and the REST boundary.
//
// The protocol package implements:
//   - The outer message envelope {msg_type, content}
//   - The three-family tagged type union (Relay, Game, Data)
//   - The concrete payload structs for game-family messages
//
// Two-Stage Encoding:
//
// An envelope's content field is itself the serialized form of the payload
// for its type. This lets the coordinator route by type alone: relay-family
// messages are forwarded to the rest of the room without ever decoding their
// content, while game-family payloads are decoded only by the handler that
// acts on them.
//
// Wire Form:
//
// The discriminant serializes as a one-key object mapping family to variant:
//
//	{"msg_type": {"Game": "StartGame"}, "content": "{...}"}
//	{"msg_type": {"Relay": "Draw"}, "content": "{...}"}
//
// Anything that is not exactly one key with a known family fails to decode,
// and the coordinator drops undecodable envelopes silently.
package protocol
