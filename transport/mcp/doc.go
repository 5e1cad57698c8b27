// Package mcp exposes the coordinator's request/response surface as MCP
// tools.
//
// The mcp package implements a thin proxy: every tool call becomes an HTTP
// request against the REST API, and the response body is returned verbatim
// as the tool result. No game state is held here.
//
// Tools:
//   - new_room: allocate a fresh room id
//   - room_details: serialized room snapshot
//   - player_details: one player's entry in a room
//
// Gameplay itself (joining, drawing, guessing, turn flow) happens over the
// WebSocket endpoint and is deliberately not reachable through MCP.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
