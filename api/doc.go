// Package api provides the HTTP boundary of the drawparty coordinator.
//
// The api package implements:
//   - The WebSocket entry point for game connections
//   - Read-only room and player lookups
//   - Room id allocation
//   - CORS handling for the browser frontend
//
// Endpoints:
//
// Realtime:
//   - GET /ws/{room_id}?session=<uuid>&username=<name> - upgrade to a game
//     session; session resumes an existing identity, username labels
//     first-time joins
//
// Lookups:
//   - POST /details/{room_id} - serialized room snapshot, empty body if the
//     room does not exist
//   - POST /room/{room_id}/player/{user_id} - serialized player entry,
//     empty body if unknown
//   - POST /room/new - a fresh random room id as plain text
//
// Error Handling:
//
// Malformed UUIDs are rejected with 400 and a JSON error body, which keeps
// invalid input distinct from not-found (200 with an empty body). All other
// failures surface as 500 with a JSON error body.
package api
