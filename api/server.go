package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/drawparty/drawparty/game/coordinator"
	"github.com/drawparty/drawparty/transport/websocket"
)

// Server represents the REST and WebSocket boundary of the coordinator.
type Server struct {
	coord   *coordinator.Coordinator
	router  *mux.Router
	handler http.Handler
}

// NewServer creates a new API server. allowedOrigin is the origin granted
// CORS access; an empty value allows any origin (without credentials).
func NewServer(coord *coordinator.Coordinator, allowedOrigin string) *Server {
	s := &Server{
		coord:  coord,
		router: mux.NewRouter(),
	}

	s.setupRoutes()

	origins := []string{"*"}
	if allowedOrigin != "" {
		origins = []string{allowedOrigin}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		// Credentials are incompatible with the wildcard origin.
		AllowCredentials: allowedOrigin != "",
	}).Handler(s.router)

	return s
}

// setupRoutes configures all routes. Preflight requests are answered by the
// CORS layer before they reach the router.
func (s *Server) setupRoutes() {
	// WebSocket entry point
	s.router.HandleFunc("/ws/{room_id}", s.handleWebSocket).Methods("GET")

	// Read-only lookups served by the coordinator
	s.router.HandleFunc("/details/{room_id}", s.handleRoomDetails).Methods("POST")
	s.router.HandleFunc("/room/new", s.handleNewRoomID).Methods("POST")
	s.router.HandleFunc("/room/{room_id}/player/{user_id}", s.handlePlayerDetails).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Response helpers
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleWebSocket validates the identifiers and hands the connection to the
// session transport. An invalid room id is rejected before upgrading; a
// malformed resume id falls back to a fresh identity.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(mux.Vars(r)["room_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	query := r.URL.Query()
	sessionID := uuid.Nil
	if resume, err := uuid.Parse(query.Get("session")); err == nil {
		sessionID = resume
	}
	username := query.Get("username")

	websocket.Serve(s.coord, w, r, roomID, sessionID, username)
}

// handleRoomDetails returns the serialized room, or an empty body when the
// room is unknown. Malformed ids are rejected as invalid input, distinct
// from not-found.
func (s *Server) handleRoomDetails(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(mux.Vars(r)["room_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	data, err := s.coord.RoomDetails(r.Context(), roomID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handlePlayerDetails returns the serialized player entry for a room, or an
// empty body when either id is unknown.
func (s *Server) handlePlayerDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID, err := uuid.Parse(vars["room_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	userID, err := uuid.Parse(vars["user_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	data, err := s.coord.PlayerDetails(r.Context(), userID, roomID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleNewRoomID allocates a fresh random room id. The room itself is
// created lazily on first join.
func (s *Server) handleNewRoomID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(uuid.NewString()))
}
