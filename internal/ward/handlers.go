package ward

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// RegisterRoutes configures HTTP routes for the ward service
func (s *Service) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ward-sessions", s.startWardSessionHandler).Methods("POST")
	router.HandleFunc("/ward-sessions/{id}", s.getWardSessionHandler).Methods("GET")
	router.HandleFunc("/ward-sessions/{id}/end", s.endWardSessionHandler).Methods("POST")
	router.HandleFunc("/users/available", s.getAvailableUsersHandler).Methods("GET")

	s.logger.Info("Ward service routes configured")
}

// startWardSessionHandler handles ward session creation
func (s *Service) startWardSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req types.StartWardSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ws, err := s.StartWardSession(r.Context(), &req, claims)
	if err != nil {
		s.writePlatformError(w, "Failed to start ward session", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, ws)
}

// getWardSessionHandler handles ward session retrieval
func (s *Service) getWardSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ws, err := s.GetWardSession(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "Ward session not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, ws)
}

// endWardSessionHandler handles ward session completion
func (s *Service) endWardSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ws, err := s.EndWardSession(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "Failed to end ward session", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, ws)
}

// getAvailableUsersHandler lists users free for a new exercise
func (s *Service) getAvailableUsersHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	users, err := s.GetAvailableUsers(r.Context(), claims.OrgID)
	if err != nil {
		s.writePlatformError(w, "Failed to list available users", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, users)
}

func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.Errorf("%s: %v", message, err)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}
	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}

func (s *Service) writePlatformError(w http.ResponseWriter, message string, err error) {
	if perr, ok := types.AsPlatformError(err); ok {
		s.writeErrorResponse(w, perr.HTTPStatus(), message, err)
		return
	}
	s.writeErrorResponse(w, http.StatusInternalServerError, message, err)
}
