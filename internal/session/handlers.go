package session

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// RegisterRoutes configures HTTP routes for the session service
func (s *Service) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sessions", s.createSessionHandler).Methods("POST")
	router.HandleFunc("/sessions/{id}", s.getSessionHandler).Methods("GET")
	router.HandleFunc("/sessions/{id}/end", s.endSessionHandler).Methods("POST")
	router.HandleFunc("/sessions/{id}/participants", s.addParticipantHandler).Methods("POST")
	router.HandleFunc("/sessions/{id}/participants/{userId}", s.endUserSessionHandler).Methods("DELETE")

	s.logger.Info("Session service routes configured")
}

// createSessionHandler handles session creation
func (s *Service) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req types.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	session, err := s.CreateSession(r.Context(), &req, claims)
	if err != nil {
		s.writePlatformError(w, "Failed to create session", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, session)
}

// getSessionHandler handles session retrieval
func (s *Service) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	session, err := s.GetSession(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "Session not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, session)
}

// endSessionHandler handles session termination
func (s *Service) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	session, err := s.EndSession(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "Failed to end session", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, session)
}

// addParticipantHandler handles participant invitations
func (s *Service) addParticipantHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	var req types.AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := s.AddParticipant(r.Context(), vars["id"], &req, claims)
	if err != nil {
		s.writePlatformError(w, "Failed to add participant", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, result)
}

// endUserSessionHandler handles forced participant removal
func (s *Service) endUserSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	participants, err := s.EndUserSession(r.Context(), vars["id"], vars["userId"])
	if err != nil {
		s.writePlatformError(w, "Failed to remove participant", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"participants": participants,
	})
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

// writePlatformError maps service errors onto HTTP statuses
func (s *Service) writePlatformError(w http.ResponseWriter, message string, err error) {
	if perr, ok := types.AsPlatformError(err); ok {
		s.writeErrorResponse(w, perr.HTTPStatus(), message, err)
		return
	}
	s.writeErrorResponse(w, http.StatusInternalServerError, message, err)
}
