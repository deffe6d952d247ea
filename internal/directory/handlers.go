package directory

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// RegisterRoutes configures HTTP routes for the directory service
func (s *Service) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", s.createUserHandler).Methods("POST")
	router.HandleFunc("/users/roster", s.getRosterHandler).Methods("GET")
	router.HandleFunc("/users/{id}", s.getUserHandler).Methods("GET")
	router.HandleFunc("/users/{id}", s.updateUserHandler).Methods("PUT")
	router.HandleFunc("/users/{id}", s.deleteUserHandler).Methods("DELETE")
	router.HandleFunc("/users/{id}/device-token", s.registerDeviceHandler).Methods("PUT")
	router.HandleFunc("/users/{id}/device-token", s.unregisterDeviceHandler).Methods("DELETE")

	s.logger.Info("Directory service routes configured")
}

// RegisterPublicRoutes configures the routes that must work without a
// bearer token, i.e. the login bootstrap.
func (s *Service) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/users/{id}/login", s.recordLoginHandler).Methods("POST")
}

// createUserHandler handles user creation
func (s *Service) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var user types.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreateUser(r.Context(), &user)
	if err != nil {
		s.writePlatformError(w, "Failed to create user", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// getRosterHandler returns the caller's organisation roster
func (s *Service) getRosterHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	roster, err := s.GetRoster(r.Context(), claims.OrgID)
	if err != nil {
		s.writePlatformError(w, "Failed to get roster", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, roster)
}

// getUserHandler handles user retrieval
func (s *Service) getUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := s.GetUser(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "User not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// updateUserHandler handles user updates
func (s *Service) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var updates types.UserUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.UpdateUser(r.Context(), vars["id"], &updates)
	if err != nil {
		s.writePlatformError(w, "Failed to update user", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// deleteUserHandler handles user soft deletion
func (s *Service) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.DeleteUser(r.Context(), vars["id"]); err != nil {
		s.writePlatformError(w, "Failed to delete user", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// recordLoginHandler stamps a login and issues an access token
func (s *Service) recordLoginHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	token, err := s.RecordLogin(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "Failed to record login", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, token)
}

// registerDeviceHandler stores a device push token
func (s *Service) registerDeviceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req types.DeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.RegisterDevice(r.Context(), vars["id"], req.Token); err != nil {
		s.writePlatformError(w, "Failed to register device", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}

// unregisterDeviceHandler clears a device push token
func (s *Service) unregisterDeviceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.UnregisterDevice(r.Context(), vars["id"]); err != nil {
		s.writePlatformError(w, "Failed to unregister device", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Device unregistered successfully"})
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
