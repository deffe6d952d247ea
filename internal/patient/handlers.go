package patient

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// RegisterRoutes configures HTTP routes for the patient service
func (s *Service) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", s.createPatientHandler).Methods("POST")
	router.HandleFunc("/patients", s.listPatientsHandler).Methods("GET")
	router.HandleFunc("/patients/{id}", s.getPatientHandler).Methods("GET")
	router.HandleFunc("/patients/{id}", s.deletePatientHandler).Methods("DELETE")
	router.HandleFunc("/patients/{id}/observations", s.updateObservationsHandler).Methods("PUT")

	s.logger.Info("Patient service routes configured")
}

// createPatientHandler handles patient creation
func (s *Service) createPatientHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var patient types.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patient.OrgID = claims.OrgID

	created, err := s.CreatePatient(r.Context(), &patient)
	if err != nil {
		s.writePlatformError(w, "Failed to create patient", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// listPatientsHandler lists the caller's organisation patients
func (s *Service) listPatientsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	patients, err := s.ListPatients(r.Context(), claims.OrgID)
	if err != nil {
		s.writePlatformError(w, "Failed to list patients", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, patients)
}

// getPatientHandler handles patient retrieval
func (s *Service) getPatientHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	patient, err := s.GetPatient(r.Context(), vars["id"])
	if err != nil {
		s.writePlatformError(w, "Patient not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, patient)
}

// deletePatientHandler handles patient soft deletion
func (s *Service) deletePatientHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.DeletePatient(r.Context(), vars["id"]); err != nil {
		s.writePlatformError(w, "Failed to delete patient", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Patient deleted successfully"})
}

// updateObservationsHandler mutates observations during a session
func (s *Service) updateObservationsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var update types.ObservationUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.UpdateObservations(r.Context(), vars["id"], &update); err != nil {
		s.writePlatformError(w, "Failed to update observations", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Observations updated successfully"})
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
