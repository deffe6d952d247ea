package patient

import (
	"context"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/interfaces"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Service manages simulated patients and feeds observation changes into
// running sessions.
type Service struct {
	patients  interfaces.PatientRepository
	sessions  interfaces.SessionRepository
	transport interfaces.Transport
	logger    *logger.Logger
}

// NewService creates a patient service
func NewService(patients interfaces.PatientRepository, sessions interfaces.SessionRepository, transport interfaces.Transport, log *logger.Logger) *Service {
	return &Service{
		patients:  patients,
		sessions:  sessions,
		transport: transport,
		logger:    log,
	}
}

// CreatePatient registers a new simulated patient
func (s *Service) CreatePatient(ctx context.Context, patient *types.Patient) (*types.Patient, error) {
	if err := validatePatient(patient); err != nil {
		return nil, err
	}
	return s.patients.Create(ctx, patient)
}

// GetPatient retrieves a patient by ID
func (s *Service) GetPatient(ctx context.Context, id string) (*types.Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// ListPatients returns an organisation's patients
func (s *Service) ListPatients(ctx context.Context, orgID string) ([]*types.Patient, error) {
	return s.patients.ListByOrg(ctx, orgID)
}

// DeletePatient soft-deletes a patient
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	return s.patients.SoftDelete(ctx, id)
}

// UpdateObservations replaces a patient's observation set and tells the
// session room to re-fetch. With Notify set, the room additionally gets
// a popup notification carrying the update message.
func (s *Service) UpdateObservations(ctx context.Context, patientID string, update *types.ObservationUpdate) error {
	if update.SessionID == "" {
		return types.NewValidationError(types.ErrCodeInvalidInput, "session_id is required", nil)
	}

	session, err := s.sessions.GetByID(ctx, update.SessionID)
	if err != nil {
		return err
	}
	if session.State == types.SessionEnded {
		return types.NewConflictError(types.ErrCodeConflict, "session already ended")
	}
	if session.PatientID != patientID {
		return types.NewValidationError(types.ErrCodeInvalidInput, "patient does not belong to this session", nil)
	}

	if err := s.patients.UpdateObservations(ctx, patientID, update.Observations); err != nil {
		return err
	}

	roomID := session.RoomID()
	s.transport.EmitToRoom(roomID, types.EventRefreshPatientData, map[string]string{
		"patient_id": patientID,
		"session_id": session.ID,
	})

	if update.Notify {
		s.transport.EmitToRoom(roomID, types.EventPatientNotificationPopup, map[string]string{
			"patient_id": patientID,
			"session_id": session.ID,
			"message":    update.Message,
		})
	}

	s.logger.WithSessionID(session.ID).WithField("patient_id", patientID).Info("Observations updated")
	return nil
}

func validatePatient(patient *types.Patient) error {
	details := map[string]interface{}{}
	if patient.OrgID == "" {
		details["org_id"] = "required"
	}
	if patient.Name == "" {
		details["name"] = "required"
	}
	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "invalid patient", details)
	}
	return nil
}
