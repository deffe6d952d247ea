package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// PatientRepository handles simulated patient persistence
type PatientRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *sql.DB, log *logger.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: log,
	}
}

const patientColumns = `id, org_id, name, date_of_birth, gender, presentation, observations, is_deleted, created_at, updated_at`

func scanPatient(scanner interface{ Scan(...interface{}) error }) (*types.Patient, error) {
	var patient types.Patient
	var observationsJSON []byte

	err := scanner.Scan(
		&patient.ID,
		&patient.OrgID,
		&patient.Name,
		&patient.DateOfBirth,
		&patient.Gender,
		&patient.Presentation,
		&observationsJSON,
		&patient.IsDeleted,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(observationsJSON) > 0 {
		if err := json.Unmarshal(observationsJSON, &patient.Observations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal observations: %w", err)
		}
	}

	return &patient, nil
}

// Create creates a new patient record
func (r *PatientRepository) Create(ctx context.Context, patient *types.Patient) (*types.Patient, error) {
	patient.ID = uuid.New().String()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	if patient.Observations == nil {
		patient.Observations = map[string]interface{}{}
	}
	observationsJSON, err := json.Marshal(patient.Observations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal observations: %w", err)
	}

	query := `
		INSERT INTO patients (id, org_id, name, date_of_birth, gender, presentation, observations, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		patient.ID,
		patient.OrgID,
		patient.Name,
		patient.DateOfBirth,
		patient.Gender,
		patient.Presentation,
		observationsJSON,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create patient: %v", err)
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	r.logger.WithOrgID(patient.OrgID).WithField("patient_id", patient.ID).Info("Created patient")
	return patient, nil
}

// GetByID retrieves a patient by ID
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*types.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND is_deleted = FALSE`

	patient, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient not found: %s", id))
		}
		r.logger.Errorf("Failed to get patient %s: %v", id, err)
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return patient, nil
}

// ListByOrg returns an organisation's non-deleted patients
func (r *PatientRepository) ListByOrg(ctx context.Context, orgID string) ([]*types.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE org_id = $1 AND is_deleted = FALSE
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Errorf("Failed to list patients for org %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*types.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, nil
}

// UpdateObservations replaces a patient's current observation set
func (r *PatientRepository) UpdateObservations(ctx context.Context, id string, observations map[string]interface{}) error {
	observationsJSON, err := json.Marshal(observations)
	if err != nil {
		return fmt.Errorf("failed to marshal observations: %w", err)
	}

	query := `UPDATE patients SET observations = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, observationsJSON, time.Now(), id)
	if err != nil {
		r.logger.Errorf("Failed to update observations for patient %s: %v", id, err)
		return fmt.Errorf("failed to update observations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient not found: %s", id))
	}

	return nil
}

// SoftDelete marks a patient as deleted without removing the row
func (r *PatientRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE patients SET is_deleted = TRUE, updated_at = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Errorf("Failed to delete patient %s: %v", id, err)
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient not found: %s", id))
	}

	r.logger.WithField("patient_id", id).Info("Deleted patient")
	return nil
}
