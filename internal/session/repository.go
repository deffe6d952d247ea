package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Repository persists session rows. It implements
// interfaces.SessionRepository.
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a session repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const sessionColumns = `id, org_id, patient_id, created_by, name, state, start_time, end_time, duration_minutes, created_at, updated_at`

func scanSession(scanner interface{ Scan(...interface{}) error }) (*types.Session, error) {
	var session types.Session
	err := scanner.Scan(
		&session.ID,
		&session.OrgID,
		&session.PatientID,
		&session.CreatedBy,
		&session.Name,
		&session.State,
		&session.StartTime,
		&session.EndTime,
		&session.DurationMinutes,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a new session row
func (r *Repository) Create(ctx context.Context, session *types.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt

	query := `
		INSERT INTO sessions (id, org_id, patient_id, created_by, name, state, start_time, duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.OrgID,
		session.PatientID,
		session.CreatedBy,
		session.Name,
		session.State,
		session.StartTime,
		session.DurationMinutes,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create session: %v", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.WithSessionID(session.ID).Info("Created session")
	return nil
}

// GetByID retrieves a session by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("session not found: %s", id))
		}
		r.logger.Errorf("Failed to get session %s: %v", id, err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// MarkEnded transitions a session to ended and stamps its end time. The
// guard on state makes concurrent end requests race-safe: whoever loses
// the update reads back the row the winner wrote, so the end time is
// only ever stamped once.
func (r *Repository) MarkEnded(ctx context.Context, id string) (*types.Session, error) {
	query := `
		UPDATE sessions
		SET state = $1, end_time = $2, updated_at = $2
		WHERE id = $3 AND state = $4
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRowContext(ctx, query, types.SessionEnded, time.Now(), id, types.SessionActive))
	if err == nil {
		r.logger.WithSessionID(id).Info("Session marked ended")
		return session, nil
	}
	if err != sql.ErrNoRows {
		r.logger.Errorf("Failed to end session %s: %v", id, err)
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	// Already ended, or never existed; GetByID tells the two apart.
	return r.GetByID(ctx, id)
}

// ListByOrg returns an organisation's sessions in a given state
func (r *Repository) ListByOrg(ctx context.Context, orgID string, state types.SessionState) ([]*types.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE org_id = $1 AND state = $2
		ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID, state)
	if err != nil {
		r.logger.Errorf("Failed to list sessions for org %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
