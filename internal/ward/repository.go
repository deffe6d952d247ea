package ward

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Repository persists ward session rows. It implements
// interfaces.WardRepository.
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a ward session repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const wardSessionColumns = `id, org_id, ward_id, started_by, status, assignments, start_time, duration_minutes, created_at, updated_at`

func scanWardSession(scanner interface{ Scan(...interface{}) error }) (*types.WardSession, error) {
	var ws types.WardSession
	err := scanner.Scan(
		&ws.ID,
		&ws.OrgID,
		&ws.WardID,
		&ws.StartedBy,
		&ws.Status,
		&ws.Assignments,
		&ws.StartTime,
		&ws.DurationMinutes,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// Create inserts a new ward session row
func (r *Repository) Create(ctx context.Context, ws *types.WardSession) error {
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	ws.CreatedAt = time.Now()
	ws.UpdatedAt = ws.CreatedAt

	query := `
		INSERT INTO ward_sessions (id, org_id, ward_id, started_by, status, assignments, start_time, duration_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		ws.ID,
		ws.OrgID,
		ws.WardID,
		ws.StartedBy,
		ws.Status,
		ws.Assignments,
		ws.StartTime,
		ws.DurationMinutes,
		ws.CreatedAt,
		ws.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create ward session: %v", err)
		return fmt.Errorf("failed to create ward session: %w", err)
	}

	r.logger.WithField("ward_session_id", ws.ID).Info("Created ward session")
	return nil
}

// GetByID retrieves a ward session by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*types.WardSession, error) {
	query := `SELECT ` + wardSessionColumns + ` FROM ward_sessions WHERE id = $1`

	ws, err := scanWardSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("ward session not found: %s", id))
		}
		r.logger.Errorf("Failed to get ward session %s: %v", id, err)
		return nil, fmt.Errorf("failed to get ward session: %w", err)
	}

	return ws, nil
}

// MarkCompleted transitions a ward session to COMPLETED. Guarded on
// status so concurrent completions converge on the first writer's row.
func (r *Repository) MarkCompleted(ctx context.Context, id string) (*types.WardSession, error) {
	query := `
		UPDATE ward_sessions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + wardSessionColumns

	ws, err := scanWardSession(r.db.QueryRowContext(ctx, query, types.WardSessionCompleted, time.Now(), id, types.WardSessionActive))
	if err == nil {
		r.logger.WithField("ward_session_id", id).Info("Ward session marked completed")
		return ws, nil
	}
	if err != sql.ErrNoRows {
		r.logger.Errorf("Failed to complete ward session %s: %v", id, err)
		return nil, fmt.Errorf("failed to complete ward session: %w", err)
	}

	return r.GetByID(ctx, id)
}

// ListActiveByOrg returns an organisation's not-yet-completed ward
// sessions. Their assignments define the busy set for availability.
func (r *Repository) ListActiveByOrg(ctx context.Context, orgID string) ([]*types.WardSession, error) {
	query := `
		SELECT ` + wardSessionColumns + `
		FROM ward_sessions
		WHERE org_id = $1 AND status != $2
		ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID, types.WardSessionCompleted)
	if err != nil {
		r.logger.Errorf("Failed to list ward sessions for org %s: %v", orgID, err)
		return nil, fmt.Errorf("failed to list ward sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.WardSession
	for rows.Next() {
		ws, err := scanWardSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ward session: %w", err)
		}
		sessions = append(sessions, ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ward sessions: %w", err)
	}

	return sessions, nil
}
