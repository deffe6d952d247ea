package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// UserRepository handles organisation roster persistence
type UserRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

const userColumns = `id, org_id, name, email, role, is_deleted, last_login_at, device_token, created_at, updated_at`

func scanUser(scanner interface{ Scan(...interface{}) error }) (*types.User, error) {
	var user types.User
	err := scanner.Scan(
		&user.ID,
		&user.OrgID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.IsDeleted,
		&user.LastLoginAt,
		&user.DeviceToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user record
func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	query := `
		INSERT INTO users (id, org_id, name, email, role, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.OrgID,
		user.Name,
		user.Email,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create user: %v", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.WithUserID(user.ID).Info("Created user")
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_deleted = FALSE`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("user not found: %s", id))
		}
		r.logger.Errorf("Failed to get user %s: %v", id, err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Update updates user information
func (r *UserRepository) Update(ctx context.Context, id string, updates *types.UserUpdates) error {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    role = COALESCE($4, role),
		    updated_at = $5
		WHERE id = $1 AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, id, updates.Name, updates.Email, updates.Role, time.Now())
	if err != nil {
		r.logger.Errorf("Failed to update user %s: %v", id, err)
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("user not found: %s", id))
	}

	return nil
}

// SoftDelete marks a user as deleted without removing the row
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE users SET is_deleted = TRUE, updated_at = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Errorf("Failed to delete user %s: %v", id, err)
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("user not found: %s", id))
	}

	r.logger.WithUserID(id).Info("Deleted user")
	return nil
}

// GetRoster returns the organisation's non-deleted users who have logged
// in at least once. This is the candidate universe for participant
// reconciliation.
func (r *UserRepository) GetRoster(ctx context.Context, orgID string) ([]*types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE org_id = $1
		  AND is_deleted = FALSE
		  AND last_login_at IS NOT NULL
		ORDER BY name ASC`

	return r.queryUsers(ctx, query, orgID)
}

// GetByRole returns an organisation's non-deleted users holding a role
func (r *UserRepository) GetByRole(ctx context.Context, orgID string, role types.UserRole) ([]*types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE org_id = $1 AND role = $2 AND is_deleted = FALSE
		ORDER BY name ASC`

	return r.queryUsers(ctx, query, orgID, role)
}

// MarkLogin stamps the user's last-login marker
func (r *UserRepository) MarkLogin(ctx context.Context, id string) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Errorf("Failed to mark login for user %s: %v", id, err)
		return fmt.Errorf("failed to mark login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("user not found: %s", id))
	}

	return nil
}

// SetDeviceToken registers or clears a user's push device token
func (r *UserRepository) SetDeviceToken(ctx context.Context, id string, token *string) error {
	query := `UPDATE users SET device_token = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, token, time.Now(), id)
	if err != nil {
		r.logger.Errorf("Failed to set device token for user %s: %v", id, err)
		return fmt.Errorf("failed to set device token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("user not found: %s", id))
	}

	return nil
}

// GetDeviceTokens returns the registered device token per user, keyed by
// user ID. Users without a token are absent from the result.
func (r *UserRepository) GetDeviceTokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}

	query := `
		SELECT id, device_token
		FROM users
		WHERE id = ANY($1) AND is_deleted = FALSE AND device_token IS NOT NULL`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		r.logger.Errorf("Failed to get device tokens: %v", err)
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	tokens := make(map[string]string)
	for rows.Next() {
		var id, token string
		if err := rows.Scan(&id, &token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens[id] = token
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}

	return tokens, nil
}

// ClearDeviceToken removes a token the push provider reported invalid.
// Keyed by token, not user, so cleanup works without knowing the owner.
func (r *UserRepository) ClearDeviceToken(ctx context.Context, token string) error {
	query := `UPDATE users SET device_token = NULL, updated_at = $1 WHERE device_token = $2`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), token); err != nil {
		r.logger.Errorf("Failed to clear device token: %v", err)
		return fmt.Errorf("failed to clear device token: %w", err)
	}

	return nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*types.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Errorf("Failed to query users: %v", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
