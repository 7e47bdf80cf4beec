package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

const userColumns = `id, username, password, retry_count, session_id, api_key, sessionExpiry, created, enabled`

// UserRepository provides persistence methods for the users table.
type UserRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewUserRepository(db *sql.DB, clock core.Clock) *UserRepository {
	return &UserRepository{db: db, clock: clock}
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.RetryCount,
		&u.SessionID,
		&u.ApiKey,
		&u.SessionExpiry,
		&u.Created,
		&u.Enabled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Save inserts a new user and returns its generated id.
// Created defaults to now and Enabled to true.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) (int64, error) {
	if !u.Created.Valid {
		u.Created = sql.NullTime{Time: r.clock.Now().UTC(), Valid: true}
	}
	if !u.Enabled.Valid {
		u.Enabled = sql.NullBool{Bool: true, Valid: true}
	}
	var expiry any
	if u.SessionExpiry.Valid {
		expiry = formatDateInDatabase(u.SessionExpiry.Time)
	}
	args := []any{
		u.Username,
		u.Password,
		u.RetryCount,
		u.SessionID,
		u.ApiKey,
		expiry,
		formatDateInDatabase(u.Created.Time),
		u.Enabled,
	}
	base := `INSERT INTO users (username, password, retry_count, session_id, api_key, sessionExpiry, created, enabled)
        VALUES (` + placeholders(1, len(args)) + `)`

	var id int64
	if supportsReturning() {
		if err := r.db.QueryRowContext(ctx, base+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
	} else {
		res, err := r.db.ExecContext(ctx, base, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}
	u.ID = id
	return id, nil
}

// FindByUsername fetches a user by exact username. Returns (nil, nil) if not found.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ` + placeholder(1)
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// FindById returns (nil, nil) if not found.
func (r *UserRepository) FindById(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ` + placeholder(1)
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindBySessionID fetches a user by session_id and ensures sessionExpiry is in the future.
func (r *UserRepository) FindBySessionID(ctx context.Context, sessionID string, now time.Time) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
        WHERE session_id = ` + placeholder(1) + ` AND sessionExpiry > ` + placeholder(2)
	return scanUser(r.db.QueryRowContext(ctx, query, sessionID, formatDateInDatabase(now)))
}

// FindByApiKey fetches a user by api_key (exact match). Returns (nil, nil) if not found.
func (r *UserRepository) FindByApiKey(ctx context.Context, apiKey string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE api_key = ` + placeholder(1)
	return scanUser(r.db.QueryRowContext(ctx, query, apiKey))
}

// UpdateSession sets session_id and sessionExpiry for a user by id.
func (r *UserRepository) UpdateSession(ctx context.Context, userID int64, sessionID string, expiry time.Time) error {
	query := `UPDATE users SET session_id = ` + placeholder(1) + `, sessionExpiry = ` + placeholder(2) + ` WHERE id = ` + placeholder(3)
	_, err := r.db.ExecContext(ctx, query, sessionID, formatDateInDatabase(expiry), userID)
	return err
}

// ClearSessionBySessionID nulls session_id and sessionExpiry for the user holding the session.
func (r *UserRepository) ClearSessionBySessionID(ctx context.Context, sessionID string) error {
	query := `UPDATE users SET session_id = NULL, sessionExpiry = NULL WHERE session_id = ` + placeholder(1)
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password = ` + placeholder(1) + ` WHERE id = ` + placeholder(2)
	_, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	return err
}

func (r *UserRepository) DeleteById(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = `+placeholder(1), id)
	return err
}

// FindAll returns all users ordered by id ascending.
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
