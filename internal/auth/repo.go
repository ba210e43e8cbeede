package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	RecordLogin(ctx context.Context, accountID int64, at time.Time) error
	CreateSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

// FindByEmail fetches an account by email, ignoring case.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT id, email, password_hash, is_active, date_joined, last_login
FROM accounts WHERE LOWER(email) = $1`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.DateJoined, &a.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// RecordLogin stamps the account's last successful sign-in.
func (r *PGRepository) RecordLogin(ctx context.Context, accountID int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, accountID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO sessions (id, account_id, created_at, expires_at, ip, ua)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		id, accountID, time.Now().UTC(), expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
