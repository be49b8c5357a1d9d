package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"identity-gateway/backend/internal/account/domain"
	"identity-gateway/backend/internal/db"
)

const accountColumns = `id, name, email, phone, phone_verified_at, provider, provider_id, password_hash, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, args ...any) (*domain.Account, error) {
	var (
		a                                  domain.Account
		email, phone, provider, providerID sql.NullString
		verifiedAt                         sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...).Scan(
		&a.ID, &a.Name, &email, &phone, &verifiedAt, &provider, &providerID, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Email, a.Phone, a.Provider, a.ProviderID = email.String, phone.String, provider.String, providerID.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		a.PhoneVerifiedAt = &t
	}
	return &a, nil
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	if phone == "" {
		return nil, nil
	}
	return r.getOne(ctx, `phone = $1`, phone)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if email == "" {
		return nil, nil
	}
	return r.getOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) GetByProvider(ctx context.Context, provider, providerID string) (*domain.Account, error) {
	if provider == "" || providerID == "" {
		return nil, nil
	}
	return r.getOne(ctx, `provider = $1 AND provider_id = $2`, provider, providerID)
}

// Create persists the account. The account must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Name, nullString(a.Email), nullString(a.Phone), nullTime(a.PhoneVerifiedAt),
		nullString(a.Provider), nullString(a.ProviderID), a.PasswordHash, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// SetPhoneVerified never overwrites an existing timestamp.
func (r *PostgresRepository) SetPhoneVerified(ctx context.Context, id string, at time.Time) (time.Time, error) {
	var stored time.Time
	err := r.db.QueryRowContext(ctx, `
UPDATE accounts
SET updated_at = CASE WHEN phone_verified_at IS NULL THEN $2 ELSE updated_at END,
    phone_verified_at = COALESCE(phone_verified_at, $2)
WHERE id = $1
RETURNING phone_verified_at`, id, at).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("set phone verified: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) LinkProvider(ctx context.Context, id, provider, providerID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET provider = $2, provider_id = $3, updated_at = $4 WHERE id = $1`,
		id, provider, providerID, at)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("link provider: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
