package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"identity-gateway/backend/internal/otp/domain"
)

const (
	upsertChallenge = `
INSERT INTO otp_challenges (id, phone, code_hash, expires_at, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (phone) DO UPDATE SET
    id = EXCLUDED.id,
    code_hash = EXCLUDED.code_hash,
    expires_at = EXCLUDED.expires_at,
    attempts = EXCLUDED.attempts,
    created_at = EXCLUDED.created_at,
    updated_at = EXCLUDED.updated_at`

	selectChallenge = `
SELECT id, phone, code_hash, expires_at, attempts, created_at, updated_at
FROM otp_challenges WHERE phone = $1`

	incrementAttempts = `
UPDATE otp_challenges SET attempts = attempts + 1, updated_at = $3
WHERE phone = $1 AND id = $2
RETURNING attempts`

	deleteChallenge        = `DELETE FROM otp_challenges WHERE phone = $1`
	deleteChallengeIfMatch = `DELETE FROM otp_challenges WHERE phone = $1 AND id = $2`
)

// PostgresStore keeps challenges in the otp_challenges table. Each operation is a
// single statement on the phone's row, which the row lock serializes.
type PostgresStore struct {
	db   *sql.DB
	nowF func() time.Time
}

// NewPostgresStore returns a challenge store that uses the given db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, nowF: time.Now}
}

func (s *PostgresStore) Put(ctx context.Context, c *domain.Challenge) error {
	_, err := s.db.ExecContext(ctx, upsertChallenge,
		c.ID, c.Phone, c.CodeHash, c.ExpiresAt, c.Attempts, c.CreatedAt, c.UpdatedAt)
	return err
}

// Get returns the challenge for phone, or nil if not found.
func (s *PostgresStore) Get(ctx context.Context, phone string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := s.db.QueryRowContext(ctx, selectChallenge, phone).Scan(
		&c.ID, &c.Phone, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) IncrementAttempts(ctx context.Context, phone, id string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, incrementAttempts, phone, id, s.nowF().UTC()).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

func (s *PostgresStore) Delete(ctx context.Context, phone string) error {
	_, err := s.db.ExecContext(ctx, deleteChallenge, phone)
	return err
}

func (s *PostgresStore) DeleteIfMatch(ctx context.Context, phone, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, deleteChallengeIfMatch, phone, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ Store = (*PostgresStore)(nil)
