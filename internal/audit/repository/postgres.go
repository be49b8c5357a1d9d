package repository

import (
	"context"
	"database/sql"
	"fmt"

	"identity-gateway/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create persists the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO auth_audit_log (id, account_id, action, method, outcome, provider, phone_masked, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, nullString(a.AccountID), a.Action, nullString(a.Method), nullString(a.Outcome),
		nullString(a.Provider), nullString(a.PhoneMasked), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, account_id, action, method, outcome, provider, phone_masked, created_at
FROM auth_audit_log WHERE account_id = $1
ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a                                         domain.AuditLog
			account, method, outcome, provider, phone sql.NullString
		)
		if err := rows.Scan(&a.ID, &account, &a.Action, &method, &outcome, &provider, &phone, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.AccountID, a.Method, a.Outcome, a.Provider, a.PhoneMasked =
			account.String, method.String, outcome.String, provider.String, phone.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
