package db

import "embed"

// MigrationFS holds the accounts, otp_challenges and auth_audit_log schema, applied by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
