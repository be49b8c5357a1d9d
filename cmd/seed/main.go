// seed inserts development accounts for local testing against Postgres.
// Idempotent: an account that already exists (by phone or email) is left alone.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"identity-gateway/backend/internal/account/domain"
	accountrepo "identity-gateway/backend/internal/account/repository"
	"identity-gateway/backend/internal/config"
	"identity-gateway/backend/internal/db"
	"identity-gateway/backend/internal/security"
)

const (
	devPhone         = "+15550000001"
	devEmail         = "dev@example.com"
	devGoogleSubject = "dev-google-sub-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("seed: refusing to run with APP_ENV=production")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	hasher, err := security.NewSecretHasher(cfg.Hasher, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	if err := seed(ctx, accountrepo.NewPostgresRepository(sqlDB), hasher, time.Now().UTC()); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func seed(ctx context.Context, repo accountrepo.Repository, hasher security.SecretHasher, now time.Time) error {
	existing, err := repo.GetByPhone(ctx, devPhone)
	if err != nil {
		return err
	}
	if existing == nil {
		verified := now
		if err := create(ctx, repo, hasher, &domain.Account{
			Name:            "User 0001",
			Phone:           devPhone,
			PhoneVerifiedAt: &verified,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			return err
		}
		fmt.Printf("seeded phone account %s\n", devPhone)
	}

	existing, err = repo.GetByEmail(ctx, devEmail)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := create(ctx, repo, hasher, &domain.Account{
			Name:       "Google User",
			Email:      devEmail,
			Provider:   "google",
			ProviderID: devGoogleSubject,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
		fmt.Printf("seeded google account %s\n", devEmail)
	}
	return nil
}

func create(ctx context.Context, repo accountrepo.Repository, hasher security.SecretHasher, a *domain.Account) error {
	hash, err := security.PlaceholderPasswordHash(hasher)
	if err != nil {
		return err
	}
	a.ID = uuid.NewString()
	a.PasswordHash = hash
	err = repo.Create(ctx, a)
	if errors.Is(err, accountrepo.ErrConflict) {
		return nil
	}
	return err
}
