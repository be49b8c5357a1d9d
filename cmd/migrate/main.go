// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate [-direction up|down|version].
package main

import (
	"flag"
	"fmt"
	"os"

	"identity-gateway/backend/internal/config"
	"identity-gateway/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env or set DATABASE_URL")
		os.Exit(1)
	}

	status, err := migrate.Run(cfg.DatabaseURL, *direction)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	if status.Dirty {
		fmt.Fprintf(os.Stderr, "schema version %d is dirty; fix it and force the version\n", status.Version)
		os.Exit(1)
	}
	fmt.Printf("schema at version %d\n", status.Version)
}
