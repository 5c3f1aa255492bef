package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dpolyakov/minimart/internal/logging"
	"github.com/dpolyakov/minimart/internal/server"
	"github.com/dpolyakov/minimart/internal/server/auth"
	"github.com/dpolyakov/minimart/internal/server/config"
	"github.com/dpolyakov/minimart/internal/server/httpapi"
	"github.com/dpolyakov/minimart/internal/server/repositories/repomanager"
	"github.com/dpolyakov/minimart/internal/server/services"
)

func main() {
	ctx := context.Background()
	log := logging.NewJSONLogger().With("service", "catalogserver")

	cfg, err := config.LoadConfig()
	if err != nil {
		server.Exit(log, fmt.Errorf("config: %w", err))
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		server.Exit(log, fmt.Errorf("db open: %w", err))
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		server.Exit(log, fmt.Errorf("migrations: %w", err))
	}

	// The catalog verifies access tokens locally; it never talks to the
	// auth service.
	issuer := auth.NewIssuer(
		[]byte(cfg.AccessTokenSecret), []byte(cfg.RefreshTokenSecret),
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration,
	)
	service := services.NewCatalogService(db, rm, cfg, log)

	handler := httpapi.CatalogRoutes(httpapi.NewCatalogHandler(service, log), httpapi.NewMiddleware(issuer))

	if err := server.Run(ctx, cfg.CatalogAddr, handler, log); err != nil {
		server.Exit(log, err)
	}
}
