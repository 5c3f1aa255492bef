package main

import (
	"context"
	"fmt"

	"github.com/dpolyakov/minimart/internal/gateway"
	"github.com/dpolyakov/minimart/internal/logging"
	"github.com/dpolyakov/minimart/internal/server"
	"github.com/dpolyakov/minimart/internal/server/config"
)

func main() {
	ctx := context.Background()
	log := logging.NewJSONLogger().With("service", "gateway")

	cfg, err := config.LoadGatewayConfig()
	if err != nil {
		server.Exit(log, fmt.Errorf("config: %w", err))
	}

	handler, err := gateway.New(log).Routes(cfg.AuthServiceURL, cfg.CatalogServiceURL)
	if err != nil {
		server.Exit(log, err)
	}

	if err := server.Run(ctx, cfg.GatewayAddr, handler, log); err != nil {
		server.Exit(log, err)
	}
}
