package main

import (
	"context"
	"fmt"
	"os"

	"dmchat/backend/internal/auth"
	"dmchat/backend/internal/config"
	"dmchat/backend/internal/logging"
	"dmchat/backend/internal/storage"
)

func main() {
	root := newRootCmd(func(ctx context.Context) (*env, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		log, err := logging.New(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		db, err := storage.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		if err := storage.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		rdb, err := storage.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		return &env{
			store:    storage.NewStorageService(db, rdb, log),
			issuer:   auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
			tokenTTL: cfg.TokenTTL,
		}, nil
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
