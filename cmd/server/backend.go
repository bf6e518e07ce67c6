package main

import (
	"alcyxob/checkin-scheduler/internal/config"
	"alcyxob/checkin-scheduler/internal/repository"
	"alcyxob/checkin-scheduler/internal/repository/memory"
	"alcyxob/checkin-scheduler/internal/repository/mongo"
	"alcyxob/checkin-scheduler/internal/repository/postgres"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// backend is the storage selected by database.driver.
type backend struct {
	checkIns      repository.CheckInRepository
	subscriptions repository.SubscriptionRepository
	close         func()
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, err := mongo.ConnectDB(ctx, cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		db := client.Database(cfg.Database.Name)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			mongo.EnsureCheckInIndexes(ctx, db)
			slog.Info("Index creation process completed")
		}()

		return &backend{
			checkIns:      mongo.NewMongoCheckInRepository(db),
			subscriptions: mongo.NewMongoSubscriptionRepository(db),
			close: func() {
				slog.Info("Disconnecting MongoDB")
				if err := mongo.DisconnectDB(client); err != nil {
					slog.Error("Failed to disconnect MongoDB", "error", err)
				}
			},
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{
			checkIns:      postgres.NewPostgresCheckInRepository(db),
			subscriptions: postgres.NewPostgresSubscriptionRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					slog.Error("Failed to close postgres pool", "error", err)
				}
			},
		}, nil

	default:
		slog.Warn("Using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		return &backend{
			checkIns:      store.CheckIns(),
			subscriptions: store.Subscriptions(),
			close:         func() {},
		}, nil
	}
}
