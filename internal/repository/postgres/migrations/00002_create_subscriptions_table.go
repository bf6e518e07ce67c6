package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateSubscriptionsTable, downCreateSubscriptionsTable)
}

// Read-only mirror of the billing system's subscriptions.
func upCreateSubscriptionsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE subscriptions (
			client_id TEXT PRIMARY KEY,
			plan_tier TEXT NOT NULL CHECK (plan_tier IN ('foundation', 'growth', 'elite')),
			cycle_anchor_date DATE,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateSubscriptionsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS subscriptions;`)
	return err
}
