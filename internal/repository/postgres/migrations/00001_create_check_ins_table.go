package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateCheckInsTable, downCreateCheckInsTable)
}

func upCreateCheckInsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE check_ins (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled', 'rescheduled')),
			session_type TEXT NOT NULL DEFAULT 'regular',
			client_notes TEXT NOT NULL DEFAULT '',
			coach_notes TEXT NOT NULL DEFAULT '',
			feedback TEXT NOT NULL DEFAULT '',
			rescheduled_from TEXT REFERENCES check_ins(id) ON DELETE SET NULL,
			rescheduled_to TEXT REFERENCES check_ins(id) ON DELETE SET NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			completed_at TIMESTAMP WITH TIME ZONE
		);

		CREATE UNIQUE INDEX uniq_scheduled_slot ON check_ins (scheduled_at) WHERE status = 'scheduled';
		CREATE INDEX idx_check_ins_client_scheduled ON check_ins (client_id, scheduled_at);
		CREATE INDEX idx_check_ins_status_scheduled ON check_ins (status, scheduled_at);
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateCheckInsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS check_ins;`)
	return err
}
