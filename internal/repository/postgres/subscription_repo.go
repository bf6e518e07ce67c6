package postgres

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type postgresSubscriptionRepository struct {
	db *sqlx.DB
}

func NewPostgresSubscriptionRepository(db *sqlx.DB) repository.SubscriptionRepository {
	return &postgresSubscriptionRepository{db: db}
}

func (r *postgresSubscriptionRepository) GetByClientID(ctx context.Context, clientID string) (*domain.ClientSubscription, error) {
	var sub domain.ClientSubscription
	query := `SELECT client_id, plan_tier, cycle_anchor_date FROM subscriptions WHERE client_id = $1`
	if err := r.db.GetContext(ctx, &sub, query, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}
