package services

import (
	"context"
	"errors"
	"fmt"

	"arepazo-bot/db"
	"arepazo-bot/models"

	"github.com/jackc/pgx/v5"
)

// HistoryStore tracks returning customers so the bot can skip asking for
// their name again.
type HistoryStore struct{}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Find returns nil, nil for a first-time customer.
func (s *HistoryStore) Find(ctx context.Context, customerID string) (*models.HistoryRecord, error) {
	var rec models.HistoryRecord
	err := db.Pool.QueryRow(ctx, `
		SELECT customer_id, name, visits FROM customer_history WHERE customer_id = $1`,
		customerID,
	).Scan(&rec.CustomerID, &rec.Name, &rec.Visits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find history %s: %w", customerID, err)
	}
	return &rec, nil
}

// Upsert records one more visit and refreshes the display name.
func (s *HistoryStore) Upsert(ctx context.Context, customerID, name string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO customer_history (customer_id, name, visits, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (customer_id) DO UPDATE SET
			name = EXCLUDED.name,
			visits = customer_history.visits + 1,
			updated_at = now()`,
		customerID, name,
	)
	if err != nil {
		return fmt.Errorf("upsert history %s: %w", customerID, err)
	}
	return nil
}
