package services

import (
	"context"
	"errors"
	"fmt"

	"arepazo-bot/db"
	"arepazo-bot/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VerificationLog records payment proofs awaiting a manual admin decision.
type VerificationLog struct{}

func NewVerificationLog() *VerificationLog {
	return &VerificationLog{}
}

// Create inserts the record as pending and returns the generated id
// (first 8 chars of a uuid, short enough for the admin to reference).
func (s *VerificationLog) Create(ctx context.Context, rec *models.VerificationRecord) (string, error) {
	id := uuid.NewString()[:8]
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO verifications (id, customer_id, customer_name, order_items, amount, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, rec.CustomerID, rec.CustomerName, rec.OrderItems, rec.Amount, rec.PaymentMethod, models.VerificationPending,
	)
	if err != nil {
		return "", fmt.Errorf("create verification: %w", err)
	}
	return id, nil
}

func (s *VerificationLog) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := db.Pool.Exec(ctx, `UPDATE verifications SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update verification %s: %w", id, err)
	}
	return nil
}

func (s *VerificationLog) IsPending(ctx context.Context, id string) (bool, error) {
	var status string
	err := db.Pool.QueryRow(ctx, `SELECT status FROM verifications WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("verification %s status: %w", id, err)
	}
	return status == models.VerificationPending, nil
}

// LastPending returns the newest pending record, or nil, nil when there is
// none. The admin decision path resolves "1"/"2" replies against it.
func (s *VerificationLog) LastPending(ctx context.Context) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	err := db.Pool.QueryRow(ctx, `
		SELECT id, customer_id, customer_name, order_items, amount, payment_method, status, created_at
		FROM verifications WHERE status = $1
		ORDER BY created_at DESC LIMIT 1`,
		models.VerificationPending,
	).Scan(&rec.ID, &rec.CustomerID, &rec.CustomerName, &rec.OrderItems,
		&rec.Amount, &rec.PaymentMethod, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last pending verification: %w", err)
	}
	return &rec, nil
}
