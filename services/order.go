package services

import (
	"context"
	"errors"
	"fmt"

	"arepazo-bot/db"
	"arepazo-bot/models"

	"github.com/jackc/pgx/v5"
)

// OrderStore persists confirmed orders keyed by their human-readable code.
// The conversation engine only ever creates; the kitchen display reads and
// updates status afterwards.
type OrderStore struct{}

func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

func (s *OrderStore) Create(ctx context.Context, o *models.Order) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO orders (
			code, order_date, order_time, customer_id, customer_name,
			address, items, status, payment_method, cash_tendered, change_due, total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.Code, o.Date, o.Time, o.CustomerID, o.CustomerName,
		o.Address, o.Items, o.Status, o.PaymentMethod, o.CashTendered, o.ChangeDue, o.Total,
	)
	if err != nil {
		return fmt.Errorf("create order %s: %w", o.Code, err)
	}
	return nil
}

// FindByCode returns nil, nil when the code is unknown.
func (s *OrderStore) FindByCode(ctx context.Context, code string) (*models.Order, error) {
	var o models.Order
	err := db.Pool.QueryRow(ctx, `
		SELECT code, order_date, order_time, customer_id, customer_name,
		       address, items, status, payment_method, cash_tendered, change_due, total
		FROM orders WHERE code = $1`,
		code,
	).Scan(&o.Code, &o.Date, &o.Time, &o.CustomerID, &o.CustomerName,
		&o.Address, &o.Items, &o.Status, &o.PaymentMethod, &o.CashTendered, &o.ChangeDue, &o.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order %s: %w", code, err)
	}
	return &o, nil
}

// UpdateStatus returns false when no order has the given code.
func (s *OrderStore) UpdateStatus(ctx context.Context, code, status string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE code = $2`, status, code)
	if err != nil {
		return false, fmt.Errorf("update order %s status: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListCodes loads every stored code for the uniqueness check at generation time.
func (s *OrderStore) ListCodes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.Pool.Query(ctx, `SELECT code FROM orders`)
	if err != nil {
		return nil, fmt.Errorf("list order codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes[code] = struct{}{}
	}
	return codes, rows.Err()
}

// ListForDate returns the orders created on the given restaurant-local
// date, oldest first. Consumed by the kitchen display.
func (s *OrderStore) ListForDate(ctx context.Context, date string) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT code, order_date, order_time, customer_id, customer_name,
		       address, items, status, payment_method, cash_tendered, change_due, total
		FROM orders WHERE order_date = $1
		ORDER BY created_at`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", date, err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.Code, &o.Date, &o.Time, &o.CustomerID, &o.CustomerName,
			&o.Address, &o.Items, &o.Status, &o.PaymentMethod, &o.CashTendered, &o.ChangeDue, &o.Total); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// NewUniqueCode generates an order code not present in the store.
func (s *OrderStore) NewUniqueCode(ctx context.Context) (string, error) {
	existing, err := s.ListCodes(ctx)
	if err != nil {
		return "", err
	}
	return GenerateOrderCode(existing)
}
