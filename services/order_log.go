package services

import (
	"context"
	"errors"
	"strings"

	"restaurant-order/db"
	"restaurant-order/models"

	"github.com/jackc/pgx/v5"
)

// EnsureSubmittedOrdersTable creates submitted_orders if missing (when migrate was not run).
func EnsureSubmittedOrdersTable(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS submitted_orders (
			reference UUID PRIMARY KEY,
			customer_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			address TEXT NOT NULL,
			items TEXT NOT NULL,
			total NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_submitted_orders_created_at ON submitted_orders(created_at);
	`)
	return err
}

func isOrdersRelationMissing(err error) bool {
	return err != nil && strings.Contains(err.Error(), "submitted_orders") && strings.Contains(err.Error(), "does not exist")
}

// RecordSubmittedOrder logs an accepted order. It is a no-op without a database.
func RecordSubmittedOrder(ctx context.Context, o models.SubmittedOrder) error {
	if db.Pool == nil {
		return nil
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO submitted_orders (reference, customer_name, phone, address, items, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reference) DO NOTHING`,
		o.Reference, o.Payload.Name, o.Payload.Phone, o.Payload.Address, o.Payload.Items, RoundMoney(o.Total),
	)
	if err != nil && isOrdersRelationMissing(err) {
		if ensureErr := EnsureSubmittedOrdersTable(ctx); ensureErr != nil {
			return ensureErr
		}
		return RecordSubmittedOrder(ctx, o)
	}
	return err
}

// GetSubmittedOrder loads a logged order by reference. ok is false if none exists.
func GetSubmittedOrder(ctx context.Context, reference string) (o models.SubmittedOrder, ok bool, err error) {
	if db.Pool == nil {
		return o, false, nil
	}
	o.Reference = reference
	err = db.Pool.QueryRow(ctx, `
		SELECT customer_name, phone, address, items, total::float8
		FROM submitted_orders WHERE reference = $1`,
		reference,
	).Scan(&o.Payload.Name, &o.Payload.Phone, &o.Payload.Address, &o.Payload.Items, &o.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SubmittedOrder{}, false, nil
		}
		return models.SubmittedOrder{}, false, err
	}
	return o, true, nil
}
