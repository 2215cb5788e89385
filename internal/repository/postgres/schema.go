package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id           TEXT PRIMARY KEY,
		user_id      TEXT,
		name         TEXT NOT NULL,
		contact      TEXT NOT NULL,
		location_lng DOUBLE PRECISION NOT NULL,
		location_lat DOUBLE PRECISION NOT NULL,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS drivers_user_id_idx ON drivers (user_id)`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		id          TEXT PRIMARY KEY,
		order_id    TEXT NOT NULL,
		driver_id   TEXT NOT NULL REFERENCES drivers (id),
		status      TEXT NOT NULL,
		pickup_lng  DOUBLE PRECISION NOT NULL,
		pickup_lat  DOUBLE PRECISION NOT NULL,
		dropoff_lng DOUBLE PRECISION NOT NULL,
		dropoff_lat DOUBLE PRECISION NOT NULL,
		assigned_at TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		CHECK (updated_at >= assigned_at)
	)`,
	`CREATE INDEX IF NOT EXISTS deliveries_order_id_idx ON deliveries (order_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS deliveries_active_order_idx ON deliveries (order_id) WHERE status <> 'Delivered'`,
	`CREATE INDEX IF NOT EXISTS deliveries_driver_status_idx ON deliveries (driver_id, status)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
