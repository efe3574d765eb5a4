package store

import (
	"context"
	"fmt"
)

// schema creates the tables the ledger needs. Row ownership is carried by
// user_id; sale_items and payments are owned through their sale.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		size TEXT NOT NULL DEFAULT '',
		cost_price_per_kg NUMERIC(14,2) NOT NULL DEFAULT 0,
		selling_price_per_kg NUMERIC(14,2) NOT NULL DEFAULT 0,
		stock_quantity_kg NUMERIC(14,3) NOT NULL DEFAULT 0,
		total_pieces_supplied INTEGER NOT NULL DEFAULT 0,
		total_pieces INTEGER NOT NULL DEFAULT 0,
		minimum_stock_kg NUMERIC(14,3) NOT NULL DEFAULT 0,
		barcode TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		customer_id UUID REFERENCES customers(id) ON DELETE SET NULL,
		payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'card', 'transfer', 'credit')),
		status TEXT NOT NULL DEFAULT 'completed' CHECK (status IN ('pending', 'completed', 'cancelled')),
		total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		amount_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
		discount NUMERIC(14,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sale_id UUID NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES inventory(id),
		quantity NUMERIC(14,3) NOT NULL CHECK (quantity >= 0),
		unit_price NUMERIC(14,2) NOT NULL,
		total_price NUMERIC(14,2) NOT NULL,
		pieces_sold INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sale_id UUID NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		amount NUMERIC(14,2) NOT NULL,
		payment_method TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_user_created ON sales (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items (sale_id)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_user ON inventory (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_sale ON payments (sale_id)`,
}

// Migrate creates any missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
