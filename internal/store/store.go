package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sales-ledger/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListInventory retrieves all inventory items of an owner
func (s *Store) ListInventory(ctx context.Context, ownerID string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM inventory WHERE user_id = $1 ORDER BY name, size", ownerID)
	return items, err
}

// GetInventoryItem retrieves an inventory item by ID
func (s *Store) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM inventory WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateInventoryItem inserts a new inventory item
func (s *Store) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == "" {
		item.ID = newID()
	}
	query := `
		INSERT INTO inventory (id, user_id, name, size, cost_price_per_kg, selling_price_per_kg,
			stock_quantity_kg, total_pieces_supplied, total_pieces, minimum_stock_kg, barcode)
		VALUES (:id, :user_id, :name, :size, :cost_price_per_kg, :selling_price_per_kg,
			:stock_quantity_kg, :total_pieces_supplied, :total_pieces, :minimum_stock_kg, :barcode)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, item)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&item.CreatedAt, &item.UpdatedAt)
	}
	return rows.Err()
}

// GetStockSnapshots retrieves current stock for an owner's products in one query.
// Products of other owners are left out, as if they did not exist.
func (s *Store) GetStockSnapshots(ctx context.Context, ownerID string, productIDs []string) ([]models.StockSnapshot, error) {
	if len(productIDs) == 0 {
		return []models.StockSnapshot{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT id, name, stock_quantity_kg, total_pieces FROM inventory WHERE user_id = ? AND id IN (?)",
		ownerID, productIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var snaps []models.StockSnapshot
	err = s.db.SelectContext(ctx, &snaps, query, args...)
	return snaps, err
}

// UpsertStockSnapshots writes stock and piece counts for several products in one statement
func (s *Store) UpsertStockSnapshots(ctx context.Context, snaps []models.StockSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	ids := make([]string, len(snaps))
	stock := make([]string, len(snaps))
	pieces := make([]int64, len(snaps))
	for i, snap := range snaps {
		ids[i] = snap.ProductID
		stock[i] = snap.StockQuantityKg.String()
		pieces[i] = int64(snap.TotalPieces)
	}

	query := `
		UPDATE inventory AS i
		SET stock_quantity_kg = v.stock, total_pieces = v.pieces, updated_at = NOW()
		FROM unnest($1::uuid[], $2::numeric[], $3::int[]) AS v(id, stock, pieces)
		WHERE i.id = v.id`

	_, err := s.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(stock), pq.Array(pieces))
	return err
}

// AddStock increments stock and pieces for a supply delivery
func (s *Store) AddStock(ctx context.Context, productID string, kg decimal.Decimal, pieces int) (*models.InventoryItem, error) {
	query := `
		UPDATE inventory
		SET stock_quantity_kg = stock_quantity_kg + $1,
			total_pieces = total_pieces + $2,
			total_pieces_supplied = total_pieces_supplied + $2,
			updated_at = NOW()
		WHERE id = $3
		RETURNING *`

	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, query, kg, pieces, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory item %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
