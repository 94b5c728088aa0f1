package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"wttt-sync-worker/internal/model"
)

// MySQLSyncStore implements SyncStore using MySQL.
type MySQLSyncStore struct {
	db *sql.DB
}

// NewMySQLSyncStore creates a new MySQL sync store on top of an open
// connection pool. The caller owns the pool lifecycle.
func NewMySQLSyncStore(db *sql.DB) (*MySQLSyncStore, error) {
	if err := createMySQLSyncTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLSyncStore] Initialized")
	return &MySQLSyncStore{db: db}, nil
}

func createMySQLSyncTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS amazon_orders (
			amazon_order_id VARCHAR(32) PRIMARY KEY,
			purchase_date DATETIME NOT NULL,
			last_update_date DATETIME NOT NULL,
			order_status VARCHAR(32) NOT NULL,
			order_total DOUBLE NOT NULL DEFAULT 0,
			marketplace_id VARCHAR(32) NOT NULL,
			buyer_email VARCHAR(255),
			ship_service_level VARCHAR(64),
			synced_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS amazon_order_items (
			amazon_order_id VARCHAR(32) NOT NULL,
			seller_sku VARCHAR(128) NOT NULL,
			asin VARCHAR(16) NOT NULL,
			quantity_ordered INT NOT NULL DEFAULT 0,
			item_price DOUBLE NOT NULL DEFAULT 0,
			item_tax DOUBLE NOT NULL DEFAULT 0,
			synced_at DATETIME NOT NULL,
			PRIMARY KEY (amazon_order_id, seller_sku)
		)`,
		`CREATE TABLE IF NOT EXISTS amazon_inventory (
			asin VARCHAR(16) NOT NULL,
			seller_sku VARCHAR(128) NOT NULL,
			` + "`condition`" + ` VARCHAR(32) NOT NULL,
			fnsku VARCHAR(16),
			total_qty INT NOT NULL DEFAULT 0,
			fulfillable_qty INT NOT NULL DEFAULT 0,
			inbound_qty INT NOT NULL DEFAULT 0,
			synced_at DATETIME NOT NULL,
			PRIMARY KEY (asin, seller_sku, ` + "`condition`" + `)
		)`,
		`CREATE TABLE IF NOT EXISTS amazon_report_logs (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			report_type VARCHAR(64) NOT NULL,
			requested_at DATETIME NOT NULL,
			status VARCHAR(32) NOT NULL,
			report_id VARCHAR(64) NOT NULL UNIQUE
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// UpsertOrder inserts or updates an order keyed by Amazon order id.
func (s *MySQLSyncStore) UpsertOrder(ctx context.Context, order model.Order) error {
	query := `
		INSERT INTO amazon_orders (amazon_order_id, purchase_date, last_update_date, order_status,
			order_total, marketplace_id, buyer_email, ship_service_level, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			purchase_date = VALUES(purchase_date),
			last_update_date = VALUES(last_update_date),
			order_status = VALUES(order_status),
			order_total = VALUES(order_total),
			marketplace_id = VALUES(marketplace_id),
			buyer_email = VALUES(buyer_email),
			ship_service_level = VALUES(ship_service_level),
			synced_at = VALUES(synced_at)`

	_, err := s.db.ExecContext(ctx, query,
		order.AmazonOrderID, order.PurchaseDate.UTC(), order.LastUpdateDate.UTC(),
		order.OrderStatus, order.OrderTotal, order.MarketplaceID,
		nullable(order.BuyerEmail), nullable(order.ShipServiceLevel), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.AmazonOrderID, err)
	}
	return nil
}

// UpsertOrderItem inserts or updates a line item keyed by (order, seller SKU).
func (s *MySQLSyncStore) UpsertOrderItem(ctx context.Context, item model.OrderItem) error {
	query := `
		INSERT INTO amazon_order_items (amazon_order_id, seller_sku, asin, quantity_ordered,
			item_price, item_tax, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			asin = VALUES(asin),
			quantity_ordered = VALUES(quantity_ordered),
			item_price = VALUES(item_price),
			item_tax = VALUES(item_tax),
			synced_at = VALUES(synced_at)`

	_, err := s.db.ExecContext(ctx, query,
		item.AmazonOrderID, item.SellerSKU, item.ASIN,
		item.QuantityOrdered, item.ItemPrice, item.ItemTax, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert order item %s/%s: %w", item.AmazonOrderID, item.SellerSKU, err)
	}
	return nil
}

// UpsertInventory inserts or updates an inventory record.
func (s *MySQLSyncStore) UpsertInventory(ctx context.Context, rec model.InventoryRecord) error {
	query := `
		INSERT INTO amazon_inventory (asin, seller_sku, ` + "`condition`" + `, fnsku, total_qty,
			fulfillable_qty, inbound_qty, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			fnsku = VALUES(fnsku),
			total_qty = VALUES(total_qty),
			fulfillable_qty = VALUES(fulfillable_qty),
			inbound_qty = VALUES(inbound_qty),
			synced_at = VALUES(synced_at)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ASIN, rec.SellerSKU, rec.Condition, nullable(rec.FNSKU),
		rec.TotalQty, rec.FulfillableQty, rec.InboundQty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert inventory %s/%s: %w", rec.ASIN, rec.SellerSKU, err)
	}
	return nil
}

// InsertReportLog records a requested report and returns the log id.
func (s *MySQLSyncStore) InsertReportLog(ctx context.Context, rl model.ReportLog) (int64, error) {
	query := `
		INSERT INTO amazon_report_logs (report_type, requested_at, status, report_id)
		VALUES (?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		rl.ReportType, rl.RequestedAt.UTC(), rl.Status, rl.ReportID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report log %s: %w", rl.ReportID, err)
	}
	return result.LastInsertId()
}

// Stats returns row counts for the sync tables.
func (s *MySQLSyncStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	tables := map[string]string{
		"orders":      "amazon_orders",
		"order_items": "amazon_order_items",
		"inventory":   "amazon_inventory",
		"report_logs": "amazon_report_logs",
	}
	for key, table := range tables {
		var count int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[key] = count
	}

	return stats, nil
}

// Close is a no-op; the caller owns the underlying pool.
func (s *MySQLSyncStore) Close() error {
	return nil
}

// Ensure MySQLSyncStore implements SyncStore
var _ SyncStore = (*MySQLSyncStore)(nil)
