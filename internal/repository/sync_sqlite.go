package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"wttt-sync-worker/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteSyncStore implements SyncStore using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteSyncStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteSyncStore creates a new SQLite sync store.
// dbPath is the path to the SQLite database file (e.g., "./data/sync.db")
func NewSQLiteSyncStore(dbPath string) (*SQLiteSyncStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSyncTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteSyncStore] Initialized with database: %s", dbPath)
	return &SQLiteSyncStore{db: db}, nil
}

// createSyncTables creates the marketplace sync tables.
func createSyncTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS amazon_orders (
		amazon_order_id TEXT PRIMARY KEY,
		purchase_date DATETIME NOT NULL,
		last_update_date DATETIME NOT NULL,
		order_status TEXT NOT NULL,
		order_total REAL NOT NULL DEFAULT 0,
		marketplace_id TEXT NOT NULL,
		buyer_email TEXT,
		ship_service_level TEXT,
		synced_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS amazon_order_items (
		amazon_order_id TEXT NOT NULL,
		seller_sku TEXT NOT NULL,
		asin TEXT NOT NULL,
		quantity_ordered INTEGER NOT NULL DEFAULT 0,
		item_price REAL NOT NULL DEFAULT 0,
		item_tax REAL NOT NULL DEFAULT 0,
		synced_at DATETIME NOT NULL,
		PRIMARY KEY (amazon_order_id, seller_sku)
	);
	CREATE TABLE IF NOT EXISTS amazon_inventory (
		asin TEXT NOT NULL,
		seller_sku TEXT NOT NULL,
		condition TEXT NOT NULL,
		fnsku TEXT,
		total_qty INTEGER NOT NULL DEFAULT 0,
		fulfillable_qty INTEGER NOT NULL DEFAULT 0,
		inbound_qty INTEGER NOT NULL DEFAULT 0,
		synced_at DATETIME NOT NULL,
		PRIMARY KEY (asin, seller_sku, condition)
	);
	CREATE TABLE IF NOT EXISTS amazon_report_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_type TEXT NOT NULL,
		requested_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		report_id TEXT NOT NULL UNIQUE
	);
	CREATE INDEX IF NOT EXISTS idx_orders_last_update ON amazon_orders(last_update_date);
	CREATE INDEX IF NOT EXISTS idx_inventory_sku ON amazon_inventory(seller_sku);
	`
	_, err := db.Exec(query)
	return err
}

// UpsertOrder inserts or updates an order keyed by Amazon order id.
func (s *SQLiteSyncStore) UpsertOrder(ctx context.Context, order model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO amazon_orders (amazon_order_id, purchase_date, last_update_date, order_status,
			order_total, marketplace_id, buyer_email, ship_service_level, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(amazon_order_id) DO UPDATE SET
			purchase_date = excluded.purchase_date,
			last_update_date = excluded.last_update_date,
			order_status = excluded.order_status,
			order_total = excluded.order_total,
			marketplace_id = excluded.marketplace_id,
			buyer_email = excluded.buyer_email,
			ship_service_level = excluded.ship_service_level,
			synced_at = datetime('now')`

	_, err := s.db.ExecContext(ctx, query,
		order.AmazonOrderID, order.PurchaseDate.UTC(), order.LastUpdateDate.UTC(),
		order.OrderStatus, order.OrderTotal, order.MarketplaceID,
		nullable(order.BuyerEmail), nullable(order.ShipServiceLevel))
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.AmazonOrderID, err)
	}
	return nil
}

// UpsertOrderItem inserts or updates a line item keyed by (order, seller SKU).
func (s *SQLiteSyncStore) UpsertOrderItem(ctx context.Context, item model.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO amazon_order_items (amazon_order_id, seller_sku, asin, quantity_ordered,
			item_price, item_tax, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(amazon_order_id, seller_sku) DO UPDATE SET
			asin = excluded.asin,
			quantity_ordered = excluded.quantity_ordered,
			item_price = excluded.item_price,
			item_tax = excluded.item_tax,
			synced_at = datetime('now')`

	_, err := s.db.ExecContext(ctx, query,
		item.AmazonOrderID, item.SellerSKU, item.ASIN,
		item.QuantityOrdered, item.ItemPrice, item.ItemTax)
	if err != nil {
		return fmt.Errorf("failed to upsert order item %s/%s: %w", item.AmazonOrderID, item.SellerSKU, err)
	}
	return nil
}

// UpsertInventory inserts or updates an inventory record.
func (s *SQLiteSyncStore) UpsertInventory(ctx context.Context, rec model.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO amazon_inventory (asin, seller_sku, condition, fnsku, total_qty,
			fulfillable_qty, inbound_qty, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(asin, seller_sku, condition) DO UPDATE SET
			fnsku = excluded.fnsku,
			total_qty = excluded.total_qty,
			fulfillable_qty = excluded.fulfillable_qty,
			inbound_qty = excluded.inbound_qty,
			synced_at = datetime('now')`

	_, err := s.db.ExecContext(ctx, query,
		rec.ASIN, rec.SellerSKU, rec.Condition, nullable(rec.FNSKU),
		rec.TotalQty, rec.FulfillableQty, rec.InboundQty)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory %s/%s: %w", rec.ASIN, rec.SellerSKU, err)
	}
	return nil
}

// InsertReportLog records a requested report and returns the log id.
func (s *SQLiteSyncStore) InsertReportLog(ctx context.Context, rl model.ReportLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
func (s *SQLiteSyncStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

	var lastSync sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(synced_at) FROM amazon_orders").Scan(&lastSync); err == nil && lastSync.Valid {
		stats["last_order_sync"] = lastSync.String
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteSyncStore) Close() error {
	return s.db.Close()
}

// nullable maps empty strings to SQL NULL for optional columns.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// Ensure SQLiteSyncStore implements SyncStore
var _ SyncStore = (*SQLiteSyncStore)(nil)
