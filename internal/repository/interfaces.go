package repository

import (
	"context"

	"wttt-sync-worker/internal/model"
)

// SyncStore defines keyed write access for reconciled marketplace data.
// All upserts are idempotent under repeated application with identical
// input; each write is individually atomic.
type SyncStore interface {
	// UpsertOrder inserts or updates an order keyed by Amazon order id.
	UpsertOrder(ctx context.Context, order model.Order) error

	// UpsertOrderItem inserts or updates a line item keyed by
	// (Amazon order id, seller SKU). The owning order must exist.
	UpsertOrderItem(ctx context.Context, item model.OrderItem) error

	// UpsertInventory inserts or updates an inventory record keyed by
	// (ASIN, seller SKU, condition).
	UpsertInventory(ctx context.Context, rec model.InventoryRecord) error

	// InsertReportLog records a requested report and returns the log id.
	InsertReportLog(ctx context.Context, rl model.ReportLog) (int64, error)

	// Stats returns row counts and bookkeeping about the store.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}
