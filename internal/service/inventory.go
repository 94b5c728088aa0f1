package service

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"time"

	"wttt-sync-worker/internal/cache"
	"wttt-sync-worker/internal/model"
	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/internal/spapi"
)

// InventorySyncResult is the outcome of one inventory reconciliation pass.
type InventorySyncResult struct {
	SyncedItems int    `json:"synced_items"`
	Err         string `json:"error,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
}

// InventorySyncEngine reconciles remote FBA inventory summaries into the
// sync store.
type InventorySyncEngine struct {
	client         *spapi.Client
	store          repository.SyncStore
	status         *cache.StatusCache
	marketplaceIDs []string
}

// NewInventorySyncEngine creates an inventory sync engine. status may be
// nil when no Redis is available.
func NewInventorySyncEngine(client *spapi.Client, store repository.SyncStore, status *cache.StatusCache, marketplaceIDs []string) *InventorySyncEngine {
	return &InventorySyncEngine{
		client:         client,
		store:          store,
		status:         status,
		marketplaceIDs: marketplaceIDs,
	}
}

type inventoryResponse struct {
	Payload struct {
		InventorySummaries []spInventorySummary `json:"inventorySummaries"`
	} `json:"payload"`
	Pagination struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

type spInventorySummary struct {
	ASIN                string `json:"asin"`
	FNSKU               string `json:"fnsku"`
	SellerSKU           string `json:"sellerSku"`
	Condition           string `json:"condition"`
	TotalQuantity       int    `json:"totalQuantity"`
	FulfillableQuantity int    `json:"fulfillableQuantity"`
	InboundQuantity     int    `json:"inboundQuantity"`
}

// SyncInventory fetches all inventory summaries for the configured
// marketplaces and reconciles them into the store. All failures are
// reported through the result, never raised.
func (e *InventorySyncEngine) SyncInventory(ctx context.Context) InventorySyncResult {
	count, err := e.sync(ctx)
	if err != nil {
		log.Printf("[InventorySyncEngine] Sync failed: %v", err)
		return InventorySyncResult{Err: err.Error(), Failed: true}
	}

	if e.status != nil {
		if err := e.status.SetLastRun(ctx, JobInventory, time.Now()); err != nil {
			log.Printf("[InventorySyncEngine] Failed to record last run: %v", err)
		}
	}

	log.Printf("[InventorySyncEngine] Synced %d inventory records", count)
	return InventorySyncResult{SyncedItems: count}
}

func (e *InventorySyncEngine) sync(ctx context.Context) (int, error) {
	count := 0
	next := ""
	for {
		query := url.Values{}
		query.Set("MarketplaceIds", strings.Join(e.marketplaceIDs, ","))
		query.Set("Details", "true")
		if next != "" {
			query.Set("nextToken", next)
		}

		raw, err := e.client.Get(ctx, "/fba/inventory/v1/summaries", query)
		if err != nil {
			return 0, err
		}

		var resp inventoryResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return 0, &spapi.ValidationError{Field: "payload.inventorySummaries", Reason: err.Error()}
		}

		for _, item := range resp.Payload.InventorySummaries {
			rec, err := mapInventory(item)
			if err != nil {
				return 0, err
			}
			if err := e.store.UpsertInventory(ctx, rec); err != nil {
				return 0, err
			}
			count++
		}

		if resp.Pagination.NextToken == "" {
			return count, nil
		}
		next = resp.Pagination.NextToken
	}
}

func mapInventory(item spInventorySummary) (model.InventoryRecord, error) {
	if item.ASIN == "" || item.SellerSKU == "" {
		return model.InventoryRecord{}, &spapi.ValidationError{Field: "asin/sellerSku", Reason: "missing"}
	}
	return model.InventoryRecord{
		ASIN:           item.ASIN,
		FNSKU:          item.FNSKU,
		SellerSKU:      item.SellerSKU,
		Condition:      item.Condition,
		TotalQty:       clampQty(item.TotalQuantity),
		FulfillableQty: clampQty(item.FulfillableQuantity),
		InboundQty:     clampQty(item.InboundQuantity),
	}, nil
}

// clampQty coerces remote quantities to non-negative integers.
func clampQty(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
