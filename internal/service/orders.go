package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wttt-sync-worker/internal/cache"
	"wttt-sync-worker/internal/model"
	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/internal/spapi"
)

// Job ids for the recurring sync jobs.
const (
	JobOrders    = "sync-orders"
	JobInventory = "sync-inventory"
)

// defaultWindow is how far back an order sync reaches when no explicit
// window is supplied.
const defaultWindow = 7 * 24 * time.Hour

// OrderSyncResult is the outcome of one order reconciliation pass.
// Failed=true means the pass did not complete against live data; the
// error text is embedded instead of being returned as a Go error.
type OrderSyncResult struct {
	SyncedOrders int       `json:"synced_orders"`
	FromDate     time.Time `json:"from_date"`
	ToDate       time.Time `json:"to_date"`
	Err          string    `json:"error,omitempty"`
	Failed       bool      `json:"failed,omitempty"`
}

// OrderSyncEngine reconciles remote orders and their line items into the
// sync store.
type OrderSyncEngine struct {
	client         *spapi.Client
	store          repository.SyncStore
	status         *cache.StatusCache
	marketplaceIDs []string
}

// NewOrderSyncEngine creates an order sync engine. status may be nil when
// no Redis is available; last-run bookkeeping is then skipped.
func NewOrderSyncEngine(client *spapi.Client, store repository.SyncStore, status *cache.StatusCache, marketplaceIDs []string) *OrderSyncEngine {
	return &OrderSyncEngine{
		client:         client,
		store:          store,
		status:         status,
		marketplaceIDs: marketplaceIDs,
	}
}

// Remote order list payload shapes.
type ordersResponse struct {
	Payload struct {
		Orders    []spOrder `json:"Orders"`
		NextToken string    `json:"NextToken"`
	} `json:"payload"`
}

type orderItemsResponse struct {
	Payload struct {
		OrderItems []spOrderItem `json:"OrderItems"`
		NextToken  string        `json:"NextToken"`
	} `json:"payload"`
}

type spMoney struct {
	Amount       string `json:"Amount"`
	CurrencyCode string `json:"CurrencyCode"`
}

type spOrder struct {
	AmazonOrderID    string  `json:"AmazonOrderId"`
	PurchaseDate     string  `json:"PurchaseDate"`
	LastUpdateDate   string  `json:"LastUpdateDate"`
	OrderStatus      string  `json:"OrderStatus"`
	OrderTotal       spMoney `json:"OrderTotal"`
	MarketplaceID    string  `json:"MarketplaceId"`
	BuyerEmail       string  `json:"BuyerEmail"`
	ShipServiceLevel string  `json:"ShipServiceLevel"`
}

type spOrderItem struct {
	ASIN            string  `json:"ASIN"`
	SellerSKU       string  `json:"SellerSKU"`
	QuantityOrdered int     `json:"QuantityOrdered"`
	ItemPrice       spMoney `json:"ItemPrice"`
	ItemTax         spMoney `json:"ItemTax"`
}

// SyncOrders fetches orders created inside the window and reconciles them
// into the store. Nil bounds default to the last 7 days ending now (UTC).
// All failures are reported through the result, never raised.
func (e *OrderSyncEngine) SyncOrders(ctx context.Context, from, to *time.Time) OrderSyncResult {
	now := time.Now().UTC()
	fromDate := now.Add(-defaultWindow)
	toDate := now
	if from != nil {
		fromDate = from.UTC()
	}
	if to != nil {
		toDate = to.UTC()
	}

	count, err := e.syncWindow(ctx, fromDate, toDate)
	if err != nil {
		log.Printf("[OrderSyncEngine] Sync failed: %v", err)
		return OrderSyncResult{FromDate: fromDate, ToDate: toDate, Err: err.Error(), Failed: true}
	}

	if e.status != nil {
		if err := e.status.SetLastRun(ctx, JobOrders, time.Now()); err != nil {
			log.Printf("[OrderSyncEngine] Failed to record last run: %v", err)
		}
	}

	log.Printf("[OrderSyncEngine] Synced %d orders (%s .. %s)",
		count, fromDate.Format(time.RFC3339), toDate.Format(time.RFC3339))
	return OrderSyncResult{SyncedOrders: count, FromDate: fromDate, ToDate: toDate}
}

func (e *OrderSyncEngine) syncWindow(ctx context.Context, from, to time.Time) (int, error) {
	orders, err := e.fetchOrders(ctx, from, to)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, o := range orders {
		order, err := mapOrder(o)
		if err != nil {
			return 0, err
		}
		if err := e.store.UpsertOrder(ctx, order); err != nil {
			return 0, err
		}

		items, err := e.fetchOrderItems(ctx, order.AmazonOrderID)
		if err != nil {
			return 0, err
		}
		for _, it := range items {
			item, err := mapOrderItem(order.AmazonOrderID, it)
			if err != nil {
				return 0, err
			}
			if err := e.store.UpsertOrderItem(ctx, item); err != nil {
				return 0, err
			}
		}

		count++
	}
	return count, nil
}

// fetchOrders pulls the full order list for the window, following
// continuation tokens until the remote side is exhausted.
func (e *OrderSyncEngine) fetchOrders(ctx context.Context, from, to time.Time) ([]spOrder, error) {
	var orders []spOrder
	next := ""
	for {
		query := url.Values{}
		if next != "" {
			query.Set("NextToken", next)
		} else {
			query.Set("MarketplaceIds", strings.Join(e.marketplaceIDs, ","))
			query.Set("CreatedAfter", from.Format(time.RFC3339))
			query.Set("CreatedBefore", to.Format(time.RFC3339))
		}

		raw, err := e.client.Get(ctx, "/orders/v0/orders", query)
		if err != nil {
			return nil, err
		}

		var resp ordersResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, &spapi.ValidationError{Field: "payload.Orders", Reason: err.Error()}
		}

		orders = append(orders, resp.Payload.Orders...)
		if resp.Payload.NextToken == "" {
			return orders, nil
		}
		next = resp.Payload.NextToken
	}
}

func (e *OrderSyncEngine) fetchOrderItems(ctx context.Context, orderID string) ([]spOrderItem, error) {
	var items []spOrderItem
	next := ""
	for {
		query := url.Values{}
		if next != "" {
			query.Set("NextToken", next)
		}

		raw, err := e.client.Get(ctx, fmt.Sprintf("/orders/v0/orders/%s/orderItems", orderID), query)
		if err != nil {
			return nil, err
		}

		var resp orderItemsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, &spapi.ValidationError{Field: "payload.OrderItems", Reason: err.Error()}
		}

		items = append(items, resp.Payload.OrderItems...)
		if resp.Payload.NextToken == "" {
			return items, nil
		}
		next = resp.Payload.NextToken
	}
}

func mapOrder(o spOrder) (model.Order, error) {
	if o.AmazonOrderID == "" {
		return model.Order{}, &spapi.ValidationError{Field: "AmazonOrderId", Reason: "missing"}
	}
	purchase, err := parseRemoteTime("PurchaseDate", o.PurchaseDate)
	if err != nil {
		return model.Order{}, err
	}
	lastUpdate, err := parseRemoteTime("LastUpdateDate", o.LastUpdateDate)
	if err != nil {
		return model.Order{}, err
	}

	return model.Order{
		AmazonOrderID:    o.AmazonOrderID,
		PurchaseDate:     purchase,
		LastUpdateDate:   lastUpdate,
		OrderStatus:      o.OrderStatus,
		OrderTotal:       parseAmount(o.OrderTotal),
		MarketplaceID:    o.MarketplaceID,
		BuyerEmail:       o.BuyerEmail,
		ShipServiceLevel: o.ShipServiceLevel,
	}, nil
}

func mapOrderItem(orderID string, it spOrderItem) (model.OrderItem, error) {
	if it.SellerSKU == "" {
		return model.OrderItem{}, &spapi.ValidationError{Field: "SellerSKU", Reason: "missing"}
	}
	return model.OrderItem{
		AmazonOrderID:   orderID,
		ASIN:            it.ASIN,
		SellerSKU:       it.SellerSKU,
		QuantityOrdered: it.QuantityOrdered,
		ItemPrice:       parseAmount(it.ItemPrice),
		ItemTax:         parseAmount(it.ItemTax),
	}, nil
}

// parseAmount coerces a remote monetary amount, defaulting to zero when
// the field is absent or malformed.
func parseAmount(m spMoney) float64 {
	if m.Amount == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m.Amount, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseRemoteTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &spapi.ValidationError{Field: field, Reason: "missing"}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &spapi.ValidationError{Field: field, Reason: err.Error()}
	}
	return t.UTC(), nil
}
