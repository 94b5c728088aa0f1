package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarketplace = "M1"

// singleOrderMux serves one order with one line item.
func singleOrderMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/v0/orders", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"payload":{"Orders":[{
			"AmazonOrderId":"X1",
			"PurchaseDate":"2024-01-01T00:00:00Z",
			"LastUpdateDate":"2024-01-02T00:00:00Z",
			"OrderStatus":"Shipped",
			"OrderTotal":{"CurrencyCode":"USD","Amount":"19.99"},
			"MarketplaceId":"M1"
		}]}}`)
	})
	mux.HandleFunc("/orders/v0/orders/X1/orderItems", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"payload":{"OrderItems":[{
			"ASIN":"A1",
			"SellerSKU":"S1",
			"QuantityOrdered":2,
			"ItemPrice":{"CurrencyCode":"USD","Amount":"9.99"},
			"ItemTax":{"CurrencyCode":"USD","Amount":"0.50"}
		}]}}`)
	})
	return mux
}

func TestSyncOrdersMapsExampleOrder(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	client := newTestAPIClient(t, singleOrderMux())
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	res := engine.SyncOrders(context.Background(), nil, nil)

	require.False(t, res.Failed, "unexpected failure: %s", res.Err)
	assert.Equal(t, 1, res.SyncedOrders)

	order, ok := store.orders["X1"]
	require.True(t, ok)
	assert.Equal(t, "Shipped", order.OrderStatus)
	assert.InDelta(t, 19.99, order.OrderTotal, 0.001)
	assert.Equal(t, "M1", order.MarketplaceID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), order.PurchaseDate)

	item, ok := store.items["X1/S1"]
	require.True(t, ok)
	assert.Equal(t, "A1", item.ASIN)
	assert.Equal(t, 2, item.QuantityOrdered)
	assert.InDelta(t, 9.99, item.ItemPrice, 0.001)
	assert.InDelta(t, 0.50, item.ItemTax, 0.001)
}

func TestSyncOrdersEchoesExplicitWindow(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	client := newTestAPIClient(t, singleOrderMux())
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	res := engine.SyncOrders(context.Background(), &from, &to)

	require.False(t, res.Failed)
	assert.True(t, res.FromDate.Equal(from))
	assert.True(t, res.ToDate.Equal(to))
}

func TestSyncOrdersDefaultWindowIsSevenDays(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	client := newTestAPIClient(t, singleOrderMux())
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	before := time.Now().UTC()
	res := engine.SyncOrders(context.Background(), nil, nil)
	after := time.Now().UTC()

	require.False(t, res.Failed)
	assert.Equal(t, 7*24*time.Hour, res.ToDate.Sub(res.FromDate))
	assert.False(t, res.ToDate.Before(before))
	assert.False(t, res.ToDate.After(after))
}

func TestSyncOrdersIdempotent(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	client := newTestAPIClient(t, singleOrderMux())
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	res1 := engine.SyncOrders(context.Background(), nil, nil)
	res2 := engine.SyncOrders(context.Background(), nil, nil)

	require.False(t, res1.Failed)
	require.False(t, res2.Failed)
	assert.Equal(t, res1.SyncedOrders, res2.SyncedOrders)
	assert.Len(t, store.orders, 1)
	assert.Len(t, store.items, 1)
}

func TestSyncOrdersFollowsContinuationToken(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/v0/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("NextToken") == "page-2" {
			fmt.Fprint(w, `{"payload":{"Orders":[{
				"AmazonOrderId":"X2",
				"PurchaseDate":"2024-01-03T00:00:00Z",
				"LastUpdateDate":"2024-01-03T00:00:00Z",
				"OrderStatus":"Pending",
				"MarketplaceId":"M1"
			}]}}`)
			return
		}
		fmt.Fprint(w, `{"payload":{"NextToken":"page-2","Orders":[{
			"AmazonOrderId":"X1",
			"PurchaseDate":"2024-01-01T00:00:00Z",
			"LastUpdateDate":"2024-01-02T00:00:00Z",
			"OrderStatus":"Shipped",
			"MarketplaceId":"M1"
		}]}}`)
	})
	mux.HandleFunc("/orders/v0/orders/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"payload":{"OrderItems":[]}}`)
	})

	store := newFakeStore()
	client := newTestAPIClient(t, mux)
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	res := engine.SyncOrders(context.Background(), nil, nil)

	require.False(t, res.Failed, "unexpected failure: %s", res.Err)
	assert.Equal(t, 2, res.SyncedOrders)
	assert.Contains(t, store.orders, "X1")
	assert.Contains(t, store.orders, "X2")

	// Missing OrderTotal defaults to zero.
	assert.Zero(t, store.orders["X2"].OrderTotal)
}

func TestSyncOrdersRemoteFailureContained(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":"InternalFailure"}]}`, http.StatusInternalServerError)
	})

	store := newFakeStore()
	client := newTestAPIClient(t, mux)
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	res := engine.SyncOrders(context.Background(), nil, nil)

	assert.True(t, res.Failed)
	assert.Zero(t, res.SyncedOrders)
	assert.NotEmpty(t, res.Err)
	assert.Empty(t, store.orders)
}

func TestSyncOrdersStoreFailureContained(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.failWrites = true
	client := newTestAPIClient(t, singleOrderMux())
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	res := engine.SyncOrders(context.Background(), nil, nil)

	assert.True(t, res.Failed)
	assert.Zero(t, res.SyncedOrders)
	assert.Contains(t, res.Err, "store unavailable")
}

func TestSyncOrdersEmptyWindowIsCleanZero(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/v0/orders", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"payload":{"Orders":[]}}`)
	})

	store := newFakeStore()
	client := newTestAPIClient(t, mux)
	engine := NewOrderSyncEngine(client, store, nil, []string{testMarketplace})

	res := engine.SyncOrders(context.Background(), nil, nil)

	// Zero synced with no error is a distinct outcome from a failure.
	assert.False(t, res.Failed)
	assert.Empty(t, res.Err)
	assert.Zero(t, res.SyncedOrders)
}
