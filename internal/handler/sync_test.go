package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"wttt-sync-worker/internal/handler"
	"wttt-sync-worker/internal/middleware"
	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/internal/router"
	"wttt-sync-worker/internal/service"
	"wttt-sync-worker/internal/spapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workerSecret = "test-worker-secret"

// newWorker wires a router against a fake remote API and a real SQLite
// store, mirroring the production object graph minus Redis.
func newWorker(t *testing.T, apiHandler http.Handler) (*httptest.Server, repository.SyncStore) {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(apiHandler)
	t.Cleanup(apiSrv.Close)

	store, err := repository.NewSQLiteSyncStore(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := spapi.NewTokenManager(spapi.TokenConfig{
		Endpoint:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	})
	client := spapi.NewClient(spapi.ClientConfig{
		Endpoint:        apiSrv.URL,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	}, tokens)

	marketplaces := []string{"M1"}
	syncHandler := handler.NewSyncHandler(
		service.NewOrderSyncEngine(client, store, nil, marketplaces),
		service.NewInventorySyncEngine(client, store, nil, marketplaces),
		service.NewReportEngine(client, store, marketplaces),
		nil,
		nil,
	)

	r := router.New(router.Config{
		Handler:        handler.New(store, nil, "test"),
		SyncHandler:    syncHandler,
		AuthMiddleware: middleware.NewWorkerAuth(workerSecret),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func orderAPIMux() *http.ServeMux {
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
			"ASIN":"A1","SellerSKU":"S1","QuantityOrdered":2,
			"ItemPrice":{"Amount":"9.99"},"ItemTax":{"Amount":"0.50"}
		}]}}`)
	})
	return mux
}

func doPost(t *testing.T, url, secret string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestSyncOrdersEndpoint(t *testing.T) {
	t.Parallel()
	srv, store := newWorker(t, orderAPIMux())

	resp := doPost(t, srv.URL+"/sync/orders", workerSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.True(t, env.Success)

	var result service.OrderSyncResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.SyncedOrders)
	assert.False(t, result.Failed)
	assert.Empty(t, result.Err)

	stats, err := store.Stats(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["orders"])
	assert.EqualValues(t, 1, stats["order_items"])
}

func TestSyncOrdersEndpointRejectsBadWindow(t *testing.T) {
	t.Parallel()
	srv, _ := newWorker(t, orderAPIMux())

	resp := doPost(t, srv.URL+"/sync/orders?from_date=yesterday", workerSecret)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSyncEndpointsRequireWorkerSecret(t *testing.T) {
	t.Parallel()
	var remoteCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		remoteCalls++
		fmt.Fprint(w, `{"payload":{"Orders":[]}}`)
	})
	srv, _ := newWorker(t, mux)

	for _, path := range []string{"/sync/orders", "/sync/inventory", "/sync/reports"} {
		resp := doPost(t, srv.URL+path, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp = doPost(t, srv.URL+path, "wrong-secret")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	// The engines were never invoked.
	assert.Zero(t, remoteCalls)
}

func TestSyncOrdersEndpointReportsFailureInPayload(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":"InternalFailure"}]}`, http.StatusInternalServerError)
	})
	srv, _ := newWorker(t, mux)

	resp := doPost(t, srv.URL+"/sync/orders", workerSecret)
	// Failure is reported through the payload, not the status code.
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result service.OrderSyncResult
	env := decodeEnvelope(t, resp)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Failed)
	assert.Zero(t, result.SyncedOrders)
	assert.NotEmpty(t, result.Err)
}

func TestSyncReportsEndpoint(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reportId":"rep-7"}`)
	})
	srv, store := newWorker(t, mux)

	resp := doPost(t, srv.URL+"/sync/reports?report_type=GET_MERCHANT_LISTINGS_ALL_DATA", workerSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result service.ReportResult
	env := decodeEnvelope(t, resp)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "rep-7", result.ReportID)
	assert.Positive(t, result.LogID)

	stats, err := store.Stats(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["report_logs"])
}

func TestSyncStatusEndpointPublic(t *testing.T) {
	t.Parallel()
	srv, _ := newWorker(t, http.NewServeMux())

	resp, err := http.Get(srv.URL + "/sync/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newWorker(t, http.NewServeMux())

	for _, path := range []string{"/health", "/ready", "/api/status"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
