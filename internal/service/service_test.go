package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wttt-sync-worker/internal/model"
	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/internal/spapi"
)

// fakeStore is an in-memory SyncStore recording upserts by natural key.
type fakeStore struct {
	mu         sync.Mutex
	orders     map[string]model.Order
	items      map[string]model.OrderItem
	inventory  map[string]model.InventoryRecord
	reportLogs []model.ReportLog
	failWrites bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    make(map[string]model.Order),
		items:     make(map[string]model.OrderItem),
		inventory: make(map[string]model.InventoryRecord),
	}
}

func (s *fakeStore) UpsertOrder(_ context.Context, order model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("store unavailable")
	}
	s.orders[order.AmazonOrderID] = order
	return nil
}

func (s *fakeStore) UpsertOrderItem(_ context.Context, item model.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("store unavailable")
	}
	s.items[item.AmazonOrderID+"/"+item.SellerSKU] = item
	return nil
}

func (s *fakeStore) UpsertInventory(_ context.Context, rec model.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("store unavailable")
	}
	s.inventory[rec.ASIN+"/"+rec.SellerSKU+"/"+rec.Condition] = rec
	return nil
}

func (s *fakeStore) InsertReportLog(_ context.Context, rl model.ReportLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return 0, fmt.Errorf("store unavailable")
	}
	rl.ID = int64(len(s.reportLogs) + 1)
	s.reportLogs = append(s.reportLogs, rl)
	return rl.ID, nil
}

func (s *fakeStore) Stats(context.Context) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"orders":      int64(len(s.orders)),
		"order_items": int64(len(s.items)),
		"inventory":   int64(len(s.inventory)),
		"report_logs": int64(len(s.reportLogs)),
	}, nil
}

func (s *fakeStore) Close() error { return nil }

var _ repository.SyncStore = (*fakeStore)(nil)

// newTestAPIClient builds an SP-API client against a fake remote mux plus
// a fake LWA endpoint.
func newTestAPIClient(t *testing.T, apiHandler http.Handler) *spapi.Client {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"bearer","expires_in":3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(apiHandler)
	t.Cleanup(apiSrv.Close)

	tm := spapi.NewTokenManager(spapi.TokenConfig{
		Endpoint:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	})
	return spapi.NewClient(spapi.ClientConfig{
		Endpoint:        apiSrv.URL,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	}, tm)
}
