package handler

import (
	"net/http"
	"time"

	"wttt-sync-worker/internal/cache"
	"wttt-sync-worker/internal/scheduler"
	"wttt-sync-worker/internal/service"
	"wttt-sync-worker/pkg/apierror"
	"wttt-sync-worker/pkg/response"
)

// SyncHandler exposes the on-demand trigger surface for the sync engines.
// Engine failures come back as 200 responses with the error embedded in
// the payload; callers inspect the body, not the status code.
type SyncHandler struct {
	orders    *service.OrderSyncEngine
	inventory *service.InventorySyncEngine
	reports   *service.ReportEngine
	status    *cache.StatusCache
	scheduler *scheduler.Scheduler
}

// NewSyncHandler creates a sync handler. status and sched may be nil.
func NewSyncHandler(
	orders *service.OrderSyncEngine,
	inventory *service.InventorySyncEngine,
	reports *service.ReportEngine,
	status *cache.StatusCache,
	sched *scheduler.Scheduler,
) *SyncHandler {
	return &SyncHandler{
		orders:    orders,
		inventory: inventory,
		reports:   reports,
		status:    status,
		scheduler: sched,
	}
}

// SyncOrders handles POST /sync/orders?from_date=...&to_date=...
func (h *SyncHandler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time

	if v := r.URL.Query().Get("from_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, apierror.BadRequest("from_date must be RFC3339"))
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("to_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, apierror.BadRequest("to_date must be RFC3339"))
			return
		}
		to = &t
	}

	result := h.orders.SyncOrders(r.Context(), from, to)
	response.OK(w, result)
}

// SyncInventory handles POST /sync/inventory
func (h *SyncHandler) SyncInventory(w http.ResponseWriter, r *http.Request) {
	result := h.inventory.SyncInventory(r.Context())
	response.OK(w, result)
}

// SyncReports handles POST /sync/reports?report_type=...
func (h *SyncHandler) SyncReports(w http.ResponseWriter, r *http.Request) {
	reportType := r.URL.Query().Get("report_type")

	result := h.reports.CreateReport(r.Context(), reportType)
	response.OK(w, result)
}

// Status handles GET /sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status": "healthy",
	}

	if h.status != nil {
		for _, jobID := range []string{service.JobOrders, service.JobInventory} {
			if t, ok, err := h.status.LastRun(r.Context(), jobID); err == nil && ok {
				payload["last_"+jobID] = t.Format(time.RFC3339)
			}
		}
	}

	if h.scheduler != nil {
		payload["jobs"] = h.scheduler.Jobs()
	}

	response.OK(w, payload)
}
