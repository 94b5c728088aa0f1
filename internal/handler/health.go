package handler

import (
	"net/http"
	"time"

	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/pkg/response"

	"github.com/redis/go-redis/v9"
)

// StartTime tracks when the worker started for uptime calculation
var StartTime = time.Now()

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	store   repository.SyncStore
	redis   *redis.Client
	version string
}

// New creates a new handler. redis may be nil when unavailable.
func New(store repository.SyncStore, redisClient *redis.Client, version string) *Handler {
	return &Handler{
		store:   store,
		redis:   redisClient,
		version: version,
	}
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{
		"service": "wttt-sync-worker",
		"version": h.version,
		"uptime":  time.Since(StartTime).String(),
	})
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Ready handles GET /ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := []Check{}

	storeStatus := "ok"
	if h.store == nil {
		storeStatus = "unavailable"
	} else if _, err := h.store.Stats(r.Context()); err != nil {
		storeStatus = "error"
	}
	checks = append(checks, Check{Name: "store", Status: storeStatus})

	redisStatus := "ok"
	if h.redis == nil {
		redisStatus = "unavailable"
	} else if err := h.redis.Ping(r.Context()).Err(); err != nil {
		redisStatus = "error"
	}
	checks = append(checks, Check{Name: "redis", Status: redisStatus})

	allReady := storeStatus == "ok"

	statusCode := http.StatusOK
	if !allReady {
		statusCode = http.StatusServiceUnavailable
	}

	response.JSON(w, statusCode, ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}
