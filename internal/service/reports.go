package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"wttt-sync-worker/internal/model"
	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/internal/spapi"
)

// DefaultReportType is requested when the caller does not name one.
const DefaultReportType = "GET_MERCHANT_LISTINGS_ALL_DATA"

// ReportResult is the outcome of a report creation request.
type ReportResult struct {
	ReportID string `json:"report_id,omitempty"`
	Status   string `json:"status,omitempty"`
	LogID    int64  `json:"log_id,omitempty"`
	Err      string `json:"error,omitempty"`
	Failed   bool   `json:"failed,omitempty"`
}

// ReportEngine requests asynchronous report jobs from the remote API and
// records a tracking log entry. Completion polling is owned elsewhere.
type ReportEngine struct {
	client         *spapi.Client
	store          repository.SyncStore
	marketplaceIDs []string
}

// NewReportEngine creates a report engine.
func NewReportEngine(client *spapi.Client, store repository.SyncStore, marketplaceIDs []string) *ReportEngine {
	return &ReportEngine{
		client:         client,
		store:          store,
		marketplaceIDs: marketplaceIDs,
	}
}

type createReportRequest struct {
	ReportType     string   `json:"reportType"`
	MarketplaceIDs []string `json:"marketplaceIds"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

// CreateReport requests report creation remotely and records a log row
// with status IN_PROGRESS. All failures are reported through the result,
// never raised.
func (e *ReportEngine) CreateReport(ctx context.Context, reportType string) ReportResult {
	if reportType == "" {
		reportType = DefaultReportType
	}

	res, err := e.create(ctx, reportType)
	if err != nil {
		log.Printf("[ReportEngine] Report request failed: %v", err)
		return ReportResult{Err: err.Error(), Failed: true}
	}
	return res
}

func (e *ReportEngine) create(ctx context.Context, reportType string) (ReportResult, error) {
	raw, err := e.client.Post(ctx, "/reports/2021-06-30/reports", createReportRequest{
		ReportType:     reportType,
		MarketplaceIDs: e.marketplaceIDs,
	})
	if err != nil {
		return ReportResult{}, err
	}

	var resp createReportResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ReportResult{}, &spapi.ValidationError{Field: "reportId", Reason: err.Error()}
	}
	if resp.ReportID == "" {
		return ReportResult{}, &spapi.ValidationError{Field: "reportId", Reason: "missing"}
	}

	logID, err := e.store.InsertReportLog(ctx, model.ReportLog{
		ReportType:  reportType,
		RequestedAt: time.Now().UTC(),
		Status:      model.ReportStatusInProgress,
		ReportID:    resp.ReportID,
	})
	if err != nil {
		return ReportResult{}, err
	}

	log.Printf("[ReportEngine] Requested report %s (type %s, log %d)", resp.ReportID, reportType, logID)
	return ReportResult{
		ReportID: resp.ReportID,
		Status:   model.ReportStatusInProgress,
		LogID:    logID,
	}, nil
}
