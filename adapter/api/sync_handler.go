package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	attendanceCommands "github.com/felixgeelhaar/worksync/internal/attendance/application/commands"
	attendanceDomain "github.com/felixgeelhaar/worksync/internal/attendance/domain"
	healthQueries "github.com/felixgeelhaar/worksync/internal/health/application/queries"
	"github.com/felixgeelhaar/worksync/internal/idempotency"
	workforceCommands "github.com/felixgeelhaar/worksync/internal/workforce/application/commands"
)

// Idempotency headers.
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

type attendanceEventRequest struct {
	ExternalEventID  string  `json:"externalEventId"`
	ExternalWorkerID string  `json:"externalWorkerId"`
	CheckinAt        string  `json:"checkinAt"`
	SiteID           *string `json:"siteId"`
}

type ingestRequest struct {
	Events []attendanceEventRequest `json:"events"`
}

type workerRequest struct {
	ExternalWorkerID string  `json:"externalWorkerId"`
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	DOB              string  `json:"dob"`
	CompanyName      *string `json:"companyName"`
	TradeType        *string `json:"tradeType"`
}

type syncWorkersRequest struct {
	SiteID  string          `json:"siteId"`
	Workers []workerRequest `json:"workers"`
}

// SyncHandler serves the push endpoints of the external system and the
// status view.
type SyncHandler struct {
	ingest       *attendanceCommands.IngestHandler
	syncWorkers  *workforceCommands.SyncWorkersHandler
	deleteWorker *workforceCommands.DeleteWorkerHandler
	status       *healthQueries.GetSyncStatusHandler
	guard        *idempotency.Guard
	logger       *slog.Logger
}

// SyncHandlerConfig holds dependencies for the sync handler.
type SyncHandlerConfig struct {
	Ingest       *attendanceCommands.IngestHandler
	SyncWorkers  *workforceCommands.SyncWorkersHandler
	DeleteWorker *workforceCommands.DeleteWorkerHandler
	Status       *healthQueries.GetSyncStatusHandler
	Guard        *idempotency.Guard
	Logger       *slog.Logger
}

// NewSyncHandler creates a new sync handler. A nil guard disables replay.
func NewSyncHandler(cfg SyncHandlerConfig) *SyncHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SyncHandler{
		ingest:       cfg.Ingest,
		syncWorkers:  cfg.SyncWorkers,
		deleteWorker: cfg.DeleteWorker,
		status:       cfg.Status,
		guard:        cfg.Guard,
		logger:       cfg.Logger,
	}
}

// IngestAttendance handles POST /api/v1/sync/attendance
func (h *SyncHandler) IngestAttendance(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events := make([]attendanceDomain.ExternalEvent, len(req.Events))
	for i, e := range req.Events {
		checkinAt, err := time.Parse(time.RFC3339, strings.TrimSpace(e.CheckinAt))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("events[%d].checkinAt: expected an RFC 3339 timestamp", i))
			return
		}
		events[i] = attendanceDomain.ExternalEvent{
			ExternalEventID:  e.ExternalEventID,
			ExternalWorkerID: e.ExternalWorkerID,
			CheckinAt:        checkinAt,
			SiteID:           e.SiteID,
		}
	}
	cmd := attendanceCommands.IngestCommand{Events: events, Source: attendanceDomain.SourceFASPush}

	compute := func(ctx context.Context) ([]byte, error) {
		result, err := h.ingest.Handle(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}

	var (
		body     []byte
		replayed bool
		err      error
	)
	if h.guard != nil {
		body, replayed, err = h.guard.Run(r.Context(), r.Header.Get(IdempotencyKeyHeader), compute)
	} else {
		body, err = compute(r.Context())
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to ingest attendance", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to ingest attendance")
		return
	}

	if replayed {
		w.Header().Set(IdempotentReplayedHeader, "true")
	}
	writeRawJSON(w, http.StatusOK, body)
}

// SyncWorkers handles POST /api/v1/sync/workers
func (h *SyncHandler) SyncWorkers(w http.ResponseWriter, r *http.Request) {
	var req syncWorkersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payloads := make([]workforceCommands.WorkerPayload, len(req.Workers))
	for i, p := range req.Workers {
		payloads[i] = workforceCommands.WorkerPayload{
			ExternalWorkerID: p.ExternalWorkerID,
			Name:             p.Name,
			Phone:            p.Phone,
			DOB:              p.DOB,
			CompanyName:      p.CompanyName,
			TradeType:        p.TradeType,
		}
	}

	result, err := h.syncWorkers.Handle(r.Context(), workforceCommands.SyncWorkersCommand{
		SiteID:  strings.TrimSpace(req.SiteID),
		Workers: payloads,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to sync workers", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sync workers")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteWorker handles DELETE /api/v1/sync/workers/{externalWorkerId}
func (h *SyncHandler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	externalWorkerID := strings.TrimSpace(r.PathValue("externalWorkerId"))
	if externalWorkerID == "" {
		writeError(w, http.StatusBadRequest, "externalWorkerId is required")
		return
	}

	result, err := h.deleteWorker.Handle(r.Context(), externalWorkerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete worker", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete worker")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Status handles GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Handle(r.Context()))
}
