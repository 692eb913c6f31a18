package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerQueries "github.com/felixgeelhaar/worksync/internal/ledger/application/queries"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	"github.com/google/uuid"
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

// ErrorsHandler serves ledger triage.
type ErrorsHandler struct {
	list           *ledgerQueries.ListErrorsHandler
	updateStatus   *ledgerCommands.UpdateStatusHandler
	incrementRetry *ledgerCommands.IncrementRetryHandler
	logger         *slog.Logger
}

// NewErrorsHandler creates a new ledger handler.
func NewErrorsHandler(
	list *ledgerQueries.ListErrorsHandler,
	updateStatus *ledgerCommands.UpdateStatusHandler,
	incrementRetry *ledgerCommands.IncrementRetryHandler,
	logger *slog.Logger,
) *ErrorsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorsHandler{
		list:           list,
		updateStatus:   updateStatus,
		incrementRetry: incrementRetry,
		logger:         logger,
	}
}

// List handles GET /api/v1/sync/errors
func (h *ErrorsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	result, err := h.list.Handle(r.Context(), ledgerQueries.ListErrorsQuery{
		Status:   r.URL.Query().Get("status"),
		SyncType: r.URL.Query().Get("syncType"),
		Limit:    limit,
		Offset:   offset,
	})
	switch {
	case errors.Is(err, ledgerDomain.ErrInvalidStatus), errors.Is(err, ledgerDomain.ErrInvalidSyncType):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to list sync errors", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sync errors")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UpdateStatus handles PATCH /api/v1/sync/errors/{id}
func (h *ErrorsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.updateStatus.Handle(r.Context(), ledgerCommands.UpdateStatusCommand{ID: id, Status: req.Status})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, ledgerDomain.ErrSyncErrorNotFound):
		writeError(w, http.StatusNotFound, "Sync error not found")
	case errors.Is(err, ledgerDomain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledgerDomain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "failed to update sync error", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update sync error")
	}
}

// IncrementRetry handles POST /api/v1/sync/errors/{id}/retries
func (h *ErrorsHandler) IncrementRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	count, err := h.incrementRetry.Handle(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]int{"retryCount": count})
	case errors.Is(err, ledgerDomain.ErrSyncErrorNotFound):
		writeError(w, http.StatusNotFound, "Sync error not found")
	default:
		h.logger.ErrorContext(r.Context(), "failed to increment retry count", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to increment retry count")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sync error id")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntParam(r *http.Request, key string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}
