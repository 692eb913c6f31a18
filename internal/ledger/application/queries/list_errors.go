package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SyncErrorDTO is the read model of a ledger entry.
type SyncErrorDTO struct {
	ID           uuid.UUID     `json:"id"`
	SyncType     string        `json:"syncType"`
	Detail       domain.Detail `json:"detail"`
	ErrorCode    *string       `json:"errorCode"`
	ErrorMessage string        `json:"errorMessage"`
	SiteID       *string       `json:"siteId"`
	RetryCount   int           `json:"retryCount"`
	Status       string        `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	ResolvedAt   *time.Time    `json:"resolvedAt"`
}

// ListErrorsQuery filters and paginates the ledger. Empty filters match
// everything.
type ListErrorsQuery struct {
	Status   string
	SyncType string
	Limit    int
	Offset   int
}

// ListErrorsResult is one page of ledger entries.
type ListErrorsResult struct {
	Errors []SyncErrorDTO `json:"errors"`
	Total  int            `json:"total"`
}

// ListErrorsHandler handles the ListErrorsQuery.
type ListErrorsHandler struct {
	errorRepo domain.ErrorRepository
}

// NewListErrorsHandler creates a new ListErrorsHandler.
func NewListErrorsHandler(errorRepo domain.ErrorRepository) *ListErrorsHandler {
	return &ListErrorsHandler{errorRepo: errorRepo}
}

// Handle executes the ListErrorsQuery.
func (h *ListErrorsHandler) Handle(ctx context.Context, query ListErrorsQuery) (*ListErrorsResult, error) {
	filter := domain.ErrorFilter{
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if query.Status != "" {
		status, err := domain.ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if query.SyncType != "" {
		syncType, err := domain.ParseSyncType(query.SyncType)
		if err != nil {
			return nil, err
		}
		filter.SyncType = &syncType
	}

	entries, total, err := h.errorRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &ListErrorsResult{
		Errors: make([]SyncErrorDTO, 0, len(entries)),
		Total:  total,
	}
	for _, e := range entries {
		result.Errors = append(result.Errors, ToDTO(e))
	}
	return result, nil
}

// ToDTO converts a ledger entry to its read model.
func ToDTO(e *domain.SyncError) SyncErrorDTO {
	return SyncErrorDTO{
		ID:           e.ID(),
		SyncType:     string(e.SyncType()),
		Detail:       e.Detail(),
		ErrorCode:    e.ErrorCode(),
		ErrorMessage: e.ErrorMessage(),
		SiteID:       e.SiteID(),
		RetryCount:   e.RetryCount(),
		Status:       string(e.Status()),
		CreatedAt:    e.CreatedAt(),
		UpdatedAt:    e.UpdatedAt(),
		ResolvedAt:   e.ResolvedAt(),
	}
}
