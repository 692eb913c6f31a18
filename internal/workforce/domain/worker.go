package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

// ExternalSystemFAS tags workers mirrored from the external access-control
// system.
const ExternalSystemFAS = "FAS"

var (
	ErrWorkerNotFound  = errors.New("worker not found")
	ErrWorkerDetached  = errors.New("worker is already detached")
	ErrMissingRequired = errors.New("missing required fields")
)

// Profile holds the externally-sourced fields of a worker.
type Profile struct {
	ExternalWorkerID string
	Name             string
	Phone            string
	DOB              string
	CompanyName      *string
	TradeType        *string
}

// MissingFields lists the blank required fields in payload order.
func (p Profile) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"externalWorkerId", p.ExternalWorkerID},
		{"name", p.Name},
		{"phone", p.Phone},
		{"dob", p.DOB},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Worker is a worker directory entry. Its id doubles as the internal user
// id that attendance records link to.
type Worker struct {
	sharedDomain.BaseAggregateRoot
	externalWorkerID string
	name             string
	phone            string
	dob              string
	companyName      *string
	tradeType        *string
	externalSystem   string
	siteID           *string
	detachedAt       *time.Time
}

// NewWorker creates an attached worker from a complete profile.
func NewWorker(p Profile, siteID string) (*Worker, error) {
	if missing := p.MissingFields(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}
	w := &Worker{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		externalSystem:    ExternalSystemFAS,
		siteID:            optional(siteID),
	}
	w.apply(p)
	return w, nil
}

// RehydrateWorker recreates a worker from persisted state.
func RehydrateWorker(
	id uuid.UUID,
	p Profile,
	externalSystem string,
	siteID *string,
	createdAt, updatedAt time.Time,
	detachedAt *time.Time,
) *Worker {
	w := &Worker{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		externalSystem: externalSystem,
		siteID:         siteID,
		detachedAt:     detachedAt,
	}
	w.apply(p)
	return w
}

func (w *Worker) apply(p Profile) {
	w.externalWorkerID = strings.TrimSpace(p.ExternalWorkerID)
	w.name = strings.TrimSpace(p.Name)
	w.phone = strings.TrimSpace(p.Phone)
	w.dob = strings.TrimSpace(p.DOB)
	w.companyName = trimmed(p.CompanyName)
	w.tradeType = trimmed(p.TradeType)
}

// Getters
func (w *Worker) ExternalWorkerID() string { return w.externalWorkerID }
func (w *Worker) Name() string             { return w.name }
func (w *Worker) Phone() string            { return w.phone }
func (w *Worker) DOB() string              { return w.dob }
func (w *Worker) CompanyName() *string     { return w.companyName }
func (w *Worker) TradeType() *string       { return w.tradeType }
func (w *Worker) ExternalSystem() string   { return w.externalSystem }
func (w *Worker) SiteID() *string          { return w.siteID }
func (w *Worker) DetachedAt() *time.Time   { return w.detachedAt }
func (w *Worker) IsDetached() bool         { return w.detachedAt != nil }

// Profile returns the externally-sourced fields.
func (w *Worker) Profile() Profile {
	return Profile{
		ExternalWorkerID: w.externalWorkerID,
		Name:             w.name,
		Phone:            w.phone,
		DOB:              w.dob,
		CompanyName:      w.companyName,
		TradeType:        w.tradeType,
	}
}

// Detach soft-removes the worker from the directory.
func (w *Worker) Detach() error {
	if w.detachedAt != nil {
		return ErrWorkerDetached
	}
	now := time.Now().UTC()
	w.detachedAt = &now
	w.Touch()
	w.AddDomainEvent(NewWorkerDetached(w))
	return nil
}

// MissingFieldsError reports the required fields absent from a payload.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrMissingRequired }

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}
