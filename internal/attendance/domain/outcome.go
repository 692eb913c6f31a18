package domain

// Outcome is the per-event result of an ingestion.
type Outcome string

const (
	OutcomeInserted    Outcome = "INSERTED"
	OutcomeSkipped     Outcome = "SKIPPED"
	OutcomeNotFound    Outcome = "NOT_FOUND"
	OutcomeMissingSite Outcome = "MISSING_SITE"
	OutcomeFailed      Outcome = "FAILED"
)

// IsFailure reports whether the outcome counts toward failed.
func (o Outcome) IsFailure() bool {
	return o == OutcomeNotFound || o == OutcomeMissingSite || o == OutcomeFailed
}
