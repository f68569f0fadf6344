package models

import "time"

// Status is the investigation state machine status.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusSolved             Status = "SOLVED"
	StatusPartiallyExplained Status = "PARTIALLY_EXPLAINED"
	StatusUnsolved           Status = "UNSOLVED"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool { return s != StatusPending }

// SummaryRequest packages the ranked evidence handed to the language-model
// collaborator for root-cause narration.
type SummaryRequest struct {
	Symbol       string             `json:"symbol"`
	FactorScores map[string]float64 `json:"factor_scores"`
	TopEvidence  []EvidenceScore    `json:"top_evidence"`
}

// InvestigationState tracks one investigation from trigger to verdict.
// It is mutated only by the investigation controller and becomes
// immutable once Status leaves PENDING.
type InvestigationState struct {
	Symbol        string          `json:"symbol"`
	Signal        *AnomalySignal  `json:"signal"`
	Iteration     int             `json:"iteration"`
	QueriesIssued []string        `json:"queries_issued"`
	Evidence      []EvidenceScore `json:"evidence"`
	Confidence    float64         `json:"confidence"`
	Status        Status          `json:"status"`
	RootCause     string          `json:"root_cause,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
