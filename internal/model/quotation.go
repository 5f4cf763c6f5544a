package model

import "time"

type QuotationState string

const (
	QuotationPending  QuotationState = "PENDING"
	QuotationAccepted QuotationState = "ACCEPTED"
	QuotationRejected QuotationState = "REJECTED"
)

// Quotation is a provider's bid against a job. For a given
// (job, provider) pair at most one quotation may be PENDING at a time.
type Quotation struct {
	ID                string         `json:"id"`
	JobID             string         `json:"job_id"`
	ServiceProviderID string         `json:"service_provider_id"`
	Budget            int64          `json:"budget"`
	ProposedDate      *time.Time     `json:"proposed_date,omitempty"`
	CoverNote         string         `json:"cover_note,omitempty"`
	State             QuotationState `json:"state"`
	ReadByClient      bool           `json:"read_by_client"`
	RejectReasonID    string         `json:"reject_reason_id,omitempty"`
	RejectNote        string         `json:"reject_note,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
