package model

import "time"

// JobState is the published posting's lifecycle.
type JobState string

const (
	JobOpen   JobState = "OPEN"
	JobBooked JobState = "BOOKED"
	JobClosed JobState = "CLOSED"
)

// QuotationState on the job tells clients whether anyone has quoted yet.
type JobQuotationState string

const (
	JobOpenToQuote JobQuotationState = "OPEN_TO_QUOTE"
	JobQuoted      JobQuotationState = "QUOTED"
)

// Job is the published, quotable unit of work. New quotations are accepted
// only while State is OPEN.
type Job struct {
	ID             string            `json:"id"`
	TaskID         string            `json:"task_id"`
	ClientID       string            `json:"client_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Price          int64             `json:"price"`
	CategoryID     string            `json:"category_id,omitempty"`
	SubCategoryID  string            `json:"sub_category_id,omitempty"`
	SubSubCategory string            `json:"sub_sub_category_id,omitempty"`
	ServiceID      string            `json:"service_id,omitempty"`
	AddressID      string            `json:"address_id,omitempty"`
	Images         []string          `json:"images,omitempty"`
	ViewState      ViewState         `json:"view_state"`
	ProviderIDs    []string          `json:"provider_ids,omitempty"`
	State          JobState          `json:"state"`
	QuotationState JobQuotationState `json:"quotation_state"`
	StartDate      *time.Time        `json:"start_date,omitempty"`
	CancelReasonID string            `json:"cancel_reason_id,omitempty"`
	CancelNote     string            `json:"cancel_note,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
