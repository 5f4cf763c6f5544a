package model

import "time"

type BookingState string

const (
	BookingPending   BookingState = "PENDING"
	BookingActive    BookingState = "ACTIVE"
	BookingCompleted BookingState = "COMPLETED"
	BookingExpired   BookingState = "EXPIRED"
	BookingDispute   BookingState = "DISPUTE"
	BookingCancelled BookingState = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s BookingState) Terminal() bool {
	switch s {
	case BookingCompleted, BookingExpired, BookingDispute, BookingCancelled:
		return true
	}
	return false
}

// Booking is the scheduled engagement created the instant a quotation is
// accepted. PENDING->ACTIVE and ACTIVE->COMPLETED each require both parties'
// request flags set; either party may move a live booking into DISPUTE.
type Booking struct {
	ID                string       `json:"id"`
	JobID             string       `json:"job_id"`
	QuotationID       string       `json:"quotation_id"`
	ClientID          string       `json:"client_id"`
	ServiceProviderID string       `json:"service_provider_id"`
	State             BookingState `json:"state"`
	StartDate         time.Time    `json:"start_date"`
	ClientStartReq    bool         `json:"client_start_requested"`
	ProviderStartReq  bool         `json:"sp_start_requested"`
	ClientFinishReq   bool         `json:"client_finish_requested"`
	ProviderFinishReq bool         `json:"sp_finish_requested"`
	DisputeReasonID   string       `json:"dispute_reason_id,omitempty"`
	DisputeNote       string       `json:"dispute_note,omitempty"`
	RemindedAt        *time.Time   `json:"reminded_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Party returns whether userID is the client or the provider on b.
// The second result is false when userID is neither.
func (b *Booking) Party(userID string) (AccountType, bool) {
	switch userID {
	case b.ClientID:
		return AccountClient, true
	case b.ServiceProviderID:
		return AccountServiceProvider, true
	}
	return "", false
}

// Counterparty returns the other side's user id, or "" when userID is not a
// party to the booking.
func (b *Booking) Counterparty(userID string) string {
	switch userID {
	case b.ClientID:
		return b.ServiceProviderID
	case b.ServiceProviderID:
		return b.ClientID
	}
	return ""
}
