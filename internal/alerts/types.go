package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail      = "email:welcome"
	TaskQuotationReceived = "email:quotation_received"
	TaskQuotationAccepted = "email:quotation_accepted"
	TaskQuotationRejected = "email:quotation_rejected"
	TaskBookingReminder   = "email:booking_reminder"
	TaskBookingExpired    = "email:booking_expired"
	TaskBookingCancelled  = "email:booking_cancelled"
)

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID string    `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	SentAt time.Time `json:"sent_at"`
}

// Quotation received payload (sent to the job owner)
type QuotationReceivedPayload struct {
	QuotationID string    `json:"quotation_id"`
	JobID       string    `json:"job_id"`
	JobTitle    string    `json:"job_title"`
	ClientID    string    `json:"client_id"`
	ProviderID  string    `json:"provider_id"`
	Budget      int64     `json:"budget"`
	SentAt      time.Time `json:"sent_at"`
}

// Quotation outcome payload (sent to the provider on accept or reject)
type QuotationOutcomePayload struct {
	QuotationID string    `json:"quotation_id"`
	JobID       string    `json:"job_id"`
	JobTitle    string    `json:"job_title"`
	ProviderID  string    `json:"provider_id"`
	SentAt      time.Time `json:"sent_at"`
}

// Booking reminder payload (sent to either party ahead of the start date)
type BookingReminderPayload struct {
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	StartDate time.Time `json:"start_date"`
	SentAt    time.Time `json:"sent_at"`
}

// Booking expired payload (sent to either party when the sweeper expires it)
type BookingExpiredPayload struct {
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	SentAt    time.Time `json:"sent_at"`
}

// Booking cancelled payload (sent to the provider when the client cancels the job)
type BookingCancelledPayload struct {
	BookingID  string    `json:"booking_id"`
	ProviderID string    `json:"provider_id"`
	JobID      string    `json:"job_id"`
	JobTitle   string    `json:"job_title"`
	Reason     string    `json:"reason"`
	SentAt     time.Time `json:"sent_at"`
}
