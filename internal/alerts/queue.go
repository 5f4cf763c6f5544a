package alerts

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/workhub-dev/workhub/internal/model"
)

const emailQueue = "emails"

// Queue enqueues alert tasks onto Redis. Methods are best effort at the call
// site: callers log and move on when an enqueue fails, the triggering state
// change has already committed.
type Queue struct {
	client *asynq.Client
}

// NewQueue connects an asynq client to the given Redis address.
func NewQueue(redisAddr string) *Queue {
	return &Queue{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) enqueue(taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = q.client.Enqueue(asynq.NewTask(taskType, b), asynq.Queue(emailQueue))
	return err
}

// Welcome schedules a welcome email for a new account.
func (q *Queue) Welcome(userID, email, name string) error {
	return q.enqueue(TaskWelcomeEmail, WelcomeEmailPayload{
		UserID: userID, Name: name, Email: email, SentAt: time.Now(),
	})
}

// QuotationReceived tells the job owner a new quotation arrived.
func (q *Queue) QuotationReceived(clientID, jobTitle string, qt model.Quotation) error {
	return q.enqueue(TaskQuotationReceived, QuotationReceivedPayload{
		QuotationID: qt.ID,
		JobID:       qt.JobID,
		JobTitle:    jobTitle,
		ClientID:    clientID,
		ProviderID:  qt.ServiceProviderID,
		Budget:      qt.Budget,
		SentAt:      time.Now(),
	})
}

// QuotationAccepted tells the provider their quotation won.
func (q *Queue) QuotationAccepted(jobTitle string, qt model.Quotation) error {
	return q.enqueue(TaskQuotationAccepted, QuotationOutcomePayload{
		QuotationID: qt.ID, JobID: qt.JobID, JobTitle: jobTitle,
		ProviderID: qt.ServiceProviderID, SentAt: time.Now(),
	})
}

// QuotationRejected tells the provider their quotation lost.
func (q *Queue) QuotationRejected(jobTitle string, qt model.Quotation) error {
	return q.enqueue(TaskQuotationRejected, QuotationOutcomePayload{
		QuotationID: qt.ID, JobID: qt.JobID, JobTitle: jobTitle,
		ProviderID: qt.ServiceProviderID, SentAt: time.Now(),
	})
}

// BookingReminder nudges one booking party ahead of the start date.
func (q *Queue) BookingReminder(userID string, b model.Booking) error {
	return q.enqueue(TaskBookingReminder, BookingReminderPayload{
		BookingID: b.ID, UserID: userID, JobID: b.JobID,
		StartDate: b.StartDate, SentAt: time.Now(),
	})
}

// BookingExpired tells one booking party the booking lapsed unstarted.
func (q *Queue) BookingExpired(userID string, b model.Booking) error {
	return q.enqueue(TaskBookingExpired, BookingExpiredPayload{
		BookingID: b.ID, UserID: userID, JobID: b.JobID, SentAt: time.Now(),
	})
}

// BookingCancelled tells the provider the client cancelled the underlying job.
func (q *Queue) BookingCancelled(jobTitle, reason string, b model.Booking) error {
	return q.enqueue(TaskBookingCancelled, BookingCancelledPayload{
		BookingID: b.ID, ProviderID: b.ServiceProviderID, JobID: b.JobID,
		JobTitle: jobTitle, Reason: reason, SentAt: time.Now(),
	})
}
