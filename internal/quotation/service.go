package quotation

import (
	"context"
	"log/slog"
	"time"

	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/realtime"
	"github.com/workhub-dev/workhub/internal/store"
)

// Notifier pushes realtime events to a user's live connections.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// Alerter queues durable notifications.
type Alerter interface {
	QuotationReceived(clientID, jobTitle string, q model.Quotation) error
	QuotationAccepted(jobTitle string, q model.Quotation) error
	QuotationRejected(jobTitle string, q model.Quotation) error
}

// Service runs the quotation engine: submission spends provider credit,
// acceptance books the job and settles every sibling bid.
type Service struct {
	store      store.Store
	notify     Notifier
	alerts     Alerter
	creditCost int64
	log        *slog.Logger
}

func NewService(st store.Store, n Notifier, a Alerter, creditCost int64, log *slog.Logger) *Service {
	return &Service{store: st, notify: n, alerts: a, creditCost: creditCost, log: log}
}

// visibleTo reports whether a provider may see (and quote) the job.
func visibleTo(j *model.Job, providerID string) bool {
	if j.ViewState == model.ViewPublic {
		return true
	}
	for _, id := range j.ProviderIDs {
		if id == providerID {
			return true
		}
	}
	return false
}

// Submit places a bid. The credit debit, the single-pending check and the
// insert commit together; the client hears about it only after that.
func (s *Service) Submit(ctx context.Context, providerID, jobID string, budget int64, proposedDate *time.Time, coverNote string) (*model.Quotation, error) {
	if budget <= 0 {
		return nil, store.ErrInvalidState
	}
	j, err := s.store.JobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(j, providerID) {
		return nil, store.ErrNotFound
	}
	if j.ClientID == providerID {
		return nil, store.ErrNotFound
	}

	q := &model.Quotation{
		JobID:             jobID,
		ServiceProviderID: providerID,
		Budget:            budget,
		ProposedDate:      proposedDate,
		CoverNote:         coverNote,
	}
	if err := s.store.SubmitQuotation(ctx, q, s.creditCost); err != nil {
		return nil, err
	}

	s.notify.Notify(j.ClientID, realtime.EventNewQuotation, q)
	if err := s.alerts.QuotationReceived(j.ClientID, j.Title, *q); err != nil {
		s.log.Error("quotation received alert", "quotation_id", q.ID, "err", err)
	}
	return q, nil
}

// Accept picks the winning bid. Everything the acceptance changes commits as
// one unit in the store; notifications follow the commit.
func (s *Service) Accept(ctx context.Context, clientID, jobID, quotationID, promotionID string) (*store.AcceptResult, error) {
	res, err := s.store.AcceptQuotation(ctx, jobID, quotationID, clientID, promotionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.EnsureConversation(ctx, jobID, clientID, res.Winner.ServiceProviderID); err != nil {
		s.log.Error("ensure conversation", "job_id", jobID, "err", err)
	}

	s.notify.Notify(res.Winner.ServiceProviderID, realtime.EventQuotationAccepted, res.Booking)
	if err := s.alerts.QuotationAccepted(res.JobTitle, *res.Winner); err != nil {
		s.log.Error("quotation accepted alert", "quotation_id", res.Winner.ID, "err", err)
	}
	for i := range res.Rejected {
		r := res.Rejected[i]
		s.notify.Notify(r.ServiceProviderID, realtime.EventQuotationRejected, r)
		if err := s.alerts.QuotationRejected(res.JobTitle, r); err != nil {
			s.log.Error("quotation rejected alert", "quotation_id", r.ID, "err", err)
		}
	}
	return res, nil
}

// Reject declines one bid without touching the job.
func (s *Service) Reject(ctx context.Context, clientID, jobID, quotationID, reasonID, note string) (*model.Quotation, error) {
	q, err := s.store.RejectQuotation(ctx, jobID, quotationID, clientID, reasonID, note)
	if err != nil {
		return nil, err
	}
	// The rejection is committed; a failed title lookup must not turn it
	// into an error, the alert just goes out without one.
	var jobTitle string
	if j, err := s.store.JobByID(ctx, jobID); err != nil {
		s.log.Error("job lookup after reject", "job_id", jobID, "err", err)
	} else {
		jobTitle = j.Title
	}
	s.notify.Notify(q.ServiceProviderID, realtime.EventQuotationRejected, q)
	if err := s.alerts.QuotationRejected(jobTitle, *q); err != nil {
		s.log.Error("quotation rejected alert", "quotation_id", q.ID, "err", err)
	}
	return q, nil
}

// MarkRead flags a quotation as seen by the job owner.
func (s *Service) MarkRead(ctx context.Context, clientID, quotationID string) error {
	q, err := s.store.QuotationByID(ctx, quotationID)
	if err != nil {
		return err
	}
	j, err := s.store.JobByID(ctx, q.JobID)
	if err != nil {
		return err
	}
	if j.ClientID != clientID {
		return store.ErrNotFound
	}
	return s.store.MarkQuotationRead(ctx, quotationID)
}

// ForJob lists quotations on one of the client's jobs.
func (s *Service) ForJob(ctx context.Context, jobID, clientID string, p store.Page) ([]model.Quotation, error) {
	return s.store.QuotationsForJob(ctx, jobID, clientID, p)
}

// Mine lists the provider's own quotations across jobs.
func (s *Service) Mine(ctx context.Context, providerID string, p store.Page) ([]model.Quotation, error) {
	return s.store.ProviderQuotations(ctx, providerID, p)
}
