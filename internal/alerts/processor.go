package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/workhub-dev/workhub/internal/store"
)

// Processor consumes alert tasks and turns them into outbound mail. Recipient
// addresses are resolved at delivery time so a user who changes their email
// between enqueue and delivery still gets the message.
type Processor struct {
	server *asynq.Server
	store  store.Store
	mailer *Mailer
	log    *slog.Logger
}

func NewProcessor(redisAddr string, st store.Store, mailer *Mailer, log *slog.Logger) *Processor {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			emailQueue: 10,
		},
	})
	return &Processor{server: srv, store: st, mailer: mailer, log: log}
}

// Start runs the worker loop in the background.
func (p *Processor) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, p.handleWelcome)
	mux.HandleFunc(TaskQuotationReceived, p.handleQuotationReceived)
	mux.HandleFunc(TaskQuotationAccepted, p.handleQuotationAccepted)
	mux.HandleFunc(TaskQuotationRejected, p.handleQuotationRejected)
	mux.HandleFunc(TaskBookingReminder, p.handleBookingReminder)
	mux.HandleFunc(TaskBookingExpired, p.handleBookingExpired)
	mux.HandleFunc(TaskBookingCancelled, p.handleBookingCancelled)

	go func() {
		if err := p.server.Run(mux); err != nil {
			p.log.Error("alert worker stopped", "err", err)
		}
	}()
}

func (p *Processor) Shutdown() {
	p.server.Shutdown()
}

func (p *Processor) sendTo(ctx context.Context, userID, subject, body string) error {
	u, err := p.store.UserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", userID, err)
	}
	if err := p.mailer.Send(u.Email, subject, body); err != nil {
		p.log.Error("mail send failed", "task_user", userID, "err", err)
		return err
	}
	return nil
}

func (p *Processor) handleWelcome(_ context.Context, t *asynq.Task) error {
	var pl WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s, thanks for joining WorkHub.\n\nPost a job or start quoting right away.", pl.Name)
	return p.mailer.Send(pl.Email, "Welcome to WorkHub", body)
}

func (p *Processor) handleQuotationReceived(ctx context.Context, t *asynq.Task) error {
	var pl QuotationReceivedPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	body := fmt.Sprintf("A provider quoted %d on your job %q. Open the app to review it.", pl.Budget, pl.JobTitle)
	return p.sendTo(ctx, pl.ClientID, "New quotation on your job", body)
}

func (p *Processor) handleQuotationAccepted(ctx context.Context, t *asynq.Task) error {
	var pl QuotationOutcomePayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	body := fmt.Sprintf("Your quotation on %q was accepted. A booking has been created.", pl.JobTitle)
	return p.sendTo(ctx, pl.ProviderID, "Quotation accepted", body)
}

func (p *Processor) handleQuotationRejected(ctx context.Context, t *asynq.Task) error {
	var pl QuotationOutcomePayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	body := fmt.Sprintf("Your quotation on %q was not selected this time.", pl.JobTitle)
	return p.sendTo(ctx, pl.ProviderID, "Quotation update", body)
}

func (p *Processor) handleBookingReminder(ctx context.Context, t *asynq.Task) error {
	var pl BookingReminderPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	body := fmt.Sprintf("Your booking starts on %s. Open the app to confirm the start when the work begins.",
		pl.StartDate.Format("Mon, 02 Jan 2006 15:04"))
	return p.sendTo(ctx, pl.UserID, "Upcoming booking reminder", body)
}

func (p *Processor) handleBookingExpired(ctx context.Context, t *asynq.Task) error {
	var pl BookingExpiredPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	return p.sendTo(ctx, pl.UserID, "Booking expired",
		"A booking lapsed without being started and has been expired.")
}

func (p *Processor) handleBookingCancelled(ctx context.Context, t *asynq.Task) error {
	var pl BookingCancelledPayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		return err
	}
	body := fmt.Sprintf("The client cancelled the job %q.", pl.JobTitle)
	if pl.Reason != "" {
		body += " Reason: " + pl.Reason
	}
	return p.sendTo(ctx, pl.ProviderID, "Booking cancelled", body)
}
