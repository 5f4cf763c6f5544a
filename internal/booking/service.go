package booking

import (
	"context"
	"log/slog"

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
	BookingReminder(userID string, b model.Booking) error
	BookingExpired(userID string, b model.Booking) error
}

// Service runs the booking handshake. Start and finish each need both
// parties; the flag bookkeeping and the state decision live in the store so
// concurrent confirmations cannot double-fire.
type Service struct {
	store  store.Store
	notify Notifier
	log    *slog.Logger
}

func NewService(st store.Store, n Notifier, log *slog.Logger) *Service {
	return &Service{store: st, notify: n, log: log}
}

// notifyBoth announces a completed transition to both parties, so the
// actor's own devices see it too.
func (s *Service) notifyBoth(b *model.Booking, event string) {
	s.notify.Notify(b.ClientID, event, b)
	s.notify.Notify(b.ServiceProviderID, event, b)
}

// Get returns a booking to one of its parties.
func (s *Service) Get(ctx context.Context, id, userID string) (*model.Booking, error) {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := b.Party(userID); !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

// List returns the user's bookings on either side.
func (s *Service) List(ctx context.Context, userID string, p store.Page) ([]model.Booking, error) {
	return s.store.ListBookings(ctx, userID, p)
}

// RequestStart records the actor's start confirmation. When the counterparty
// already confirmed, the booking goes ACTIVE.
func (s *Service) RequestStart(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	b, started, err := s.store.RequestStart(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if started {
		s.notifyBoth(b, realtime.EventBookingStarted)
	} else {
		s.notify.Notify(b.Counterparty(actorID), realtime.EventBookingStartPending, b)
	}
	return b, nil
}

// DenyStart clears both start flags, resetting the handshake.
func (s *Service) DenyStart(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	b, err := s.store.DenyStart(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(b.Counterparty(actorID), realtime.EventBookingStartDenied, b)
	return b, nil
}

// RequestFinish mirrors RequestStart on an ACTIVE booking. Completion also
// closes the underlying job.
func (s *Service) RequestFinish(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	b, finished, err := s.store.RequestFinish(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if finished {
		s.notifyBoth(b, realtime.EventBookingFinished)
	} else {
		s.notify.Notify(b.Counterparty(actorID), realtime.EventBookingFinishPending, b)
	}
	return b, nil
}

// DenyFinish clears both finish flags.
func (s *Service) DenyFinish(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	b, err := s.store.DenyFinish(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(b.Counterparty(actorID), realtime.EventBookingFinishDenied, b)
	return b, nil
}

// Dispute freezes the booking for manual resolution.
func (s *Service) Dispute(ctx context.Context, bookingID, actorID, reasonID, note string) (*model.Booking, error) {
	b, err := s.store.FileDispute(ctx, bookingID, actorID, reasonID, note)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(b.Counterparty(actorID), realtime.EventBookingDisputed, b)
	return b, nil
}
