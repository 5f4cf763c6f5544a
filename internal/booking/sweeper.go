package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/realtime"
	"github.com/workhub-dev/workhub/internal/store"
)

const sweepName = "booking_sweep"

// Sweeper is the scheduled lifecycle pass: it expires PENDING bookings whose
// start date plus grace has lapsed and reminds parties of upcoming starts.
// Entry points take the clock as an argument so runs are reproducible.
type Sweeper struct {
	store    store.Store
	notify   Notifier
	alerts   Alerter
	grace    time.Duration
	window   time.Duration
	pageSize int
	log      *slog.Logger
}

func NewSweeper(st store.Store, n Notifier, a Alerter, grace, window time.Duration, pageSize int, log *slog.Logger) *Sweeper {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Sweeper{store: st, notify: n, alerts: a, grace: grace, window: window, pageSize: pageSize, log: log}
}

// Run executes one sweep unless another instance ran within minInterval.
// Errors in one phase do not stop the other.
func (s *Sweeper) Run(ctx context.Context, now time.Time, minInterval time.Duration) error {
	ok, err := s.store.TryBeginSweep(ctx, sweepName, now, minInterval)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("sweep skipped, recent run holds the marker")
		return nil
	}

	expired, err := s.ExpireOverdue(ctx, now)
	if err != nil {
		s.log.Error("expire pass", "err", err)
	}
	reminded, err := s.RemindUpcoming(ctx, now)
	if err != nil {
		s.log.Error("remind pass", "err", err)
	}
	s.log.Info("sweep done", "expired", expired, "reminded", reminded)
	return nil
}

// ExpireOverdue pages through PENDING bookings whose start date predates
// now minus grace, flipping each to EXPIRED. Only rows flipped by this call
// produce notifications, so re-running is harmless.
func (s *Sweeper) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.grace)
	total := 0
	for {
		batch, err := s.store.ExpirePendingBefore(ctx, cutoff, s.pageSize)
		if err != nil {
			return total, err
		}
		for i := range batch {
			s.announceExpiry(batch[i])
		}
		total += len(batch)
		if len(batch) < s.pageSize {
			return total, nil
		}
	}
}

func (s *Sweeper) announceExpiry(b model.Booking) {
	for _, userID := range []string{b.ClientID, b.ServiceProviderID} {
		s.notify.Notify(userID, realtime.EventBookingExpired, b)
		if err := s.alerts.BookingExpired(userID, b); err != nil {
			s.log.Error("booking expiry alert", "booking_id", b.ID, "err", err)
		}
	}
}

// RemindUpcoming notifies both parties of live bookings starting within the
// reminder window. The store stamps each row as reminded, so a booking is
// reminded once per cycle.
func (s *Sweeper) RemindUpcoming(ctx context.Context, now time.Time) (int, error) {
	to := now.Add(s.window)
	total := 0
	for {
		batch, err := s.store.UpcomingBookings(ctx, now, to, s.pageSize)
		if err != nil {
			return total, err
		}
		for i := range batch {
			b := batch[i]
			for _, userID := range []string{b.ClientID, b.ServiceProviderID} {
				s.notify.Notify(userID, realtime.EventBookingReminder, b)
				if err := s.alerts.BookingReminder(userID, b); err != nil {
					s.log.Error("booking reminder alert", "booking_id", b.ID, "err", err)
				}
			}
		}
		total += len(batch)
		if len(batch) < s.pageSize {
			return total, nil
		}
	}
}
