package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/realtime"
	"github.com/workhub-dev/workhub/internal/store"
)

type sentEvent struct {
	userID string
	event  string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) Notify(userID, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{userID: userID, event: event})
}

func (f *fakeNotifier) count(userID, event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.userID == userID && e.event == event {
			n++
		}
	}
	return n
}

type fakeAlerter struct {
	mu        sync.Mutex
	reminders []string // user ids
	expiries  []string
}

func (f *fakeAlerter) BookingReminder(userID string, _ model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, userID)
	return nil
}

func (f *fakeAlerter) BookingExpired(userID string, _ model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiries = append(f.expiries, userID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *store.MemoryStore
	notifier *fakeNotifier
	alerter  *fakeAlerter
	svc      *Service
	client   *model.User
	provider *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()

	client := &model.User{Name: "Client", Email: "client@example.com", AccountType: model.AccountClient}
	if err := st.CreateUser(ctx, client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	provider := &model.User{Name: "Provider", Email: "provider@example.com", AccountType: model.AccountServiceProvider}
	if err := st.CreateUser(ctx, provider); err != nil {
		t.Fatalf("create provider: %v", err)
	}

	n := &fakeNotifier{}
	return &fixture{
		store:    st,
		notifier: n,
		alerter:  &fakeAlerter{},
		svc:      NewService(st, n, discardLogger()),
		client:   client,
		provider: provider,
	}
}

// book runs the full path to a PENDING booking starting at the given time.
func (f *fixture) book(t *testing.T, start time.Time) *model.Booking {
	t.Helper()
	ctx := context.Background()
	task := &model.Task{
		ClientID:   f.client.ID,
		Title:      "Move a piano",
		CategoryID: "cat-moving",
		AddressID:  "addr-1",
		StartDate:  &start,
		State:      model.TaskDraft,
		ViewState:  model.ViewPublic,
		Steps: map[model.DraftStep]bool{
			model.StepBaseInfo:  true,
			model.StepCategory:  true,
			model.StepAddress:   true,
			model.StepStartDate: true,
		},
	}
	if err := f.store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	j, err := f.store.PublishTask(ctx, task.ID, f.client.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := f.store.Credit(ctx, f.provider.ID, model.BalanceCredit, 1, model.TxDiscountCredit, "seed"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	q := &model.Quotation{JobID: j.ID, ServiceProviderID: f.provider.ID, Budget: 9000}
	if err := f.store.SubmitQuotation(ctx, q, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	res, err := f.store.AcceptQuotation(ctx, j.ID, q.ID, f.client.ID, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return res.Booking
}

func TestStartHandshakeEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, time.Now().Add(48*time.Hour))

	got, err := f.svc.RequestStart(ctx, b.ID, f.client.ID)
	if err != nil {
		t.Fatalf("client start: %v", err)
	}
	if got.State != model.BookingPending {
		t.Errorf("state = %s, want PENDING after one confirmation", got.State)
	}
	if f.notifier.count(f.provider.ID, realtime.EventBookingStartPending) != 1 {
		t.Errorf("provider did not receive %q", realtime.EventBookingStartPending)
	}

	got, err = f.svc.RequestStart(ctx, b.ID, f.provider.ID)
	if err != nil {
		t.Fatalf("provider start: %v", err)
	}
	if got.State != model.BookingActive {
		t.Errorf("state = %s, want ACTIVE", got.State)
	}
	for _, userID := range []string{f.client.ID, f.provider.ID} {
		if f.notifier.count(userID, realtime.EventBookingStarted) != 1 {
			t.Errorf("%s did not receive %q", userID, realtime.EventBookingStarted)
		}
	}
}

func TestDenyStartEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, time.Now().Add(48*time.Hour))

	if _, err := f.svc.RequestStart(ctx, b.ID, f.client.ID); err != nil {
		t.Fatalf("client start: %v", err)
	}
	if _, err := f.svc.DenyStart(ctx, b.ID, f.provider.ID); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if f.notifier.count(f.client.ID, realtime.EventBookingStartDenied) != 1 {
		t.Errorf("client did not receive %q", realtime.EventBookingStartDenied)
	}
}

func TestFinishHandshakeEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, time.Now().Add(48*time.Hour))

	if _, err := f.svc.RequestStart(ctx, b.ID, f.client.ID); err != nil {
		t.Fatalf("client start: %v", err)
	}
	if _, err := f.svc.RequestStart(ctx, b.ID, f.provider.ID); err != nil {
		t.Fatalf("provider start: %v", err)
	}

	if _, err := f.svc.RequestFinish(ctx, b.ID, f.provider.ID); err != nil {
		t.Fatalf("provider finish: %v", err)
	}
	if f.notifier.count(f.client.ID, realtime.EventBookingFinishPending) != 1 {
		t.Errorf("client did not receive %q", realtime.EventBookingFinishPending)
	}

	got, err := f.svc.RequestFinish(ctx, b.ID, f.client.ID)
	if err != nil {
		t.Fatalf("client finish: %v", err)
	}
	if got.State != model.BookingCompleted {
		t.Errorf("state = %s, want COMPLETED", got.State)
	}
	for _, userID := range []string{f.client.ID, f.provider.ID} {
		if f.notifier.count(userID, realtime.EventBookingFinished) != 1 {
			t.Errorf("%s did not receive %q", userID, realtime.EventBookingFinished)
		}
	}
}

func TestDisputeNotifiesCounterparty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, time.Now().Add(48*time.Hour))

	got, err := f.svc.Dispute(ctx, b.ID, f.client.ID, "no-show", "provider never came")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if got.State != model.BookingDispute {
		t.Errorf("state = %s, want DISPUTE", got.State)
	}
	if f.notifier.count(f.provider.ID, realtime.EventBookingDisputed) != 1 {
		t.Errorf("provider did not receive %q", realtime.EventBookingDisputed)
	}
}

func TestGetHidesForeignBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, time.Now().Add(48*time.Hour))

	stranger := &model.User{Name: "Stranger", Email: "stranger@example.com", AccountType: model.AccountClient}
	if err := f.store.CreateUser(ctx, stranger); err != nil {
		t.Fatalf("create stranger: %v", err)
	}
	if _, err := f.svc.Get(ctx, b.ID, stranger.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stranger get = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Get(ctx, b.ID, f.provider.ID); err != nil {
		t.Errorf("party get = %v, want nil", err)
	}
}

func newSweeper(f *fixture) *Sweeper {
	return NewSweeper(f.store, f.notifier, f.alerter, 24*time.Hour, 24*time.Hour, 10, discardLogger())
}

func TestSweeperExpiresOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now()
	b := f.book(t, start)

	sw := newSweeper(f)
	now := start.Add(25 * time.Hour) // past start + grace

	n, err := sw.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	got, _ := f.store.BookingByID(ctx, b.ID)
	if got.State != model.BookingExpired {
		t.Errorf("state = %s, want EXPIRED", got.State)
	}
	for _, userID := range []string{f.client.ID, f.provider.ID} {
		if f.notifier.count(userID, realtime.EventBookingExpired) != 1 {
			t.Errorf("%s did not receive %q", userID, realtime.EventBookingExpired)
		}
	}
	if len(f.alerter.expiries) != 2 {
		t.Errorf("expiry alerts = %d, want 2", len(f.alerter.expiries))
	}

	// a second pass finds nothing new
	n, err = sw.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("expire again: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass expired = %d, want 0", n)
	}
}

func TestSweeperGraceHoldsExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now()
	b := f.book(t, start)

	sw := newSweeper(f)
	n, err := sw.ExpireOverdue(ctx, start.Add(23*time.Hour)) // inside grace
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 0 {
		t.Errorf("expired inside grace = %d, want 0", n)
	}
	got, _ := f.store.BookingByID(ctx, b.ID)
	if got.State != model.BookingPending {
		t.Errorf("state = %s, want PENDING", got.State)
	}
}

func TestSweeperRemindsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().Add(12 * time.Hour)
	f.book(t, start)

	sw := newSweeper(f)
	now := time.Now()

	n, err := sw.RemindUpcoming(ctx, now)
	if err != nil {
		t.Fatalf("remind: %v", err)
	}
	if n != 1 {
		t.Fatalf("reminded = %d, want 1", n)
	}
	if len(f.alerter.reminders) != 2 {
		t.Errorf("reminder alerts = %d, want 2 (both parties)", len(f.alerter.reminders))
	}

	n, err = sw.RemindUpcoming(ctx, now)
	if err != nil {
		t.Fatalf("remind again: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass reminded = %d, want 0", n)
	}
}

func TestSweeperRunOverlapGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now()
	f.book(t, start)

	sw := newSweeper(f)
	now := start.Add(25 * time.Hour)

	if err := sw.Run(ctx, now, 5*time.Minute); err != nil {
		t.Fatalf("run: %v", err)
	}
	before := f.notifier.count(f.client.ID, realtime.EventBookingExpired)

	// a second run inside the interval must be a no-op
	if err := sw.Run(ctx, now.Add(time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("run again: %v", err)
	}
	after := f.notifier.count(f.client.ID, realtime.EventBookingExpired)
	if before != after {
		t.Errorf("guarded run emitted events: before=%d after=%d", before, after)
	}
}
