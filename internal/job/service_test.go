package job

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

type fakeNotifier struct {
	mu     sync.Mutex
	events map[string][]string // user id -> event names
}

func (f *fakeNotifier) Notify(userID, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = make(map[string][]string)
	}
	f.events[userID] = append(f.events[userID], event)
}

func (f *fakeNotifier) received(userID, event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events[userID] {
		if e == event {
			return true
		}
	}
	return false
}

type fakeAlerter struct {
	mu        sync.Mutex
	cancelled int
}

func (f *fakeAlerter) BookingCancelled(_, _ string, _ model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) (*Service, *store.MemoryStore, *fakeNotifier, *fakeAlerter, *model.User) {
	t.Helper()
	st := store.NewMemoryStore()
	client := &model.User{Name: "Client", Email: "client@example.com", AccountType: model.AccountClient}
	if err := st.CreateUser(context.Background(), client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	n := &fakeNotifier{}
	a := &fakeAlerter{}
	return NewService(st, n, a, discardLogger()), st, n, a, client
}

func TestCreateMarksBaseInfoStep(t *testing.T) {
	svc, _, _, _, client := newService(t)

	task, err := svc.Create(context.Background(), client.ID, "Mount a TV", "55 inch, brick wall", 2000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.State != model.TaskDraft {
		t.Errorf("state = %s, want DRAFT", task.State)
	}
	if !task.Steps[model.StepBaseInfo] {
		t.Error("base info step not marked")
	}
	if task.StepsComplete() {
		t.Error("a fresh draft must not be publishable")
	}
}

func TestDraftStepsGatePublish(t *testing.T) {
	svc, _, _, _, client := newService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, client.ID, "Mount a TV", "", 2000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	steps := []func() error{
		func() error { _, err := svc.UpdateCategory(ctx, task.ID, client.ID, "cat-home", "", "", ""); return err },
		func() error { _, err := svc.UpdateAddress(ctx, task.ID, client.ID, "addr-1"); return err },
		func() error {
			_, err := svc.UpdateStartDate(ctx, task.ID, client.ID, time.Now().Add(48*time.Hour))
			return err
		},
	}
	for i, step := range steps {
		if _, err := svc.Publish(ctx, task.ID, client.ID); !errors.Is(err, store.ErrInvalidState) {
			t.Fatalf("publish before step %d = %v, want ErrInvalidState", i, err)
		}
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	j, err := svc.Publish(ctx, task.ID, client.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if j.State != model.JobOpen {
		t.Errorf("job state = %s, want OPEN", j.State)
	}
}

func TestUpdateProvidersTogglesViewState(t *testing.T) {
	svc, _, _, _, client := newService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, client.ID, "Garden cleanup", "", 1500)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.UpdateProviders(ctx, task.ID, client.ID, []string{"prov-1", "prov-2"})
	if err != nil {
		t.Fatalf("update providers: %v", err)
	}
	if got.ViewState != model.ViewPrivate {
		t.Errorf("view state = %s, want PRIVATE", got.ViewState)
	}

	got, err = svc.UpdateProviders(ctx, task.ID, client.ID, nil)
	if err != nil {
		t.Fatalf("clear providers: %v", err)
	}
	if got.ViewState != model.ViewPublic {
		t.Errorf("view state = %s, want PUBLIC after clearing the list", got.ViewState)
	}
}

func TestUpdateImagesCapped(t *testing.T) {
	svc, _, _, _, client := newService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, client.ID, "Tile the bathroom", "", 8000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	images := make([]string, model.MaxTaskImages+3)
	for i := range images {
		images[i] = "img"
	}
	got, err := svc.UpdateImages(ctx, task.ID, client.ID, images)
	if err != nil {
		t.Fatalf("update images: %v", err)
	}
	if len(got.Images) != model.MaxTaskImages {
		t.Errorf("images = %d, want capped at %d", len(got.Images), model.MaxTaskImages)
	}
}

func TestPublishedTaskNotEditable(t *testing.T) {
	svc, _, _, _, client := newService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, client.ID, "Paint hallway", "", 3000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, task.ID, client.ID, "cat-paint", "", "", ""); err != nil {
		t.Fatalf("category: %v", err)
	}
	if _, err := svc.UpdateAddress(ctx, task.ID, client.ID, "addr-1"); err != nil {
		t.Fatalf("address: %v", err)
	}
	if _, err := svc.UpdateStartDate(ctx, task.ID, client.ID, time.Now().Add(48*time.Hour)); err != nil {
		t.Fatalf("start date: %v", err)
	}
	if _, err := svc.Publish(ctx, task.ID, client.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if _, err := svc.UpdateBaseInfo(ctx, task.ID, client.ID, "New title", "", 1); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("edit after publish = %v, want ErrInvalidState", err)
	}
}

func TestCancelBookedJobNotifiesProvider(t *testing.T) {
	svc, st, notifier, alerter, client := newService(t)
	ctx := context.Background()

	provider := &model.User{Name: "Provider", Email: "provider@example.com", AccountType: model.AccountServiceProvider}
	if err := st.CreateUser(ctx, provider); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	if _, err := st.Credit(ctx, provider.ID, model.BalanceCredit, 1, model.TxDiscountCredit, "seed"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	task, err := svc.Create(ctx, client.ID, "Build shelves", "", 4000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, task.ID, client.ID, "cat-wood", "", "", ""); err != nil {
		t.Fatalf("category: %v", err)
	}
	if _, err := svc.UpdateAddress(ctx, task.ID, client.ID, "addr-1"); err != nil {
		t.Fatalf("address: %v", err)
	}
	if _, err := svc.UpdateStartDate(ctx, task.ID, client.ID, time.Now().Add(48*time.Hour)); err != nil {
		t.Fatalf("start date: %v", err)
	}
	j, err := svc.Publish(ctx, task.ID, client.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	q := &model.Quotation{JobID: j.ID, ServiceProviderID: provider.ID, Budget: 3500}
	if err := st.SubmitQuotation(ctx, q, 1); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if _, err := st.AcceptQuotation(ctx, j.ID, q.ID, client.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	res, err := svc.Cancel(ctx, j.ID, client.ID, "changed-mind", "sorry")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Booking == nil || res.Booking.State != model.BookingCancelled {
		t.Fatalf("booking = %+v, want CANCELLED", res.Booking)
	}
	if !notifier.received(provider.ID, realtime.EventBookingCancelled) {
		t.Errorf("provider did not receive %q", realtime.EventBookingCancelled)
	}
	if alerter.cancelled != 1 {
		t.Errorf("cancel alerts = %d, want 1", alerter.cancelled)
	}
}

func TestCancelOpenJobSkipsNotifications(t *testing.T) {
	svc, _, notifier, alerter, client := newService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, client.ID, "Weed the garden", "", 500)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, task.ID, client.ID, "cat-garden", "", "", ""); err != nil {
		t.Fatalf("category: %v", err)
	}
	if _, err := svc.UpdateAddress(ctx, task.ID, client.ID, "addr-1"); err != nil {
		t.Fatalf("address: %v", err)
	}
	if _, err := svc.UpdateStartDate(ctx, task.ID, client.ID, time.Now().Add(48*time.Hour)); err != nil {
		t.Fatalf("start date: %v", err)
	}
	j, err := svc.Publish(ctx, task.ID, client.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	res, err := svc.Cancel(ctx, j.ID, client.ID, "", "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Booking != nil {
		t.Errorf("booking = %+v, want nil for an unbooked job", res.Booking)
	}
	notifier.mu.Lock()
	events := len(notifier.events)
	notifier.mu.Unlock()
	if events != 0 || alerter.cancelled != 0 {
		t.Errorf("cancel of open job emitted notifications (events=%d alerts=%d)", events, alerter.cancelled)
	}
}
