package quotation

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

func (f *fakeNotifier) sent(userID, event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.userID == userID && e.event == event {
			return true
		}
	}
	return false
}

type fakeAlerter struct {
	mu       sync.Mutex
	received int
	accepted int
	rejected int
	titles   []string
}

func (f *fakeAlerter) QuotationReceived(_, title string, _ model.Quotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeAlerter) QuotationAccepted(title string, _ model.Quotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted++
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeAlerter) QuotationRejected(title string, _ model.Quotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected++
	f.titles = append(f.titles, title)
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
	if _, err := st.Credit(ctx, provider.ID, model.BalanceCredit, 10, model.TxDiscountCredit, "seed"); err != nil {
		t.Fatalf("grant credits: %v", err)
	}

	n := &fakeNotifier{}
	a := &fakeAlerter{}
	return &fixture{
		store:    st,
		notifier: n,
		alerter:  a,
		svc:      NewService(st, n, a, 1, discardLogger()),
		client:   client,
		provider: provider,
	}
}

func (f *fixture) publishJob(t *testing.T, viewState model.ViewState, providerIDs []string) *model.Job {
	t.Helper()
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)
	task := &model.Task{
		ClientID:    f.client.ID,
		Title:       "Assemble wardrobe",
		CategoryID:  "cat-furniture",
		AddressID:   "addr-1",
		StartDate:   &start,
		State:       model.TaskDraft,
		ViewState:   viewState,
		ProviderIDs: providerIDs,
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
	return j
}

func TestSubmitNotifiesClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.publishJob(t, model.ViewPublic, nil)

	q, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 4500, nil, "can do tomorrow")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if q.State != model.QuotationPending {
		t.Errorf("state = %s, want PENDING", q.State)
	}
	if !f.notifier.sent(f.client.ID, realtime.EventNewQuotation) {
		t.Errorf("client did not receive %q", realtime.EventNewQuotation)
	}
	if f.alerter.received != 1 {
		t.Errorf("received alerts = %d, want 1", f.alerter.received)
	}
}

func TestSubmitVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		view    model.ViewState
		allowed []string
		wantErr error
	}{
		{name: "public job", view: model.ViewPublic},
		{name: "private job with provider listed", view: model.ViewPrivate, allowed: []string{f.provider.ID}},
		{name: "private job without provider", view: model.ViewPrivate, allowed: []string{"someone-else"}, wantErr: store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := f.publishJob(t, tt.view, tt.allowed)
			_, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 1000, nil, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitOwnJob(t *testing.T) {
	f := newFixture(t)
	j := f.publishJob(t, model.ViewPublic, nil)

	if _, err := f.svc.Submit(context.Background(), f.client.ID, j.ID, 1000, nil, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("quoting own job = %v, want ErrNotFound", err)
	}
}

func TestSubmitRejectsNonPositiveBudget(t *testing.T) {
	f := newFixture(t)
	j := f.publishJob(t, model.ViewPublic, nil)

	if _, err := f.svc.Submit(context.Background(), f.provider.ID, j.ID, 0, nil, ""); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("zero budget = %v, want ErrInvalidState", err)
	}
}

func TestAcceptCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.publishJob(t, model.ViewPublic, nil)

	rival := &model.User{Name: "Rival", Email: "rival@example.com", AccountType: model.AccountServiceProvider}
	if err := f.store.CreateUser(ctx, rival); err != nil {
		t.Fatalf("create rival: %v", err)
	}
	if _, err := f.store.Credit(ctx, rival.ID, model.BalanceCredit, 1, model.TxDiscountCredit, "seed"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	winner, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 4500, nil, "")
	if err != nil {
		t.Fatalf("submit winner: %v", err)
	}
	if _, err := f.svc.Submit(ctx, rival.ID, j.ID, 4800, nil, ""); err != nil {
		t.Fatalf("submit rival: %v", err)
	}

	res, err := f.svc.Accept(ctx, f.client.ID, j.ID, winner.ID, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Booking == nil {
		t.Fatal("accept returned no booking")
	}

	if !f.notifier.sent(f.provider.ID, realtime.EventQuotationAccepted) {
		t.Errorf("winner did not receive %q", realtime.EventQuotationAccepted)
	}
	if !f.notifier.sent(rival.ID, realtime.EventQuotationRejected) {
		t.Errorf("rival did not receive %q", realtime.EventQuotationRejected)
	}
	if f.alerter.accepted != 1 || f.alerter.rejected != 1 {
		t.Errorf("alerts = (accepted %d, rejected %d), want (1, 1)", f.alerter.accepted, f.alerter.rejected)
	}

	// acceptance opens the chat channel
	conv, err := f.store.EnsureConversation(ctx, j.ID, f.client.ID, f.provider.ID)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if conv.ServiceProviderID != f.provider.ID {
		t.Errorf("conversation provider = %s, want %s", conv.ServiceProviderID, f.provider.ID)
	}
}

// flakyJobReads fails every job read once armed, standing in for an
// infrastructure blip between the commit and the notification fan-out.
type flakyJobReads struct {
	store.Store
	fail bool
}

func (s *flakyJobReads) JobByID(ctx context.Context, id string) (*model.Job, error) {
	if s.fail {
		return nil, errors.New("connection reset by peer")
	}
	return s.Store.JobByID(ctx, id)
}

func TestAcceptSurvivesJobReadFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.publishJob(t, model.ViewPublic, nil)

	q, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 4500, nil, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	flaky := &flakyJobReads{Store: f.store, fail: true}
	svc := NewService(flaky, f.notifier, f.alerter, 1, discardLogger())

	res, err := svc.Accept(ctx, f.client.ID, j.ID, q.ID, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.JobTitle != j.Title {
		t.Errorf("result title = %q, want %q", res.JobTitle, j.Title)
	}
	if !f.notifier.sent(f.provider.ID, realtime.EventQuotationAccepted) {
		t.Errorf("winner did not receive %q", realtime.EventQuotationAccepted)
	}
	if f.alerter.accepted != 1 {
		t.Errorf("accepted alerts = %d, want 1", f.alerter.accepted)
	}
	last := f.alerter.titles[len(f.alerter.titles)-1]
	if last != j.Title {
		t.Errorf("alert title = %q, want %q", last, j.Title)
	}
}

func TestRejectSurvivesJobReadFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.publishJob(t, model.ViewPublic, nil)

	q, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 4500, nil, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	flaky := &flakyJobReads{Store: f.store, fail: true}
	svc := NewService(flaky, f.notifier, f.alerter, 1, discardLogger())

	got, err := svc.Reject(ctx, f.client.ID, j.ID, q.ID, "too-expensive", "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.State != model.QuotationRejected {
		t.Errorf("state = %s, want REJECTED", got.State)
	}
	if !f.notifier.sent(f.provider.ID, realtime.EventQuotationRejected) {
		t.Errorf("provider did not receive %q", realtime.EventQuotationRejected)
	}
	if f.alerter.rejected != 1 {
		t.Errorf("rejected alerts = %d, want 1", f.alerter.rejected)
	}
}

func TestRejectNotifiesProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.publishJob(t, model.ViewPublic, nil)

	q, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 4500, nil, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Reject(ctx, f.client.ID, j.ID, q.ID, "too-expensive", ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !f.notifier.sent(f.provider.ID, realtime.EventQuotationRejected) {
		t.Errorf("provider did not receive %q", realtime.EventQuotationRejected)
	}
}

func TestMarkReadOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := f.publishJob(t, model.ViewPublic, nil)

	q, err := f.svc.Submit(ctx, f.provider.ID, j.ID, 4500, nil, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.svc.MarkRead(ctx, f.provider.ID, q.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("mark read by non-owner = %v, want ErrNotFound", err)
	}
	if err := f.svc.MarkRead(ctx, f.client.ID, q.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, err := f.store.QuotationByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.ReadByClient {
		t.Error("quotation not flagged as read")
	}
}
