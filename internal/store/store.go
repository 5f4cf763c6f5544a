package store

import (
	"context"
	"time"

	"github.com/workhub-dev/workhub/internal/model"
)

// Page bounds a list query. Limit 0 means the implementation default.
type Page struct {
	Limit  int
	Offset int
}

// JobFilter narrows the open-jobs feed for providers.
type JobFilter struct {
	CategoryID    string
	SubCategoryID string
	ServiceID     string
	ProviderID    string // include PRIVATE jobs whose allow-list names this provider
	Page          Page
}

// AcceptResult is everything an accepted quotation changed in one atomic unit.
// JobTitle is captured inside the transaction so callers need no follow-up
// read to compose notifications.
type AcceptResult struct {
	JobTitle  string
	Winner    *model.Quotation
	Rejected  []model.Quotation // sibling PENDING quotations forced to REJECTED
	Booking   *model.Booking
	Promotion *model.Promotion // consumed promotion, nil if none supplied
}

// CancelJobResult reports the compensating booking transition, if any.
type CancelJobResult struct {
	Job     *model.Job
	Booking *model.Booking // nil when the job had no live booking
}

// Store is the repository boundary. Each method that spans entities or couples
// a balance mutation to a domain write executes as one atomic unit: either
// every effect commits or none does. Implementations must make the
// read-check-write sequences safe under concurrent callers.
type Store interface {
	// Users & wallets. CreateUser also creates the user's wallet.
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	SetPushToken(ctx context.Context, userID, token string) error

	// Ledger. Debit fails ErrInsufficientFunds / ErrInsufficientCredit when
	// the selected balance would go negative; the check, the balance update
	// and the ledger row are one atomic unit serialized per wallet.
	Credit(ctx context.Context, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error)
	Debit(ctx context.Context, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error)
	WalletByUserID(ctx context.Context, userID string) (*model.Wallet, error)
	Transactions(ctx context.Context, userID string, p Page) ([]model.WalletTransaction, error)
	AllTransactions(ctx context.Context, p Page) ([]model.WalletTransaction, error)
	// PurchaseCredits debits money and credits quote credits in one unit.
	PurchaseCredits(ctx context.Context, userID string, qty, pricePerCredit int64) (*model.Wallet, error)

	// Promotions.
	CreatePromotion(ctx context.Context, p *model.Promotion) error

	// Tasks. Reads scoped by clientID conflate missing and not-owned into
	// ErrNotFound.
	CreateTask(ctx context.Context, t *model.Task) error
	TaskByID(ctx context.Context, id, clientID string) (*model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, id, clientID string) error
	ListTasks(ctx context.Context, clientID string, p Page) ([]model.Task, error)
	// PublishTask flips the task to PUBLISHED and creates the Job row.
	PublishTask(ctx context.Context, id, clientID string) (*model.Job, error)

	// Jobs.
	JobByID(ctx context.Context, id string) (*model.Job, error)
	ListOpenJobs(ctx context.Context, f JobFilter) ([]model.Job, error)
	ListClientJobs(ctx context.Context, clientID string, p Page) ([]model.Job, error)
	// CancelJob closes an OPEN or BOOKED job and, when booked, moves the
	// live booking to CANCELLED in the same unit.
	CancelJob(ctx context.Context, jobID, clientID, reasonID, note string) (*CancelJobResult, error)

	// Quotations. SubmitQuotation atomically verifies the job is OPEN,
	// enforces the single-PENDING invariant, debits creditCost from the
	// provider, inserts the row and flips the job to QUOTED.
	SubmitQuotation(ctx context.Context, q *model.Quotation, creditCost int64) error
	// AcceptQuotation atomically accepts the winner, rejects every sibling
	// PENDING quotation, books the job, consumes the optional promotion and
	// creates the booking.
	AcceptQuotation(ctx context.Context, jobID, quotationID, clientID, promotionID string) (*AcceptResult, error)
	RejectQuotation(ctx context.Context, jobID, quotationID, clientID, reasonID, note string) (*model.Quotation, error)
	MarkQuotationRead(ctx context.Context, quotationID string) error
	QuotationByID(ctx context.Context, id string) (*model.Quotation, error)
	QuotationsForJob(ctx context.Context, jobID, clientID string, p Page) ([]model.Quotation, error)
	ProviderQuotations(ctx context.Context, providerID string, p Page) ([]model.Quotation, error)

	// Bookings. The flag updates and the state decision are one atomic
	// read-modify-write per booking row.
	BookingByID(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context, userID string, p Page) ([]model.Booking, error)
	// RequestStart sets the actor's start flag; when both flags hold it
	// transitions PENDING->ACTIVE. The bool reports the transition.
	RequestStart(ctx context.Context, bookingID, actorID string) (*model.Booking, bool, error)
	DenyStart(ctx context.Context, bookingID, actorID string) (*model.Booking, error)
	// RequestFinish mirrors RequestStart on ACTIVE; a completed booking
	// also closes its job in the same unit.
	RequestFinish(ctx context.Context, bookingID, actorID string) (*model.Booking, bool, error)
	DenyFinish(ctx context.Context, bookingID, actorID string) (*model.Booking, error)
	FileDispute(ctx context.Context, bookingID, actorID, reasonID, note string) (*model.Booking, error)
	// ExpirePendingBefore moves PENDING bookings whose start date predates
	// cutoff to EXPIRED, at most limit rows, returning only rows flipped by
	// this call so repeated sweeps are idempotent.
	ExpirePendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
	// UpcomingBookings returns live bookings starting in [from, to) not yet
	// reminded since remindedAfter, stamping RemindedAt as it reads.
	UpcomingBookings(ctx context.Context, from, to time.Time, limit int) ([]model.Booking, error)
	// TryBeginSweep acquires the named sweep marker unless a run newer than
	// minInterval holds it; overlap-guard for the external scheduler.
	TryBeginSweep(ctx context.Context, name string, now time.Time, minInterval time.Duration) (bool, error)

	// Chat.
	EnsureConversation(ctx context.Context, jobID, clientID, providerID string) (*model.Conversation, error)
	ConversationByID(ctx context.Context, id string) (*model.Conversation, error)
	SaveMessage(ctx context.Context, m *model.Message) error
	Messages(ctx context.Context, conversationID string, p Page) ([]model.Message, error)
}
