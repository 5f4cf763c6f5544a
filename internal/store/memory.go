package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/workhub-dev/workhub/internal/model"
)

const defaultPageLimit = 50

// MemoryStore implements Store with in-memory maps guarded by a single mutex,
// so every compound operation is naturally atomic. It backs the test suites
// and local development without Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*model.User
	usersByEmail  map[string]string
	wallets       map[string]*model.Wallet // keyed by user id
	transactions  map[string][]model.WalletTransaction
	promotions    map[string]*model.Promotion
	tasks         map[string]*model.Task
	jobs          map[string]*model.Job
	quotations    map[string]*model.Quotation
	bookings      map[string]*model.Booking
	conversations map[string]*model.Conversation // keyed by job id
	messages      map[string][]model.Message
	sweeps        map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*model.User),
		usersByEmail:  make(map[string]string),
		wallets:       make(map[string]*model.Wallet),
		transactions:  make(map[string][]model.WalletTransaction),
		promotions:    make(map[string]*model.Promotion),
		tasks:         make(map[string]*model.Task),
		jobs:          make(map[string]*model.Job),
		quotations:    make(map[string]*model.Quotation),
		bookings:      make(map[string]*model.Booking),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		sweeps:        make(map[string]time.Time),
	}
}

func pageBounds(p Page, n int) (int, int) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	start := p.Offset
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}

// ----- users & wallets -----

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByEmail[u.Email]; taken {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[u.Email] = u.ID
	s.wallets[u.ID] = &model.Wallet{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		CreatedAt: u.CreatedAt,
	}
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) SetPushToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PushToken = token
	return nil
}

// ----- ledger -----

// applyLedger mutates the selected balance and appends the ledger row.
// Callers hold the write lock.
func (s *MemoryStore) applyLedger(userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error) {
	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	switch kind {
	case model.BalanceMoney:
		if w.Balance+amount < 0 {
			return nil, ErrInsufficientFunds
		}
		w.Balance += amount
	case model.BalanceCredit:
		if w.CreditBalance+amount < 0 {
			return nil, ErrInsufficientCredit
		}
		w.CreditBalance += amount
	default:
		return nil, ErrInvalidState
	}
	tx := model.WalletTransaction{
		ID:          uuid.New().String(),
		WalletID:    w.ID,
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	s.transactions[userID] = append(s.transactions[userID], tx)
	return &tx, nil
}

func (s *MemoryStore) Credit(_ context.Context, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLedger(userID, kind, amount, txType, description)
}

func (s *MemoryStore) Debit(_ context.Context, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLedger(userID, kind, -amount, txType, description)
}

func (s *MemoryStore) WalletByUserID(_ context.Context, userID string) (*model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) Transactions(_ context.Context, userID string, p Page) ([]model.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := append([]model.WalletTransaction(nil), s.transactions[userID]...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	start, end := pageBounds(p, len(txs))
	return txs[start:end], nil
}

func (s *MemoryStore) AllTransactions(_ context.Context, p Page) ([]model.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []model.WalletTransaction
	for _, list := range s.transactions {
		txs = append(txs, list...)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	start, end := pageBounds(p, len(txs))
	return txs[start:end], nil
}

func (s *MemoryStore) PurchaseCredits(_ context.Context, userID string, qty, pricePerCredit int64) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.applyLedger(userID, model.BalanceMoney, -qty*pricePerCredit, model.TxPurchaseCredit, "credit purchase"); err != nil {
		return nil, err
	}
	if _, err := s.applyLedger(userID, model.BalanceCredit, qty, model.TxPurchaseCredit, "credit purchase"); err != nil {
		return nil, err
	}
	cp := *s.wallets[userID]
	return &cp, nil
}

func (s *MemoryStore) CreatePromotion(_ context.Context, p *model.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	s.promotions[p.ID] = &cp
	return nil
}

// ----- tasks -----

func (s *MemoryStore) CreateTask(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Steps == nil {
		t.Steps = make(map[model.DraftStep]bool)
	}
	cp := cloneTask(t)
	s.tasks[t.ID] = cp
	return nil
}

func cloneTask(t *model.Task) *model.Task {
	cp := *t
	cp.Images = append([]string(nil), t.Images...)
	cp.ProviderIDs = append([]string(nil), t.ProviderIDs...)
	cp.Steps = make(map[model.DraftStep]bool, len(t.Steps))
	for k, v := range t.Steps {
		cp.Steps[k] = v
	}
	if t.Answers != nil {
		cp.Answers = make(map[string]string, len(t.Answers))
		for k, v := range t.Answers {
			cp.Answers[k] = v
		}
	}
	return &cp
}

func (s *MemoryStore) taskOwned(id, clientID string) (*model.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.ClientID != clientID || t.State == model.TaskInactive {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) TaskByID(_ context.Context, id, clientID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.taskOwned(id, clientID)
	if err != nil {
		return nil, err
	}
	return cloneTask(t), nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.taskOwned(t.ID, t.ClientID); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.taskOwned(id, clientID)
	if err != nil {
		return err
	}
	if t.State != model.TaskDraft && t.State != model.TaskActive {
		return ErrInvalidState
	}
	t.State = model.TaskInactive
	t.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ListTasks(_ context.Context, clientID string, p Page) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Task
	for _, t := range s.tasks {
		if t.ClientID == clientID && t.State != model.TaskInactive {
			out = append(out, *cloneTask(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := pageBounds(p, len(out))
	return out[start:end], nil
}

func (s *MemoryStore) PublishTask(_ context.Context, id, clientID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.taskOwned(id, clientID)
	if err != nil {
		return nil, err
	}
	if t.State != model.TaskDraft && t.State != model.TaskActive {
		return nil, ErrInvalidState
	}
	if !t.StepsComplete() {
		return nil, ErrInvalidState
	}
	now := time.Now()
	t.State = model.TaskPublished
	t.UpdatedAt = now
	job := &model.Job{
		ID:             uuid.New().String(),
		TaskID:         t.ID,
		ClientID:       t.ClientID,
		Title:          t.Title,
		Description:    t.Description,
		Price:          t.Price,
		CategoryID:     t.CategoryID,
		SubCategoryID:  t.SubCategoryID,
		SubSubCategory: t.SubSubCategory,
		ServiceID:      t.ServiceID,
		AddressID:      t.AddressID,
		Images:         append([]string(nil), t.Images...),
		ViewState:      t.ViewState,
		ProviderIDs:    append([]string(nil), t.ProviderIDs...),
		State:          model.JobOpen,
		QuotationState: model.JobOpenToQuote,
		StartDate:      t.StartDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

// ----- jobs -----

func (s *MemoryStore) JobByID(_ context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) ListOpenJobs(_ context.Context, f JobFilter) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Job
	for _, j := range s.jobs {
		if j.State != model.JobOpen {
			continue
		}
		if f.CategoryID != "" && j.CategoryID != f.CategoryID {
			continue
		}
		if f.SubCategoryID != "" && j.SubCategoryID != f.SubCategoryID {
			continue
		}
		if f.ServiceID != "" && j.ServiceID != f.ServiceID {
			continue
		}
		if j.ViewState == model.ViewPrivate && !contains(j.ProviderIDs, f.ProviderID) {
			continue
		}
		out = append(out, *j)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := pageBounds(f.Page, len(out))
	return out[start:end], nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListClientJobs(_ context.Context, clientID string, p Page) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Job
	for _, j := range s.jobs {
		if j.ClientID == clientID {
			out = append(out, *j)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := pageBounds(p, len(out))
	return out[start:end], nil
}

func (s *MemoryStore) CancelJob(_ context.Context, jobID, clientID, reasonID, note string) (*CancelJobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.ClientID != clientID {
		return nil, ErrNotFound
	}
	if j.State != model.JobOpen && j.State != model.JobBooked {
		return nil, ErrInvalidState
	}
	now := time.Now()
	res := &CancelJobResult{}
	if j.State == model.JobBooked {
		for _, b := range s.bookings {
			if b.JobID == jobID && !b.State.Terminal() {
				b.State = model.BookingCancelled
				b.UpdatedAt = now
				cp := *b
				res.Booking = &cp
				break
			}
		}
	}
	j.State = model.JobClosed
	j.CancelReasonID = reasonID
	j.CancelNote = note
	j.UpdatedAt = now
	cp := *j
	res.Job = &cp
	return res, nil
}

// ----- quotations -----

func (s *MemoryStore) SubmitQuotation(_ context.Context, q *model.Quotation, creditCost int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[q.JobID]
	if !ok {
		return ErrNotFound
	}
	if j.State != model.JobOpen {
		return ErrJobNotOpen
	}
	for _, existing := range s.quotations {
		if existing.JobID == q.JobID && existing.ServiceProviderID == q.ServiceProviderID && existing.State == model.QuotationPending {
			return ErrPendingQuotation
		}
	}
	if _, err := s.applyLedger(q.ServiceProviderID, model.BalanceCredit, -creditCost, model.TxServiceFee, "quotation fee"); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	now := time.Now()
	q.State = model.QuotationPending
	q.CreatedAt = now
	q.UpdatedAt = now
	cp := *q
	s.quotations[q.ID] = &cp
	if j.QuotationState == model.JobOpenToQuote {
		j.QuotationState = model.JobQuoted
		j.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) AcceptQuotation(_ context.Context, jobID, quotationID, clientID, promotionID string) (*AcceptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.ClientID != clientID {
		return nil, ErrNotFound
	}
	q, ok := s.quotations[quotationID]
	if !ok || q.JobID != jobID || q.State != model.QuotationPending {
		return nil, ErrNotFound
	}
	if j.State != model.JobOpen {
		return nil, ErrInvalidState
	}

	res := &AcceptResult{JobTitle: j.Title}
	now := time.Now()

	if promotionID != "" {
		p, ok := s.promotions[promotionID]
		if !ok || !p.Active {
			return nil, ErrPromotionNotFound
		}
		if p.UsedBy != "" {
			return nil, ErrPromotionUsed
		}
		p.UsedBy = clientID
		t := now
		p.UsedAt = &t
		if _, err := s.applyLedger(clientID, model.BalanceMoney, p.Amount, model.TxPromotion, "promotion "+p.Code); err != nil {
			return nil, err
		}
		cp := *p
		res.Promotion = &cp
	}

	q.State = model.QuotationAccepted
	q.UpdatedAt = now
	winner := *q
	res.Winner = &winner

	for _, sib := range s.quotations {
		if sib.JobID == jobID && sib.ID != quotationID && sib.State == model.QuotationPending {
			sib.State = model.QuotationRejected
			sib.UpdatedAt = now
			res.Rejected = append(res.Rejected, *sib)
		}
	}

	j.State = model.JobBooked
	j.UpdatedAt = now

	start := now
	if q.ProposedDate != nil {
		start = *q.ProposedDate
	} else if j.StartDate != nil {
		start = *j.StartDate
	}
	b := &model.Booking{
		ID:                uuid.New().String(),
		JobID:             jobID,
		QuotationID:       quotationID,
		ClientID:          clientID,
		ServiceProviderID: q.ServiceProviderID,
		State:             model.BookingPending,
		StartDate:         start,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.bookings[b.ID] = b
	cp := *b
	res.Booking = &cp
	return res, nil
}

func (s *MemoryStore) RejectQuotation(_ context.Context, jobID, quotationID, clientID, reasonID, note string) (*model.Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.ClientID != clientID {
		return nil, ErrNotFound
	}
	q, ok := s.quotations[quotationID]
	if !ok || q.JobID != jobID {
		return nil, ErrNotFound
	}
	if q.State != model.QuotationPending {
		return nil, ErrInvalidState
	}
	q.State = model.QuotationRejected
	q.RejectReasonID = reasonID
	q.RejectNote = note
	q.UpdatedAt = time.Now()
	cp := *q
	return &cp, nil
}

func (s *MemoryStore) MarkQuotationRead(_ context.Context, quotationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotations[quotationID]
	if !ok {
		return ErrNotFound
	}
	q.ReadByClient = true
	return nil
}

func (s *MemoryStore) QuotationByID(_ context.Context, id string) (*model.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *MemoryStore) QuotationsForJob(_ context.Context, jobID, clientID string, p Page) ([]model.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID]
	if !ok || j.ClientID != clientID {
		return nil, ErrNotFound
	}
	var out []model.Quotation
	for _, q := range s.quotations {
		if q.JobID == jobID {
			out = append(out, *q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := pageBounds(p, len(out))
	return out[start:end], nil
}

func (s *MemoryStore) ProviderQuotations(_ context.Context, providerID string, p Page) ([]model.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Quotation
	for _, q := range s.quotations {
		if q.ServiceProviderID == providerID {
			out = append(out, *q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := pageBounds(p, len(out))
	return out[start:end], nil
}

// ----- bookings -----

func (s *MemoryStore) BookingByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListBookings(_ context.Context, userID string, p Page) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if b.ClientID == userID || b.ServiceProviderID == userID {
			out = append(out, *b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := pageBounds(p, len(out))
	return out[start:end], nil
}

func (s *MemoryStore) bookingParty(id, actorID string) (*model.Booking, model.AccountType, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	side, isParty := b.Party(actorID)
	if !isParty {
		return nil, "", ErrNotFound
	}
	return b, side, nil
}

func (s *MemoryStore) RequestStart(_ context.Context, bookingID, actorID string) (*model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, side, err := s.bookingParty(bookingID, actorID)
	if err != nil {
		return nil, false, err
	}
	if b.State != model.BookingPending {
		return nil, false, ErrInvalidState
	}
	if side == model.AccountClient {
		b.ClientStartReq = true
	} else {
		b.ProviderStartReq = true
	}
	transitioned := false
	if b.ClientStartReq && b.ProviderStartReq {
		b.State = model.BookingActive
		transitioned = true
	}
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, transitioned, nil
}

func (s *MemoryStore) DenyStart(_ context.Context, bookingID, actorID string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.bookingParty(bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if b.State != model.BookingPending {
		return nil, ErrInvalidState
	}
	b.ClientStartReq = false
	b.ProviderStartReq = false
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) RequestFinish(_ context.Context, bookingID, actorID string) (*model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, side, err := s.bookingParty(bookingID, actorID)
	if err != nil {
		return nil, false, err
	}
	if b.State != model.BookingActive {
		return nil, false, ErrInvalidState
	}
	if side == model.AccountClient {
		b.ClientFinishReq = true
	} else {
		b.ProviderFinishReq = true
	}
	now := time.Now()
	transitioned := false
	if b.ClientFinishReq && b.ProviderFinishReq {
		b.State = model.BookingCompleted
		transitioned = true
		if j, ok := s.jobs[b.JobID]; ok {
			j.State = model.JobClosed
			j.UpdatedAt = now
		}
	}
	b.UpdatedAt = now
	cp := *b
	return &cp, transitioned, nil
}

func (s *MemoryStore) DenyFinish(_ context.Context, bookingID, actorID string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.bookingParty(bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if b.State != model.BookingActive {
		return nil, ErrInvalidState
	}
	b.ClientFinishReq = false
	b.ProviderFinishReq = false
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) FileDispute(_ context.Context, bookingID, actorID, reasonID, note string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.bookingParty(bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if b.State != model.BookingPending && b.State != model.BookingActive {
		return nil, ErrInvalidState
	}
	b.State = model.BookingDispute
	b.DisputeReasonID = reasonID
	b.DisputeNote = note
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ExpirePendingBefore(_ context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = defaultPageLimit
	}
	var out []model.Booking
	for _, b := range s.bookings {
		if len(out) >= limit {
			break
		}
		if b.State == model.BookingPending && b.StartDate.Before(cutoff) {
			b.State = model.BookingExpired
			b.UpdatedAt = time.Now()
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpcomingBookings(_ context.Context, from, to time.Time, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = defaultPageLimit
	}
	var out []model.Booking
	for _, b := range s.bookings {
		if len(out) >= limit {
			break
		}
		if b.State != model.BookingPending && b.State != model.BookingActive {
			continue
		}
		if b.StartDate.Before(from) || !b.StartDate.Before(to) {
			continue
		}
		if b.RemindedAt != nil {
			continue
		}
		t := from
		b.RemindedAt = &t
		out = append(out, *b)
	}
	return out, nil
}

func (s *MemoryStore) TryBeginSweep(_ context.Context, name string, now time.Time, minInterval time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.sweeps[name]; ok && now.Before(last.Add(minInterval)) {
		return false, nil
	}
	s.sweeps[name] = now
	return true, nil
}

// ----- chat -----

func (s *MemoryStore) EnsureConversation(_ context.Context, jobID, clientID, providerID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conversations[jobID]; ok {
		cp := *c
		return &cp, nil
	}
	c := &model.Conversation{
		ID:                uuid.New().String(),
		JobID:             jobID,
		ClientID:          clientID,
		ServiceProviderID: providerID,
		CreatedAt:         time.Now(),
	}
	s.conversations[jobID] = c
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ConversationByID(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conversations {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveMessage(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], *m)
	return nil
}

func (s *MemoryStore) Messages(_ context.Context, conversationID string, p Page) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := append([]model.Message(nil), s.messages[conversationID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	start, end := pageBounds(p, len(msgs))
	return msgs[start:end], nil
}

var _ Store = (*MemoryStore)(nil)
