package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workhub-dev/workhub/internal/model"
)

const pgUniqueViolation = "23505"

// Postgres implements Store on a pgx pool. Every compound method runs inside
// one transaction; per-wallet and per-job serialization uses SELECT ... FOR
// UPDATE row locks.
type Postgres struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewPostgres wraps an initialized pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (p *Postgres) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFoundIfNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ----- users & wallets -----

func (p *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, account_type, push_token, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.AccountType, u.PushToken, u.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO wallets (id, user_id, balance, credit_balance, created_at)
			 VALUES ($1, $2, 0, 0, $3)`,
			uuid.New().String(), u.ID, u.CreatedAt)
		return err
	})
}

func (p *Postgres) scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AccountType, &u.PushToken, &u.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &u, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, account_type, push_token, created_at
		 FROM users WHERE email = $1`, email))
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*model.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, account_type, push_token, created_at
		 FROM users WHERE id = $1`, id))
}

func (p *Postgres) SetPushToken(ctx context.Context, userID, token string) error {
	res, err := p.pool.Exec(ctx, `UPDATE users SET push_token = $1 WHERE id = $2`, token, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- ledger -----

// applyLedger moves amount (signed) on the selected balance and writes the
// ledger row inside the caller's transaction. The wallet row is locked first
// so concurrent spends against one wallet serialize.
func applyLedger(ctx context.Context, tx pgx.Tx, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error) {
	var walletID string
	var balance, credit int64
	err := tx.QueryRow(ctx,
		`SELECT id, balance, credit_balance FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&walletID, &balance, &credit)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}

	var column string
	switch kind {
	case model.BalanceMoney:
		if balance+amount < 0 {
			return nil, ErrInsufficientFunds
		}
		column = "balance"
	case model.BalanceCredit:
		if credit+amount < 0 {
			return nil, ErrInsufficientCredit
		}
		column = "credit_balance"
	default:
		return nil, ErrInvalidState
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET `+column+` = `+column+` + $1 WHERE id = $2`,
		amount, walletID)
	if err != nil {
		return nil, err
	}

	entry := &model.WalletTransaction{
		ID:          uuid.New().String(),
		WalletID:    walletID,
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO wallet_transactions (id, wallet_id, user_id, kind, amount, type, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.WalletID, entry.UserID, entry.Kind, entry.Amount, entry.Type, entry.Description, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (p *Postgres) Credit(ctx context.Context, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error) {
	var entry *model.WalletTransaction
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		entry, err = applyLedger(ctx, tx, userID, kind, amount, txType, description)
		return err
	})
	return entry, err
}

func (p *Postgres) Debit(ctx context.Context, userID string, kind model.BalanceKind, amount int64, txType model.TransactionType, description string) (*model.WalletTransaction, error) {
	var entry *model.WalletTransaction
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		entry, err = applyLedger(ctx, tx, userID, kind, -amount, txType, description)
		return err
	})
	return entry, err
}

func (p *Postgres) WalletByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	var w model.Wallet
	err := p.pool.QueryRow(ctx,
		`SELECT id, user_id, balance, credit_balance, created_at FROM wallets WHERE user_id = $1`,
		userID).Scan(&w.ID, &w.UserID, &w.Balance, &w.CreditBalance, &w.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &w, nil
}

func (p *Postgres) listTransactions(ctx context.Context, builder sq.SelectBuilder) ([]model.WalletTransaction, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WalletTransaction
	for rows.Next() {
		var t model.WalletTransaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.UserID, &t.Kind, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) txSelect(pg Page) sq.SelectBuilder {
	limit := pg.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return p.sb.
		Select("id", "wallet_id", "user_id", "kind", "amount", "type", "description", "created_at").
		From("wallet_transactions").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(pg.Offset))
}

func (p *Postgres) Transactions(ctx context.Context, userID string, pg Page) ([]model.WalletTransaction, error) {
	return p.listTransactions(ctx, p.txSelect(pg).Where(sq.Eq{"user_id": userID}))
}

func (p *Postgres) AllTransactions(ctx context.Context, pg Page) ([]model.WalletTransaction, error) {
	return p.listTransactions(ctx, p.txSelect(pg))
}

func (p *Postgres) PurchaseCredits(ctx context.Context, userID string, qty, pricePerCredit int64) (*model.Wallet, error) {
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := applyLedger(ctx, tx, userID, model.BalanceMoney, -qty*pricePerCredit, model.TxPurchaseCredit, "credit purchase"); err != nil {
			return err
		}
		_, err := applyLedger(ctx, tx, userID, model.BalanceCredit, qty, model.TxPurchaseCredit, "credit purchase")
		return err
	})
	if err != nil {
		return nil, err
	}
	return p.WalletByUserID(ctx, userID)
}

func (p *Postgres) CreatePromotion(ctx context.Context, promo *model.Promotion) error {
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO promotions (id, code, amount, active, used_by, used_at, created_at)
		 VALUES ($1, $2, $3, $4, '', NULL, $5)`,
		promo.ID, promo.Code, promo.Amount, promo.Active, promo.CreatedAt)
	return err
}

var _ Store = (*Postgres)(nil)
