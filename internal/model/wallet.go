package model

import "time"

// Wallet holds a user's money balance and, for service providers, the prepaid
// credit balance spent on quotation submissions. Balances are integer units
// (smallest currency unit for money, whole credits for credit).
type Wallet struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Balance       int64     `json:"balance"`
	CreditBalance int64     `json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// BalanceKind selects which wallet column a ledger entry moves.
type BalanceKind string

const (
	BalanceMoney  BalanceKind = "money"
	BalanceCredit BalanceKind = "credit"
)

// TransactionType labels a ledger entry.
type TransactionType string

const (
	TxPurchaseCredit      TransactionType = "PurchaseCredit"
	TxDiscountCredit      TransactionType = "DiscountCredit"
	TxServiceFee          TransactionType = "ServiceFee"
	TxWithdrawal          TransactionType = "Withdrawal"
	TxRefund              TransactionType = "Refund"
	TxPromotion           TransactionType = "Promotion"
	TxAddMoney            TransactionType = "AddMoney"
	TxSubscriptionDebts   TransactionType = "SubscriptionDebts"
	TxSubscriptionPayment TransactionType = "SubscriptionPayment"
	TxServicePayment      TransactionType = "ServicePayment"
	TxServiceSalary       TransactionType = "ServiceSalary"
)

// WalletTransaction is an append-only ledger row. Amount is signed: debits are
// negative, credits positive. The wallet balance is never mutated without a row
// written in the same storage transaction.
type WalletTransaction struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	UserID      string          `json:"user_id"`
	Kind        BalanceKind     `json:"kind"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Promotion is a one-shot discount a client may attach when accepting a
// quotation. A promotion is consumed the moment acceptance commits.
type Promotion struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Amount    int64      `json:"amount"`
	Active    bool       `json:"active"`
	UsedBy    string     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
