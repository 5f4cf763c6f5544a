package ledger

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/workhub-dev/workhub/internal/config"
	"github.com/workhub-dev/workhub/internal/httpx"
	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/store"
)

// Handlers exposes the wallet over HTTP. Balance math lives in the store so
// every mutation shares the same locking and ledger-row discipline.
type Handlers struct {
	Store store.Store
	Cfg   *config.Config
}

func NewHandlers(st store.Store, cfg *config.Config) *Handlers {
	return &Handlers{Store: st, Cfg: cfg}
}

// Balance returns the authenticated user's wallet balances.
func (h *Handlers) Balance(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	w, err := h.Store.WalletByUserID(c.Request().Context(), userID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":        userID,
		"balance":        w.Balance,
		"credit_balance": w.CreditBalance,
	})
}

type TopupRequest struct {
	Amount int64 `json:"amount"`
}

// Topup adds money to the wallet. Payment capture happens upstream, this
// records the settled amount.
func (h *Handlers) Topup(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(TopupRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	tx, err := h.Store.Credit(c.Request().Context(), userID, model.BalanceMoney, req.Amount, model.TxAddMoney, "wallet topup")
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transaction": tx})
}

type WithdrawRequest struct {
	Amount int64 `json:"amount"`
}

// Withdraw debits money from the wallet.
func (h *Handlers) Withdraw(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(WithdrawRequest)
	if err := c.Bind(req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	tx, err := h.Store.Debit(c.Request().Context(), userID, model.BalanceMoney, req.Amount, model.TxWithdrawal, "wallet withdrawal")
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transaction": tx})
}

type PurchaseCreditsRequest struct {
	Quantity int64 `json:"quantity"`
}

// PurchaseCredits converts money into quotation credits at the configured
// price per credit.
func (h *Handlers) PurchaseCredits(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	req := new(PurchaseCreditsRequest)
	if err := c.Bind(req); err != nil || req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}
	w, err := h.Store.PurchaseCredits(c.Request().Context(), userID, req.Quantity, h.Cfg.CreditPrice)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"balance":        w.Balance,
		"credit_balance": w.CreditBalance,
	})
}

// Transactions returns the authenticated user's ledger, newest first.
func (h *Handlers) Transactions(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txs, err := h.Store.Transactions(c.Request().Context(), userID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AllTransactions returns every ledger row. Super admin only, guarded at the
// route.
func (h *Handlers) AllTransactions(c echo.Context) error {
	txs, err := h.Store.AllTransactions(c.Request().Context(), httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
